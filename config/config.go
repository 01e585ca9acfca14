// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/brakesim/components"
	"github.com/pthm-cable/brakesim/systems"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Brake      BrakeConfig      `yaml:"brake"`
	Handle     HandleConfig     `yaml:"handle"`
	Curves     CurvesConfig     `yaml:"deceleration_curves"`
	Cars       []CarConfig      `yaml:"cars"`
	Scenario   ScenarioConfig   `yaml:"scenario"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Bookmarks  BookmarksConfig  `yaml:"bookmarks"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimulationConfig holds timing parameters.
type SimulationConfig struct {
	DT       float64 `yaml:"dt"`        // Seconds per tick
	MaxDT    float64 `yaml:"max_dt"`    // Host-side clamp on a single step (0 = none)
	Duration float64 `yaml:"duration"`  // Seconds to run headless (0 = until max ticks)
	MaxSpeed float64 `yaml:"max_speed"` // m/s, clamp on scripted speeds
}

// ReservoirConfig holds the parameters of one reservoir. Rates are Pa/s.
type ReservoirConfig struct {
	Capacity            float64                 `yaml:"capacity"`
	ChargeRate          float64                 `yaml:"charge_rate"`
	ServiceRate         float64                 `yaml:"service_rate"`
	EmergencyRate       float64                 `yaml:"emergency_rate"`
	ReleaseRate         float64                 `yaml:"release_rate"`
	ServiceChargeRate   float64                 `yaml:"service_charge_rate"`
	EmergencyChargeRate float64                 `yaml:"emergency_charge_rate"`
	Coefficients        components.Coefficients `yaml:"coefficients"`
}

// Reservoir converts the config into an empty reservoir.
func (r ReservoirConfig) Reservoir() components.Reservoir {
	return components.Reservoir{
		Capacity:            r.Capacity,
		ChargeRate:          r.ChargeRate,
		ServiceRate:         r.ServiceRate,
		EmergencyRate:       r.EmergencyRate,
		ReleaseRate:         r.ReleaseRate,
		ServiceChargeRate:   r.ServiceChargeRate,
		EmergencyChargeRate: r.EmergencyChargeRate,
		Coefficients:        r.Coefficients,
	}
}

// CompressorConfig holds main reservoir compressor parameters.
type CompressorConfig struct {
	Minimum float64 `yaml:"minimum"` // Cut-in pressure
	Maximum float64 `yaml:"maximum"` // Cut-out pressure (0 = main reservoir capacity)
	Rate    float64 `yaml:"rate"`
}

// BrakeConfig holds the brake parameters shared by every car.
type BrakeConfig struct {
	Tolerance              float64 `yaml:"tolerance"`                // Minimum distinguishable pressure differential (Pa)
	ServiceMaximumPressure float64 `yaml:"service_maximum_pressure"` // Cylinder pressure at full service
	PipePropagationRate    float64 `yaml:"pipe_propagation_rate"`    // Pa/s between adjacent brake pipes

	MainReservoir       ReservoirConfig  `yaml:"main_reservoir"`
	EqualizingReservoir ReservoirConfig  `yaml:"equalizing_reservoir"`
	BrakePipe           ReservoirConfig  `yaml:"brake_pipe"`
	AuxiliaryReservoir  ReservoirConfig  `yaml:"auxiliary_reservoir"`
	BrakeCylinder       ReservoirConfig  `yaml:"brake_cylinder"` // Capacity is the emergency maximum
	StraightAirPipe     ReservoirConfig  `yaml:"straight_air_pipe"`
	Compressor          CompressorConfig `yaml:"compressor"`
}

// HandleConfig holds driver handle parameters.
type HandleConfig struct {
	MaxNotch int `yaml:"max_notch"`
}

// CurvesConfig maps a table name to its per-notch deceleration curves.
type CurvesConfig map[string][]components.AccelerationCurve

// CarConfig describes one car, or Count identical cars, of the consist.
type CarConfig struct {
	Name              string  `yaml:"name"`
	Count             int     `yaml:"count"`               // Repeat this entry (0 = 1)
	Kind              string  `yaml:"kind"`                // automatic, electric_command, electromagnetic_straight_air
	Type              string  `yaml:"type"`                // main or follower (empty = main for the first car)
	Motor             bool    `yaml:"motor"`               // Motor car, eligible for blending
	BrakeControlSpeed float64 `yaml:"brake_control_speed"` // m/s
	MotorDeceleration float64 `yaml:"motor_deceleration"`  // m/s²
	Electropneumatic  string  `yaml:"electropneumatic"`    // none, closing_electromagnetic_valve, delay_filling_control
	Curves            string  `yaml:"curves"`              // Deceleration curve table name
}

// ScenarioConfig is a scripted timeline of resolved handle states.
type ScenarioConfig struct {
	Name         string         `yaml:"name"`
	InitialSpeed float64        `yaml:"initial_speed"` // m/s
	Steps        []ScenarioStep `yaml:"steps"`
}

// ScenarioStep sets the handle state from At seconds until the next step.
type ScenarioStep struct {
	At        float64 `yaml:"at"`
	Air       string  `yaml:"air"` // release, lap, service
	Notch     int     `yaml:"notch"`
	Emergency bool    `yaml:"emergency"`
	Reverser  int     `yaml:"reverser"`   // -1, 0, 1
	BreakPipe bool    `yaml:"break_pipe"` // Open the last brake pipe to atmosphere from here on, as if uncoupled
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`          // Seconds per stats window
	SampleInterval      float64 `yaml:"sample_interval"`       // Seconds between per-car gauge samples
	BookmarkHistorySize int     `yaml:"bookmark_history_size"` // Windows of history kept for detection
	PerfCollectorWindow int     `yaml:"perf_collector_window"` // Ticks averaged by the perf collector
}

// BookmarksConfig holds bookmark detection thresholds.
type BookmarksConfig struct {
	FullRelease      FullReleaseConfig      `yaml:"full_release"`
	TrainStopped     TrainStoppedConfig     `yaml:"train_stopped"`
	MainReservoirLow MainReservoirLowConfig `yaml:"main_reservoir_low"`
}

// FullReleaseConfig holds full release detection parameters.
type FullReleaseConfig struct {
	MaxCylinder float64 `yaml:"max_cylinder"` // Every cylinder at or below this counts as released (Pa)
	MinPeak     float64 `yaml:"min_peak"`     // Only after a window whose peak reached this (Pa)
}

// TrainStoppedConfig holds train stopped detection parameters.
type TrainStoppedConfig struct {
	Speed float64 `yaml:"speed"` // m/s
}

// MainReservoirLowConfig holds main reservoir depletion parameters.
type MainReservoirLowConfig struct {
	Fraction float64 `yaml:"fraction"` // Of main reservoir capacity
	Windows  int     `yaml:"windows"`  // Consecutive stats windows below Fraction, at most bookmark_history_size
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Cars             []CarConfig // Cars with Count expanded, in consist order
	MaxTicks         int         // Simulation.Duration / DT
	StatsWindowTicks int
	SampleTicks      int
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. The result is validated.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file.
		// Lists present in the file replace the defaults wholesale.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Refresh(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Refresh recomputes derived values and validates the result. Call it after
// editing a loaded config in place.
func (c *Config) Refresh() error {
	c.computeDerived()
	return c.Validate()
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.Cars = c.Derived.Cars[:0]
	for _, car := range c.Cars {
		n := car.Count
		if n < 1 {
			n = 1
		}
		for i := 0; i < n; i++ {
			cc := car
			cc.Count = 1
			if n > 1 && cc.Name != "" {
				cc.Name = fmt.Sprintf("%s-%d", car.Name, i+1)
			}
			c.Derived.Cars = append(c.Derived.Cars, cc)
		}
	}
	for i := range c.Derived.Cars {
		car := &c.Derived.Cars[i]
		if car.Name == "" {
			car.Name = fmt.Sprintf("car-%d", i+1)
		}
		if car.Type == "" {
			// Only the leading car drives the pipe unless told otherwise
			if i == 0 {
				car.Type = "main"
			} else {
				car.Type = "follower"
			}
		}
		if car.Curves == "" {
			car.Curves = "default"
		}
	}

	c.Derived.MaxTicks = ticks(c.Simulation.Duration, c.Simulation.DT)
	c.Derived.StatsWindowTicks = max(ticks(c.Telemetry.StatsWindow, c.Simulation.DT), 1)
	c.Derived.SampleTicks = max(ticks(c.Telemetry.SampleInterval, c.Simulation.DT), 1)
}

func ticks(seconds, dt float64) int {
	if dt <= 0 || seconds <= 0 {
		return 0
	}
	return int(math.Round(seconds / dt))
}

// Validate checks the timing parameters and builds every car once so
// misconfigured brakes are rejected before the simulation starts.
func (c *Config) Validate() error {
	if !(c.Simulation.DT > 0) {
		return fmt.Errorf("%w: simulation.dt must be positive, got %g", systems.ErrInvalidBrakeConfig, c.Simulation.DT)
	}
	if c.Simulation.MaxDT < 0 {
		return fmt.Errorf("%w: simulation.max_dt must not be negative", systems.ErrInvalidBrakeConfig)
	}
	if len(c.Derived.Cars) == 0 {
		return fmt.Errorf("%w: no cars configured", systems.ErrInvalidBrakeConfig)
	}
	if w := c.Bookmarks.MainReservoirLow.Windows; w < 1 || w > c.Telemetry.BookmarkHistorySize {
		return fmt.Errorf("bookmarks.main_reservoir_low.windows must be in [1, %d], got %d", c.Telemetry.BookmarkHistorySize, w)
	}
	if c.Brake.PipePropagationRate < 0 {
		return fmt.Errorf("%w: brake.pipe_propagation_rate must not be negative", systems.ErrInvalidBrakeConfig)
	}
	for i, step := range c.Scenario.Steps {
		if _, ok := components.ParseAirHandle(step.Air); !ok {
			return fmt.Errorf("scenario step %d: %w: unknown air handle %q", i+1, systems.ErrInvalidBrakeConfig, step.Air)
		}
		if step.Reverser < -1 || step.Reverser > 1 {
			return fmt.Errorf("scenario step %d: %w: reverser must be -1, 0 or 1", i+1, systems.ErrInvalidBrakeConfig)
		}
		if i > 0 && step.At < c.Scenario.Steps[i-1].At {
			return fmt.Errorf("scenario step %d: %w: steps must be in time order", i+1, systems.ErrInvalidBrakeConfig)
		}
	}
	for i := range c.Derived.Cars {
		if _, err := c.NewCarBrake(i); err != nil {
			return err
		}
	}
	return nil
}

// CarSpec resolves the brake spec of the i-th car of the expanded consist.
func (c *Config) CarSpec(i int) (components.BrakeSpec, error) {
	car := c.Derived.Cars[i]
	wrap := func(format string, args ...any) error {
		return fmt.Errorf("car %d (%s): %w: %s", i+1, car.Name, systems.ErrInvalidBrakeConfig, fmt.Sprintf(format, args...))
	}

	kind, ok := components.ParseBrakeKind(car.Kind)
	if !ok {
		return components.BrakeSpec{}, wrap("unknown brake kind %q", car.Kind)
	}
	var typ components.BrakeType
	switch car.Type {
	case "main":
		typ = components.TypeMain
	case "follower":
		typ = components.TypeFollower
	default:
		return components.BrakeSpec{}, wrap("unknown brake type %q", car.Type)
	}
	ep, ok := components.ParseElectropneumaticType(car.Electropneumatic)
	if !ok {
		return components.BrakeSpec{}, wrap("unknown electropneumatic type %q", car.Electropneumatic)
	}
	curves, ok := c.Curves[car.Curves]
	if !ok {
		return components.BrakeSpec{}, wrap("unknown deceleration curve table %q", car.Curves)
	}

	return components.BrakeSpec{
		Kind:                   kind,
		Type:                   typ,
		MaxNotch:               c.Handle.MaxNotch,
		ServiceMaximumPressure: c.Brake.ServiceMaximumPressure,
		Tolerance:              c.Brake.Tolerance,
		IsMotorCar:             car.Motor,
		BrakeControlSpeed:      car.BrakeControlSpeed,
		MotorDeceleration:      car.MotorDeceleration,
		Electropneumatic:       ep,
		DecelerationCurves:     curves,
	}, nil
}

// Reservoirs returns the shared reservoir parameters.
func (c *Config) Reservoirs() systems.ReservoirSet {
	b := &c.Brake
	return systems.ReservoirSet{
		Main:            b.MainReservoir.Reservoir(),
		Equalizing:      b.EqualizingReservoir.Reservoir(),
		BrakePipe:       b.BrakePipe.Reservoir(),
		Auxiliary:       b.AuxiliaryReservoir.Reservoir(),
		BrakeCylinder:   b.BrakeCylinder.Reservoir(),
		StraightAirPipe: b.StraightAirPipe.Reservoir(),
	}
}

// Compressor returns the compressor parameters.
func (c *Config) Compressor() components.Compressor {
	return components.Compressor{
		MinimumPressure: c.Brake.Compressor.Minimum,
		MaximumPressure: c.Brake.Compressor.Maximum,
		Rate:            c.Brake.Compressor.Rate,
	}
}

// NewCarBrake builds the brake of the i-th car at rest.
func (c *Config) NewCarBrake(i int) (components.CarBrake, error) {
	spec, err := c.CarSpec(i)
	if err != nil {
		return components.CarBrake{}, err
	}
	b, err := systems.NewCarBrake(spec, c.Reservoirs(), c.Compressor())
	if err != nil {
		return components.CarBrake{}, fmt.Errorf("car %d (%s): %w", i+1, c.Derived.Cars[i].Name, err)
	}
	return b, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
