// Package train drives a consist of car brakes through simulation ticks.
package train

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/brakesim/components"
	"github.com/pthm-cable/brakesim/config"
	"github.com/pthm-cable/brakesim/systems"
	"github.com/pthm-cable/brakesim/telemetry"
)

// Options configures a Train's host-side collaborators.
type Options struct {
	OutputManager  *telemetry.OutputManager
	Metrics        *telemetry.Metrics
	LogStats       bool    // Log window stats and bookmarks to slog
	StatsWindowSec float64 // Overrides telemetry.stats_window when > 0

	// StatsCallback receives every flushed stats window.
	StatsCallback func(telemetry.WindowStats)
	// SoundCallback receives every air sound as it fires.
	SoundCallback func(telemetry.SoundEvent)
	// BookmarkCallback receives every triggered bookmark.
	BookmarkCallback func(telemetry.Bookmark)
}

// Train holds one ECS entity per car and steps them in consist order.
type Train struct {
	cfg   *config.Config
	world *ecs.World

	carMapper *ecs.Map2[components.Car, components.CarBrake]
	carFilter *ecs.Filter2[components.Car, components.CarBrake]
	carMap    *ecs.Map1[components.Car]
	brakeMap  *ecs.Map1[components.CarBrake]

	// Consist order. Pointers stay valid because no entity changes
	// archetype after construction.
	entities []ecs.Entity
	cars     []*components.Car // Signed speed each brake sees
	brakes   []*components.CarBrake
	names    []string

	inputs   components.Inputs
	schedule *Schedule

	// State
	tick        int32
	simTime     float64
	speed       float64 // m/s, never negative
	distance    float64
	decel       float64 // Train deceleration of the last tick
	pipeBroken  bool
	sounds      []components.AirSound // Per car, last tick
	pipeRate    float64
	sampleTicks int32

	// Telemetry
	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	metrics          *telemetry.Metrics
	logStats         bool
	statsCallback    func(telemetry.WindowStats)
	soundCallback    func(telemetry.SoundEvent)
	bookmarkCallback func(telemetry.Bookmark)
	cylinders        []float64 // Scratch for window flushes
}

// New builds a train from a loaded config.
func New(cfg *config.Config, opts Options) (*Train, error) {
	n := len(cfg.Derived.Cars)
	if n == 0 {
		return nil, fmt.Errorf("building train: %w: no cars configured", systems.ErrInvalidBrakeConfig)
	}

	schedule, err := NewSchedule(cfg.Scenario.Steps)
	if err != nil {
		return nil, fmt.Errorf("building train: %w", err)
	}

	world := ecs.NewWorld()
	t := &Train{
		cfg:       cfg,
		world:     world,
		carMapper: ecs.NewMap2[components.Car, components.CarBrake](world),
		carFilter: ecs.NewFilter2[components.Car, components.CarBrake](world),
		carMap:    ecs.NewMap1[components.Car](world),
		brakeMap:  ecs.NewMap1[components.CarBrake](world),
		entities:  make([]ecs.Entity, 0, n),
		cars:      make([]*components.Car, 0, n),
		brakes:    make([]*components.CarBrake, 0, n),
		names:     make([]string, 0, n),
		schedule:  schedule,
		sounds:    make([]components.AirSound, n),
		pipeRate:  cfg.Brake.PipePropagationRate,
		cylinders: make([]float64, 0, n),

		outputManager: opts.OutputManager,
		metrics:       opts.Metrics,
		logStats:      opts.LogStats,
		statsCallback: opts.StatsCallback,
		soundCallback: opts.SoundCallback,

		bookmarkCallback: opts.BookmarkCallback,
	}

	t.speed = clampSpeed(cfg.Scenario.InitialSpeed, cfg.Simulation.MaxSpeed)

	for i := 0; i < n; i++ {
		brake, err := cfg.NewCarBrake(i)
		if err != nil {
			return nil, fmt.Errorf("building car %d (%s): %w", i, cfg.Derived.Cars[i].Name, err)
		}
		car := components.Car{Index: i, Speed: t.speed}
		e := t.carMapper.NewEntity(&car, &brake)
		t.entities = append(t.entities, e)
		t.names = append(t.names, cfg.Derived.Cars[i].Name)
	}
	// Resolve pointers once every entity exists
	for _, e := range t.entities {
		t.cars = append(t.cars, t.carMap.Get(e))
		t.brakes = append(t.brakes, t.brakeMap.Get(e))
	}
	t.syncCarSpeeds()

	window := cfg.Telemetry.StatsWindow
	if opts.StatsWindowSec > 0 {
		window = opts.StatsWindowSec
	}
	t.collector = telemetry.NewCollector(window, cfg.Simulation.DT)
	t.perfCollector = telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)
	t.bookmarkDetector = telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistorySize, telemetry.BookmarkThresholds{
		FullReleaseMaxCylinder:  cfg.Bookmarks.FullRelease.MaxCylinder,
		FullReleaseMinPeak:      cfg.Bookmarks.FullRelease.MinPeak,
		StoppedSpeed:            cfg.Bookmarks.TrainStopped.Speed,
		MainReservoirLowFrac:    cfg.Bookmarks.MainReservoirLow.Fraction,
		MainReservoirLowWindows: cfg.Bookmarks.MainReservoirLow.Windows,
	})
	t.sampleTicks = int32(max(cfg.Derived.SampleTicks, 1))

	slog.Debug("train built", "cars", n, "scenario", cfg.Scenario.Name, "speed", t.speed)
	return t, nil
}

func clampSpeed(v, maxSpeed float64) float64 {
	if v < 0 {
		v = 0
	}
	if maxSpeed > 0 && v > maxSpeed {
		v = maxSpeed
	}
	return v
}

// SetInputs replaces the handle state used from the next tick on. Scheduled
// steps still override it when they fall due.
func (t *Train) SetInputs(in components.Inputs) {
	t.inputs = in
	t.syncCarSpeeds()
}

// Inputs returns the current handle state.
func (t *Train) Inputs() components.Inputs {
	return t.inputs
}

// SetSpeed sets the train speed, clamped to [0, max_speed].
func (t *Train) SetSpeed(v float64) {
	t.speed = clampSpeed(v, t.cfg.Simulation.MaxSpeed)
	t.syncCarSpeeds()
}

// BreakPipe opens the last brake pipe of the consist to atmosphere for the
// rest of the run, as if the train had parted.
func (t *Train) BreakPipe() {
	if !t.pipeBroken {
		slog.Info("brake pipe broken", "tick", t.tick)
	}
	t.pipeBroken = true
}

// Step advances the whole train by dt seconds. A dt above max_dt is clamped;
// a non-positive dt does nothing.
func (t *Train) Step(dt float64) {
	if maxDT := t.cfg.Simulation.MaxDT; maxDT > 0 && dt > maxDT {
		dt = maxDT
	}
	if !(dt > 0) {
		return
	}

	t.perfCollector.StartTick(len(t.brakes))

	t.perfCollector.StartPhase(telemetry.PhaseSchedule)
	if in, changed, breakPipe := t.schedule.Advance(t.simTime); changed {
		t.inputs = in
		t.syncCarSpeeds()
		if breakPipe {
			t.BreakPipe()
		}
	}

	t.perfCollector.StartPhase(telemetry.PhasePipePropagation)
	systems.PropagateBrakePipe(t.brakes, t.pipeRate, dt)
	if t.pipeBroken {
		t.ventBrokenPipe()
	}

	t.perfCollector.StartPhase(telemetry.PhaseBrakes)
	for i, b := range t.brakes {
		_, t.sounds[i] = systems.UpdateBrake(b, dt, t.cars[i].Speed, t.inputs)
	}

	t.perfCollector.StartPhase(telemetry.PhaseDynamics)
	t.updateDynamics(dt)

	t.tick++
	t.simTime += dt

	t.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	t.recordTelemetry()

	d := t.perfCollector.EndTick()
	t.metrics.RecordTick(context.Background(), d, t.speed)
}

// ventBrokenPipe empties the pipe of the last car that has one.
func (t *Train) ventBrokenPipe() {
	for i := len(t.brakes) - 1; i >= 0; i-- {
		if t.brakes[i].BrakePipe.Capacity > 0 {
			t.brakes[i].BrakePipe.Pressure = 0
			return
		}
	}
}

// Run steps the train at the configured dt until maxTicks ticks have run
// or ctx is cancelled.
func (t *Train) Run(ctx context.Context, maxTicks int) error {
	dt := t.cfg.Simulation.DT
	for i := 0; i < maxTicks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		t.Step(dt)
	}
	return nil
}

// Tick returns the number of ticks stepped.
func (t *Train) Tick() int32 { return t.tick }

// SimTime returns the simulated seconds elapsed.
func (t *Train) SimTime() float64 { return t.simTime }

// Speed returns the train speed in m/s.
func (t *Train) Speed() float64 { return t.speed }

// Distance returns the distance travelled in metres.
func (t *Train) Distance() float64 { return t.distance }

// Deceleration returns the train deceleration of the last tick in m/s².
func (t *Train) Deceleration() float64 { return t.decel }

// Len returns the number of cars.
func (t *Train) Len() int { return len(t.brakes) }

// Brake returns the brake of car i. The pointer is owned by the train.
func (t *Train) Brake(i int) *components.CarBrake { return t.brakes[i] }

// Name returns the configured name of car i.
func (t *Train) Name(i int) string { return t.names[i] }

// Sound returns the air sound car i fired on the last tick.
func (t *Train) Sound(i int) components.AirSound { return t.sounds[i] }

// Car returns the ECS car component of car i.
func (t *Train) Car(i int) *components.Car { return t.cars[i] }

// PerfStats returns timing statistics over the perf window.
func (t *Train) PerfStats() telemetry.PerfStats { return t.perfCollector.Stats() }
