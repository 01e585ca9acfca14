package systems

import (
	"errors"
	"fmt"
	"math"

	"github.com/pthm-cable/brakesim/components"
)

// ErrInvalidBrakeConfig is wrapped by every construction-time validation error.
var ErrInvalidBrakeConfig = errors.New("invalid brake configuration")

// ReservoirSet carries the reservoir parameters for one car. Pressures are
// ignored; NewCarBrake starts every car charged and released.
type ReservoirSet struct {
	Main            components.Reservoir
	Equalizing      components.Reservoir
	BrakePipe       components.Reservoir
	Auxiliary       components.Reservoir
	BrakeCylinder   components.Reservoir
	StraightAirPipe components.Reservoir
}

// NewCarBrake validates the configuration and returns a brake at rest:
// supply reservoirs at capacity, cylinder and straight air pipe empty,
// triple valve in release.
func NewCarBrake(spec components.BrakeSpec, rs ReservoirSet, comp components.Compressor) (components.CarBrake, error) {
	if err := validateSpec(spec, rs); err != nil {
		return components.CarBrake{}, err
	}
	if err := validateReservoirs(spec.Kind, rs); err != nil {
		return components.CarBrake{}, err
	}
	if err := validateCompressor(comp, rs.Main); err != nil {
		return components.CarBrake{}, err
	}

	b := components.CarBrake{
		Spec:                spec,
		MainReservoir:       rs.Main,
		EqualizingReservoir: rs.Equalizing,
		BrakePipe:           rs.BrakePipe,
		AuxiliaryReservoir:  rs.Auxiliary,
		BrakeCylinder:       rs.BrakeCylinder,
		StraightAirPipe:     rs.StraightAirPipe,
		Compressor:          comp,
		Valve:               components.ValveRelease,
	}
	b.Spec.DecelerationCurves = append([]components.AccelerationCurve(nil), spec.DecelerationCurves...)
	if b.Compressor.MaximumPressure <= 0 {
		b.Compressor.MaximumPressure = rs.Main.Capacity
	}

	b.MainReservoir.Pressure = rs.Main.Capacity
	b.EqualizingReservoir.Pressure = rs.Equalizing.Capacity
	b.BrakePipe.Pressure = rs.BrakePipe.Capacity
	b.AuxiliaryReservoir.Pressure = rs.Auxiliary.Capacity
	b.BrakeCylinder.Pressure = 0
	b.StraightAirPipe.Pressure = 0
	b.SoundReference = rs.BrakeCylinder.Capacity
	return b, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidBrakeConfig, fmt.Sprintf(format, args...))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validateSpec(spec components.BrakeSpec, rs ReservoirSet) error {
	switch spec.Kind {
	case components.KindAutomatic, components.KindElectricCommand, components.KindElectromagneticStraightAir:
	default:
		return invalid("unknown brake kind %d", spec.Kind)
	}
	if spec.Type != components.TypeMain && spec.Type != components.TypeFollower {
		return invalid("unknown brake type %d", spec.Type)
	}
	if spec.MaxNotch < 1 {
		return invalid("max notch must be at least 1, got %d", spec.MaxNotch)
	}
	if !finite(spec.Tolerance) || spec.Tolerance <= 0 {
		return invalid("tolerance must be positive, got %g", spec.Tolerance)
	}
	if !finite(spec.ServiceMaximumPressure) || spec.ServiceMaximumPressure <= 0 {
		return invalid("service maximum pressure must be positive, got %g", spec.ServiceMaximumPressure)
	}
	if spec.ServiceMaximumPressure > rs.BrakeCylinder.Capacity {
		return invalid("service maximum pressure %g exceeds emergency maximum %g",
			spec.ServiceMaximumPressure, rs.BrakeCylinder.Capacity)
	}
	if !finite(spec.BrakeControlSpeed) || spec.BrakeControlSpeed < 0 {
		return invalid("brake control speed must not be negative, got %g", spec.BrakeControlSpeed)
	}
	if !finite(spec.MotorDeceleration) || spec.MotorDeceleration < 0 {
		return invalid("motor deceleration must not be negative, got %g", spec.MotorDeceleration)
	}
	switch spec.Electropneumatic {
	case components.EPNone, components.EPClosingElectromagneticValve, components.EPDelayFillingControl:
	default:
		return invalid("unknown electropneumatic type %d", spec.Electropneumatic)
	}
	if len(spec.DecelerationCurves) == 0 {
		return invalid("deceleration curve table is empty")
	}
	for i, c := range spec.DecelerationCurves {
		if err := validateCurve(c); err != nil {
			return fmt.Errorf("deceleration curve %d: %w", i+1, err)
		}
	}
	return nil
}

func validateCurve(c components.AccelerationCurve) error {
	for _, v := range []float64{c.StageZeroAcceleration, c.StageOneSpeed, c.StageOneAcceleration, c.StageTwoSpeed, c.StageTwoExponent, c.Multiplier} {
		if !finite(v) || v < 0 {
			return invalid("curve values must be finite and non-negative")
		}
	}
	if c.StageOneSpeed <= 0 {
		return invalid("stage one speed must be positive, got %g", c.StageOneSpeed)
	}
	if c.StageTwoSpeed < c.StageOneSpeed {
		return invalid("stage two speed %g is below stage one speed %g", c.StageTwoSpeed, c.StageOneSpeed)
	}
	return nil
}

func validateReservoirs(kind components.BrakeKind, rs ReservoirSet) error {
	pneumatic := kind != components.KindElectricCommand
	checks := []struct {
		name     string
		r        components.Reservoir
		required bool
	}{
		{"main_reservoir", rs.Main, true},
		{"equalizing_reservoir", rs.Equalizing, pneumatic},
		{"brake_pipe", rs.BrakePipe, pneumatic},
		{"auxiliary_reservoir", rs.Auxiliary, pneumatic},
		{"brake_cylinder", rs.BrakeCylinder, true},
		{"straight_air_pipe", rs.StraightAirPipe, true},
	}
	for _, c := range checks {
		if err := validateReservoir(c.r, c.required); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
	}

	// The composite main->cylinder coefficient of the command brake divides
	// by the auxiliary brake-pipe coefficient, so every kind needs it.
	if rs.Auxiliary.Coefficients.BrakePipe <= 0 {
		return invalid("auxiliary_reservoir: brake_pipe coefficient must be positive")
	}
	if rs.Auxiliary.Coefficients.BrakeCylinder <= 0 {
		return invalid("auxiliary_reservoir: brake_cylinder coefficient must be positive")
	}
	if pneumatic && (rs.Main.Coefficients.Equalizing <= 0 || rs.Main.Coefficients.BrakePipe <= 0) {
		return invalid("main_reservoir: equalizing and brake_pipe coefficients must be positive")
	}
	if !pneumatic && rs.Main.Coefficients.BrakePipe <= 0 {
		return invalid("main_reservoir: brake_pipe coefficient must be positive")
	}
	return nil
}

func validateReservoir(r components.Reservoir, required bool) error {
	if !finite(r.Capacity) || r.Capacity < 0 || (required && r.Capacity == 0) {
		return invalid("capacity must be positive, got %g", r.Capacity)
	}
	rates := [...]float64{
		r.ChargeRate, r.ServiceRate, r.EmergencyRate, r.ReleaseRate,
		r.ServiceChargeRate, r.EmergencyChargeRate,
		r.Coefficients.Equalizing, r.Coefficients.BrakePipe, r.Coefficients.BrakeCylinder,
	}
	for _, v := range rates {
		if !finite(v) || v < 0 {
			return invalid("rates and coefficients must be finite and non-negative, got %g", v)
		}
	}
	return nil
}

func validateCompressor(c components.Compressor, main components.Reservoir) error {
	if !finite(c.Rate) || c.Rate < 0 {
		return invalid("compressor: rate must not be negative, got %g", c.Rate)
	}
	if !finite(c.MinimumPressure) || c.MinimumPressure < 0 || c.MinimumPressure > main.Capacity {
		return invalid("compressor: minimum pressure %g outside [0, %g]", c.MinimumPressure, main.Capacity)
	}
	if c.MaximumPressure > 0 && (c.MaximumPressure < c.MinimumPressure || c.MaximumPressure > main.Capacity) {
		return invalid("compressor: maximum pressure %g outside [%g, %g]", c.MaximumPressure, c.MinimumPressure, main.Capacity)
	}
	return nil
}
