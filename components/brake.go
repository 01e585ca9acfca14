package components

// AccelerationCurve is a four-stage BVE performance curve. Output is in m/s².
//
//	speed 0            -> StageZeroAcceleration
//	0 .. StageOneSpeed -> linear to StageOneAcceleration
//	.. StageTwoSpeed   -> constant power (a ∝ 1/v)
//	above              -> a ∝ 1/v^StageTwoExponent
type AccelerationCurve struct {
	StageZeroAcceleration float64 `yaml:"stage_zero_acceleration"`
	StageOneSpeed         float64 `yaml:"stage_one_speed"` // m/s
	StageOneAcceleration  float64 `yaml:"stage_one_acceleration"`
	StageTwoSpeed         float64 `yaml:"stage_two_speed"` // m/s
	StageTwoExponent      float64 `yaml:"stage_two_exponent"`
	Multiplier            float64 `yaml:"multiplier"`
}

// BrakeSpec is the configuration of a car's brake, fixed at construction.
type BrakeSpec struct {
	Kind BrakeKind
	Type BrakeType

	MaxNotch               int
	ServiceMaximumPressure float64 // Cylinder pressure at full service
	Tolerance              float64 // Minimum distinguishable pressure differential (Pa)

	IsMotorCar        bool
	BrakeControlSpeed float64 // m/s; blending applies above this speed
	MotorDeceleration float64 // m/s² available from the motors
	Electropneumatic  ElectropneumaticType

	// DecelerationCurves is indexed by notch-1; notch 0 and notches past
	// the end use the last curve.
	DecelerationCurves []AccelerationCurve
}

// CarBrake is the complete brake state of one car. Kind selects which
// reservoirs are live: every kind uses BrakeCylinder and MainReservoir, the
// Automatic and ElectromagneticStraightAir kinds also use the equalizing
// reservoir, brake pipe and auxiliary reservoir. StraightAirPipe carries the
// commanded pressure for the command-based kinds.
type CarBrake struct {
	Spec BrakeSpec

	MainReservoir       Reservoir
	EqualizingReservoir Reservoir
	BrakePipe           Reservoir
	AuxiliaryReservoir  Reservoir
	BrakeCylinder       Reservoir
	StraightAirPipe     Reservoir

	Compressor Compressor
	Valve      TripleValve

	// SoundReference is the cylinder pressure the next release must fall
	// below before another AirSound fires.
	SoundReference float64

	// Read-only telemetry from the last update.
	Emergency    bool    // Emergency asserted, by flag or pipe-break interlock
	Target       float64 // Commanded cylinder pressure
	Deceleration float64 // m/s²
	Sound        AirSound
}

// Reservoirs returns pointers to every reservoir in a fixed order.
func (b *CarBrake) Reservoirs() [6]*Reservoir {
	return [6]*Reservoir{
		&b.MainReservoir,
		&b.EqualizingReservoir,
		&b.BrakePipe,
		&b.AuxiliaryReservoir,
		&b.BrakeCylinder,
		&b.StraightAirPipe,
	}
}

// ReservoirNames matches the order of Reservoirs.
var ReservoirNames = [6]string{
	"main_reservoir",
	"equalizing_reservoir",
	"brake_pipe",
	"auxiliary_reservoir",
	"brake_cylinder",
	"straight_air_pipe",
}

// Car is the ECS component identifying a car within its train.
type Car struct {
	Index int     // Position in the consist, 0 = leading
	Speed float64 // m/s, signed
}
