// Package components defines the per-car brake data and ECS components for the simulation.
package components

// BrakeKind selects the control strategy a car's brake runs each tick.
type BrakeKind uint8

const (
	KindAutomatic                  BrakeKind = iota // Triple-valve automatic air brake
	KindElectricCommand                             // Digital / electro-pneumatic command brake
	KindElectromagneticStraightAir                  // Straight air with an automatic backbone
)

var brakeKindNames = [...]string{
	KindAutomatic:                  "automatic",
	KindElectricCommand:            "electric_command",
	KindElectromagneticStraightAir: "electromagnetic_straight_air",
}

func (k BrakeKind) String() string {
	if int(k) < len(brakeKindNames) {
		return brakeKindNames[k]
	}
	return "unknown"
}

// ParseBrakeKind maps a config name to a BrakeKind.
func ParseBrakeKind(s string) (BrakeKind, bool) {
	for i, name := range brakeKindNames {
		if name == s {
			return BrakeKind(i), true
		}
	}
	return 0, false
}

// BrakeType distinguishes the car whose brake drives the brake pipe.
type BrakeType uint8

const (
	TypeMain     BrakeType = iota // Charges and exhausts the brake pipe from its own main reservoir
	TypeFollower                  // Only receives brake-pipe pressure from neighbours
)

func (t BrakeType) String() string {
	if t == TypeMain {
		return "main"
	}
	return "follower"
}

// AirSound is the audio trigger produced by one brake update.
type AirSound uint8

const (
	AirSoundNone AirSound = iota
	AirSoundZero          // Release finished near zero pressure
	AirSoundAir           // Partial release
	AirSoundHigh          // Release started from a full service application
)

func (s AirSound) String() string {
	switch s {
	case AirSoundZero:
		return "air_zero"
	case AirSoundAir:
		return "air"
	case AirSoundHigh:
		return "air_high"
	default:
		return "none"
	}
}

// AirHandle is the position of the automatic brake valve.
type AirHandle uint8

const (
	AirRelease AirHandle = iota
	AirLap
	AirService
)

func (h AirHandle) String() string {
	switch h {
	case AirLap:
		return "lap"
	case AirService:
		return "service"
	default:
		return "release"
	}
}

// ParseAirHandle maps a config name to an AirHandle. Unknown names are reported as not ok.
func ParseAirHandle(s string) (AirHandle, bool) {
	switch s {
	case "", "release":
		return AirRelease, true
	case "lap":
		return AirLap, true
	case "service":
		return AirService, true
	}
	return AirRelease, false
}

// Reverser is the resolved reverser position.
type Reverser int8

const (
	ReverserBackward Reverser = -1
	ReverserNeutral  Reverser = 0
	ReverserForward  Reverser = 1
)

// ElectropneumaticType controls how a motor car blends air braking with
// dynamic braking above its brake control speed.
type ElectropneumaticType uint8

const (
	EPNone                        ElectropneumaticType = iota // No blending
	EPClosingElectromagneticValve                             // Motor brakes alone
	EPDelayFillingControl                                     // Air fills the shortfall of the motor
)

// ParseElectropneumaticType maps a config name to an ElectropneumaticType.
func ParseElectropneumaticType(s string) (ElectropneumaticType, bool) {
	switch s {
	case "", "none":
		return EPNone, true
	case "closing_electromagnetic_valve":
		return EPClosingElectromagneticValve, true
	case "delay_filling_control":
		return EPDelayFillingControl, true
	}
	return EPNone, false
}

// TripleValve is the latched position of the automatic brake's control valve.
type TripleValve uint8

const (
	ValveRelease TripleValve = iota
	ValveLap
	ValveApplication
)

// Inputs holds the already-resolved driver controls for one tick.
type Inputs struct {
	Air       AirHandle // Automatic brake valve
	Notch     int       // Brake notch, 0 = released
	Emergency bool      // Emergency brake
	Reverser  Reverser
}
