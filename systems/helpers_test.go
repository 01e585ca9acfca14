package systems

import (
	"math"
	"testing"

	"github.com/pthm-cable/brakesim/components"
)

const testDT = 1.0 / 60.0

// flatCurves decelerates at 1 m/s² at full service for any speed below 100 m/s.
func flatCurves() []components.AccelerationCurve {
	return []components.AccelerationCurve{{
		StageZeroAcceleration: 1,
		StageOneSpeed:         100,
		StageOneAcceleration:  1,
		StageTwoSpeed:         200,
		StageTwoExponent:      2,
		Multiplier:            1,
	}}
}

func testSpec(kind components.BrakeKind, typ components.BrakeType) components.BrakeSpec {
	return components.BrakeSpec{
		Kind:                   kind,
		Type:                   typ,
		MaxNotch:               8,
		ServiceMaximumPressure: 400000,
		Tolerance:              5000,
		BrakeControlSpeed:      5,
		DecelerationCurves:     flatCurves(),
	}
}

func testReservoirs() ReservoirSet {
	return ReservoirSet{
		Main: components.Reservoir{
			Capacity:     780000,
			Coefficients: components.Coefficients{Equalizing: 0.01, BrakePipe: 0.1},
		},
		Equalizing: components.Reservoir{
			Capacity: 490000, ChargeRate: 200000, ServiceRate: 50000, EmergencyRate: 250000,
		},
		BrakePipe: components.Reservoir{
			Capacity: 490000, ChargeRate: 1e7, ServiceRate: 1.5e6, EmergencyRate: 4e6,
		},
		Auxiliary: components.Reservoir{
			Capacity: 490000, ChargeRate: 200000,
			Coefficients: components.Coefficients{BrakePipe: 0.5, BrakeCylinder: 0.1},
		},
		BrakeCylinder: components.Reservoir{
			Capacity: 440000, ServiceChargeRate: 300000, EmergencyChargeRate: 400000, ReleaseRate: 200000,
		},
		StraightAirPipe: components.Reservoir{
			Capacity: 440000, ServiceRate: 300000, EmergencyRate: 400000, ReleaseRate: 200000,
		},
	}
}

func testCompressor() components.Compressor {
	return components.Compressor{MinimumPressure: 690000, MaximumPressure: 780000, Rate: 5000}
}

func newTestBrake(t *testing.T, spec components.BrakeSpec) *components.CarBrake {
	t.Helper()
	b, err := NewCarBrake(spec, testReservoirs(), testCompressor())
	if err != nil {
		t.Fatalf("NewCarBrake: %v", err)
	}
	return &b
}

func checkBounds(t *testing.T, b *components.CarBrake, tick int) {
	t.Helper()
	for i, r := range b.Reservoirs() {
		if math.IsNaN(r.Pressure) || r.Pressure < 0 || r.Pressure > r.Capacity {
			t.Fatalf("tick %d: %s pressure %g outside [0, %g]",
				tick, components.ReservoirNames[i], r.Pressure, r.Capacity)
		}
	}
}

// run steps the brake n ticks and returns the sounds fired, in order.
func run(t *testing.T, b *components.CarBrake, n int, speed float64, in components.Inputs) []components.AirSound {
	t.Helper()
	var sounds []components.AirSound
	for i := 0; i < n; i++ {
		_, s := UpdateBrake(b, testDT, speed, in)
		checkBounds(t, b, i)
		if s != components.AirSoundNone {
			sounds = append(sounds, s)
		}
	}
	return sounds
}

func fullService() components.Inputs {
	return components.Inputs{Air: components.AirService, Notch: 8}
}

func released() components.Inputs {
	return components.Inputs{Air: components.AirRelease}
}
