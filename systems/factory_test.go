package systems

import (
	"errors"
	"math"
	"testing"

	"github.com/pthm-cable/brakesim/components"
)

func TestNewCarBrake_StartsAtRest(t *testing.T) {
	for _, kind := range allKinds {
		t.Run(kind.String(), func(t *testing.T) {
			b := newTestBrake(t, testSpec(kind, components.TypeMain))
			if b.MainReservoir.Pressure != b.MainReservoir.Capacity {
				t.Errorf("main reservoir not charged: %g", b.MainReservoir.Pressure)
			}
			if b.BrakePipe.Pressure != b.BrakePipe.Capacity || b.AuxiliaryReservoir.Pressure != b.AuxiliaryReservoir.Capacity {
				t.Error("backbone not charged")
			}
			if b.BrakeCylinder.Pressure != 0 || b.StraightAirPipe.Pressure != 0 {
				t.Error("cylinder or straight air pipe not empty")
			}
			if b.SoundReference != b.BrakeCylinder.Capacity {
				t.Errorf("sound reference should be armed at %g, got %g", b.BrakeCylinder.Capacity, b.SoundReference)
			}
			if b.Valve != components.ValveRelease {
				t.Errorf("expected triple valve in release, got %v", b.Valve)
			}
		})
	}
}

func TestNewCarBrake_CopiesCurves(t *testing.T) {
	spec := testSpec(components.KindAutomatic, components.TypeMain)
	b, err := NewCarBrake(spec, testReservoirs(), testCompressor())
	if err != nil {
		t.Fatalf("NewCarBrake: %v", err)
	}
	spec.DecelerationCurves[0].Multiplier = 99
	if b.Spec.DecelerationCurves[0].Multiplier != 1 {
		t.Error("brake shares the caller's curve table")
	}
}

func TestNewCarBrake_DefaultsCompressorCutOut(t *testing.T) {
	comp := testCompressor()
	comp.MaximumPressure = 0
	b, err := NewCarBrake(testSpec(components.KindAutomatic, components.TypeMain), testReservoirs(), comp)
	if err != nil {
		t.Fatalf("NewCarBrake: %v", err)
	}
	if b.Compressor.MaximumPressure != b.MainReservoir.Capacity {
		t.Errorf("expected cut-out at main reservoir capacity, got %g", b.Compressor.MaximumPressure)
	}
}

func TestNewCarBrake_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		kind   components.BrakeKind
		mutate func(*components.BrakeSpec, *ReservoirSet, *components.Compressor)
	}{
		{"zero service maximum", components.KindAutomatic, func(s *components.BrakeSpec, _ *ReservoirSet, _ *components.Compressor) {
			s.ServiceMaximumPressure = 0
		}},
		{"NaN service maximum", components.KindAutomatic, func(s *components.BrakeSpec, _ *ReservoirSet, _ *components.Compressor) {
			s.ServiceMaximumPressure = math.NaN()
		}},
		{"service above emergency", components.KindElectricCommand, func(s *components.BrakeSpec, _ *ReservoirSet, _ *components.Compressor) {
			s.ServiceMaximumPressure = 450000
		}},
		{"zero tolerance", components.KindAutomatic, func(s *components.BrakeSpec, _ *ReservoirSet, _ *components.Compressor) {
			s.Tolerance = 0
		}},
		{"zero max notch", components.KindElectricCommand, func(s *components.BrakeSpec, _ *ReservoirSet, _ *components.Compressor) {
			s.MaxNotch = 0
		}},
		{"unknown kind", components.BrakeKind(9), func(*components.BrakeSpec, *ReservoirSet, *components.Compressor) {}},
		{"unknown ep type", components.KindElectricCommand, func(s *components.BrakeSpec, _ *ReservoirSet, _ *components.Compressor) {
			s.Electropneumatic = components.ElectropneumaticType(7)
		}},
		{"empty curves", components.KindAutomatic, func(s *components.BrakeSpec, _ *ReservoirSet, _ *components.Compressor) {
			s.DecelerationCurves = nil
		}},
		{"bad curve", components.KindAutomatic, func(s *components.BrakeSpec, _ *ReservoirSet, _ *components.Compressor) {
			s.DecelerationCurves[0].StageTwoSpeed = 1
		}},
		{"negative motor deceleration", components.KindElectricCommand, func(s *components.BrakeSpec, _ *ReservoirSet, _ *components.Compressor) {
			s.MotorDeceleration = -1
		}},
		{"zero cylinder capacity", components.KindElectricCommand, func(_ *components.BrakeSpec, rs *ReservoirSet, _ *components.Compressor) {
			rs.BrakeCylinder.Capacity = 0
		}},
		{"zero pipe capacity", components.KindAutomatic, func(_ *components.BrakeSpec, rs *ReservoirSet, _ *components.Compressor) {
			rs.BrakePipe.Capacity = 0
		}},
		{"negative rate", components.KindElectromagneticStraightAir, func(_ *components.BrakeSpec, rs *ReservoirSet, _ *components.Compressor) {
			rs.StraightAirPipe.ReleaseRate = -5
		}},
		{"negative coefficient", components.KindAutomatic, func(_ *components.BrakeSpec, rs *ReservoirSet, _ *components.Compressor) {
			rs.Main.Coefficients.BrakeCylinder = -0.1
		}},
		{"zero auxiliary divisor", components.KindElectricCommand, func(_ *components.BrakeSpec, rs *ReservoirSet, _ *components.Compressor) {
			rs.Auxiliary.Coefficients.BrakePipe = 0
		}},
		{"compressor above capacity", components.KindAutomatic, func(_ *components.BrakeSpec, _ *ReservoirSet, c *components.Compressor) {
			c.MaximumPressure = 900000
		}},
		{"negative compressor rate", components.KindAutomatic, func(_ *components.BrakeSpec, _ *ReservoirSet, c *components.Compressor) {
			c.Rate = -1
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := testSpec(tt.kind, components.TypeMain)
			rs := testReservoirs()
			comp := testCompressor()
			tt.mutate(&spec, &rs, &comp)

			_, err := NewCarBrake(spec, rs, comp)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidBrakeConfig) {
				t.Errorf("expected ErrInvalidBrakeConfig, got %v", err)
			}
		})
	}
}

func TestNewCarBrake_CommandBrakeNeedsNoBackbone(t *testing.T) {
	rs := testReservoirs()
	rs.Equalizing = components.Reservoir{}
	rs.BrakePipe = components.Reservoir{}
	if _, err := NewCarBrake(testSpec(components.KindElectricCommand, components.TypeMain), rs, testCompressor()); err != nil {
		t.Errorf("command brake should not need equalizing reservoir or brake pipe: %v", err)
	}
}
