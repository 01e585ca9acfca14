package systems

import (
	"math"
	"testing"

	"github.com/pthm-cable/brakesim/components"
)

func TestCurveOutput_Stages(t *testing.T) {
	c := components.AccelerationCurve{
		StageZeroAcceleration: 0.8,
		StageOneSpeed:         10,
		StageOneAcceleration:  1.0,
		StageTwoSpeed:         20,
		StageTwoExponent:      2,
		Multiplier:            1.5,
	}
	tests := []struct {
		name  string
		speed float64
		want  float64
	}{
		{"standstill", 0, 1.5 * 0.8},
		{"stage one midpoint", 5, 1.5 * 0.9},
		{"stage one end", 10, 1.5 * 1.0},
		{"constant power", 15, 1.5 * 10.0 / 15},
		{"stage two start", 20, 1.5 * 0.5},
		{"stage two", 40, 1.5 * 10 * 20 / 1600},
		{"reverse direction", -5, 1.5 * 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CurveOutput(c, tt.speed); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CurveOutput(%g) = %g, want %g", tt.speed, got, tt.want)
			}
		})
	}
}

func TestDecelerationAtServiceMaximum_NotchLookup(t *testing.T) {
	curves := []components.AccelerationCurve{
		{StageZeroAcceleration: 1, StageOneSpeed: 10, StageOneAcceleration: 1, StageTwoSpeed: 20, Multiplier: 1},
		{StageZeroAcceleration: 2, StageOneSpeed: 10, StageOneAcceleration: 2, StageTwoSpeed: 20, Multiplier: 1},
	}
	tests := []struct {
		notch int
		want  float64
	}{
		{0, 2},
		{1, 1},
		{2, 2},
		{8, 2},
		{-1, 2},
	}
	for _, tt := range tests {
		if got := DecelerationAtServiceMaximum(curves, tt.notch, 0); got != tt.want {
			t.Errorf("notch %d: got %g, want %g", tt.notch, got, tt.want)
		}
	}
	if got := DecelerationAtServiceMaximum(nil, 1, 0); got != 0 {
		t.Errorf("empty table: got %g, want 0", got)
	}
}

func TestCylinderDeceleration_ProportionalToPressure(t *testing.T) {
	b := newTestBrake(t, testSpec(components.KindAutomatic, components.TypeMain))

	prev := -1.0
	for p := 0.0; p <= b.BrakeCylinder.Capacity; p += 20000 {
		b.BrakeCylinder.Pressure = p
		d := cylinderDeceleration(b, 8, 10)
		if p == 0 && d != 0 {
			t.Errorf("expected zero deceleration at zero pressure, got %g", d)
		}
		if d < prev {
			t.Errorf("deceleration fell from %g to %g at %g Pa", prev, d, p)
		}
		prev = d
	}
}
