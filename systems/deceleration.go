package systems

import (
	"math"

	"github.com/pthm-cable/brakesim/components"
)

// CurveOutput evaluates an acceleration curve at the given speed. The sign
// of speed is ignored.
func CurveOutput(c components.AccelerationCurve, speed float64) float64 {
	v := absf(speed)
	var a float64
	switch {
	case v <= 0:
		a = c.StageZeroAcceleration
	case v < c.StageOneSpeed:
		t := v / c.StageOneSpeed
		a = c.StageZeroAcceleration*(1-t) + c.StageOneAcceleration*t
	case v < c.StageTwoSpeed:
		a = c.StageOneSpeed * c.StageOneAcceleration / v
	default:
		a = c.StageOneSpeed * c.StageOneAcceleration *
			math.Pow(c.StageTwoSpeed, c.StageTwoExponent-1) / math.Pow(v, c.StageTwoExponent)
	}
	return c.Multiplier * a
}

// DecelerationAtServiceMaximum returns the deceleration the car develops at
// full service cylinder pressure for the given notch. Notch 0 and notches
// past the table use the last curve.
func DecelerationAtServiceMaximum(curves []components.AccelerationCurve, notch int, speed float64) float64 {
	n := len(curves)
	if n == 0 {
		return 0
	}
	idx := n - 1
	if notch >= 1 && notch <= n {
		idx = notch - 1
	}
	return CurveOutput(curves[idx], speed)
}

// cylinderDeceleration scales the full-service deceleration by the current
// cylinder pressure.
func cylinderDeceleration(b *components.CarBrake, notch int, speed float64) float64 {
	ratio := b.BrakeCylinder.Pressure / b.Spec.ServiceMaximumPressure
	d := ratio * DecelerationAtServiceMaximum(b.Spec.DecelerationCurves, notch, speed)
	if d < 0 {
		return 0
	}
	return d
}
