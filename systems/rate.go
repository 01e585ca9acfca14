// Package systems contains the per-tick brake update functions.
package systems

import "github.com/pthm-cable/brakesim/components"

// rateFloor is the share of the raw amount still delivered at equilibrium.
const rateFloor = 0.01

// GetRate throttles a raw flow amount by how close the exchange already is
// to equilibrium. ratio 0 means far from equilibrium, 1 means at it. The
// domain of ratio is [0, 1]: values outside it are clamped, so GetRate is
// strictly decreasing in ratio only inside that range and flat beyond it.
// The result is in [0, amount] and falls quadratically toward
// rateFloor*amount as ratio approaches 1.
func GetRate(ratio, amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	r := clamp01(ratio)
	return amount * (1 + rateFloor - r*r) / (1 + rateFloor)
}

// closeness converts a remaining pressure distance into the ratio GetRate
// expects, relative to scale.
func closeness(distance, scale float64) float64 {
	if scale <= 0 {
		return 1
	}
	return 1 - distance/scale
}

// urgency grows from 0 to 1 as |delta| goes from one to two tolerances.
func urgency(delta, tolerance float64) float64 {
	if tolerance <= 0 {
		return 1
	}
	return clamp01((absf(delta) - tolerance) / tolerance)
}

// transfer moves air from src to dst. Each side is booked half of amount
// scaled by its coefficient, so src loses 0.5*amount*srcScale and dst gains
// 0.5*amount*dstScale. The amount is cut so dst never exceeds limit or its
// capacity, src never goes negative and the pair never inverts. It returns
// the amount actually transferred.
func transfer(src, dst *components.Reservoir, amount, srcScale, dstScale, limit float64) float64 {
	if amount <= 0 || srcScale <= 0 || dstScale <= 0 {
		return 0
	}
	if limit > dst.Capacity {
		limit = dst.Capacity
	}
	amount = minf(amount, 2*(limit-dst.Pressure)/dstScale)
	amount = minf(amount, 2*src.Pressure/srcScale)
	amount = minf(amount, 2*(src.Pressure-dst.Pressure)/(srcScale+dstScale))
	if amount <= 0 {
		return 0
	}
	src.Pressure -= 0.5 * amount * srcScale
	dst.Pressure += 0.5 * amount * dstScale
	src.Clamp()
	dst.Clamp()
	return amount
}

// vent exhausts up to amount to atmosphere without dropping below floor.
func vent(r *components.Reservoir, amount, floor float64) float64 {
	d := r.Pressure - floor
	if d <= 0 || amount <= 0 {
		return 0
	}
	if amount > d {
		amount = d
	}
	r.Pressure -= amount
	r.Clamp()
	return amount
}

// drain bleeds r toward zero at rate, slowing as it empties.
func drain(r *components.Reservoir, rate, dt float64) float64 {
	amount := GetRate(closeness(r.Pressure, r.Capacity), rate*dt)
	return vent(r, amount, 0)
}
