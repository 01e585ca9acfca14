package systems

import "github.com/pthm-cable/brakesim/components"

// PropagateBrakePipe equalizes brake pipe pressure between adjacent cars,
// front to back. Each pair moves at most half its difference per call so
// pressures never cross. Cars without a brake pipe are skipped over.
func PropagateBrakePipe(brakes []*components.CarBrake, rate, dt float64) {
	if rate <= 0 || !(dt > 0) {
		return
	}
	var prev *components.Reservoir
	for _, b := range brakes {
		cur := &b.BrakePipe
		if cur.Capacity <= 0 {
			continue
		}
		if prev != nil {
			equalizePair(prev, cur, rate*dt)
		}
		prev = cur
	}
}

func equalizePair(a, b *components.Reservoir, amount float64) {
	hi, lo := a, b
	if lo.Pressure > hi.Pressure {
		hi, lo = lo, hi
	}
	d := hi.Pressure - lo.Pressure
	if d <= 0 {
		return
	}
	r := GetRate(closeness(d, hi.Capacity), amount)
	r = minf(r, 0.5*d)
	r = minf(r, lo.Headroom())
	hi.Pressure -= r
	lo.Pressure += r
	hi.Clamp()
	lo.Clamp()
}
