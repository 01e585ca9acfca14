package systems

import "github.com/pthm-cable/brakesim/components"

// UpdateBrake advances one car's brake by dt seconds at the given speed and
// returns the brake deceleration (m/s², never negative) and the air sound to
// play this tick. It dispatches on the brake kind, mutates only b, and
// leaves every reservoir inside [0, capacity].
func UpdateBrake(b *components.CarBrake, dt, speed float64, in components.Inputs) (float64, components.AirSound) {
	if !(dt > 0) {
		dt = 0
	}

	UpdateCompressor(&b.MainReservoir, &b.Compressor, dt)

	var decel float64
	var sound components.AirSound
	switch b.Spec.Kind {
	case components.KindAutomatic:
		decel, sound = UpdateAutomatic(b, dt, speed, in)
	case components.KindElectricCommand:
		decel, sound = UpdateElectricCommand(b, dt, speed, in)
	case components.KindElectromagneticStraightAir:
		decel, sound = UpdateStraightAir(b, dt, speed, in)
	}

	for _, r := range b.Reservoirs() {
		r.Clamp()
	}
	b.Deceleration = decel
	b.Sound = sound
	return decel, sound
}

// UpdateCompressor runs the main reservoir compressor with cut-in/cut-out
// hysteresis.
func UpdateCompressor(main *components.Reservoir, c *components.Compressor, dt float64) {
	if c.Rate <= 0 {
		return
	}
	if !c.Enabled && main.Pressure < c.MinimumPressure {
		c.Enabled = true
	}
	if !c.Enabled {
		return
	}
	cutOut := c.MaximumPressure
	if cutOut <= 0 || cutOut > main.Capacity {
		cutOut = main.Capacity
	}
	main.Pressure += c.Rate * dt
	if main.Pressure >= cutOut {
		main.Pressure = cutOut
		c.Enabled = false
	}
	main.Clamp()
}

// chargeEqualizing feeds the equalizing reservoir from the main reservoir.
func chargeEqualizing(b *components.CarBrake, dt float64) {
	er := &b.EqualizingReservoir
	mr := &b.MainReservoir
	d := er.Capacity - er.Pressure
	if d <= 0 {
		return
	}
	r := minf(GetRate(closeness(d, er.Capacity), er.ChargeRate*dt), d)
	transfer(mr, er, r, mr.Coefficients.Equalizing, 1, er.Capacity)
}

// servoBand scales the pipe servo between 0.5x and 2x its base rate.
func servoBand(d, scale float64) float64 {
	if scale <= 0 {
		return 2
	}
	return 0.5 + 1.5*clamp01(d/scale)
}

// servoBrakePipe makes the brake pipe follow the equalizing reservoir,
// exhausting to atmosphere or refilling from the main reservoir.
func servoBrakePipe(b *components.CarBrake, dt float64, emergency bool) {
	bp := &b.BrakePipe
	er := &b.EqualizingReservoir
	mr := &b.MainReservoir
	tol := b.Spec.Tolerance

	switch {
	case bp.Pressure > er.Pressure+tol:
		rate := bp.ServiceRate
		if emergency {
			rate = bp.EmergencyRate
		}
		d := bp.Pressure - er.Pressure
		vent(bp, minf(servoBand(d, er.Capacity)*rate*dt, d), er.Pressure)
	case bp.Pressure+tol < er.Pressure:
		d := er.Pressure - bp.Pressure
		r := minf(servoBand(d, er.Capacity)*bp.ChargeRate*dt, d)
		transfer(mr, bp, r, mr.Coefficients.BrakePipe, 1, er.Pressure)
	}
}

// refillAuxiliary charges the auxiliary reservoir from the brake pipe.
// boost multiplies the base rate.
func refillAuxiliary(b *components.CarBrake, dt, boost float64) {
	bp := &b.BrakePipe
	ar := &b.AuxiliaryReservoir
	d := bp.Pressure - ar.Pressure
	if d <= 0 || ar.Coefficients.BrakePipe <= 0 {
		return
	}
	r := minf(GetRate(closeness(d, ar.Capacity), 2*ar.ChargeRate*dt*boost), d)
	transfer(bp, ar, r, 1/ar.Coefficients.BrakePipe, 1, ar.Capacity)
}

// classifySound picks the sound for a release whose next trigger pressure is
// reference.
func classifySound(b *components.CarBrake, reference float64) components.AirSound {
	tol := b.Spec.Tolerance
	switch {
	case reference < tol:
		return components.AirSoundZero
	case b.BrakeCylinder.Pressure > b.Spec.ServiceMaximumPressure-tol:
		return components.AirSoundHigh
	default:
		return components.AirSoundAir
	}
}
