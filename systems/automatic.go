package systems

import "github.com/pthm-cable/brakesim/components"

// UpdateAutomatic runs the triple-valve automatic air brake.
//
// The driver's valve moves the equalizing reservoir, the leading car's brake
// pipe follows it, and each car's triple valve compares the pipe against its
// auxiliary reservoir: a lower pipe applies the cylinder from the auxiliary
// reservoir, a higher pipe recharges the auxiliary reservoir and exhausts
// the cylinder, anything within tolerance holds.
func UpdateAutomatic(b *components.CarBrake, dt, speed float64, in components.Inputs) (float64, components.AirSound) {
	lead := b.Spec.Type == components.TypeMain
	er := &b.EqualizingReservoir

	if in.Emergency && lead {
		drain(er, er.EmergencyRate, dt)
	}
	switch in.Air {
	case components.AirService:
		drain(er, er.ServiceRate, dt)
	case components.AirRelease:
		chargeEqualizing(b, dt)
	}
	if lead {
		servoBrakePipe(b, dt, in.Emergency)
	}

	sound := tripleValve(b, dt, in.Air, in.Emergency)
	b.Emergency = in.Emergency
	return cylinderDeceleration(b, in.Notch, speed), sound
}

// tripleValve moves the valve between application, lap and release and
// performs the matching transfer. Inside the tolerance band release stays
// latched only while the handle is at release, so a release runs to an empty
// cylinder but lapping the handle mid-release holds what is left.
func tripleValve(b *components.CarBrake, dt float64, air components.AirHandle, emergency bool) components.AirSound {
	bp := &b.BrakePipe
	ar := &b.AuxiliaryReservoir
	bc := &b.BrakeCylinder
	tol := b.Spec.Tolerance

	delta := bp.Pressure - ar.Pressure
	switch {
	case bp.Pressure+tol < ar.Pressure:
		b.Valve = components.ValveApplication
	case delta > tol:
		b.Valve = components.ValveRelease
	case b.Valve == components.ValveApplication,
		b.Valve == components.ValveRelease && air != components.AirRelease:
		b.Valve = components.ValveLap
	}
	boost := 1 + urgency(delta, tol)

	switch b.Valve {
	case components.ValveApplication:
		limit, rate := b.Spec.ServiceMaximumPressure, bc.ServiceChargeRate
		if emergency {
			limit, rate = bc.Capacity, bc.EmergencyChargeRate
		}
		b.Target = limit
		if d := minf(limit, ar.Pressure) - bc.Pressure; d > 0 {
			r := minf(GetRate(closeness(d, bc.Capacity), rate*dt*boost), d)
			transfer(ar, bc, r, ar.Coefficients.BrakeCylinder, 1, limit)
		}
		b.SoundReference = bc.Capacity

	case components.ValveRelease:
		b.Target = 0
		if delta > tol {
			refillAuxiliary(b, dt, boost)
		}
		r := GetRate(closeness(bc.Pressure, bc.Capacity), bc.ReleaseRate*dt*boost)
		return releaseSound(b, vent(bc, r, 0))

	default:
		b.Target = bc.Pressure
		b.SoundReference = bc.Capacity
	}
	return components.AirSoundNone
}

// releaseSound fires when a release drops the cylinder below the sound
// reference, then re-arms the reference at an 80/20 blend of the current
// pressure and zero-versus-capacity.
func releaseSound(b *components.CarBrake, vented float64) components.AirSound {
	bc := &b.BrakeCylinder
	if vented <= 0 || bc.Pressure >= b.SoundReference {
		return components.AirSoundNone
	}
	p := 0.8*bc.Pressure - 0.2*bc.Capacity
	if p < 0 {
		p = 0
	}
	b.SoundReference = p
	return classifySound(b, p)
}
