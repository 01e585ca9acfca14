package systems

import "github.com/pthm-cable/brakesim/components"

// UpdateElectricCommand runs the electric command brake: the notch sets a
// cylinder pressure directly and the cylinder is charged from the main
// reservoir or exhausted to atmosphere until it matches.
func UpdateElectricCommand(b *components.CarBrake, dt, speed float64, in components.Inputs) (float64, components.AirSound) {
	target, commanded := commandTarget(b, in, speed, in.Emergency)
	b.Emergency = in.Emergency
	b.Target = target

	b.StraightAirPipe.Pressure = commanded
	b.StraightAirPipe.Clamp()

	ar := &b.AuxiliaryReservoir
	scale := 0.0
	if ar.Coefficients.BrakePipe > 0 {
		scale = ar.Coefficients.BrakeCylinder * b.MainReservoir.Coefficients.BrakePipe / ar.Coefficients.BrakePipe
	}
	sound := chaseTarget(b, &b.MainReservoir, scale, target, in.Emergency, dt)
	return cylinderDeceleration(b, in.Notch, speed), sound
}

// commandTarget returns the cylinder target after motor blending and the
// pressure the notch alone commands.
func commandTarget(b *components.CarBrake, in components.Inputs, speed float64, emergency bool) (target, commanded float64) {
	spec := &b.Spec
	if emergency {
		commanded = b.BrakeCylinder.Capacity
	} else if spec.MaxNotch > 0 {
		notch := in.Notch
		if notch < 0 {
			notch = 0
		} else if notch > spec.MaxNotch {
			notch = spec.MaxNotch
		}
		commanded = float64(notch) / float64(spec.MaxNotch) * spec.ServiceMaximumPressure
	}

	target = commanded
	if blending(spec, in, speed, emergency) {
		switch spec.Electropneumatic {
		case components.EPClosingElectromagneticValve:
			target = 0
		case components.EPDelayFillingControl:
			target = delayFillingTarget(b, commanded, in.Notch, speed)
		}
	}
	return target, commanded
}

// blending reports whether the motors take part in braking.
func blending(spec *components.BrakeSpec, in components.Inputs, speed float64, emergency bool) bool {
	return spec.IsMotorCar && !emergency &&
		spec.Electropneumatic != components.EPNone &&
		in.Reverser != components.ReverserNeutral &&
		absf(speed) > spec.BrakeControlSpeed
}

// MotorDeceleration returns the dynamic braking, in m/s², that a blended
// motor car supplies for the pressure commanded in its last update.
func MotorDeceleration(b *components.CarBrake, in components.Inputs, speed float64) float64 {
	spec := &b.Spec
	if spec.Kind == components.KindAutomatic || spec.ServiceMaximumPressure <= 0 {
		return 0
	}
	if !blending(spec, in, speed, b.Emergency) {
		return 0
	}
	full := DecelerationAtServiceMaximum(spec.DecelerationCurves, in.Notch, speed)
	requested := minf(b.StraightAirPipe.Pressure/spec.ServiceMaximumPressure, 1) * full
	return minf(requested, spec.MotorDeceleration)
}

// delayFillingTarget lowers the target so air only supplies what the motors
// cannot.
func delayFillingTarget(b *components.CarBrake, commanded float64, notch int, speed float64) float64 {
	spec := &b.Spec
	full := DecelerationAtServiceMaximum(spec.DecelerationCurves, notch, speed)
	if full <= 0 || spec.ServiceMaximumPressure <= 0 {
		return 0
	}
	requested := commanded / spec.ServiceMaximumPressure * full
	shortfall := requested - spec.MotorDeceleration
	if shortfall <= 0 {
		return 0
	}
	return minf(shortfall/full, 1) * spec.ServiceMaximumPressure
}

// chaseTarget drives the cylinder toward target, charging from src with the
// given coefficient or venting to atmosphere. A release that drops below the
// sound reference fires once and re-arms at the target.
func chaseTarget(b *components.CarBrake, src *components.Reservoir, srcScale, target float64, emergency bool, dt float64) components.AirSound {
	bc := &b.BrakeCylinder
	tol := b.Spec.Tolerance

	switch {
	case bc.Pressure > target+tol || (target == 0 && bc.Pressure > 0):
		d := bc.Pressure - target
		r := minf(GetRate(closeness(d, bc.Capacity), bc.ReleaseRate*dt), d)
		if vent(bc, r, target) > 0 && bc.Pressure < b.SoundReference {
			b.SoundReference = target
			return classifySound(b, target)
		}

	case bc.Pressure+tol < target && src.Pressure > bc.Pressure:
		rate := bc.ServiceChargeRate
		if emergency {
			rate = bc.EmergencyChargeRate
		}
		d := minf(target, src.Pressure) - bc.Pressure
		r := minf(GetRate(closeness(d, bc.Capacity), 2*rate*dt), d)
		transfer(src, bc, r, srcScale, 1, target)
		b.SoundReference = bc.Capacity

	default:
		b.SoundReference = bc.Capacity
	}
	return components.AirSoundNone
}
