package systems

import "github.com/pthm-cable/brakesim/components"

// UpdateStraightAir runs the electromagnetic straight air brake. The brake
// pipe and auxiliary reservoir stay charged as an automatic backbone; the
// notch drives the cylinder from the auxiliary reservoir, and a pipe that
// falls below the auxiliary reservoir forces an emergency application.
func UpdateStraightAir(b *components.CarBrake, dt, speed float64, in components.Inputs) (float64, components.AirSound) {
	bp := &b.BrakePipe
	ar := &b.AuxiliaryReservoir
	tol := b.Spec.Tolerance

	chargeEqualizing(b, dt)
	if b.Spec.Type == components.TypeMain {
		servoBrakePipe(b, dt, false)
	}
	if bp.Pressure > ar.Pressure+tol {
		refillAuxiliary(b, dt, 1)
	}

	emergency := in.Emergency || bp.Pressure+tol < ar.Pressure
	b.Emergency = emergency

	target, commanded := commandTarget(b, in, speed, emergency)
	b.Target = target
	updateStraightAirPipe(b, commanded, emergency, dt)

	sound := chaseTarget(b, ar, ar.Coefficients.BrakeCylinder, target, emergency, dt)
	return cylinderDeceleration(b, in.Notch, speed), sound
}

// updateStraightAirPipe rate-limits the straight air pipe toward the
// commanded pressure. In emergency the pipe is cut out and vents at the
// emergency rate.
func updateStraightAirPipe(b *components.CarBrake, commanded float64, emergency bool, dt float64) {
	sap := &b.StraightAirPipe
	tol := b.Spec.Tolerance

	goal, bleed := commanded, sap.ReleaseRate
	if emergency {
		goal, bleed = 0, sap.EmergencyRate
	}

	switch {
	case sap.Pressure+tol < goal:
		d := goal - sap.Pressure
		sap.Pressure += minf(GetRate(closeness(d, sap.Capacity), sap.ServiceRate*dt), d)
	case sap.Pressure > goal+tol || (goal == 0 && sap.Pressure > 0):
		d := sap.Pressure - goal
		vent(sap, minf(GetRate(closeness(d, sap.Capacity), bleed*dt), d), goal)
	}
	sap.Clamp()
}
