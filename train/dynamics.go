package train

import (
	"github.com/pthm-cable/brakesim/components"
	"github.com/pthm-cable/brakesim/systems"
)

// updateDynamics slows the train by the mean deceleration of its cars. Every
// car is taken to have the same mass. Speed never crosses zero.
func (t *Train) updateDynamics(dt float64) {
	var sum float64
	for i, b := range t.brakes {
		sum += b.Deceleration + systems.MotorDeceleration(b, t.inputs, t.cars[i].Speed)
	}
	t.decel = sum / float64(len(t.brakes))

	v0 := t.speed
	v1 := v0 - t.decel*dt
	if v1 < 0 {
		// Stop partway through the tick
		if t.decel > 0 {
			t.distance += v0 * v0 / (2 * t.decel)
		}
		t.speed = 0
	} else {
		t.distance += (v0 + v1) / 2 * dt
		t.speed = v1
	}
	t.syncCarSpeeds()
}

// syncCarSpeeds copies the train speed into every car component, signed by
// the reverser.
func (t *Train) syncCarSpeeds() {
	v := t.speed
	if t.inputs.Reverser == components.ReverserBackward {
		v = -v
	}
	query := t.carFilter.Query()
	for query.Next() {
		car, _ := query.Get()
		car.Speed = v
	}
}
