package train

import (
	"fmt"

	"github.com/pthm-cable/brakesim/components"
	"github.com/pthm-cable/brakesim/config"
)

// scheduleEpsilon absorbs tick accumulation error when comparing step times.
const scheduleEpsilon = 1e-9

type scheduledStep struct {
	at        float64
	inputs    components.Inputs
	breakPipe bool
}

// Schedule replays a scripted timeline of handle states.
type Schedule struct {
	steps []scheduledStep
	next  int
}

// NewSchedule resolves config steps into inputs. Steps must be in time order.
func NewSchedule(steps []config.ScenarioStep) (*Schedule, error) {
	s := &Schedule{steps: make([]scheduledStep, 0, len(steps))}
	for i, step := range steps {
		air, ok := components.ParseAirHandle(step.Air)
		if !ok {
			return nil, fmt.Errorf("scenario step %d: unknown air handle %q", i+1, step.Air)
		}
		if i > 0 && step.At < steps[i-1].At {
			return nil, fmt.Errorf("scenario step %d: out of time order", i+1)
		}
		s.steps = append(s.steps, scheduledStep{
			at: step.At,
			inputs: components.Inputs{
				Air:       air,
				Notch:     step.Notch,
				Emergency: step.Emergency,
				Reverser:  components.Reverser(step.Reverser),
			},
			breakPipe: step.BreakPipe,
		})
	}
	return s, nil
}

// Advance applies every step due by simTime. It reports the inputs of the
// last step applied, whether any step was applied, and whether one of them
// breaks the pipe.
func (s *Schedule) Advance(simTime float64) (in components.Inputs, changed, breakPipe bool) {
	for s.next < len(s.steps) && s.steps[s.next].at <= simTime+scheduleEpsilon {
		step := s.steps[s.next]
		in = step.inputs
		changed = true
		breakPipe = breakPipe || step.breakPipe
		s.next++
	}
	return in, changed, breakPipe
}

// Done reports whether every step has been applied.
func (s *Schedule) Done() bool {
	return s.next >= len(s.steps)
}
