package train

import (
	"testing"

	"github.com/pthm-cable/brakesim/components"
	"github.com/pthm-cable/brakesim/config"
)

func TestSchedule_Advance(t *testing.T) {
	s, err := NewSchedule([]config.ScenarioStep{
		{At: 0, Air: "release"},
		{At: 2, Air: "service", Notch: 4},
		{At: 2, Air: "service", Notch: 8, Reverser: 1},
		{At: 5, Air: "lap", BreakPipe: true},
		{At: 9, Emergency: true},
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		time      float64
		changed   bool
		inputs    components.Inputs
		breakPipe bool
	}{
		{0, true, components.Inputs{Air: components.AirRelease}, false},
		{1, false, components.Inputs{}, false},
		// Both steps at 2 s apply; the later one wins
		{2 - 1e-12, true, components.Inputs{Air: components.AirService, Notch: 8, Reverser: components.ReverserForward}, false},
		{4.9, false, components.Inputs{}, false},
		{10, true, components.Inputs{Air: components.AirRelease, Emergency: true}, true},
	}
	for _, tt := range tests {
		in, changed, breakPipe := s.Advance(tt.time)
		if changed != tt.changed {
			t.Errorf("t=%v: changed = %v, want %v", tt.time, changed, tt.changed)
			continue
		}
		if changed && in != tt.inputs {
			t.Errorf("t=%v: inputs = %+v, want %+v", tt.time, in, tt.inputs)
		}
		if breakPipe != tt.breakPipe {
			t.Errorf("t=%v: breakPipe = %v, want %v", tt.time, breakPipe, tt.breakPipe)
		}
	}
	if !s.Done() {
		t.Error("expected schedule to be done")
	}
}

func TestNewSchedule_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		steps []config.ScenarioStep
	}{
		{"unknown handle", []config.ScenarioStep{{At: 0, Air: "full"}}},
		{"out of order", []config.ScenarioStep{{At: 5}, {At: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSchedule(tt.steps); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
