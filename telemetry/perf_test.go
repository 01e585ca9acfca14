package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick(4)
		pc.StartPhase(PhasePipePropagation)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseBrakes)
		time.Sleep(200 * time.Microsecond)
		if d := pc.EndTick(); d <= 0 {
			t.Fatalf("tick %d duration = %v", i, d)
		}
	}

	stats := pc.Stats()
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration")
	}
	if stats.PhaseAvg[PhasePipePropagation] <= 0 {
		t.Error("pipe_propagation not tracked")
	}
	if stats.PhaseAvg[PhaseBrakes] <= 0 {
		t.Error("brakes not tracked")
	}
	if stats.PhaseAvg[PhaseDynamics] != 0 {
		t.Errorf("dynamics = %v, want 0", stats.PhaseAvg[PhaseDynamics])
	}
	// Four cars share the brakes phase.
	if stats.AvgCarUpdate <= 0 || stats.AvgCarUpdate > stats.PhaseAvg[PhaseBrakes] {
		t.Errorf("car update = %v, brakes = %v", stats.AvgCarUpdate, stats.PhaseAvg[PhaseBrakes])
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 10; i++ {
		pc.StartTick(1)
		pc.StartPhase(PhasePipePropagation)
		time.Sleep(10 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration after window filled")
	}
	if stats.TicksPerSecond <= 0 {
		t.Error("expected positive ticks per second")
	}
	if stats.MinTickDuration > stats.MaxTickDuration {
		t.Errorf("min %v > max %v", stats.MinTickDuration, stats.MaxTickDuration)
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick(1)
		pc.StartPhase(PhaseDynamics)
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase(PhaseBrakes)
		time.Sleep(500 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	if stats.PhasePct[PhaseBrakes] <= stats.PhasePct[PhaseDynamics] {
		t.Errorf("brakes %v%% <= dynamics %v%%", stats.PhasePct[PhaseBrakes], stats.PhasePct[PhaseDynamics])
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	stats := NewPerfCollector(10).Stats()
	if stats.AvgTickDuration != 0 || stats.AvgCarUpdate != 0 || stats.TicksPerSecond != 0 {
		t.Errorf("empty stats = %+v", stats)
	}
}

func TestPhaseString(t *testing.T) {
	if got := PhasePipePropagation.String(); got != "pipe_propagation" {
		t.Errorf("String() = %q", got)
	}
	if got := Phase(99).String(); got != "unknown" {
		t.Errorf("String() = %q", got)
	}
}

func TestPerfStats_ToCSV(t *testing.T) {
	var s PerfStats
	s.AvgTickDuration = 50 * time.Microsecond
	s.AvgCarUpdate = 800 * time.Nanosecond
	s.PhasePct[PhaseBrakes] = 60
	s.PhasePct[PhasePipePropagation] = 25

	row := s.ToCSV(600)
	if row.WindowEnd != 600 || row.AvgTickUS != 50 || row.CarUpdateNS != 800 {
		t.Errorf("row = %+v", row)
	}
	if row.BrakesPct != 60 || row.PipePropagationPct != 25 || row.DynamicsPct != 0 {
		t.Errorf("phase columns = %v/%v/%v", row.BrakesPct, row.PipePropagationPct, row.DynamicsPct)
	}
}
