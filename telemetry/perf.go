package telemetry

import (
	"log/slog"
	"time"
)

// Phase identifies one stage of a train step.
type Phase uint8

const (
	PhaseSchedule Phase = iota
	PhasePipePropagation
	PhaseBrakes
	PhaseDynamics
	PhaseTelemetry
	numPhases
)

const noPhase Phase = numPhases

var phaseNames = [numPhases]string{
	PhaseSchedule:        "schedule",
	PhasePipePropagation: "pipe_propagation",
	PhaseBrakes:          "brakes",
	PhaseDynamics:        "dynamics",
	PhaseTelemetry:       "telemetry",
}

func (p Phase) String() string {
	if p < numPhases {
		return phaseNames[p]
	}
	return "unknown"
}

// perfSample is the timing of one tick. Fixed arrays keep the step free of
// allocations.
type perfSample struct {
	tick   time.Duration
	phases [numPhases]time.Duration
	cars   int
}

// PerfCollector keeps a ring of recent tick timings.
type PerfCollector struct {
	samples []perfSample
	next    int
	filled  int

	cur        perfSample
	tickStart  time.Time
	phaseStart time.Time
	phase      Phase
}

// NewPerfCollector returns a collector averaging over the last windowSize ticks.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		samples: make([]perfSample, windowSize),
		phase:   noPhase,
	}
}

// StartTick begins timing a tick that updates the given number of cars.
func (p *PerfCollector) StartTick(cars int) {
	p.tickStart = time.Now()
	p.cur = perfSample{cars: cars}
	p.phase = noPhase
}

// StartPhase closes the running phase, if any, and opens ph.
func (p *PerfCollector) StartPhase(ph Phase) {
	now := time.Now()
	p.closePhase(now)
	p.phaseStart = now
	p.phase = ph
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.phase < numPhases {
		p.cur.phases[p.phase] += now.Sub(p.phaseStart)
	}
}

// EndTick records the tick and returns its wall-clock duration.
func (p *PerfCollector) EndTick() time.Duration {
	now := time.Now()
	p.closePhase(now)
	p.phase = noPhase
	p.cur.tick = now.Sub(p.tickStart)

	p.samples[p.next] = p.cur
	p.next = (p.next + 1) % len(p.samples)
	if p.filled < len(p.samples) {
		p.filled++
	}
	return p.cur.tick
}

// PerfStats aggregates the collector window.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	// Mean time spent updating a single car brake.
	AvgCarUpdate time.Duration

	PhaseAvg [numPhases]time.Duration
	PhasePct [numPhases]float64

	TicksPerSecond float64
}

// Stats aggregates the ticks currently in the window.
func (p *PerfCollector) Stats() PerfStats {
	var s PerfStats
	if p.filled == 0 {
		return s
	}

	var total time.Duration
	var phaseSum [numPhases]time.Duration
	var cars int
	for i, smp := range p.samples[:p.filled] {
		total += smp.tick
		if i == 0 || smp.tick < s.MinTickDuration {
			s.MinTickDuration = smp.tick
		}
		if smp.tick > s.MaxTickDuration {
			s.MaxTickDuration = smp.tick
		}
		for ph, d := range smp.phases {
			phaseSum[ph] += d
		}
		cars += smp.cars
	}

	n := time.Duration(p.filled)
	s.AvgTickDuration = total / n
	for ph := range phaseSum {
		s.PhaseAvg[ph] = phaseSum[ph] / n
		if s.AvgTickDuration > 0 {
			s.PhasePct[ph] = float64(s.PhaseAvg[ph]) / float64(s.AvgTickDuration) * 100
		}
	}
	if cars > 0 {
		s.AvgCarUpdate = phaseSum[PhaseBrakes] / time.Duration(cars)
	}
	if s.AvgTickDuration > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTickDuration)
	}
	return s
}

// LogStats logs the window, skipping phases below 0.1%.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_tick_us", s.AvgTickDuration.Microseconds(),
		"max_tick_us", s.MaxTickDuration.Microseconds(),
		"car_update_ns", s.AvgCarUpdate.Nanoseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
	}
	for ph := Phase(0); ph < numPhases; ph++ {
		if pct := s.PhasePct[ph]; pct > 0.1 {
			attrs = append(attrs, ph.String()+"_pct", int(pct*10)/10.0)
		}
	}
	slog.Info("perf", attrs...)
}

func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Int64("car_update_ns", s.AvgCarUpdate.Nanoseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	}
	for ph := Phase(0); ph < numPhases; ph++ {
		attrs = append(attrs, slog.Float64(ph.String()+"_pct", s.PhasePct[ph]))
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one perf.csv row.
type PerfStatsCSV struct {
	WindowEnd          int32   `csv:"window_end"`
	AvgTickUS          int64   `csv:"avg_tick_us"`
	MinTickUS          int64   `csv:"min_tick_us"`
	MaxTickUS          int64   `csv:"max_tick_us"`
	CarUpdateNS        int64   `csv:"car_update_ns"`
	TicksPerSec        float64 `csv:"ticks_per_sec"`
	SchedulePct        float64 `csv:"schedule_pct"`
	PipePropagationPct float64 `csv:"pipe_propagation_pct"`
	BrakesPct          float64 `csv:"brakes_pct"`
	DynamicsPct        float64 `csv:"dynamics_pct"`
	TelemetryPct       float64 `csv:"telemetry_pct"`
}

func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:          windowEnd,
		AvgTickUS:          s.AvgTickDuration.Microseconds(),
		MinTickUS:          s.MinTickDuration.Microseconds(),
		MaxTickUS:          s.MaxTickDuration.Microseconds(),
		CarUpdateNS:        s.AvgCarUpdate.Nanoseconds(),
		TicksPerSec:        s.TicksPerSecond,
		SchedulePct:        s.PhasePct[PhaseSchedule],
		PipePropagationPct: s.PhasePct[PhasePipePropagation],
		BrakesPct:          s.PhasePct[PhaseBrakes],
		DynamicsPct:        s.PhasePct[PhaseDynamics],
		TelemetryPct:       s.PhasePct[PhaseTelemetry],
	}
}
