package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Train state at window end
	Speed    float64 `csv:"speed"`
	Distance float64 `csv:"distance"`
	Cars     int     `csv:"cars"`

	// Cylinder pressure across cars at window end
	CylinderMean float64 `csv:"cylinder_mean"`
	CylinderStd  float64 `csv:"cylinder_std"`
	CylinderP10  float64 `csv:"cylinder_p10"`
	CylinderP50  float64 `csv:"cylinder_p50"`
	CylinderP90  float64 `csv:"cylinder_p90"`
	CylinderMax  float64 `csv:"cylinder_max"`

	// Highest cylinder pressure seen on any car during the window
	CylinderPeak float64 `csv:"cylinder_peak"`

	// Train deceleration over the window's ticks
	DecelMean float64 `csv:"decel_mean"`
	DecelP90  float64 `csv:"decel_p90"`
	DecelMax  float64 `csv:"decel_max"`

	// Supply minima during the window
	MinBrakePipe         float64 `csv:"min_brake_pipe"`
	MinMainReservoirFrac float64 `csv:"min_main_reservoir_frac"`

	// Ticks during which any car was in emergency, and the subset in which
	// no emergency was commanded (pipe-break interlock)
	EmergencyTicks int `csv:"emergency_ticks"`
	InterlockTicks int `csv:"interlock_ticks"`
	EmergencyCars  int `csv:"emergency_cars"` // At window end

	// Sounds fired during the window
	SoundsAirHigh int `csv:"sounds_air_high"`
	SoundsAir     int `csv:"sounds_air"`
	SoundsAirZero int `csv:"sounds_air_zero"`
}

// ComputeDistribution calculates mean, standard deviation, and empirical
// percentiles. Values are not modified.
func ComputeDistribution(values []float64) (mean, std, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0, 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if n > 1 {
		mean, std = stat.MeanStdDev(sorted, nil)
	} else {
		mean = sorted[0]
	}

	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)

	return mean, std, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Float64("speed", s.Speed),
		slog.Float64("distance", s.Distance),
		slog.Int("cars", s.Cars),
		slog.Float64("cylinder_mean", s.CylinderMean),
		slog.Float64("cylinder_std", s.CylinderStd),
		slog.Float64("cylinder_p10", s.CylinderP10),
		slog.Float64("cylinder_p50", s.CylinderP50),
		slog.Float64("cylinder_p90", s.CylinderP90),
		slog.Float64("cylinder_max", s.CylinderMax),
		slog.Float64("cylinder_peak", s.CylinderPeak),
		slog.Float64("decel_mean", s.DecelMean),
		slog.Float64("decel_p90", s.DecelP90),
		slog.Float64("decel_max", s.DecelMax),
		slog.Float64("min_brake_pipe", s.MinBrakePipe),
		slog.Float64("min_main_reservoir_frac", s.MinMainReservoirFrac),
		slog.Int("emergency_ticks", s.EmergencyTicks),
		slog.Int("interlock_ticks", s.InterlockTicks),
		slog.Int("emergency_cars", s.EmergencyCars),
		slog.Int("sounds_air_high", s.SoundsAirHigh),
		slog.Int("sounds_air", s.SoundsAir),
		slog.Int("sounds_air_zero", s.SoundsAirZero),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"speed", s.Speed,
		"distance", s.Distance,
		"cylinder_mean", s.CylinderMean,
		"cylinder_p50", s.CylinderP50,
		"cylinder_max", s.CylinderMax,
		"cylinder_peak", s.CylinderPeak,
		"decel_mean", s.DecelMean,
		"decel_max", s.DecelMax,
		"min_brake_pipe", s.MinBrakePipe,
		"min_main_reservoir_frac", s.MinMainReservoirFrac,
		"emergency_ticks", s.EmergencyTicks,
		"interlock_ticks", s.InterlockTicks,
		"sounds_air_high", s.SoundsAirHigh,
		"sounds_air", s.SoundsAir,
		"sounds_air_zero", s.SoundsAirZero,
	)
}
