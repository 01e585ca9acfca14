package train

import (
	"context"
	"log/slog"

	"github.com/pthm-cable/brakesim/components"
	"github.com/pthm-cable/brakesim/telemetry"
)

// recordTelemetry folds the tick into the stats window, logs sounds and car
// samples, and flushes the window when it is due.
func (t *Train) recordTelemetry() {
	ctx := context.Background()

	sample := telemetry.TickSample{
		Deceleration:         t.decel,
		MinBrakePipe:         -1,
		MinMainReservoirFrac: 1,
	}
	for i, b := range t.brakes {
		if b.BrakeCylinder.Pressure > sample.MaxCylinder {
			sample.MaxCylinder = b.BrakeCylinder.Pressure
		}
		if b.BrakePipe.Capacity > 0 && (sample.MinBrakePipe < 0 || b.BrakePipe.Pressure < sample.MinBrakePipe) {
			sample.MinBrakePipe = b.BrakePipe.Pressure
		}
		if f := b.MainReservoir.Fraction(); f < sample.MinMainReservoirFrac {
			sample.MinMainReservoirFrac = f
		}
		if b.Emergency {
			sample.Emergency = true
			if !t.inputs.Emergency {
				sample.Interlock = true
			}
		}

		if s := t.sounds[i]; s != components.AirSoundNone {
			t.collector.RecordSound(s)
			t.metrics.RecordSound(ctx, s)
			ev := telemetry.NewSoundEvent(t.tick, t.simTime, i, t.names[i], b)
			if t.soundCallback != nil {
				t.soundCallback(ev)
			}
			if err := t.outputManager.WriteSound(ev); err != nil {
				slog.Error("failed to write sound", "error", err)
			}
		}
	}
	if sample.MinBrakePipe < 0 {
		// No car carries a pipe
		sample.MinBrakePipe = 0
	}
	t.collector.RecordTick(sample)

	if t.outputManager != nil && t.tick%t.sampleTicks == 0 {
		t.writeCarSamples()
	}

	t.flushTelemetry(ctx)
}

// writeCarSamples writes a gauge row for every car.
func (t *Train) writeCarSamples() {
	samples := make([]telemetry.CarSample, len(t.brakes))
	for i, b := range t.brakes {
		samples[i] = telemetry.NewCarSample(t.tick, t.simTime, i, t.names[i], b)
	}
	if err := t.outputManager.WriteCarSamples(samples); err != nil {
		slog.Error("failed to write car samples", "error", err)
	}
}

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (t *Train) flushTelemetry(ctx context.Context) {
	if !t.collector.ShouldFlush(t.tick) {
		return
	}

	t.cylinders = t.cylinders[:0]
	emergencyCars := 0
	for _, b := range t.brakes {
		t.cylinders = append(t.cylinders, b.BrakeCylinder.Pressure)
		if b.Emergency {
			emergencyCars++
		}
	}

	stats := t.collector.Flush(t.tick, telemetry.TrainState{
		Speed:         t.speed,
		Distance:      t.distance,
		Cylinders:     t.cylinders,
		EmergencyCars: emergencyCars,
	})
	perfStats := t.perfCollector.Stats()

	if t.statsCallback != nil {
		t.statsCallback(stats)
	}

	if t.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if t.outputManager != nil {
		if err := t.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := t.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	for _, bm := range t.bookmarkDetector.Check(stats) {
		if t.logStats {
			bm.LogBookmark()
		}
		t.metrics.RecordBookmark(ctx, bm)
		if t.bookmarkCallback != nil {
			t.bookmarkCallback(bm)
		}
		if t.outputManager != nil {
			if err := t.outputManager.WriteBookmark(bm); err != nil {
				slog.Error("failed to write bookmark", "error", err)
			}
		}
	}
}
