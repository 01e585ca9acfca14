package telemetry

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/pthm-cable/brakesim/components"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics exports run counters through an OTel meter. A nil *Metrics is a no-op.
type Metrics struct {
	ticks        metric.Int64Counter
	sounds       metric.Int64Counter
	bookmarks    metric.Int64Counter
	tickDuration metric.Float64Histogram
	speed        metric.Float64ObservableGauge

	lastSpeed atomic.Uint64 // math.Float64bits
}

// NewMetrics registers the simulation instruments on m.
func NewMetrics(m metric.Meter) (*Metrics, error) {
	mt := &Metrics{}

	var err error
	mt.ticks, err = m.Int64Counter(
		"brakesim.ticks",
		metric.WithDescription("Total simulation ticks stepped"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}

	mt.sounds, err = m.Int64Counter(
		"brakesim.air_sounds",
		metric.WithDescription("Air sounds fired by car brakes"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sound counter: %w", err)
	}

	mt.bookmarks, err = m.Int64Counter(
		"brakesim.bookmarks",
		metric.WithDescription("Bookmarks triggered"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bookmark counter: %w", err)
	}

	mt.tickDuration, err = m.Float64Histogram(
		"brakesim.tick.duration",
		metric.WithDescription("Wall-clock time per simulation tick"),
		metric.WithUnit("us"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick duration histogram: %w", err)
	}

	mt.speed, err = m.Float64ObservableGauge(
		"brakesim.train.speed",
		metric.WithDescription("Current train speed"),
		metric.WithUnit("m/s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating speed gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveFloat64(mt.speed, mt.Speed())
			return nil
		},
		mt.speed,
	)
	if err != nil {
		return nil, fmt.Errorf("registering speed callback: %w", err)
	}

	return mt, nil
}

// RecordTick counts one tick and its wall-clock duration.
func (mt *Metrics) RecordTick(ctx context.Context, d time.Duration, speed float64) {
	if mt == nil {
		return
	}
	mt.ticks.Add(ctx, 1)
	mt.tickDuration.Record(ctx, float64(d.Microseconds()))
	mt.lastSpeed.Store(math.Float64bits(speed))
}

// RecordSound counts a fired air sound.
func (mt *Metrics) RecordSound(ctx context.Context, s components.AirSound) {
	if mt == nil || s == components.AirSoundNone {
		return
	}
	mt.sounds.Add(ctx, 1, metric.WithAttributes(attribute.String("sound", s.String())))
}

// RecordBookmark counts a triggered bookmark.
func (mt *Metrics) RecordBookmark(ctx context.Context, b Bookmark) {
	if mt == nil {
		return
	}
	mt.bookmarks.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(b.Type))))
}

// Speed returns the speed recorded with the last tick.
func (mt *Metrics) Speed() float64 {
	if mt == nil {
		return 0
	}
	return math.Float64frombits(mt.lastSpeed.Load())
}
