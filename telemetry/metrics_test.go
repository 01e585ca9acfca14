package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/pthm-cable/brakesim/components"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestMetrics_Noop(t *testing.T) {
	mt, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	mt.RecordTick(ctx, 40*time.Microsecond, 12.5)
	mt.RecordSound(ctx, components.AirSoundHigh)
	mt.RecordSound(ctx, components.AirSoundNone)
	mt.RecordBookmark(ctx, Bookmark{Type: BookmarkEmergency})

	if got := mt.Speed(); got != 12.5 {
		t.Errorf("Speed() = %v, want 12.5", got)
	}
}

func TestMetrics_Nil(t *testing.T) {
	var mt *Metrics
	ctx := context.Background()
	mt.RecordTick(ctx, time.Millisecond, 1)
	mt.RecordSound(ctx, components.AirSoundZero)
	mt.RecordBookmark(ctx, Bookmark{})
	if mt.Speed() != 0 {
		t.Error("nil metrics reported a speed")
	}
}
