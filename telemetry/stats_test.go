package telemetry

import (
	"math"
	"testing"
)

func TestComputeDistribution(t *testing.T) {
	values := []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
	mean, std, p10, p50, p90 := ComputeDistribution(values)

	if math.Abs(mean-5.5) > 1e-9 {
		t.Errorf("mean = %v, want 5.5", mean)
	}
	// Sample standard deviation of 1..10
	if math.Abs(std-3.0277) > 0.001 {
		t.Errorf("std = %v, want ~3.0277", std)
	}
	if p10 != 1 || p50 != 5 || p90 != 9 {
		t.Errorf("percentiles = %v/%v/%v, want 1/5/9", p10, p50, p90)
	}
	if values[0] != 10 {
		t.Error("input slice was reordered")
	}
}

func TestComputeDistributionSmall(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		mean   float64
	}{
		{"empty slice", nil, 0},
		{"single element", []float64{400000}, 400000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, std, p10, p50, p90 := ComputeDistribution(tt.values)
			if mean != tt.mean || std != 0 {
				t.Errorf("mean/std = %v/%v, want %v/0", mean, std, tt.mean)
			}
			if p10 != tt.mean || p50 != tt.mean || p90 != tt.mean {
				t.Errorf("percentiles = %v/%v/%v, want all %v", p10, p50, p90, tt.mean)
			}
		})
	}
}
