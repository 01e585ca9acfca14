package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/brakesim/config"
)

func TestParamVector_RoundTrip(t *testing.T) {
	pv := NewParamVector()
	raw := pv.DefaultVector()
	back := pv.Denormalize(pv.Normalize(raw))
	for i := range raw {
		if math.Abs(back[i]-raw[i]) > 1e-6 {
			t.Errorf("%s: %v -> %v", pv.Specs[i].Name, raw[i], back[i])
		}
	}

	clamped := pv.Clamp([]float64{0, 5e6, 100000})
	if clamped[0] != pv.Specs[0].Min || clamped[1] != pv.Specs[1].Max || clamped[2] != 100000 {
		t.Errorf("clamped = %v", clamped)
	}
}

func TestParamVector_DefaultsMatchConfig(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	pv := NewParamVector()
	got := pv.ExtractFromConfig(cfg)
	for i, want := range pv.DefaultVector() {
		if got[i] != want {
			t.Errorf("%s: config %v, default %v", pv.Specs[i].Name, got[i], want)
		}
	}
}

func TestFitnessEvaluator_FasterChargeFillsSooner(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	pv := NewParamVector()
	fe := NewFitnessEvaluator(pv, cfg, []string{"electric_command"}, Targets{Fill: 1, Release: 1}, 30)

	slow := pv.DefaultVector()
	slow[0] = 100000
	fast := pv.DefaultVector()
	fast[0] = 900000

	slowFill, _, err := fe.measure(slow, "electric_command")
	if err != nil {
		t.Fatal(err)
	}
	fastFill, _, err := fe.measure(fast, "electric_command")
	if err != nil {
		t.Fatal(err)
	}
	if !(fastFill < slowFill) {
		t.Errorf("fill times: fast %v, slow %v", fastFill, slowFill)
	}
	if slowFill >= 30 {
		t.Errorf("slow charge never filled")
	}

	// Base config is left untouched
	if cfg.Brake.BrakeCylinder.ServiceChargeRate != 300000 || len(cfg.Derived.Cars) != 4 {
		t.Error("evaluation mutated the base config")
	}

	if f := fe.Evaluate(pv.DefaultVector()); !(f >= 0) {
		t.Errorf("fitness = %v", f)
	}
	if fill, release := fe.LastTimings(); math.IsNaN(fill) || math.IsNaN(release) {
		t.Error("expected timings after an evaluation")
	}
}
