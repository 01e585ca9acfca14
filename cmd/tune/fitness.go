package main

import (
	"fmt"
	"math"
	"sync"

	"github.com/pthm-cable/brakesim/components"
	"github.com/pthm-cable/brakesim/config"
	"github.com/pthm-cable/brakesim/train"
)

// Fractions of the service maximum that bound a fill and a release.
const (
	fillFraction    = 0.9
	releaseFraction = 0.1
)

// Targets are the desired brake timings in seconds.
type Targets struct {
	Fill    float64
	Release float64
}

// kindResult holds the timings measured for one brake kind.
type kindResult struct {
	kind    string
	fill    float64
	release float64
	err     error
}

// FitnessEvaluator runs single-car brake tests and scores them against targets.
type FitnessEvaluator struct {
	params     *ParamVector
	baseConfig *config.Config
	kinds      []string
	targets    Targets
	maxSec     float64 // Cap on each phase; unreached phases score as maxSec

	mu          sync.Mutex
	lastResults []kindResult
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, baseCfg *config.Config, kinds []string, targets Targets, maxSec float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		baseConfig: baseCfg,
		kinds:      kinds,
		targets:    targets,
		maxSec:     maxSec,
	}
}

// Evaluate computes fitness for a raw parameter vector (lower = better): the
// summed squared timing error over every brake kind.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]kindResult, len(fe.kinds))
	var wg sync.WaitGroup

	for i, kind := range fe.kinds {
		wg.Add(1)
		go func(idx int, k string) {
			defer wg.Done()
			fill, release, err := fe.measure(x, k)
			results[idx] = kindResult{kind: k, fill: fill, release: release, err: err}
		}(i, kind)
	}
	wg.Wait()

	var fitness float64
	for _, r := range results {
		if r.err != nil {
			// Parameters the brakes reject are never better than a timeout
			fitness += 2 * fe.maxSec * fe.maxSec
			continue
		}
		df := r.fill - fe.targets.Fill
		dr := r.release - fe.targets.Release
		fitness += df*df + dr*dr
	}

	fe.mu.Lock()
	fe.lastResults = results
	fe.mu.Unlock()

	return fitness
}

// LastSummary describes the timings of the most recent evaluation.
func (fe *FitnessEvaluator) LastSummary() string {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	s := ""
	for _, r := range fe.lastResults {
		if r.err != nil {
			s += fmt.Sprintf(" %s=error", r.kind)
			continue
		}
		s += fmt.Sprintf(" %s=%.1fs/%.1fs", r.kind, r.fill, r.release)
	}
	return s
}

// LastTimings returns the mean fill and release time of the most recent evaluation.
func (fe *FitnessEvaluator) LastTimings() (fill, release float64) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	n := 0
	for _, r := range fe.lastResults {
		if r.err != nil {
			continue
		}
		fill += r.fill
		release += r.release
		n++
	}
	if n == 0 {
		return math.NaN(), math.NaN()
	}
	return fill / float64(n), release / float64(n)
}

// measure runs one car of the given kind from rest through a full service
// application and a release.
func (fe *FitnessEvaluator) measure(x []float64, kind string) (fill, release float64, err error) {
	cfg, err := fe.buildConfig(x, kind)
	if err != nil {
		return 0, 0, err
	}
	tr, err := train.New(cfg, train.Options{})
	if err != nil {
		return 0, 0, err
	}

	b := tr.Brake(0)
	svc := b.Spec.ServiceMaximumPressure
	dt := cfg.Simulation.DT
	maxTicks := int(fe.maxSec / dt)

	tr.SetInputs(components.Inputs{Air: components.AirService, Notch: cfg.Handle.MaxNotch})
	fill = fe.maxSec
	for i := 1; i <= maxTicks; i++ {
		tr.Step(dt)
		if b.BrakeCylinder.Pressure >= fillFraction*svc {
			fill = float64(i) * dt
			break
		}
	}

	tr.SetInputs(components.Inputs{Air: components.AirRelease})
	release = fe.maxSec
	for i := 1; i <= maxTicks; i++ {
		tr.Step(dt)
		if b.BrakeCylinder.Pressure <= releaseFraction*svc {
			release = float64(i) * dt
			break
		}
	}

	return fill, release, nil
}

// buildConfig creates a one-car config of the given kind with x applied.
func (fe *FitnessEvaluator) buildConfig(x []float64, kind string) (*config.Config, error) {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	cfg.Cars = []config.CarConfig{{Name: kind, Kind: kind}}
	cfg.Scenario = config.ScenarioConfig{Name: "tune_" + kind}
	if err := cfg.Refresh(); err != nil {
		return nil, fmt.Errorf("tuning %s: %w", kind, err)
	}
	return cfg, nil
}

// copyConfig creates a copy of the base config that shares no mutable state.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Cars = append([]config.CarConfig(nil), fe.baseConfig.Cars...)
	cfg.Derived.Cars = nil
	return &cfg
}
