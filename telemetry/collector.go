package telemetry

import (
	"math"

	"github.com/pthm-cable/brakesim/components"
)

// TickSample summarises the whole train after one tick.
type TickSample struct {
	Deceleration         float64 // Train deceleration applied this tick
	MaxCylinder          float64 // Highest cylinder pressure on any car
	MinBrakePipe         float64 // Lowest brake pipe pressure on a car that has one
	MinMainReservoirFrac float64 // Lowest main reservoir fill fraction
	Emergency            bool    // Any car in emergency
	Interlock            bool    // Emergency without a commanded emergency
}

// Collector accumulates tick samples within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float64

	// Current window tracking
	windowStartTick int32

	decels         []float64
	cylinderPeak   float64
	minBrakePipe   float64
	minMainFrac    float64
	emergencyTicks int
	interlockTicks int

	soundsAirHigh int
	soundsAir     int
	soundsAirZero int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int32(math.Round(windowDurationSec / dt))
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	c := &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		decels:              make([]float64, 0, ticksPerWindow),
	}
	c.reset()
	return c
}

func (c *Collector) reset() {
	c.decels = c.decels[:0]
	c.cylinderPeak = 0
	c.minBrakePipe = math.Inf(1)
	c.minMainFrac = math.Inf(1)
	c.emergencyTicks = 0
	c.interlockTicks = 0
	c.soundsAirHigh = 0
	c.soundsAir = 0
	c.soundsAirZero = 0
}

// RecordTick folds one tick's train summary into the window.
func (c *Collector) RecordTick(s TickSample) {
	c.decels = append(c.decels, s.Deceleration)
	if s.MaxCylinder > c.cylinderPeak {
		c.cylinderPeak = s.MaxCylinder
	}
	if s.MinBrakePipe < c.minBrakePipe {
		c.minBrakePipe = s.MinBrakePipe
	}
	if s.MinMainReservoirFrac < c.minMainFrac {
		c.minMainFrac = s.MinMainReservoirFrac
	}
	if s.Emergency {
		c.emergencyTicks++
	}
	if s.Interlock {
		c.interlockTicks++
	}
}

// RecordSound counts a fired air sound. AirSoundNone is ignored.
func (c *Collector) RecordSound(s components.AirSound) {
	switch s {
	case components.AirSoundHigh:
		c.soundsAirHigh++
	case components.AirSoundAir:
		c.soundsAir++
	case components.AirSoundZero:
		c.soundsAirZero++
	}
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// TrainState is the train snapshot taken at the end of a window.
type TrainState struct {
	Speed         float64
	Distance      float64
	Cylinders     []float64 // Per-car cylinder pressure
	EmergencyCars int
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, state TrainState) WindowStats {
	cylMean, cylStd, cylP10, cylP50, cylP90 := ComputeDistribution(state.Cylinders)
	var cylMax float64
	for _, p := range state.Cylinders {
		if p > cylMax {
			cylMax = p
		}
	}

	decelMean, _, _, _, decelP90 := ComputeDistribution(c.decels)
	var decelMax float64
	for _, d := range c.decels {
		if d > decelMax {
			decelMax = d
		}
	}

	minPipe := c.minBrakePipe
	if math.IsInf(minPipe, 1) {
		minPipe = 0
	}
	minMain := c.minMainFrac
	if math.IsInf(minMain, 1) {
		minMain = 0
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Speed:    state.Speed,
		Distance: state.Distance,
		Cars:     len(state.Cylinders),

		CylinderMean: cylMean,
		CylinderStd:  cylStd,
		CylinderP10:  cylP10,
		CylinderP50:  cylP50,
		CylinderP90:  cylP90,
		CylinderMax:  cylMax,
		CylinderPeak: math.Max(c.cylinderPeak, cylMax),

		DecelMean: decelMean,
		DecelP90:  decelP90,
		DecelMax:  decelMax,

		MinBrakePipe:         minPipe,
		MinMainReservoirFrac: minMain,

		EmergencyTicks: c.emergencyTicks,
		InterlockTicks: c.interlockTicks,
		EmergencyCars:  state.EmergencyCars,

		SoundsAirHigh: c.soundsAirHigh,
		SoundsAir:     c.soundsAir,
		SoundsAirZero: c.soundsAirZero,
	}

	c.windowStartTick = currentTick
	c.reset()

	return stats
}

// WindowDurationTicks returns the window length in ticks.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
