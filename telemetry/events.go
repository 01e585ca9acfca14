// Package telemetry provides brake window statistics, bookmarking, and CSV output.
package telemetry

import "github.com/pthm-cable/brakesim/components"

// SoundEvent is one air sound fired by one car's brake.
type SoundEvent struct {
	Tick     int32   `csv:"tick"`
	SimTime  float64 `csv:"sim_time"`
	Car      int     `csv:"car"`
	CarName  string  `csv:"car_name"`
	Sound    string  `csv:"sound"`
	Cylinder float64 `csv:"cylinder"` // Pressure after the update that fired it
}

// NewSoundEvent creates a sound event from a car's brake state after its update.
func NewSoundEvent(tick int32, simTime float64, car int, name string, b *components.CarBrake) SoundEvent {
	return SoundEvent{
		Tick:     tick,
		SimTime:  simTime,
		Car:      car,
		CarName:  name,
		Sound:    b.Sound.String(),
		Cylinder: b.BrakeCylinder.Pressure,
	}
}

// CarSample is a gauge reading of one car, for cars.csv.
type CarSample struct {
	Tick                int32   `csv:"tick"`
	SimTime             float64 `csv:"sim_time"`
	Car                 int     `csv:"car"`
	CarName             string  `csv:"car_name"`
	Kind                string  `csv:"kind"`
	MainReservoir       float64 `csv:"main_reservoir"`
	EqualizingReservoir float64 `csv:"equalizing_reservoir"`
	BrakePipe           float64 `csv:"brake_pipe"`
	AuxiliaryReservoir  float64 `csv:"auxiliary_reservoir"`
	BrakeCylinder       float64 `csv:"brake_cylinder"`
	StraightAirPipe     float64 `csv:"straight_air_pipe"`
	Target              float64 `csv:"target"`
	Deceleration        float64 `csv:"deceleration"`
	Emergency           bool    `csv:"emergency"`
	Compressor          bool    `csv:"compressor"`
}

// NewCarSample reads every gauge of a car's brake.
func NewCarSample(tick int32, simTime float64, car int, name string, b *components.CarBrake) CarSample {
	return CarSample{
		Tick:                tick,
		SimTime:             simTime,
		Car:                 car,
		CarName:             name,
		Kind:                b.Spec.Kind.String(),
		MainReservoir:       b.MainReservoir.Pressure,
		EqualizingReservoir: b.EqualizingReservoir.Pressure,
		BrakePipe:           b.BrakePipe.Pressure,
		AuxiliaryReservoir:  b.AuxiliaryReservoir.Pressure,
		BrakeCylinder:       b.BrakeCylinder.Pressure,
		StraightAirPipe:     b.StraightAirPipe.Pressure,
		Target:              b.Target,
		Deceleration:        b.Deceleration,
		Emergency:           b.Emergency,
		Compressor:          b.Compressor.Enabled,
	}
}
