package components

// Coefficients scale the share of a single flow event booked against a
// reservoir when it exchanges air with the named neighbour. They encode the
// volume ratio of the pair, not the reservoir's own capacity.
type Coefficients struct {
	Equalizing    float64 `yaml:"equalizing"`
	BrakePipe     float64 `yaml:"brake_pipe"`
	BrakeCylinder float64 `yaml:"brake_cylinder"`
}

// Reservoir is a modeled pressure vessel. All pressures are in pascals and all
// rates in pascals per second.
type Reservoir struct {
	Pressure float64 // Current pressure, kept in [0, Capacity]
	Capacity float64 // Normal or maximum pressure

	ChargeRate          float64
	ServiceRate         float64
	EmergencyRate       float64
	ReleaseRate         float64
	ServiceChargeRate   float64
	EmergencyChargeRate float64

	Coefficients Coefficients
}

// Clamp pulls the pressure back into [0, Capacity].
func (r *Reservoir) Clamp() {
	if r.Pressure < 0 {
		r.Pressure = 0
	} else if r.Pressure > r.Capacity {
		r.Pressure = r.Capacity
	}
}

// Headroom returns how much more pressure the reservoir can take.
func (r *Reservoir) Headroom() float64 {
	h := r.Capacity - r.Pressure
	if h < 0 {
		return 0
	}
	return h
}

// Fraction returns Pressure/Capacity, or 0 for an unconfigured reservoir.
func (r *Reservoir) Fraction() float64 {
	if r.Capacity <= 0 {
		return 0
	}
	return r.Pressure / r.Capacity
}

// Compressor recharges a main reservoir between two pressure switches.
type Compressor struct {
	MinimumPressure float64 // Cut-in pressure
	MaximumPressure float64 // Cut-out pressure
	Rate            float64 // Pa/s while running
	Enabled         bool    // Running
}
