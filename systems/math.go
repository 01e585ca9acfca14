package systems

// Clamp functions for common value ranges

// clampFloat clamps v between minVal and maxVal.
func clampFloat(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// clamp01 clamps v to the [0, 1] range.
func clamp01(v float64) float64 {
	return clampFloat(v, 0, 1)
}

// absf returns the absolute value of v.
func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// minf returns the smaller of a and b.
func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
