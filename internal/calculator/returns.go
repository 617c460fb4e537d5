package calculator

import "math"

// Return computes the fractional intrabar return (close-open)/open.
// It is NaN when open is zero or either input is missing.
func Return(open, close float64) float64 {
	if open == 0 || math.IsNaN(open) || math.IsNaN(close) {
		return math.NaN()
	}
	return (close - open) / open
}

// DollarReturn scales a fractional return by the adjusted close.
func DollarReturn(ret, adjClose float64) float64 {
	return ret * adjClose
}
