package model

import (
	"math"
	"time"
)

// Bar is one price observation for a single symbol. Missing values are NaN.
type Bar struct {
	Time     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   float64
}

// Empty reports whether every field of the bar is missing.
func (b Bar) Empty() bool {
	return math.IsNaN(b.Open) && math.IsNaN(b.High) && math.IsNaN(b.Low) &&
		math.IsNaN(b.Close) && math.IsNaN(b.AdjClose) && math.IsNaN(b.Volume)
}
