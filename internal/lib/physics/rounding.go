package physics

import (
	"math"
	"sort"
)

// RoundFunc is one of math.Ceil, math.Floor or math.Round
type RoundFunc func(float64) float64

// RoundSecondsToNearestMinute rounds seconds to a multiple of 60 using fn
func RoundSecondsToNearestMinute(seconds float64, fn RoundFunc) float64 {
	return RoundSecondsToNearestQuarter(seconds, 60, fn)
}

// RoundSecondsToNearestQuarter rounds seconds to a multiple of quarterSeconds
// using fn. A zero or negative quarter returns seconds unchanged.
func RoundSecondsToNearestQuarter(seconds float64, quarterSeconds int, fn RoundFunc) float64 {
	if quarterSeconds <= 0 {
		return seconds
	}
	if fn == nil {
		fn = math.Round
	}
	q := float64(quarterSeconds)
	rounded := fn(seconds/q) * q
	if rounded == 0 {
		// avoid -0
		return 0
	}
	return rounded
}

// RoundToDecimals rounds value to the given number of decimals
func RoundToDecimals(value float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(value*pow) / pow
}

// Median returns the median of values, or 0 for an empty slice
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
