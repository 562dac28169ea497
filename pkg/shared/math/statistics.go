// Package math provides the small set of descriptive-statistics helpers the
// amount-validation stage's rolling-mean/z-score fraud signal (§4.3.3) is
// built on top of.
package math

import stdmath "math"

// Sum adds every value in values.
func Sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}

// Variance returns the population variance of values, or 0 for a slice of
// length 0 or 1.
func Variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return sq / float64(len(values))
}

// StandardDeviation returns the population standard deviation of values.
func StandardDeviation(values []float64) float64 {
	return stdmath.Sqrt(Variance(values))
}

// Min returns the smallest value in values, or 0 for an empty slice.
func Min(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Max returns the largest value in values, or 0 for an empty slice.
func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

