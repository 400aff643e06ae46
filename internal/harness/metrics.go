// Package harness trains candidate count regressors under a shared
// cross-validation protocol and ranks them on held-out performance.
package harness

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// RSquared is the coefficient of determination of predictions against
// observed values. A constant target yields 0 rather than a degenerate
// division.
func RSquared(observed, predicted []float64) float64 {
	if len(observed) == 0 {
		return 0
	}
	mean := stat.Mean(observed, nil)
	var ssRes, ssTot float64
	for i := range observed {
		r := observed[i] - predicted[i]
		ssRes += r * r
		d := observed[i] - mean
		ssTot += d * d
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

// RMSE is the root mean squared error of predictions.
func RMSE(observed, predicted []float64) float64 {
	if len(observed) == 0 {
		return 0
	}
	var ss float64
	for i := range observed {
		r := observed[i] - predicted[i]
		ss += r * r
	}
	return math.Sqrt(ss / float64(len(observed)))
}
