// Package logmath holds the log-space arithmetic shared by the language models.
package logmath

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Threshold is how far (in nats) below the maximum a term may fall before
// LogSumExp drops it. exp(-10) < 5e-5, so a dropped term changes the result
// by less than 1e-4 relative.
const Threshold = 10.0

// LogSumExp returns log(exp(a_1) + ... + exp(a_n)) without leaving log space.
//
//	m + log(sum_i exp(a_i - m)),  m = max(a_i)
//
// Terms more than Threshold below m are skipped. An empty slice or a slice of
// -Inf values yields -Inf (the log of an empty sum). A NaN anywhere yields NaN.
func LogSumExp(logs []float64) float64 {
	if len(logs) == 0 {
		return math.Inf(-1)
	}
	for _, l := range logs {
		if math.IsNaN(l) {
			return math.NaN()
		}
	}

	m := floats.Max(logs)
	if math.IsInf(m, 0) {
		return m
	}

	var sum float64
	for _, l := range logs {
		if l < m-Threshold {
			continue
		}
		sum += math.Exp(l - m)
	}
	return m + math.Log(sum)
}

// IsImpossible reports whether a log-probability represents probability zero.
func IsImpossible(logProb float64) bool {
	return math.IsInf(logProb, -1)
}

// IsFinite reports whether x is neither NaN nor infinite.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
