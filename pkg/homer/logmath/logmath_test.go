package logmath

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestLogSumExpMatchesNaive(t *testing.T) {
	tests := []struct {
		name string
		logs []float64
	}{
		{"single", []float64{-2.5}},
		{"equal", []float64{-1, -1, -1}},
		{"spread", []float64{-3.2, -0.7, -5.9, -1.1}},
		{"positive", []float64{2, 3, 4.5}},
		{"near threshold", []float64{0, -9.99}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LogSumExp(tt.logs)

			var naive float64
			for _, l := range tt.logs {
				naive += math.Exp(l)
			}
			want := math.Log(naive)

			if math.Abs(got-want) > 1e-9 {
				t.Errorf("LogSumExp(%v) = %.12f, naive %.12f", tt.logs, got, want)
			}
			if ref := floats.LogSumExp(tt.logs); math.Abs(got-ref) > 1e-9 {
				t.Errorf("LogSumExp(%v) = %.12f, gonum %.12f", tt.logs, got, ref)
			}
		})
	}
}

func TestLogSumExpExtremeValues(t *testing.T) {
	// exp() of these underflows to 0 in float64; the shifted sum must not.
	logs := []float64{-1000, -1000, -1000}
	got := LogSumExp(logs)
	want := -1000 + math.Log(3)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %f, got %f", want, got)
	}

	logs = []float64{800, 800}
	got = LogSumExp(logs)
	want = 800 + math.Log(2)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %f, got %f", want, got)
	}
}

func TestLogSumExpDropsNegligibleTerms(t *testing.T) {
	// -11 is more than Threshold below the max and must not contribute.
	got := LogSumExp([]float64{0, -11})
	if got != 0 {
		t.Errorf("expected exactly 0, got %g", got)
	}

	// The error introduced by dropping stays below 1e-4 relative.
	naive := math.Log(1 + math.Exp(-11))
	if math.Abs(math.Exp(got)-math.Exp(naive))/math.Exp(naive) > 1e-4 {
		t.Errorf("dropped term changed the sum too much")
	}
}

func TestLogSumExpEdgeCases(t *testing.T) {
	if got := LogSumExp(nil); !math.IsInf(got, -1) {
		t.Errorf("empty input: expected -Inf, got %v", got)
	}

	negInf := math.Inf(-1)
	if got := LogSumExp([]float64{negInf, negInf}); !math.IsInf(got, -1) {
		t.Errorf("all -Inf: expected -Inf, got %v", got)
	}

	got := LogSumExp([]float64{negInf, math.Log(0.25), math.Log(0.25)})
	if math.Abs(got-math.Log(0.5)) > 1e-12 {
		t.Errorf("mixed -Inf: expected log(0.5), got %v", got)
	}

	if got := LogSumExp([]float64{0, math.NaN()}); !math.IsNaN(got) {
		t.Errorf("NaN input: expected NaN, got %v", got)
	}

	if got := LogSumExp([]float64{0, math.Inf(1)}); !math.IsInf(got, 1) {
		t.Errorf("+Inf input: expected +Inf, got %v", got)
	}
}

func TestIsImpossibleAndFinite(t *testing.T) {
	if !IsImpossible(math.Inf(-1)) {
		t.Error("-Inf should be impossible")
	}
	if IsImpossible(math.Log(1e-300)) {
		t.Error("tiny probability is not impossible")
	}
	if IsFinite(math.NaN()) || IsFinite(math.Inf(1)) || IsFinite(math.Inf(-1)) {
		t.Error("NaN and Inf are not finite")
	}
	if !IsFinite(-42) {
		t.Error("-42 is finite")
	}
}
