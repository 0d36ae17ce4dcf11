package stats

import (
	"math"
	"testing"
)

func TestCalculateMedianContinuous(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"Empty", []float64{}, 0},
		{"SingleItem", []float64{5.5}, 5.5},
		{"OddCount", []float64{1.1, 3.3, 2.2, 4.4, 5.5}, 3.3},
		{"EvenCount", []float64{1.1, 2.2, 3.3, 4.4}, 2.75},
		{"Unsorted", []float64{10.5, 2.5, 8.5, 4.5, 6.5}, 6.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateMedianContinuous(tt.values); got != tt.expected {
				t.Errorf("CalculateMedianContinuous() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCalculatePercentile(t *testing.T) {
	ten := []float64{10, 1, 9, 2, 8, 3, 7, 4, 6, 5}

	tests := []struct {
		name     string
		values   []float64
		q        float64
		expected float64
	}{
		{"Empty", nil, 0.5, 0},
		{"P50OfTen", ten, 0.50, 6},
		{"P10OfTen", ten, 0.10, 2},
		{"P90OfTen", ten, 0.90, 10},
		{"P99Clamped", ten, 0.99, 10},
		{"SingleValue", []float64{7}, 0.80, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculatePercentile(tt.values, tt.q); got != tt.expected {
				t.Errorf("CalculatePercentile(q=%v) = %v, want %v", tt.q, got, tt.expected)
			}
		})
	}

	// The input must survive untouched.
	if ten[0] != 10 || ten[1] != 1 {
		t.Errorf("input mutated: %v", ten)
	}
}

func TestPercentileMonotonicity(t *testing.T) {
	values := []float64{4.2, 1.1, 9.9, 3.3, 7.7, 2.6, 5.5, 8.8, 6.4, 0.5}
	qs := []float64{0.10, 0.50, 0.80, 0.90, 0.99}

	prev := math.Inf(-1)
	for _, q := range qs {
		p := CalculatePercentile(values, q)
		if p < prev {
			t.Fatalf("percentile at q=%v dropped: %v < %v", q, p, prev)
		}
		prev = p
	}
}

func TestCalculateMeanAndStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	if got := CalculateMean(values); got != 5 {
		t.Errorf("CalculateMean() = %v, want 5", got)
	}
	if got := CalculateStdDev(values); got != 2 {
		t.Errorf("CalculateStdDev() = %v, want 2", got)
	}
	if got := CalculateStdDev([]float64{3}); got != 0 {
		t.Errorf("CalculateStdDev(single) = %v, want 0", got)
	}
}
