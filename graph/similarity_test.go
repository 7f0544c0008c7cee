package graph

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2}, []float64{1, 2}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"zero vector", []float64{0, 0}, []float64{1, 2}, 0},
		{"length mismatch", []float64{1}, []float64{1, 2}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); !almostEqual(got, tt.want) {
				t.Errorf("Cosine = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineMaps(t *testing.T) {
	a := map[string]float64{"red": 1, "dress": 1}
	b := map[string]float64{"red": 1, "dress": 1}
	if got := CosineMaps(a, b); !almostEqual(got, 1) {
		t.Errorf("identical maps = %v, want 1", got)
	}
	c := map[string]float64{"boots": 1}
	if got := CosineMaps(a, c); got != 0 {
		t.Errorf("disjoint maps = %v, want 0", got)
	}
	if got := CosineMaps(nil, a); got != 0 {
		t.Errorf("nil map = %v, want 0", got)
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"identical", []string{"casual", "summer"}, []string{"casual", "summer"}, 1},
		{"half overlap", []string{"casual", "summer"}, []string{"casual", "winter"}, 1.0 / 3},
		{"disjoint", []string{"a"}, []string{"b"}, 0},
		{"empty side", nil, []string{"a"}, 0},
		{"duplicates collapsed", []string{"a", "a"}, []string{"a"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Jaccard(tt.a, tt.b); !almostEqual(got, tt.want) {
				t.Errorf("Jaccard = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClamp01(t *testing.T) {
	if got := Clamp01(-0.5); got != 0 {
		t.Errorf("Clamp01(-0.5) = %v", got)
	}
	if got := Clamp01(1.5); got != 1 {
		t.Errorf("Clamp01(1.5) = %v", got)
	}
	if got := Clamp01(0.42); got != 0.42 {
		t.Errorf("Clamp01(0.42) = %v", got)
	}
}

func TestPearson(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{2, 4, 6, 8}
	if got := Pearson(x, y); !almostEqual(got, 1) {
		t.Errorf("perfect correlation = %v, want 1", got)
	}
	flat := []float64{3, 3, 3, 3}
	if got := Pearson(x, flat); got != 0 {
		t.Errorf("zero variance = %v, want 0", got)
	}
}
