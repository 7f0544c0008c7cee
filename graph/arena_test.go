package graph

import (
	"math"
	"testing"
)

func TestArena_EnsureAndGet(t *testing.T) {
	a := NewArena(4)

	vec := a.Ensure("p1", func(dst []float64) {
		for i := range dst {
			dst[i] = float64(i)
		}
	})
	if len(vec) != 4 {
		t.Fatalf("vector length = %d, want 4", len(vec))
	}
	if vec[3] != 3 {
		t.Errorf("init not applied: vec[3] = %v", vec[3])
	}

	// 第二次 Ensure 不应重新初始化
	vec[0] = 99
	again := a.Ensure("p1", func(dst []float64) {
		for i := range dst {
			dst[i] = -1
		}
	})
	if again[0] != 99 {
		t.Errorf("Ensure re-initialized existing slot: got %v", again[0])
	}

	if _, ok := a.Get("missing"); ok {
		t.Error("Get returned ok for missing id")
	}
	if a.Len() != 1 {
		t.Errorf("Len = %d, want 1", a.Len())
	}
}

func TestArena_Restore(t *testing.T) {
	tests := []struct {
		name string
		src  []float64
		want []float64
	}{
		{
			name: "exact dim",
			src:  []float64{1, 2, 3},
			want: []float64{1, 2, 3},
		},
		{
			name: "short vector zero-padded",
			src:  []float64{1},
			want: []float64{1, 0, 0},
		},
		{
			name: "long vector truncated",
			src:  []float64{1, 2, 3, 4, 5},
			want: []float64{1, 2, 3},
		},
		{
			name: "NaN and Inf zeroed",
			src:  []float64{math.NaN(), math.Inf(1), 2},
			want: []float64{0, 0, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewArena(3)
			a.Restore(map[string][]float64{"x": tt.src})
			vec, ok := a.Get("x")
			if !ok {
				t.Fatal("restored vector missing")
			}
			for i, want := range tt.want {
				if vec[i] != want {
					t.Errorf("vec[%d] = %v, want %v", i, vec[i], want)
				}
			}
		})
	}
}

func TestArena_SnapshotRoundTrip(t *testing.T) {
	a := NewArena(2)
	copy(a.Ensure("u1", nil), []float64{0.5, -0.5})
	copy(a.Ensure("u2", nil), []float64{1, 1})

	b := NewArena(2)
	b.Restore(a.Snapshot())

	if b.Len() != 2 {
		t.Fatalf("restored Len = %d, want 2", b.Len())
	}
	v, _ := b.Get("u1")
	if v[0] != 0.5 || v[1] != -0.5 {
		t.Errorf("u1 = %v, want [0.5 -0.5]", v)
	}
}
