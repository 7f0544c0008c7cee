package store

import (
	"context"
	"testing"

	"github.com/rushteam/modakit/core"
)

func TestRatingRank_PutTopRating(t *testing.T) {
	ctx := context.Background()
	r := NewRatingRank(NewMemoryStore())

	if err := r.Put(ctx, "p1", 4.2); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := r.Put(ctx, "p2", 4.8); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := r.Put(ctx, "p3", 4.5); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := r.Top(ctx, 2)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(got) != 2 || got[0] != "p2" || got[1] != "p3" {
		t.Errorf("Top = %v, want [p2 p3]", got)
	}

	// Put 覆盖旧评分
	if err := r.Put(ctx, "p1", 4.9); err != nil {
		t.Fatalf("Put: %v", err)
	}
	score, err := r.Rating(ctx, "p1")
	if err != nil {
		t.Fatalf("Rating: %v", err)
	}
	if score != 4.9 {
		t.Errorf("Rating(p1) = %v, want 4.9", score)
	}

	if _, err := r.Rating(ctx, "missing"); !core.IsStoreNotFound(err) {
		t.Errorf("Rating(missing) = %v, want store NOT_FOUND", err)
	}

	if got, err := r.Top(ctx, 0); err != nil || got != nil {
		t.Errorf("Top(0) = %v, %v, want nil, nil", got, err)
	}
}

func TestRatingRank_Rebuild(t *testing.T) {
	ctx := context.Background()
	entities := NewMemoryEntityStore(nil, []*core.Product{
		{ID: "p1", Rating: 4.8},
		{ID: "p2", Rating: 4.2},
		{ID: "p3", Rating: 4.5},
	})
	r := NewRatingRank(NewMemoryStore())

	if err := r.Rebuild(ctx, entities, 2); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	got, err := r.Top(ctx, 10)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	want := []string{"p1", "p3", "p2"}
	if len(got) != len(want) {
		t.Fatalf("Top = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Top[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	// 评分未变时重建幂等，已写入的条目保持不动
	if err := r.Rebuild(ctx, entities, 2); err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}
	again, err := r.Top(ctx, 10)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	for i := range want {
		if again[i] != want[i] {
			t.Errorf("Top[%d] = %s after rebuild, want %s", i, again[i], want[i])
		}
	}
}
