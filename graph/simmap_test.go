package graph

import "testing"

func TestSimilarityMap_Dense(t *testing.T) {
	s := NewSimilarityMap(0)
	s.Put("a", "b", 0.8)
	s.Put("c", "a", 0.3)

	if got := s.Get("a", "b"); got != 0.8 {
		t.Errorf("Get(a,b) = %v, want 0.8", got)
	}
	// 对称读取
	if got := s.Get("b", "a"); got != 0.8 {
		t.Errorf("Get(b,a) = %v, want 0.8", got)
	}
	// 对角线恒为 1，且不占存储
	if got := s.Get("a", "a"); got != 1.0 {
		t.Errorf("Get(a,a) = %v, want 1", got)
	}
	if got := s.Get("a", "missing"); got != 0 {
		t.Errorf("Get(a,missing) = %v, want 0", got)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}

	nb := s.Neighbors("a")
	if len(nb) != 2 || nb["b"] != 0.8 || nb["c"] != 0.3 {
		t.Errorf("Neighbors(a) = %v", nb)
	}
}

func TestSimilarityMap_SparseEviction(t *testing.T) {
	s := NewSimilarityMap(2)
	s.Put("x", "a", 0.5)
	s.Put("x", "b", 0.6)

	// x 侧已满且 0.4 低于其最小近邻，但 c 侧有空位：c 独立保留
	s.Put("x", "c", 0.4)
	if _, ok := s.Neighbors("x")["c"]; ok {
		t.Error("x should not admit c below its current minimum")
	}
	if got := s.Neighbors("c")["x"]; got != 0.4 {
		t.Errorf("Neighbors(c)[x] = %v, want 0.4 (per-entity retention)", got)
	}
	if got := s.Get("x", "c"); got != 0.4 {
		t.Errorf("Get(x,c) = %v, want 0.4", got)
	}

	// 高于最小近邻，x 淘汰 a；a 侧仍保留 x，pair 不得悬空
	s.Put("x", "d", 0.9)
	if got := s.Get("x", "d"); got != 0.9 {
		t.Errorf("Get(x,d) = %v, want 0.9", got)
	}
	if got := s.Get("x", "a"); got != 0.5 {
		t.Errorf("Get(x,a) = %v, want 0.5 (a still lists x)", got)
	}
	if got := s.Neighbors("a")["x"]; got != 0.5 {
		t.Errorf("Neighbors(a)[x] = %v, want 0.5", got)
	}

	nb := s.Neighbors("x")
	if len(nb) != 2 {
		t.Fatalf("neighborhood size = %d, want 2", len(nb))
	}
	if _, ok := nb["b"]; !ok {
		t.Error("expected b to survive eviction")
	}
	if _, ok := nb["d"]; !ok {
		t.Error("expected d after admission")
	}
}

func TestSimilarityMap_SparsePairDroppedWhenBothSidesEvict(t *testing.T) {
	s := NewSimilarityMap(1)
	s.Put("x", "a", 0.5)

	// x 淘汰 a，但 a 还保留 x：pair 维持可读
	s.Put("x", "b", 0.9)
	if got := s.Get("x", "a"); got != 0.5 {
		t.Fatalf("Get(x,a) = %v, want 0.5 while a retains x", got)
	}

	// a 也淘汰 x：两侧都不再保留，pair 才删除
	s.Put("a", "c", 0.8)
	if got := s.Get("x", "a"); got != 0 {
		t.Errorf("Get(x,a) = %v, want 0 after both sides evicted", got)
	}
}

// Get 与 Neighbors 必须一致：近邻列表里的值就是 pair 存储里的值。
func TestSimilarityMap_SparseConsistency(t *testing.T) {
	s := NewSimilarityMap(2)
	pairs := []struct {
		a, b string
		sim  float64
	}{
		{"u1", "u2", 0.9}, {"u1", "u3", 0.8}, {"u1", "u4", 0.7},
		{"u2", "u3", 0.6}, {"u2", "u4", 0.95}, {"u3", "u4", 0.5},
	}
	for _, p := range pairs {
		s.Put(p.a, p.b, p.sim)
	}
	for _, id := range []string{"u1", "u2", "u3", "u4"} {
		for other, sim := range s.Neighbors(id) {
			if got := s.Get(id, other); got != sim {
				t.Errorf("Get(%s,%s) = %v, Neighbors says %v", id, other, got, sim)
			}
		}
	}
}

func TestSimilarityMap_SparseUpdateExisting(t *testing.T) {
	s := NewSimilarityMap(2)
	s.Put("x", "a", 0.5)
	s.Put("x", "b", 0.6)
	// 已在近邻集合内的 pair 可以降低相似度而不触发淘汰
	s.Put("x", "a", 0.2)
	if got := s.Get("x", "a"); got != 0.2 {
		t.Errorf("Get(x,a) = %v, want 0.2", got)
	}
}
