package graph

// pairKey 是有序实体对：A <= B。对称相似度只按规范顺序存一份。
type pairKey struct {
	A, B string
}

func orderedPair(a, b string) pairKey {
	if a <= b {
		return pairKey{A: a, B: b}
	}
	return pairKey{A: b, B: a}
}

// SimilarityMap 是相似度索引。
//
//   - TopK <= 0：稠密模式，保留全部 pair（小数据集）
//   - TopK > 0：稀疏模式，每个实体只保留 TopK 个最相似近邻，
//     内存 O(n·K)（大数据集的硬约束）
//
// 不变式：对角线自相似恒为 1.0；存储对称（Get(a,b) == Get(b,a)）。
type SimilarityMap struct {
	TopK int

	pairs     map[pairKey]float64
	neighbors map[string]map[string]float64 // 实体 -> 近邻 -> 相似度（稀疏淘汰用）
}

// NewSimilarityMap 创建相似度索引；topK <= 0 表示稠密模式。
func NewSimilarityMap(topK int) *SimilarityMap {
	return &SimilarityMap{
		TopK:      topK,
		pairs:     make(map[pairKey]float64),
		neighbors: make(map[string]map[string]float64),
	}
}

// Put 写入一对实体的相似度。稀疏模式下两侧近邻独立保留：一侧
// 的 TopK 满了不影响另一侧收下这个近邻。pair 存储在任一侧还保
// 留该近邻时维持不删，保证 Get 与 Neighbors 一致。
func (s *SimilarityMap) Put(a, b string, sim float64) {
	if a == b {
		return // 对角线隐含为 1，不存
	}
	if s.TopK <= 0 {
		s.pairs[orderedPair(a, b)] = sim
		return
	}
	kept := s.insert(a, b, sim)
	if s.insert(b, a, sim) {
		kept = true
	}
	if kept {
		s.pairs[orderedPair(a, b)] = sim
	}
}

// insert 尝试把 other 放进 owner 的近邻集合，返回是否保留。
// 已满时必须高于当前最小近邻才能顶掉它。
func (s *SimilarityMap) insert(owner, other string, sim float64) bool {
	nb := s.neighbors[owner]
	if nb == nil {
		nb = make(map[string]float64, s.TopK)
		s.neighbors[owner] = nb
	}
	if _, ok := nb[other]; ok {
		nb[other] = sim
		return true
	}
	if len(nb) < s.TopK {
		nb[other] = sim
		return true
	}
	minKey := ""
	minVal := 0.0
	first := true
	for k, v := range nb {
		if first || v < minVal {
			minKey, minVal, first = k, v, false
		}
	}
	if sim <= minVal {
		return false
	}
	delete(nb, minKey)
	s.dropPairIfOrphaned(owner, minKey)
	nb[other] = sim
	return true
}

// dropPairIfOrphaned 在 owner 淘汰 evicted 后清理 pair 存储：
// 仅当对侧也不再保留这个近邻时才删。
func (s *SimilarityMap) dropPairIfOrphaned(owner, evicted string) {
	if nb := s.neighbors[evicted]; nb != nil {
		if _, ok := nb[owner]; ok {
			return
		}
	}
	delete(s.pairs, orderedPair(owner, evicted))
}

// Get 读取相似度：对角线恒为 1.0，未存储的 pair 返回 0。
func (s *SimilarityMap) Get(a, b string) float64 {
	if a == b {
		return 1.0
	}
	return s.pairs[orderedPair(a, b)]
}

// Neighbors 返回实体的近邻及相似度（稀疏模式为 TopK 内近邻；
// 稠密模式为所有出现过的对端）。返回的 map 不应被修改。
func (s *SimilarityMap) Neighbors(id string) map[string]float64 {
	if s.TopK > 0 {
		return s.neighbors[id]
	}
	out := make(map[string]float64)
	for k, v := range s.pairs {
		if k.A == id {
			out[k.B] = v
		} else if k.B == id {
			out[k.A] = v
		}
	}
	return out
}

// Len 返回已存储的 pair 数。
func (s *SimilarityMap) Len() int {
	return len(s.pairs)
}
