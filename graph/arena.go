package graph

import "math"

// Arena 是固定维度向量的连续存储：一块 []float64 按槽位切分，
// 外部 id 通过旁路表映射到槽位。相比无界的 map[string][]float64，
// 内存可预测且与 MaxNodes 上限一致。
type Arena struct {
	dim   int
	data  []float64
	slots map[string]int // 外部 id -> 槽位
	ids   []string       // 槽位 -> 外部 id
}

// NewArena 创建维度为 dim 的向量 arena。
func NewArena(dim int) *Arena {
	return &Arena{
		dim:   dim,
		slots: make(map[string]int),
	}
}

func (a *Arena) Dim() int { return a.dim }

// Len 返回已分配的槽位数。
func (a *Arena) Len() int { return len(a.ids) }

// IDs 返回所有已分配的外部 id（按槽位顺序）。
func (a *Arena) IDs() []string { return a.ids }

// Has 判断 id 是否已有向量。
func (a *Arena) Has(id string) bool {
	_, ok := a.slots[id]
	return ok
}

// Get 返回 id 对应的向量切片（原地引用，可直接修改）。
func (a *Arena) Get(id string) ([]float64, bool) {
	slot, ok := a.slots[id]
	if !ok {
		return nil, false
	}
	return a.data[slot*a.dim : (slot+1)*a.dim], true
}

// Ensure 返回 id 的向量；不存在时分配新槽位并用 init 初始化
// （init 为 nil 时保持零值）。
func (a *Arena) Ensure(id string, init func(dst []float64)) []float64 {
	if vec, ok := a.Get(id); ok {
		return vec
	}
	slot := len(a.ids)
	a.slots[id] = slot
	a.ids = append(a.ids, id)
	a.data = append(a.data, make([]float64, a.dim)...)
	vec := a.data[slot*a.dim : (slot+1)*a.dim]
	if init != nil {
		init(vec)
	}
	return vec
}

// Reset 清空所有槽位（维度不变）。
func (a *Arena) Reset() {
	a.data = a.data[:0]
	a.ids = a.ids[:0]
	a.slots = make(map[string]int)
}

// Snapshot 导出 id → 向量拷贝（持久化用）。
func (a *Arena) Snapshot() map[string][]float64 {
	out := make(map[string][]float64, len(a.ids))
	for _, id := range a.ids {
		vec, _ := a.Get(id)
		out[id] = append([]float64(nil), vec...)
	}
	return out
}

// Restore 从 id → 向量映射恢复。节点不变式在此处强制：
// 短向量零填充、长向量截断、NaN/Inf 归零，而不是拒绝加载。
func (a *Arena) Restore(vectors map[string][]float64) {
	a.Reset()
	for id, src := range vectors {
		vec := a.Ensure(id, nil)
		n := len(src)
		if n > a.dim {
			n = a.dim
		}
		for i := 0; i < n; i++ {
			v := src[i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			vec[i] = v
		}
		// 剩余分量保持零值（零填充）
	}
}
