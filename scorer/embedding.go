package scorer

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/rushteam/modakit/core"
	"github.com/rushteam/modakit/graph"
	"github.com/rushteam/modakit/persist"
)

// StrategyEmbedding 是图嵌入策略的模型名。
const StrategyEmbedding = "embedding"

// 邻接表单独持久化，增量训练用它判定哪些节点的邻域发生了变化
const embeddingModelAdj = StrategyEmbedding + "-adj"

// 持久化向量的 key 前缀：用户与商品节点共存于同一份制品
const (
	userNodePrefix    = "u:"
	productNodePrefix = "p:"
)

// Embedding 是图嵌入打分策略。
//
// 每个节点（用户/商品）持有一个固定维度向量。训练是经验简化的
// 分数驱动微调而非反向传播：按邻居平均打分推动节点向量，
// 契约是有界、可持久化、固定种子下可复现。打分为用户向量与
// 候选商品向量的点积。
type Embedding struct {
	Entities core.EntityStore
	Persist  *persist.Manager
	Config   core.EngineConfig
	Logger   core.Logger

	mu       sync.RWMutex
	rnd      *rand.Rand
	users    *graph.Arena
	products *graph.Arena
	trained  bool
}

var _ core.Strategy = (*Embedding)(nil)
var _ core.StrategyLoader = (*Embedding)(nil)

// NewEmbedding 创建图嵌入策略。
func NewEmbedding(entities core.EntityStore, pm *persist.Manager, cfg core.EngineConfig) *Embedding {
	cfg.Normalize()
	return &Embedding{
		Entities: entities,
		Persist:  pm,
		Config:   cfg,
		Logger:   core.StdLogger(),
		rnd:      rand.New(rand.NewSource(cfg.Seed)),
		users:    graph.NewArena(cfg.EmbeddingDim),
		products: graph.NewArena(cfg.EmbeddingDim),
	}
}

func (e *Embedding) Name() string { return StrategyEmbedding }

func (e *Embedding) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
	}
}

// randInit 以小幅均匀分布初始化向量。
func (e *Embedding) randInit(dst []float64) {
	for i := range dst {
		dst[i] = (e.rnd.Float64() - 0.5) * 0.1
	}
}

func (e *Embedding) builder() *graph.Builder {
	return &graph.Builder{
		Entities:    e.Entities,
		MaxUsers:    e.Config.MaxUsers,
		MaxProducts: e.Config.MaxProducts,
		MaxNodes:    e.Config.MaxNodes,
		BatchSize:   e.Config.BatchSize,
		Rand:        e.rnd,
	}
}

// Train 全量训练：重建候选图、重新初始化全部节点向量、
// 运行 Epochs 轮分数驱动微调，最后持久化。
func (e *Embedding) Train(ctx context.Context) error {
	g, err := e.builder().BuildGraph(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.users.Reset()
	e.products.Reset()
	if g.Empty() {
		// 空图不是错误：不可用状态由 IsAvailable 暴露
		e.trained = false
		return nil
	}

	for _, id := range g.UserIDs {
		e.users.Ensure(id, e.randInit)
	}
	for _, id := range g.ProductIDs {
		e.products.Ensure(id, e.randInit)
	}

	adj := buildAdjacency(g)
	for epoch := 0; epoch < e.Config.Epochs; epoch++ {
		e.nudgePass(g, adj, nil)
	}
	e.trained = true

	return e.persistLocked(ctx, adj)
}

// TrainIncremental 增量训练：加载既有向量，仅对新节点随机初始化，
// 只对邻域发生变化的节点跑一轮微调。邻域未变的旧节点向量逐位不变。
func (e *Embedding) TrainIncremental(ctx context.Context) error {
	_, prior, err := e.Persist.LoadVectors(ctx, StrategyEmbedding)
	if err != nil {
		if core.IsModelUnavailable(err) {
			// 没有可合并的状态：退化为全量训练
			return e.Train(ctx)
		}
		return err
	}

	// 上一轮的邻接表缺失时视为全部节点脏
	_, priorAdj, err := e.Persist.LoadDocs(ctx, embeddingModelAdj)
	if err != nil && !core.IsModelUnavailable(err) {
		return err
	}

	g, err := e.builder().BuildGraph(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.users.Reset()
	e.products.Reset()
	if g.Empty() {
		e.trained = false
		return nil
	}

	fresh := 0
	for _, id := range g.UserIDs {
		if old, ok := prior[userNodePrefix+id]; ok {
			e.restoreVector(e.users, id, old)
		} else {
			e.users.Ensure(id, e.randInit)
			fresh++
		}
	}
	for _, id := range g.ProductIDs {
		if old, ok := prior[productNodePrefix+id]; ok {
			e.restoreVector(e.products, id, old)
		} else {
			e.products.Ensure(id, e.randInit)
			fresh++
		}
	}
	adj := buildAdjacency(g)
	dirty := dirtyNodes(adj, priorAdj)
	e.logf("embedding: incremental merge, %d nodes (%d new, %d dirty)", g.NodeCount(), fresh, len(dirty))

	e.nudgePass(g, adj, dirty)
	e.trained = true

	return e.persistLocked(ctx, adj)
}

// buildAdjacency 把有向边展开成对称邻接表，key 带节点前缀。
// 微调中边方向无意义，两端互为邻居。
func buildAdjacency(g *graph.Graph) map[string]map[string]float64 {
	prefixed := func(id string) string {
		if g.Products[id] != nil {
			return productNodePrefix + id
		}
		return userNodePrefix + id
	}
	adj := make(map[string]map[string]float64, g.NodeCount())
	add := func(from, to string, w float64) {
		m := adj[from]
		if m == nil {
			m = make(map[string]float64)
			adj[from] = m
		}
		m[to] += w
	}
	for _, edge := range g.Edges {
		f, t := prefixed(edge.From), prefixed(edge.To)
		add(f, t, edge.Weight)
		add(t, f, edge.Weight)
	}
	return adj
}

// dirtyNodes 返回邻接表与上一轮不一致的节点集合（含新节点）。
func dirtyNodes(cur, prior map[string]map[string]float64) map[string]bool {
	dirty := make(map[string]bool)
	for key, neighbors := range cur {
		old, ok := prior[key]
		if !ok || len(old) != len(neighbors) {
			dirty[key] = true
			continue
		}
		for nb, w := range neighbors {
			if old[nb] != w {
				dirty[key] = true
				break
			}
		}
	}
	return dirty
}

// restoreVector 恢复单个节点向量，强制维度不变式（截断/零填充、NaN 归零）。
func (e *Embedding) restoreVector(a *graph.Arena, id string, src []float64) {
	vec := a.Ensure(id, nil)
	n := len(src)
	if n > len(vec) {
		n = len(vec)
	}
	for i := 0; i < n; i++ {
		v := src[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		vec[i] = v
	}
}

// nudgePass 对节点执行一轮分数驱动微调：
//
//	delta = learningRate × mean(weight × dot(self, neighbor))
//	self += delta × meanNeighborVector
//
// adj 的 key/neighbor 均带节点前缀；only 非 nil 时只更新其中的节点。
// 单节点更新产生非法值时降级为小幅随机扰动而非中止整轮。
func (e *Embedding) nudgePass(g *graph.Graph, adj map[string]map[string]float64, only map[string]bool) {
	vecOf := func(key string) ([]float64, bool) {
		if len(key) > 2 && key[:2] == productNodePrefix {
			return e.products.Get(key[2:])
		}
		if len(key) > 2 && key[:2] == userNodePrefix {
			return e.users.Get(key[2:])
		}
		return nil, false
	}

	dim := e.Config.EmbeddingDim
	meanNeighbor := make([]float64, dim)

	update := func(a *graph.Arena, key, id string) {
		if only != nil && !only[key] {
			return
		}
		vec, ok := a.Get(id)
		if !ok {
			return
		}
		neighbors := adj[key]
		if len(neighbors) == 0 {
			return
		}
		for i := range meanNeighbor {
			meanNeighbor[i] = 0
		}
		var meanScore float64
		// 固定遍历顺序，保证固定种子下逐位可复现
		for _, nb := range sortedDocKeys(neighbors) {
			nvec, ok := vecOf(nb)
			if !ok {
				continue
			}
			meanScore += neighbors[nb] * graph.Dot(vec, nvec)
			for i, v := range nvec {
				meanNeighbor[i] += v
			}
		}
		inv := 1 / float64(len(neighbors))
		meanScore *= inv
		delta := e.Config.LearningRate * meanScore
		bad := false
		for i := range vec {
			next := vec[i] + delta*meanNeighbor[i]*inv
			if math.IsNaN(next) || math.IsInf(next, 0) {
				bad = true
				break
			}
			vec[i] = next
		}
		if bad {
			// 降级：可用性优先于正确性
			e.logf("embedding: degraded update for node %s", id)
			for i := range vec {
				vec[i] += (e.rnd.Float64() - 0.5) * 0.01
			}
		}
	}

	for _, id := range g.UserIDs {
		update(e.users, userNodePrefix+id, id)
	}
	for _, id := range g.ProductIDs {
		update(e.products, productNodePrefix+id, id)
	}
}

func sortedDocKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// persistLocked 持久化全部节点向量与邻接表（调用方持有写锁）。
func (e *Embedding) persistLocked(ctx context.Context, adj map[string]map[string]float64) error {
	if e.Persist == nil {
		return nil
	}
	vectors := make(map[string][]float64, e.users.Len()+e.products.Len())
	for id, vec := range e.users.Snapshot() {
		vectors[userNodePrefix+id] = vec
	}
	for id, vec := range e.products.Snapshot() {
		vectors[productNodePrefix+id] = vec
	}
	meta := persist.Metadata{Dim: e.Config.EmbeddingDim}
	if err := e.Persist.SaveVectors(ctx, StrategyEmbedding, meta, vectors); err != nil {
		return err
	}
	return e.Persist.SaveDocs(ctx, embeddingModelAdj, persist.Metadata{}, adj)
}

// Load 从持久化状态恢复内存向量（不触发训练）。
func (e *Embedding) Load(ctx context.Context) error {
	if e.Persist == nil {
		return core.ErrModelUnavailable
	}
	_, vectors, err := e.Persist.LoadVectors(ctx, StrategyEmbedding)
	if err != nil {
		return err
	}

	users := make(map[string][]float64)
	products := make(map[string][]float64)
	for key, vec := range vectors {
		switch {
		case len(key) > len(userNodePrefix) && key[:len(userNodePrefix)] == userNodePrefix:
			users[key[len(userNodePrefix):]] = vec
		case len(key) > len(productNodePrefix) && key[:len(productNodePrefix)] == productNodePrefix:
			products[key[len(productNodePrefix):]] = vec
		default:
			e.logf("embedding: unknown node key %q, skipped", key)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.users.Restore(users)
	e.products.Restore(products)
	e.trained = e.products.Len() > 0
	return nil
}

// IsAvailable 在存在任何商品向量时为真；否则调用方应回退冷启动。
func (e *Embedding) IsAvailable(ctx context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.products.Len() > 0
}

// ScoreCandidates 用请求用户向量与候选商品向量的点积打分。
// 未见过的用户按需插入新采样的随机向量；没有向量的候选跳过。
func (e *Embedding) ScoreCandidates(ctx context.Context, rctx *core.RecommendContext, candidateIDs []string) (map[string]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.products.Len() == 0 {
		return nil, core.ErrModelUnavailable
	}

	uvec := e.users.Ensure(rctx.UserID, e.randInit)

	scores := make(map[string]float64, len(candidateIDs))
	for _, pid := range candidateIDs {
		pvec, ok := e.products.Get(pid)
		if !ok {
			continue
		}
		scores[pid] = graph.Dot(uvec, pvec)
	}
	return scores, nil
}

// ProductVector 返回商品向量拷贝（搭配合成的兼容度计算使用）。
func (e *Embedding) ProductVector(productID string) ([]float64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	vec, ok := e.products.Get(productID)
	if !ok {
		return nil, false
	}
	return append([]float64(nil), vec...), true
}
