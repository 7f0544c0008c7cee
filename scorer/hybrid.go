package scorer

import (
	"context"
	"math/rand"
	"runtime"
	"sync"

	"github.com/rushteam/modakit/core"
	"github.com/rushteam/modakit/graph"
	"github.com/rushteam/modakit/persist"
)

// StrategyHybrid 是协同过滤+内容混合策略的模型名。
const StrategyHybrid = "hybrid"

// 持久化拆成三份文档型制品：效用行、物品相似邻域、商品词向量
const (
	hybridModelRows = StrategyHybrid
	hybridModelSims = StrategyHybrid + "-itemsim"
	hybridModelDocs = StrategyHybrid + "-docs"
)

// Hybrid 是矩阵式混合打分策略。
//
// 训练产出三份状态：users×products 效用矩阵、用户-用户相似度
// （余弦，行向量）、物品-物品相似度（内容余弦 + 类目/品牌/标签加成）。
// 相似度结构在实体数 ≤ DenseThreshold 时保留全量 pairwise，
// 超过则退化为每实体 top-K 稀疏邻域，把内存约束在 O(n·K)。
//
// 打分 = CFWeight × 协同分 + CBWeight × 内容分，权重必须和为 1。
type Hybrid struct {
	Entities core.EntityStore
	Persist  *persist.Manager
	Config   core.EngineConfig
	Logger   core.Logger

	// reclaim 在相似度计算的批次之间调用，默认 runtime.GC
	reclaim func()

	mu      sync.RWMutex
	rnd     *rand.Rand
	matrix  *graph.Matrix
	userSim *graph.SimilarityMap
	itemSim *graph.SimilarityMap
	tfidf   *TFIDFIndex
	trained bool
}

var _ core.Strategy = (*Hybrid)(nil)
var _ core.StrategyLoader = (*Hybrid)(nil)

// NewHybrid 创建混合策略；CF/CB 权重不合法时拒绝。
func NewHybrid(entities core.EntityStore, pm *persist.Manager, cfg core.EngineConfig) (*Hybrid, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Hybrid{
		Entities: entities,
		Persist:  pm,
		Config:   cfg,
		Logger:   core.StdLogger(),
		reclaim:  runtime.GC,
		rnd:      rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

func (h *Hybrid) Name() string { return StrategyHybrid }

func (h *Hybrid) logf(format string, args ...any) {
	if h.Logger != nil {
		h.Logger.Printf(format, args...)
	}
}

func (h *Hybrid) builder() *graph.Builder {
	return &graph.Builder{
		Entities:    h.Entities,
		MaxUsers:    h.Config.MaxUsers,
		MaxProducts: h.Config.MaxProducts,
		MaxNodes:    h.Config.MaxNodes,
		BatchSize:   h.Config.BatchSize,
		Rand:        h.rnd,
	}
}

// topK 返回相似度结构的稀疏参数：实体数不超过稠密阈值时为 0（全量）。
func (h *Hybrid) topK(n int) int {
	if n <= h.Config.DenseThreshold {
		return 0
	}
	k := h.Config.TopKNeighbors
	if k <= 0 || k > 50 {
		k = 50
	}
	return k
}

// Train 全量训练：构建效用矩阵与两份相似度结构并持久化。
func (h *Hybrid) Train(ctx context.Context) error {
	return h.train(ctx, nil)
}

// train 在当前实体集上重算矩阵与相似度。prior 非空时为增量合并：
// 既有商品沿用持久化的词向量，只为新商品投影。
func (h *Hybrid) train(ctx context.Context, prior map[string]map[string]float64) error {
	g, err := h.builder().BuildGraph(ctx)
	if err != nil {
		return err
	}

	matrix := graph.BuildMatrix(g)

	var tfidf *TFIDFIndex
	if len(prior) > 0 {
		tfidf = RestoreTFIDF(prior)
		fresh := 0
		for id, p := range g.Products {
			if tfidf.Vector(id) == nil {
				tfidf.Index(id, p.Document())
				fresh++
			}
		}
		h.logf("hybrid: incremental merge, %d docs (%d new)", tfidf.Len(), fresh)
	} else {
		docs := make(map[string]string, len(g.Products))
		for id, p := range g.Products {
			docs[id] = p.Document()
		}
		tfidf = BuildTFIDF(docs)
	}

	userSim, err := h.computeUserSim(ctx, matrix)
	if err != nil {
		return err
	}
	itemSim, err := h.computeItemSim(ctx, g, tfidf)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.matrix = matrix
	h.userSim = userSim
	h.itemSim = itemSim
	h.tfidf = tfidf
	h.trained = !matrix.Empty()
	h.mu.Unlock()

	return h.persistState(ctx)
}

// TrainIncremental 增量训练：矩阵/相似度是当前实体集的函数，
// 无可增量累积的梯度状态，矩阵与两份相似度在合并后的实体集上
// 重算。与全量的差别是保留既有商品的词向量，只为新商品投影；
// 无既有状态时退化为全量训练。
func (h *Hybrid) TrainIncremental(ctx context.Context) error {
	if h.Persist != nil {
		if _, prior, err := h.Persist.LoadDocs(ctx, hybridModelDocs); err == nil && len(prior) > 0 {
			return h.train(ctx, prior)
		}
	}
	return h.train(ctx, nil)
}

// computeUserSim 按批计算用户-用户相似度（矩阵行向量，默认余弦，
// 可配置皮尔逊）。每批之间检查取消并触发内存回收。
func (h *Hybrid) computeUserSim(ctx context.Context, m *graph.Matrix) (*graph.SimilarityMap, error) {
	metric := graph.Cosine
	if h.Config.UserSimMetric == core.SimMetricPearson {
		metric = graph.Pearson
	}

	sim := graph.NewSimilarityMap(h.topK(len(m.Users)))
	batch := h.Config.BatchSize
	if batch <= 0 {
		batch = 100
	}
	for i, uid := range m.Users {
		if i > 0 && i%batch == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			h.reclaim()
		}
		row := m.Row(uid)
		for _, vid := range m.Users[i+1:] {
			s := metric(row, m.Row(vid))
			if s > 0 {
				sim.Put(uid, vid, s)
			}
		}
	}
	return sim, nil
}

// computeItemSim 按批计算物品-物品相似度：
//
//	内容余弦（任一词向量为空时取下限 0.05）
//	+ 0.3 同类目  + 0.2 同品牌  + 标签 Jaccard（封顶 0.3）
//
// 结果钳制到 [0,1]。
func (h *Hybrid) computeItemSim(ctx context.Context, g *graph.Graph, tfidf *TFIDFIndex) (*graph.SimilarityMap, error) {
	sim := graph.NewSimilarityMap(h.topK(len(g.ProductIDs)))
	batch := h.Config.BatchSize
	if batch <= 0 {
		batch = 100
	}
	for i, pid := range g.ProductIDs {
		if i > 0 && i%batch == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			h.reclaim()
		}
		a := g.Products[pid]
		va := tfidf.Vector(pid)
		for _, qid := range g.ProductIDs[i+1:] {
			b := g.Products[qid]
			s := blendItemSim(a, b, va, tfidf.Vector(qid))
			if s > 0 {
				sim.Put(pid, qid, s)
			}
		}
	}
	return sim, nil
}

func blendItemSim(a, b *core.Product, va, vb map[string]float64) float64 {
	var s float64
	if len(va) == 0 || len(vb) == 0 {
		s = 0.05
	} else {
		s = graph.CosineMaps(va, vb)
		if s < 0.05 {
			s = 0.05
		}
	}
	if a.Category != "" && a.Category == b.Category {
		s += 0.3
	}
	if a.Brand != "" && a.Brand == b.Brand {
		s += 0.2
	}
	tag := graph.Jaccard(a.OutfitTags, b.OutfitTags)
	if tag > 0.3 {
		tag = 0.3
	}
	s += tag
	return graph.Clamp01(s)
}

// persistState 写出三份制品。
func (h *Hybrid) persistState(ctx context.Context) error {
	if h.Persist == nil {
		return nil
	}
	h.mu.RLock()
	rows := make(map[string]map[string]float64, len(h.matrix.Users))
	for uid, row := range h.matrix.RowsByID() {
		sparse := make(map[string]float64)
		for j, v := range row {
			if v != 0 {
				sparse[h.matrix.Products[j]] = v
			}
		}
		rows[uid] = sparse
	}
	sims := make(map[string]map[string]float64, len(h.matrix.Products))
	for _, pid := range h.matrix.Products {
		sims[pid] = h.itemSim.Neighbors(pid)
	}
	vecs := h.tfidf.Vectors()
	h.mu.RUnlock()

	if err := h.Persist.SaveDocs(ctx, hybridModelDocs, persist.Metadata{FeatureCount: h.tfidf.TermCount()}, vecs); err != nil {
		return err
	}
	if err := h.Persist.SaveDocs(ctx, hybridModelSims, persist.Metadata{}, sims); err != nil {
		return err
	}
	return h.Persist.SaveDocs(ctx, hybridModelRows, persist.Metadata{}, rows)
}

// Load 从持久化状态恢复：重建效用矩阵、物品相似邻域与词向量，
// 用户相似度在恢复的矩阵上重算（行数已有界，代价可控）。
func (h *Hybrid) Load(ctx context.Context) error {
	if h.Persist == nil {
		return core.ErrModelUnavailable
	}
	_, rows, err := h.Persist.LoadDocs(ctx, hybridModelRows)
	if err != nil {
		return err
	}
	_, sims, err := h.Persist.LoadDocs(ctx, hybridModelSims)
	if err != nil {
		return err
	}
	_, vecs, err := h.Persist.LoadDocs(ctx, hybridModelDocs)
	if err != nil {
		return err
	}

	users := make([]string, 0, len(rows))
	productSet := make(map[string]struct{})
	for uid, row := range rows {
		users = append(users, uid)
		for pid := range row {
			productSet[pid] = struct{}{}
		}
	}
	for pid := range sims {
		productSet[pid] = struct{}{}
	}
	products := make([]string, 0, len(productSet))
	for pid := range productSet {
		products = append(products, pid)
	}

	matrix := graph.NewMatrix(users, products)
	for uid, row := range rows {
		for pid, v := range row {
			matrix.Set(uid, pid, v)
		}
	}

	itemSim := graph.NewSimilarityMap(h.topK(len(products)))
	for pid, neighbors := range sims {
		for qid, s := range neighbors {
			itemSim.Put(pid, qid, s)
		}
	}

	userSim, err := h.computeUserSim(ctx, matrix)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.matrix = matrix
	h.userSim = userSim
	h.itemSim = itemSim
	h.tfidf = RestoreTFIDF(vecs)
	h.trained = !matrix.Empty()
	h.mu.Unlock()
	return nil
}

// IsAvailable 在效用矩阵非空时为真。
func (h *Hybrid) IsAvailable(ctx context.Context) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.trained && h.matrix != nil && !h.matrix.Empty()
}

// ScoreCandidates 逐候选计算混合分。
func (h *Hybrid) ScoreCandidates(ctx context.Context, rctx *core.RecommendContext, candidateIDs []string) (map[string]float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.matrix == nil || h.matrix.Empty() {
		return nil, core.ErrModelUnavailable
	}

	// 内容分依据用户交互过的商品；优先用请求上下文里的实时历史，
	// 用户不在矩阵中（训练后新注册）时仍可得到内容分
	var interacted map[string]float64
	if rctx.User != nil {
		interacted = rctx.User.InteractedProducts()
	}

	scores := make(map[string]float64, len(candidateIDs))
	for _, pid := range candidateIDs {
		cf := h.cfScore(rctx.UserID, pid)
		cb := h.cbScore(interacted, pid)
		scores[pid] = h.Config.CFWeight*cf + h.Config.CBWeight*cb
	}
	return scores, nil
}

// cfScore 计算协同分：相似邻居（相似度 > 0.1，排除自身）对该商品
// 效用的相似度加权平均，按效用上限归一到 [0,1]；无合格邻居时取
// 默认 0.1。
func (h *Hybrid) cfScore(userID, productID string) float64 {
	const (
		simThreshold = 0.1
		defaultScore = 0.1
		maxUtility   = 5.0 // purchase 权重 × 满分评分
	)
	var weighted, total float64
	for vid, s := range h.userSim.Neighbors(userID) {
		if vid == userID || s <= simThreshold {
			continue
		}
		r := h.matrix.Get(vid, productID)
		if r <= 0 {
			continue
		}
		weighted += s * r
		total += s
	}
	if total == 0 {
		return defaultScore
	}
	return graph.Clamp01(weighted / total / maxUtility)
}

// cbScore 计算内容分：候选与用户交互过的商品的物品相似度均值。
// 无历史时取与协同分相同的下限 0.1。
func (h *Hybrid) cbScore(interacted map[string]float64, productID string) float64 {
	if len(interacted) == 0 {
		return 0.1
	}
	var sum float64
	var n int
	for pid := range interacted {
		if pid == productID {
			continue
		}
		sum += h.itemSim.Get(pid, productID)
		n++
	}
	if n == 0 {
		return 0.1
	}
	return graph.Clamp01(sum / float64(n))
}

// ItemSimilarity 返回两个商品的相似度（搭配合成使用）。
func (h *Hybrid) ItemSimilarity(a, b string) float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.itemSim == nil {
		return 0
	}
	return h.itemSim.Get(a, b)
}
