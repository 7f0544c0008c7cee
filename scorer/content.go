package scorer

import (
	"context"
	"math/rand"
	"strings"
	"sync"

	"github.com/rushteam/modakit/core"
	"github.com/rushteam/modakit/graph"
	"github.com/rushteam/modakit/persist"
)

// StrategyContent 是纯内容策略的模型名。
const StrategyContent = "content"

// Content 是 TF-IDF 文本相似打分策略。
//
// 每个商品一份文档（名称+描述+类目+品牌+标签+颜色），全集上建
// TF-IDF 索引；每个用户一份画像文档，由交互商品的文档按交互权重
// 重复拼接得到。打分为画像向量与候选向量的余弦，叠加类目/品牌
// 精确匹配加成。
//
// 三个策略中只有它支持"找相似"模式：给定种子商品 id 时用种子
// 向量代替用户画像，不依赖任何交互历史。
type Content struct {
	Entities core.EntityStore
	Persist  *persist.Manager
	Config   core.EngineConfig
	Logger   core.Logger

	mu       sync.RWMutex
	rnd      *rand.Rand
	tfidf    *TFIDFIndex
	profiles map[string]map[string]float64 // userID -> 画像向量
	products map[string]*core.Product      // 加成项需要的商品元数据
	trained  bool
}

var _ core.Strategy = (*Content)(nil)
var _ core.StrategyLoader = (*Content)(nil)

// NewContent 创建内容策略。
func NewContent(entities core.EntityStore, pm *persist.Manager, cfg core.EngineConfig) *Content {
	cfg.Normalize()
	return &Content{
		Entities: entities,
		Persist:  pm,
		Config:   cfg,
		Logger:   core.StdLogger(),
		rnd:      rand.New(rand.NewSource(cfg.Seed)),
	}
}

func (c *Content) Name() string { return StrategyContent }

func (c *Content) builder() *graph.Builder {
	return &graph.Builder{
		Entities:    c.Entities,
		MaxUsers:    c.Config.MaxUsers,
		MaxProducts: c.Config.MaxProducts,
		MaxNodes:    c.Config.MaxNodes,
		BatchSize:   c.Config.BatchSize,
		Rand:        c.rnd,
	}
}

// Train 全量训练：建商品文档索引，再为每个有历史的用户投影画像。
func (c *Content) Train(ctx context.Context) error {
	g, err := c.builder().BuildGraph(ctx)
	if err != nil {
		return err
	}

	docs := make(map[string]string, len(g.Products))
	for id, p := range g.Products {
		docs[id] = p.Document()
	}
	tfidf := BuildTFIDF(docs)

	profiles := make(map[string]map[string]float64, len(g.Users))
	for id, u := range g.Users {
		profiles[id] = profileVector(tfidf, u, g.Products)
	}

	c.mu.Lock()
	c.tfidf = tfidf
	c.profiles = profiles
	c.products = g.Products
	c.trained = tfidf.Len() > 0
	c.mu.Unlock()

	return c.persistState(ctx)
}

// TrainIncremental 与全量等价：文档与画像是当前实体集的确定性
// 函数，没有需要保留的随机状态，重算即合并。
func (c *Content) TrainIncremental(ctx context.Context) error {
	return c.Train(ctx)
}

// profileVector 构建用户画像：交互商品文档按权重重复后整体投影。
func profileVector(tfidf *TFIDFIndex, u *core.User, products map[string]*core.Product) map[string]float64 {
	var sb strings.Builder
	for _, ev := range u.History {
		p, ok := products[ev.ProductID]
		if !ok {
			continue
		}
		doc := p.Document()
		for i := 0; i < int(ev.Type.Weight()); i++ {
			sb.WriteString(doc)
			sb.WriteByte(' ')
		}
	}
	return tfidf.VectorFor(sb.String())
}

func (c *Content) persistState(ctx context.Context) error {
	if c.Persist == nil {
		return nil
	}
	c.mu.RLock()
	all := make(map[string]map[string]float64, c.tfidf.Len()+len(c.profiles))
	for id, vec := range c.tfidf.Vectors() {
		all[productNodePrefix+id] = vec
	}
	for id, vec := range c.profiles {
		all[userNodePrefix+id] = vec
	}
	meta := persist.Metadata{FeatureCount: c.tfidf.TermCount()}
	c.mu.RUnlock()
	return c.Persist.SaveDocs(ctx, StrategyContent, meta, all)
}

// Load 从持久化状态恢复；商品元数据（加成项用）从实体存储分页补齐。
func (c *Content) Load(ctx context.Context) error {
	if c.Persist == nil {
		return core.ErrModelUnavailable
	}
	_, all, err := c.Persist.LoadDocs(ctx, StrategyContent)
	if err != nil {
		return err
	}

	vecs := make(map[string]map[string]float64)
	profiles := make(map[string]map[string]float64)
	for key, vec := range all {
		switch {
		case strings.HasPrefix(key, productNodePrefix):
			vecs[key[len(productNodePrefix):]] = vec
		case strings.HasPrefix(key, userNodePrefix):
			profiles[key[len(userNodePrefix):]] = vec
		}
	}

	products := make(map[string]*core.Product, len(vecs))
	batch := c.Config.BatchSize
	if batch <= 0 {
		batch = 100
	}
	for offset := 0; ; offset += batch {
		page, err := c.Entities.ListProducts(ctx, offset, batch)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}
		for _, p := range page {
			if _, ok := vecs[p.ID]; ok {
				products[p.ID] = p
			}
		}
	}

	c.mu.Lock()
	c.tfidf = RestoreTFIDF(vecs)
	c.profiles = profiles
	c.products = products
	c.trained = len(vecs) > 0
	c.mu.Unlock()
	return nil
}

// IsAvailable 在商品索引非空时为真。
func (c *Content) IsAvailable(ctx context.Context) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.trained && c.tfidf != nil && c.tfidf.Len() > 0
}

// ScoreCandidates 打分。提供种子商品时按"与该商品相似"模式工作，
// 否则使用用户画像；画像缺失（训练后新用户）时用请求上下文里的
// 实时历史按需投影一份。
func (c *Content) ScoreCandidates(ctx context.Context, rctx *core.RecommendContext, candidateIDs []string) (map[string]float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.tfidf == nil || c.tfidf.Len() == 0 {
		return nil, core.ErrModelUnavailable
	}

	var query map[string]float64
	var seed *core.Product
	if rctx.SeedProductID != "" {
		seed = c.products[rctx.SeedProductID]
		query = c.tfidf.Vector(rctx.SeedProductID)
		if query == nil && seed != nil {
			query = c.tfidf.VectorFor(seed.Document())
		}
	} else {
		query = c.profiles[rctx.UserID]
		if query == nil && rctx.User != nil {
			query = profileVector(c.tfidf, rctx.User, c.products)
		}
	}
	if len(query) == 0 {
		return nil, core.ErrNoHistory
	}

	// 加成匹配集：种子模式用种子的类目/品牌，画像模式用历史集合
	var cats, brands map[string]struct{}
	if seed != nil {
		cats = map[string]struct{}{seed.Category: {}}
		brands = map[string]struct{}{seed.Brand: {}}
	} else if rctx.User != nil {
		cats, brands = historySets(rctx.User, c.products)
	}

	scores := make(map[string]float64, len(candidateIDs))
	for _, pid := range candidateIDs {
		if pid == rctx.SeedProductID {
			continue
		}
		vec := c.tfidf.Vector(pid)
		if vec == nil {
			continue
		}
		s := graph.CosineMaps(query, vec)
		if p := c.products[pid]; p != nil {
			if _, ok := cats[p.Category]; ok && p.Category != "" {
				s += 0.3
			}
			if _, ok := brands[p.Brand]; ok && p.Brand != "" {
				s += 0.2
			}
		}
		scores[pid] = graph.Clamp01(s)
	}
	return scores, nil
}

// ProductSimilarity 返回两个商品文档向量的余弦（搭配合成使用）。
func (c *Content) ProductSimilarity(a, b string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tfidf == nil {
		return 0
	}
	return graph.CosineMaps(c.tfidf.Vector(a), c.tfidf.Vector(b))
}

// historySets 收集用户历史涉及的类目与品牌。
func historySets(u *core.User, products map[string]*core.Product) (cats, brands map[string]struct{}) {
	cats = make(map[string]struct{})
	brands = make(map[string]struct{})
	for _, ev := range u.History {
		p, ok := products[ev.ProductID]
		if !ok {
			continue
		}
		if p.Category != "" {
			cats[p.Category] = struct{}{}
		}
		if p.Brand != "" {
			brands[p.Brand] = struct{}{}
		}
	}
	return cats, brands
}
