// Package engine 是推荐引擎的门面：组合实体存储、三种打分策略、
// 个性化流水线、冷启动兜底与穿搭合成，对外暴露 recommend 系列操作。
package engine

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/rushteam/modakit/core"
	"github.com/rushteam/modakit/feast"
	"github.com/rushteam/modakit/filter"
	"github.com/rushteam/modakit/outfit"
	"github.com/rushteam/modakit/persist"
	"github.com/rushteam/modakit/pipeline"
	"github.com/rushteam/modakit/pkg/utils"
	"github.com/rushteam/modakit/rerank"
	"github.com/rushteam/modakit/scorer"
)

// Result 是单品推荐的响应。
type Result struct {
	Products    []*core.Product `json:"products"`
	Model       string          `json:"model"`
	Explanation string          `json:"explanation"`
}

// OutfitResult 是穿搭推荐的响应。
type OutfitResult struct {
	Outfits     []*core.Outfit `json:"outfits"`
	Model       string         `json:"model"`
	Explanation string         `json:"explanation"`
}

// OutfitOptions 是 RecommendOutfits 的参数。
type OutfitOptions struct {
	// ProductID 是锚点商品 id（必填）
	ProductID string
	// K 是返回的组合数上限，<= 0 时默认 3
	K int
	// Gender 覆盖用户存储的性别（可选）
	Gender core.Gender
}

// ModelColdStart 是冷启动兜底在响应中的模型名。
const ModelColdStart = "coldstart"

// Engine 是推荐引擎。并发安全：策略内部有各自的锁，训练经
// singleflight 合并，重复并发训练最多浪费不会出错。
type Engine struct {
	Entities core.EntityStore
	Config   core.EngineConfig
	Logger   core.Logger
	Persist  *persist.Manager

	// Features 是可选的特征存储客户端；设置后个性化链路追加
	// 离线统计特征补全节点
	Features feast.Client

	// FeatureCache 是可选的特征缓存后端（Hash），减少特征存储
	// 的重复拉取
	FeatureCache core.KeyValueStore

	coldstart   *ColdStart
	personalize *rerank.PersonalizeNode
	synth       *outfit.Synthesizer

	mu          sync.RWMutex
	strategies  map[string]core.Strategy
	defaultName string

	sf singleflight.Group
}

// New 创建引擎并注册三种内置策略。modelStore 承载模型持久化
// （FileStore / RedisStore / MemoryStore 均可）。
func New(entities core.EntityStore, modelStore core.Store, cfg core.EngineConfig) (*Engine, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pm := persist.NewManager(modelStore, cfg.StalenessTimeout)

	hybrid, err := scorer.NewHybrid(entities, pm, cfg)
	if err != nil {
		return nil, err
	}
	content := scorer.NewContent(entities, pm, cfg)
	embedding := scorer.NewEmbedding(entities, pm, cfg)

	e := &Engine{
		Entities:    entities,
		Config:      cfg,
		Logger:      core.StdLogger(),
		Persist:     pm,
		coldstart:   &ColdStart{Entities: entities},
		personalize: &rerank.PersonalizeNode{Entities: entities},
		synth:       &outfit.Synthesizer{Similarity: content.ProductSimilarity},
		strategies:  make(map[string]core.Strategy, 3),
		defaultName: scorer.StrategyHybrid,
	}
	e.Register(embedding)
	e.Register(hybrid)
	e.Register(content)
	return e, nil
}

func (e *Engine) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
	}
}

// UseRatingRank 让冷启动改读 Store 侧的评分榜单（如
// store.RatingRank 维护的 ZSET），避免每次兜底都全量扫描商品表。
func (e *Engine) UseRatingRank(r RatingSource) {
	e.coldstart.Ranks = r
}

// Register 注册一个打分策略（同名覆盖）。
func (e *Engine) Register(s core.Strategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategies[s.Name()] = s
}

// strategy 按名称取策略，空名取默认。
func (e *Engine) strategy(name string) (core.Strategy, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if name == "" {
		name = e.defaultName
	}
	s, ok := e.strategies[name]
	if !ok {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: unknown strategy "+name)
	}
	return s, nil
}

// ensureReady 保证策略有可用模型：内存可用 → 直接返回；否则先尝试
// 从持久化恢复；仍不可用时，严格离线模式返回 MODEL_UNAVAILABLE
// （可重试，提示调用方先跑离线训练），否则内联训练（singleflight
// 合并并发触发）。
func (e *Engine) ensureReady(ctx context.Context, s core.Strategy) error {
	if s.IsAvailable(ctx) {
		return nil
	}

	if loader, ok := s.(core.StrategyLoader); ok {
		if err := loader.Load(ctx); err != nil && !core.IsModelUnavailable(err) {
			return err
		}
		if s.IsAvailable(ctx) {
			return nil
		}
	}

	if e.Config.StrictOffline {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeModelUnavailable,
			"engine: no fresh persisted state for "+s.Name()+" in strict offline mode, run offline training and retry")
	}

	e.logf("engine: inline training for %s", s.Name())
	if _, err, _ := e.sf.Do("train:"+s.Name(), func() (any, error) {
		return nil, s.Train(ctx)
	}); err != nil {
		return err
	}
	if !s.IsAvailable(ctx) {
		return core.ErrModelUnavailable
	}
	return nil
}

// candidatePool 分页拉取候选商品（上限 MaxProducts）。
func (e *Engine) candidatePool(ctx context.Context) ([]string, map[string]*core.Product, error) {
	batch := e.Config.BatchSize
	if batch <= 0 {
		batch = 100
	}
	max := e.Config.MaxProducts

	var ids []string
	products := make(map[string]*core.Product)
	for offset := 0; ; offset += batch {
		page, err := e.Entities.ListProducts(ctx, offset, batch)
		if err != nil {
			return nil, nil, err
		}
		if len(page) == 0 {
			break
		}
		for _, p := range page {
			ids = append(ids, p.ID)
			products[p.ID] = p
			if max > 0 && len(ids) >= max {
				return ids, products, nil
			}
		}
	}
	return ids, products, nil
}

// assembleItems 按候选顺序组装 Item（稳定排序的"原始顺序"基准）。
func assembleItems(ids []string, products map[string]*core.Product, scores map[string]float64, model string) []*core.Item {
	items := make([]*core.Item, 0, len(scores))
	for _, id := range ids {
		score, ok := scores[id]
		if !ok {
			continue
		}
		p := products[id]
		if p == nil {
			continue
		}
		it := core.NewItem(id)
		it.Score = score
		it.SetProduct(p)
		it.PutLabel("model", utils.Label{Value: model, Source: "engine"})
		items = append(items, it)
	}
	return items
}

func resultProducts(items []*core.Item) []*core.Product {
	out := make([]*core.Product, 0, len(items))
	for _, it := range items {
		if p := it.Product(); p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Recommend 用指定策略（空则默认）为用户做基础推荐。
//
//	用户不存在 → NOT_FOUND
//	用户无历史 → NO_HISTORY（调用方应改走冷启动，不视为硬失败）
//	严格离线且无持久化状态 → MODEL_UNAVAILABLE（可重试）
//	模型对该请求不可用（如空语料） → 引擎内部冷启动兜底
func (e *Engine) Recommend(ctx context.Context, userID string, k int, strategyName string) (*Result, error) {
	user, err := e.Entities.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasHistory() {
		return nil, core.ErrNoHistory
	}

	s, err := e.strategy(strategyName)
	if err != nil {
		return nil, err
	}
	if err := e.ensureReady(ctx, s); err != nil {
		if core.IsModelUnavailable(err) && !e.Config.StrictOffline {
			return e.coldStartResult(ctx, user, core.GenderUnknown, k)
		}
		return nil, err
	}

	rctx := &core.RecommendContext{UserID: userID, Scene: "recommend", User: user}
	ids, products, err := e.candidatePool(ctx)
	if err != nil {
		return nil, err
	}

	scores, err := s.ScoreCandidates(ctx, rctx, ids)
	if err != nil {
		if core.IsModelUnavailable(err) || core.IsNoHistory(err) {
			return e.coldStartResult(ctx, user, core.GenderUnknown, k)
		}
		return nil, err
	}

	items := assembleItems(ids, products, scores, s.Name())
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	p := &pipeline.Pipeline{Nodes: []pipeline.Node{
		&filter.FilterNode{Filters: []filter.Filter{
			&filter.GenderCategoryFilter{},
			&filter.GenderKeywordFilter{},
		}},
		&rerank.TopNNode{N: k},
	}}
	items, err = p.Run(ctx, rctx, items)
	if err != nil {
		return nil, err
	}

	return &Result{
		Products:    resultProducts(items),
		Model:       s.Name(),
		Explanation: "ranked by " + s.Name() + " model scores",
	}, nil
}

// RecommendPersonalize 为用户做个性化推荐，可带当前浏览商品 id
// 以偏向其类目。NO_HISTORY / NOT_FOUND 在此内部转冷启动，不向外
// 传播。
func (e *Engine) RecommendPersonalize(ctx context.Context, userID string, k int, productID string) (*Result, error) {
	user, err := e.Entities.GetUser(ctx, userID)
	if err != nil {
		if core.IsNotFound(err) {
			return e.coldStartResult(ctx, nil, core.GenderUnknown, k)
		}
		return nil, err
	}
	if !user.HasHistory() {
		return e.coldStartResult(ctx, user, core.GenderUnknown, k)
	}

	s, err := e.strategy("")
	if err != nil {
		return nil, err
	}
	if err := e.ensureReady(ctx, s); err != nil {
		if core.IsModelUnavailable(err) && !e.Config.StrictOffline {
			return e.coldStartResult(ctx, user, core.GenderUnknown, k)
		}
		return nil, err
	}

	rctx := &core.RecommendContext{
		UserID:        userID,
		Scene:         "personalize",
		User:          user,
		SeedProductID: productID,
	}
	ids, products, err := e.candidatePool(ctx)
	if err != nil {
		return nil, err
	}

	scores, err := s.ScoreCandidates(ctx, rctx, ids)
	if err != nil {
		if core.IsModelUnavailable(err) || core.IsNoHistory(err) {
			return e.coldStartResult(ctx, user, core.GenderUnknown, k)
		}
		return nil, err
	}

	items := assembleItems(ids, products, scores, s.Name())

	// 当前浏览商品的类目偏置
	if productID != "" {
		if seed := products[productID]; seed != nil && seed.Category != "" {
			for _, it := range items {
				if p := it.Product(); p != nil && p.Category == seed.Category && p.ID != productID {
					it.Score *= 1.3
					it.PutLabel("personalize.seed_category", utils.Label{Value: "1.30", Source: "engine"})
				}
			}
		}
	}

	nodes := []pipeline.Node{
		&filter.FilterNode{Filters: []filter.Filter{&filter.GenderKeywordFilter{}}},
	}
	if e.Features != nil {
		// 特征补全在个性化之前，排序统一由个性化节点收尾
		nodes = append(nodes, &feast.EnrichNode{Client: e.Features, Cache: e.FeatureCache, Logger: e.Logger})
	}
	nodes = append(nodes, e.personalize, &rerank.TopNNode{N: k})
	p := &pipeline.Pipeline{Nodes: nodes}
	items, err = p.Run(ctx, rctx, items)
	if err != nil {
		return nil, err
	}

	return &Result{
		Products:    resultProducts(items),
		Model:       s.Name(),
		Explanation: "ranked by " + s.Name() + " model with personalized boosts",
	}, nil
}

// RecommendOutfits 以锚点商品为中心合成穿搭组合。
//
//	锚点 id 缺失 / 性别无法确定 → MISSING_PRECONDITION
//	用户或锚点商品不存在 → NOT_FOUND
func (e *Engine) RecommendOutfits(ctx context.Context, userID string, opts OutfitOptions) (*OutfitResult, error) {
	if opts.ProductID == "" {
		return nil, core.NewDomainError(core.ModuleOutfit, core.ErrorCodeMissingPrecondition,
			"outfit: product id is required as anchor")
	}

	user, err := e.Entities.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	seed, err := e.Entities.GetProduct(ctx, opts.ProductID)
	if err != nil {
		return nil, err
	}

	gender := opts.Gender
	if gender == core.GenderUnknown {
		gender = user.Gender
	}
	if gender == core.GenderUnknown {
		return nil, core.NewDomainError(core.ModuleOutfit, core.ErrorCodeMissingPrecondition,
			"outfit: gender could not be resolved from override or user profile")
	}

	rctx := &core.RecommendContext{
		UserID:         userID,
		Scene:          "outfit",
		User:           user,
		SeedProductID:  opts.ProductID,
		GenderOverride: opts.Gender,
	}

	ids, products, err := e.candidatePool(ctx)
	if err != nil {
		return nil, err
	}

	// 种子相似模式不依赖历史，content 策略是穿搭候选池的首选
	model := ModelColdStart
	var items []*core.Item
	if s, serr := e.strategy(scorer.StrategyContent); serr == nil {
		if rerr := e.ensureReady(ctx, s); rerr == nil {
			if scores, scoreErr := s.ScoreCandidates(ctx, rctx, ids); scoreErr == nil {
				items = assembleItems(ids, products, scores, s.Name())
				model = s.Name()
			}
		} else if core.IsModelUnavailable(rerr) && e.Config.StrictOffline {
			return nil, rerr
		}
	}
	if items == nil {
		// 兜底候选池：热门榜
		top, terr := e.Entities.TopRatedProducts(ctx, e.Config.MaxProducts)
		if terr != nil {
			return nil, terr
		}
		for _, p := range top {
			it := core.NewItem(p.ID)
			it.Score = p.Rating
			it.SetProduct(p)
			items = append(items, it)
		}
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	p := &pipeline.Pipeline{Nodes: []pipeline.Node{
		&filter.FilterNode{Filters: []filter.Filter{&filter.GenderKeywordFilter{}}},
		&rerank.Diversity{MaxPerCategory: e.synthRoleLimit()},
	}}
	items, err = p.Run(ctx, rctx, items)
	if err != nil {
		return nil, err
	}

	outfits, err := e.synth.Compose(ctx, rctx, seed, items, opts.K)
	if err != nil {
		return nil, err
	}

	return &OutfitResult{
		Outfits:     outfits,
		Model:       model,
		Explanation: "outfits composed around " + seed.Name + " by role templates",
	}, nil
}

func (e *Engine) synthRoleLimit() int {
	if e.synth != nil && e.synth.RoleLimit > 0 {
		return e.synth.RoleLimit
	}
	return 4
}

func (e *Engine) coldStartResult(ctx context.Context, user *core.User, override core.Gender, k int) (*Result, error) {
	products, err := e.coldstart.Recommend(ctx, user, override, k)
	if err != nil {
		return nil, err
	}
	return &Result{
		Products:    products,
		Model:       ModelColdStart,
		Explanation: "popular products fallback ranked by rating",
	}, nil
}

// Train 对全部策略做全量训练。持久化状态仍新鲜的策略直接跳过
// （幂等：过期窗口内重复调用是 no-op）。各策略并行，训练触发经
// singleflight 与请求内联训练合并。
func (e *Engine) Train(ctx context.Context) error {
	return e.trainAll(ctx, false)
}

// TrainIncremental 对全部策略做合并式增量训练。总是尝试合并，
// 只有持久化状态完全缺失时才退化为全量。
func (e *Engine) TrainIncremental(ctx context.Context) error {
	return e.trainAll(ctx, true)
}

func (e *Engine) trainAll(ctx context.Context, incremental bool) error {
	e.mu.RLock()
	strategies := make([]core.Strategy, 0, len(e.strategies))
	for _, s := range e.strategies {
		strategies = append(strategies, s)
	}
	e.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, s := range strategies {
		s := s
		g.Go(func() error {
			if !incremental && e.Persist != nil && e.Persist.Fresh(ctx, s.Name()) {
				e.logf("engine: %s persisted state still fresh, skipping train", s.Name())
				if loader, ok := s.(core.StrategyLoader); ok && !s.IsAvailable(ctx) {
					return loader.Load(ctx)
				}
				return nil
			}
			key := "train:" + s.Name()
			fn := s.Train
			if incremental {
				key = "train-incremental:" + s.Name()
				fn = s.TrainIncremental
			}
			_, err, _ := e.sf.Do(key, func() (any, error) {
				return nil, fn(ctx)
			})
			return err
		})
	}
	return g.Wait()
}
