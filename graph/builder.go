package graph

import (
	"context"
	"math/rand"
	"runtime"
	"sort"

	"github.com/rushteam/modakit/core"
)

// Edge 是候选图中的一条有向边。
// 用户→商品边来自交互（权重 = 交互效用）；
// 商品↔商品边来自离线搭配关系（对称，双向各存一条，权重 1）。
type Edge struct {
	From   string
	To     string
	Weight float64
}

// Graph 是一次训练周期内构建的候选图：用户、商品与边的有界快照。
// 空图不是错误：下游策略检测到空结构后应路由到冷启动。
type Graph struct {
	UserIDs    []string // 升序
	ProductIDs []string // 升序
	Users      map[string]*core.User
	Products   map[string]*core.Product
	Edges      []Edge
}

// Empty 判断图是否为空（无用户或无商品）。
func (g *Graph) Empty() bool {
	return g == nil || len(g.UserIDs) == 0 || len(g.ProductIDs) == 0
}

// NodeCount 返回节点总数（用户 + 商品）。
func (g *Graph) NodeCount() int {
	if g == nil {
		return 0
	}
	return len(g.UserIDs) + len(g.ProductIDs)
}

// Builder 按固定批量分页拉取实体并构建候选图/效用矩阵。
//
// 内存约束（硬要求，不是优化）：
//   - 用户/商品各自有上限，分页批量拉取以限制峰值内存
//   - 每批之间调用内存回收钩子并检查 ctx 取消
//   - 节点总数超过 MaxNodes 时均匀采样到上限，边随采样集过滤
type Builder struct {
	Entities core.EntityStore

	MaxUsers    int
	MaxProducts int
	MaxNodes    int
	BatchSize   int

	// Rand 是采样用的随机源；为 nil 时采样退化为前缀截断（确定性兜底）
	Rand *rand.Rand

	// ReclaimHook 在每批之间调用；默认 runtime.GC（对应源系统的
	// 显式内存回收点）。测试可注入计数器验证分批行为。
	ReclaimHook func()
}

func (b *Builder) reclaim() {
	if b.ReclaimHook != nil {
		b.ReclaimHook()
		return
	}
	runtime.GC()
}

func (b *Builder) batchSize() int {
	if b.BatchSize > 0 {
		return b.BatchSize
	}
	return 100
}

// BuildGraph 构建候选图：
//  1. 分页拉取有交互历史的用户（至多 MaxUsers）
//  2. 分页拉取商品（至多 MaxProducts）
//  3. 交互 → 用户-商品边；搭配关系 → 对称商品-商品边
//  4. 节点超限时均匀采样并过滤边
func (b *Builder) BuildGraph(ctx context.Context) (*Graph, error) {
	users, err := b.fetchUsers(ctx)
	if err != nil {
		return nil, err
	}
	products, err := b.fetchProducts(ctx)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		Users:    make(map[string]*core.User, len(users)),
		Products: make(map[string]*core.Product, len(products)),
	}
	for _, u := range users {
		g.Users[u.ID] = u
		g.UserIDs = append(g.UserIDs, u.ID)
	}
	for _, p := range products {
		g.Products[p.ID] = p
		g.ProductIDs = append(g.ProductIDs, p.ID)
	}
	sort.Strings(g.UserIDs)
	sort.Strings(g.ProductIDs)

	// 节点超限：均匀采样到上限，之后再生成边
	if b.MaxNodes > 0 && g.NodeCount() > b.MaxNodes {
		b.sampleDown(g)
	}

	b.buildEdges(g)
	return g, nil
}

func (b *Builder) fetchUsers(ctx context.Context) ([]*core.User, error) {
	var out []*core.User
	batch := b.batchSize()
	for offset := 0; ; offset += batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := b.Entities.ListUsers(ctx, offset, batch)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		for _, u := range page {
			if u == nil || !u.HasHistory() {
				continue // 无历史的用户不参与训练
			}
			out = append(out, u)
			if b.MaxUsers > 0 && len(out) >= b.MaxUsers {
				b.reclaim()
				return out, nil
			}
		}
		b.reclaim()
	}
	return out, nil
}

func (b *Builder) fetchProducts(ctx context.Context) ([]*core.Product, error) {
	var out []*core.Product
	batch := b.batchSize()
	for offset := 0; ; offset += batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := b.Entities.ListProducts(ctx, offset, batch)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		for _, p := range page {
			if p == nil {
				continue
			}
			out = append(out, p)
			if b.MaxProducts > 0 && len(out) >= b.MaxProducts {
				b.reclaim()
				return out, nil
			}
		}
		b.reclaim()
	}
	return out, nil
}

// sampleDown 均匀采样节点到 MaxNodes。用户与商品按原比例分摊名额，
// 两侧至少各保留 1 个（若原本非空）。
func (b *Builder) sampleDown(g *Graph) {
	total := g.NodeCount()
	keepUsers := b.MaxNodes * len(g.UserIDs) / total
	if keepUsers < 1 && len(g.UserIDs) > 0 {
		keepUsers = 1
	}
	keepProducts := b.MaxNodes - keepUsers
	if keepProducts < 1 && len(g.ProductIDs) > 0 {
		keepProducts = 1
		keepUsers = b.MaxNodes - keepProducts
	}

	g.UserIDs = b.sampleIDs(g.UserIDs, keepUsers)
	g.ProductIDs = b.sampleIDs(g.ProductIDs, keepProducts)

	kept := make(map[string]*core.User, len(g.UserIDs))
	for _, id := range g.UserIDs {
		kept[id] = g.Users[id]
	}
	g.Users = kept

	keptP := make(map[string]*core.Product, len(g.ProductIDs))
	for _, id := range g.ProductIDs {
		keptP[id] = g.Products[id]
	}
	g.Products = keptP
}

func (b *Builder) sampleIDs(ids []string, keep int) []string {
	if keep >= len(ids) {
		return ids
	}
	if keep <= 0 {
		return nil
	}
	if b.Rand == nil {
		return ids[:keep]
	}
	perm := b.Rand.Perm(len(ids))
	out := make([]string, 0, keep)
	for _, idx := range perm[:keep] {
		out = append(out, ids[idx])
	}
	sort.Strings(out)
	return out
}

// buildEdges 只对采样后仍在图内的节点生成边。
func (b *Builder) buildEdges(g *Graph) {
	for _, uid := range g.UserIDs {
		u := g.Users[uid]
		for _, e := range u.History {
			if _, ok := g.Products[e.ProductID]; !ok {
				continue
			}
			g.Edges = append(g.Edges, Edge{From: uid, To: e.ProductID, Weight: e.Utility()})
		}
	}
	for _, pid := range g.ProductIDs {
		p := g.Products[pid]
		for _, other := range p.Compatible {
			if _, ok := g.Products[other]; !ok {
				continue
			}
			// 对称关系双向各存一条；对侧商品遍历到时会补上反向边，
			// 这里只存 pid < other 的方向避免重复
			if pid < other {
				g.Edges = append(g.Edges, Edge{From: pid, To: other, Weight: 1})
				g.Edges = append(g.Edges, Edge{From: other, To: pid, Weight: 1})
			}
		}
	}
}

// BuildMatrix 从候选图构建 users × products 效用矩阵。
// 值 = 交互权重 × 归一化评分，同一 (user, product) 多次交互按最大值保留。
func BuildMatrix(g *Graph) *Matrix {
	m := NewMatrix(g.UserIDs, g.ProductIDs)
	if g.Empty() {
		return m
	}
	for _, uid := range g.UserIDs {
		u := g.Users[uid]
		for _, e := range u.History {
			if _, ok := g.Products[e.ProductID]; !ok {
				continue
			}
			if v := e.Utility(); v > m.Get(uid, e.ProductID) {
				m.Set(uid, e.ProductID, v)
			}
		}
	}
	return m
}
