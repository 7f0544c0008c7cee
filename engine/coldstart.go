package engine

import (
	"context"

	"github.com/rushteam/modakit/core"
	"github.com/rushteam/modakit/filter"
)

// RatingSource 提供按评分降序的商品 id 榜单。store.RatingRank
// （ZSET 实现）满足此接口。
type RatingSource interface {
	Top(ctx context.Context, limit int) ([]string, error)
}

// ColdStart 是冷启动兜底：用户无历史、不在训练结构中、或持久化
// 状态不可用时，返回按评分降序的热门商品。
//
// 纯排序查询，无随机成分：同一用户同一 k 连续两次调用结果一致。
type ColdStart struct {
	Entities core.EntityStore

	// Ranks 是可选的 Store 侧评分榜单；未设置时退回 EntityStore
	// 的全量排序查询
	Ranks RatingSource
}

// topRated 读取榜单前 limit 个商品。榜单里已下架的 id 跳过。
func (c *ColdStart) topRated(ctx context.Context, limit int) ([]*core.Product, error) {
	if c.Ranks == nil {
		return c.Entities.TopRatedProducts(ctx, limit)
	}
	ids, err := c.Ranks.Top(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*core.Product, 0, len(ids))
	for _, id := range ids {
		p, err := c.Entities.GetProduct(ctx, id)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Recommend 返回至多 k 个商品：
//
//	按评分降序取热门 → 性别类目白名单（性别已知时）
//	→ 相反性别关键词排除 → 成年用户排除童装 → 截断到 k
//
// 过滤有损耗，按指数扩大的窗口反复取榜单，直到凑够 k 个幸存者
// 或者榜单见底：高分段全部落在白名单外时仍能从后段补齐。
// 对合法用户永不因个性化条件失败，最坏退化为纯热门榜。
func (c *ColdStart) Recommend(ctx context.Context, user *core.User, override core.Gender, k int) ([]*core.Product, error) {
	if k <= 0 {
		k = 10
	}

	gender := override
	if gender == core.GenderUnknown && user != nil {
		gender = user.Gender
	}
	allowed := core.GenderCategories(gender)
	adult := user != nil && user.IsAdult()

	limit := k * 4
	for {
		top, err := c.topRated(ctx, limit)
		if err != nil {
			return nil, err
		}

		out := make([]*core.Product, 0, k)
		for _, p := range top {
			if allowed != nil {
				if _, ok := allowed[p.Category]; !ok {
					continue
				}
			}
			text := p.Name + " " + p.Description
			if filter.HasOppositeGenderMarker(text, gender) {
				continue
			}
			if adult && filter.HasKidsMarker(text) {
				continue
			}
			out = append(out, p)
			if len(out) == k {
				break
			}
		}
		if len(out) >= k || len(top) < limit {
			return out, nil
		}
		limit *= 4
	}
}
