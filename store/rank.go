package store

import (
	"context"

	"github.com/rushteam/modakit/core"
)

// DefaultRatingRankKey 是商品评分榜单的默认 ZSET key。
const DefaultRatingRankKey = "rank:product:rating"

// RatingRank 用有序集合维护商品评分榜单，供冷启动读 TopN：
// member 是商品 id，score 是评分。跨进程共享一份榜单，避免每次
// 兜底都全量扫描商品表。
type RatingRank struct {
	Store core.KeyValueStore

	// Key 默认 DefaultRatingRankKey
	Key string
}

// NewRatingRank 创建评分榜单。
func NewRatingRank(s core.KeyValueStore) *RatingRank {
	return &RatingRank{Store: s, Key: DefaultRatingRankKey}
}

func (r *RatingRank) key() string {
	if r.Key != "" {
		return r.Key
	}
	return DefaultRatingRankKey
}

// Put 写入/更新单个商品的评分。
func (r *RatingRank) Put(ctx context.Context, productID string, rating float64) error {
	return r.Store.ZAdd(ctx, r.key(), rating, productID)
}

// Rating 读取商品当前在榜评分；不在榜返回 store NOT_FOUND。
func (r *RatingRank) Rating(ctx context.Context, productID string) (float64, error) {
	return r.Store.ZScore(ctx, r.key(), productID)
}

// Top 返回评分降序前 limit 个商品 id。
func (r *RatingRank) Top(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	return r.Store.ZRange(ctx, r.key(), 0, int64(limit-1))
}

// Rebuild 从实体存储分页重建榜单。评分未变的商品跳过写入，
// 重建可以按周期幂等执行。
func (r *RatingRank) Rebuild(ctx context.Context, entities core.EntityStore, batch int) error {
	if batch <= 0 {
		batch = 100
	}
	for offset := 0; ; offset += batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := entities.ListProducts(ctx, offset, batch)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		for _, p := range page {
			if old, err := r.Store.ZScore(ctx, r.key(), p.ID); err == nil && old == p.Rating {
				continue
			}
			if err := r.Store.ZAdd(ctx, r.key(), p.Rating, p.ID); err != nil {
				return err
			}
		}
		if len(page) < batch {
			return nil
		}
	}
}
