package filter

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rushteam/modakit/core"
)

// SeenFilter 过滤用户已经买过的商品，以及（可选）存储中记录的
// 近期已展示商品。
//
// 已购买来自请求上下文的交互历史；近期展示记录经 MarkSeen 写入
// Store，key 为 {KeyPrefix}:{UserID}。后端支持 Hash 时字段是商品
// id（逐候选 HGet 探测成员关系），否则值是 JSON 商品 id 数组。
type SeenFilter struct {
	// Store 用于读取近期展示记录（可选）
	Store core.Store

	// KeyPrefix 默认 "user:seen"
	KeyPrefix string
}

// NewSeenFilter 创建一个已购/已展示过滤器。
func NewSeenFilter(s core.Store, keyPrefix string) *SeenFilter {
	if keyPrefix == "" {
		keyPrefix = "user:seen"
	}
	return &SeenFilter{Store: s, KeyPrefix: keyPrefix}
}

func (f *SeenFilter) Name() string {
	return "filter.seen"
}

func (f *SeenFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}

	if rctx.User != nil {
		for _, ev := range rctx.User.History {
			if ev.Type == core.InteractionPurchase && ev.ProductID == item.ID {
				return true, nil
			}
		}
	}

	if f.Store == nil || rctx.UserID == "" {
		return false, nil
	}
	key := f.KeyPrefix + ":" + rctx.UserID

	if kv, ok := f.Store.(core.KeyValueStore); ok {
		if _, err := kv.HGet(ctx, key, item.ID); err == nil {
			return true, nil
		}
		// 无记录或存储不可用都不拦截
		return false, nil
	}

	data, err := f.Store.Get(ctx, key)
	if err != nil {
		return false, nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return false, nil
	}
	for _, id := range ids {
		if id == item.ID {
			return true, nil
		}
	}
	return false, nil
}

// MarkSeen 记录一批已展示商品。Hash 后端按字段写入（值为展示
// 时间戳），KV 后端退化为读改写 JSON 数组。
func MarkSeen(ctx context.Context, s core.Store, keyPrefix, userID string, productIDs ...string) error {
	if s == nil || userID == "" || len(productIDs) == 0 {
		return nil
	}
	if keyPrefix == "" {
		keyPrefix = "user:seen"
	}
	key := keyPrefix + ":" + userID

	if kv, ok := s.(core.KeyValueStore); ok {
		now := strconv.FormatInt(time.Now().Unix(), 10)
		for _, pid := range productIDs {
			if err := kv.HSet(ctx, key, pid, []byte(now)); err != nil {
				return err
			}
		}
		return nil
	}

	var ids []string
	if data, err := s.Get(ctx, key); err == nil {
		_ = json.Unmarshal(data, &ids)
	}
	existing := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		existing[id] = struct{}{}
	}
	for _, pid := range productIDs {
		if _, ok := existing[pid]; !ok {
			ids = append(ids, pid)
		}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, data)
}
