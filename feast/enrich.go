package feast

import (
	"context"
	"strconv"

	"github.com/rushteam/modakit/core"
	"github.com/rushteam/modakit/pipeline"
	"github.com/rushteam/modakit/pkg/utils"
)

// EnrichNode 是特征补全节点：为候选商品批量拉取离线统计特征
// 并写入 Item.Features，热度分（若存在）乘到分数上。
//
// 特征存储不可用时整体跳过，不影响主链路。
type EnrichNode struct {
	// Client 特征存储客户端
	Client Client

	// Features 要拉取的特征名，空时默认商品热度与退货率
	Features []string

	// EntityKey 实体键名，默认 "product_id"
	EntityKey string

	// Cache 是可选的特征缓存（Hash，每个商品一个 key、字段是
	// 特征名）；命中全部请求特征的商品跳过远端拉取
	Cache core.KeyValueStore

	Logger core.Logger
}

const featureCachePrefix = "features:product:"

// fromCache 尝试从缓存取出 it 的全部请求特征；任一特征缺失则
// 判定未命中，整体走远端。
func (n *EnrichNode) fromCache(ctx context.Context, it *core.Item, features []string) bool {
	if n.Cache == nil {
		return false
	}
	fields, err := n.Cache.HGetAll(ctx, featureCachePrefix+it.ID)
	if err != nil || len(fields) == 0 {
		return false
	}
	vals := make(map[string]float64, len(features))
	for _, name := range features {
		raw, ok := fields[name]
		if !ok {
			return false
		}
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return false
		}
		vals[name] = f
	}
	for name, f := range vals {
		n.applyFeature(it, name, f)
	}
	return true
}

func (n *EnrichNode) toCache(ctx context.Context, itemID, name string, val float64) {
	if n.Cache == nil {
		return
	}
	raw := strconv.FormatFloat(val, 'g', -1, 64)
	if err := n.Cache.HSet(ctx, featureCachePrefix+itemID, name, []byte(raw)); err != nil && n.Logger != nil {
		n.Logger.Printf("feast: cache write skipped: %v", err)
	}
}

func (n *EnrichNode) applyFeature(it *core.Item, name string, f float64) {
	if it.Features == nil {
		it.Features = make(map[string]float64)
	}
	it.Features[name] = f
	if name == FeatureProductPopularity {
		// 热度分 [0,1] 做温和加权
		it.Score *= 1 + 0.2*f
		it.PutLabel("feast.popularity", utils.Label{Value: "boost", Source: n.Name()})
	}
}

func (n *EnrichNode) Name() string {
	return "feast.enrich"
}

func (n *EnrichNode) Kind() pipeline.Kind {
	return pipeline.KindPostProcess
}

func (n *EnrichNode) Process(
	ctx context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.Client == nil || len(items) == 0 {
		return items, nil
	}

	features := n.Features
	if len(features) == 0 {
		features = []string{FeatureProductPopularity, FeatureProductReturnRate}
	}
	entityKey := n.EntityKey
	if entityKey == "" {
		entityKey = "product_id"
	}

	// 缓存命中的商品不出现在远端请求里
	missed := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if !n.fromCache(ctx, it, features) {
			missed = append(missed, it)
		}
	}
	if len(missed) == 0 {
		return items, nil
	}

	rows := make([]map[string]any, 0, len(missed))
	for _, it := range missed {
		rows = append(rows, map[string]any{entityKey: it.ID})
	}

	resp, err := n.Client.GetOnlineFeatures(ctx, &GetOnlineFeaturesRequest{
		Features:   features,
		EntityRows: rows,
	})
	if err != nil {
		if n.Logger != nil {
			n.Logger.Printf("feast: enrich skipped: %v", err)
		}
		return items, nil
	}
	if len(resp.FeatureVectors) != len(missed) {
		return items, nil
	}

	for i, it := range missed {
		for name, val := range resp.FeatureVectors[i].Values {
			f, ok := val.(float64)
			if !ok {
				continue
			}
			n.applyFeature(it, name, f)
			n.toCache(ctx, it.ID, name, f)
		}
	}
	return items, nil
}
