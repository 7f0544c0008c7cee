package rerank

import (
	"context"

	"github.com/rushteam/modakit/core"
	"github.com/rushteam/modakit/pipeline"
)

// Diversity 是类目多样性重排节点：每个类目最多保留 MaxPerCategory
// 个商品（保留排序靠前的）。搭配合成前用它拿到覆盖多个类目的
// 候选池，避免榜首被单一类目刷满。
type Diversity struct {
	// MaxPerCategory 每类目保留上限，<= 0 时默认 3
	MaxPerCategory int
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	limit := n.MaxPerCategory
	if limit <= 0 {
		limit = 3
	}

	counts := make(map[string]int, 8)
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		cate := ""
		if p := it.Product(); p != nil {
			cate = p.Category
		}
		if cate == "" {
			out = append(out, it)
			continue
		}
		if counts[cate] >= limit {
			continue
		}
		counts[cate]++
		out = append(out, it)
	}
	return out, nil
}
