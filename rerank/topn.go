package rerank

import (
	"context"

	"github.com/rushteam/modakit/core"
	"github.com/rushteam/modakit/pipeline"
)

// TopNNode 是 Top-N 截断节点，在排序后截取前 N 个商品。
// 通常放在个性化重排之后，限制返回结果数量。
type TopNNode struct {
	// N 要保留的商品数量；N <= 0 时不截断
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.N <= 0 || len(items) <= n.N {
		return items, nil
	}
	return items[:n.N], nil
}
