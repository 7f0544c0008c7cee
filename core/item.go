package core

import "github.com/rushteam/modakit/pkg/utils"

// Item 是推荐链路中的统一承载结构：候选商品、分数、元信息、标签。
// Labels 用于解释与策略驱动；Score 用于排序决策。
type Item struct {
	ID       string
	Score    float64
	Features map[string]float64
	Meta     map[string]any
	Labels   map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:       id,
		Score:    0,
		Features: make(map[string]float64),
		Meta:     make(map[string]any),
		Labels:   make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// Product 返回挂在 Meta 上的商品实体（由引擎的 enrich 步骤写入）。
// 未挂载时返回 nil，个性化/穿搭节点需自行兜底。
func (it *Item) Product() *Product {
	if it == nil || it.Meta == nil {
		return nil
	}
	if p, ok := it.Meta["product"].(*Product); ok {
		return p
	}
	return nil
}

// SetProduct 将商品实体挂到 Meta，供下游节点读取类目/品牌/价格等元信息。
func (it *Item) SetProduct(p *Product) {
	if it.Meta == nil {
		it.Meta = make(map[string]any)
	}
	it.Meta["product"] = p
}
