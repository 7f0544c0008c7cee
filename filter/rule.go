package filter

import (
	"context"

	"github.com/rushteam/modakit/core"
	"github.com/rushteam/modakit/pkg/dsl"
)

// RuleFilter 是基于 CEL 表达式的规则过滤器。
// 表达式返回 true 表示该商品应被过滤，例如：
//
//	product.sale == false && product.price > 500.0
//	product.category == "Accessories" && rctx.scene == "outfit"
type RuleFilter struct {
	// Expr 是 CEL 过滤表达式
	Expr string
}

// NewRuleFilter 创建一个规则过滤器。
func NewRuleFilter(expr string) *RuleFilter {
	return &RuleFilter{Expr: expr}
}

func (f *RuleFilter) Name() string {
	return "filter.rule"
}

func (f *RuleFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if f.Expr == "" || item == nil {
		return false, nil
	}

	ok, err := dsl.NewEval(item, rctx).Evaluate(f.Expr)
	if err != nil {
		// 表达式错误时保留商品，不让规则配置问题影响召回
		return false, nil
	}
	return ok, nil
}
