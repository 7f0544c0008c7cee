package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/modakit/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("product", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
	return env, err
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = initCELEnv()
	})
	return celEnv, err
}

// Eval 是规则 DSL 解释器，使用 CEL (Common Expression Language) 实现。
// 运营侧的临时排除规则（filter.RuleFilter）通过它对候选商品求值。
//
// 表达式语法（CEL 标准语法）：
//   - 商品字段：product.category == "Shoes" / product.price > 200.0
//   - 分数：item.score > 0.7
//   - 标签：label.scorer == "hybrid"
//   - 上下文：rctx.scene == "detail"
//   - 组合：product.sale && product.price < 50.0
//
// 注意：has(label.key) 可以用 label.key != null 替代
type Eval struct {
	item *core.Item
	rctx *core.RecommendContext
	env  *cel.Env
}

// NewEval 创建一个新的 DSL 解释器。
func NewEval(item *core.Item, rctx *core.RecommendContext) *Eval {
	env, _ := getCELEnv()
	return &Eval{
		item: item,
		rctx: rctx,
		env:  env,
	}
}

// Evaluate 解析并执行 DSL 表达式，返回布尔结果。
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	if e.env == nil {
		return false, fmt.Errorf("cel env not initialized")
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("compile error: %v", issues.Err())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("program error: %v", err)
	}

	out, _, err := prg.Eval(e.buildInput())
	if err != nil {
		// 不存在的 key 会报错；表达式应使用 label.key != null 检查存在性
		return false, fmt.Errorf("eval error: %v", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func (e *Eval) buildInput() map[string]any {
	labels := make(map[string]any)
	labelAccessor := make(map[string]any)
	if e.item != nil {
		for k, v := range e.item.Labels {
			labels[k] = map[string]any{"value": v.Value, "source": v.Source}
			labelAccessor[k] = v.Value
		}
	}

	item := map[string]any{}
	product := map[string]any{}
	if e.item != nil {
		item = map[string]any{
			"id":       e.item.ID,
			"score":    e.item.Score,
			"features": e.item.Features,
			"labels":   labels,
		}
		if p := e.item.Product(); p != nil {
			product = map[string]any{
				"id":       p.ID,
				"name":     p.Name,
				"category": p.Category,
				"brand":    p.Brand,
				"price":    p.Price,
				"sale":     p.Sale,
				"rating":   p.Rating,
				"tags":     p.OutfitTags,
				"colors":   p.Colors,
			}
		}
	}

	rctx := map[string]any{}
	if e.rctx != nil {
		rctx = map[string]any{
			"user_id": e.rctx.UserID,
			"scene":   e.rctx.Scene,
			"seed":    e.rctx.SeedProductID,
			"gender":  string(e.rctx.EffectiveGender()),
			"params":  e.rctx.Params,
		}
	}

	return map[string]any{
		"item":    item,
		"label":   labelAccessor,
		"product": product,
		"rctx":    rctx,
	}
}
