package core

import "github.com/rushteam/modakit/pkg/utils"

// RecommendContext 承载用户/场景/实时信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID string
	Scene  string // home / detail / outfit 等

	// User 是强类型用户实体（引擎在入口处从 EntityStore 加载）
	User *User

	// SeedProductID 是"看了又看"模式的锚点商品（可为空）
	SeedProductID string

	// GenderOverride 是请求级性别覆盖（穿搭接口允许调用方显式指定）
	GenderOverride Gender

	// Labels 是用户级标签，可驱动整个 Pipeline 行为
	Labels map[string]utils.Label

	// Params 请求级上下文参数（如 k、价格参考等）
	Params map[string]any
}

// EffectiveGender 返回本次请求生效的性别：优先请求覆盖，其次用户实体。
func (rctx *RecommendContext) EffectiveGender() Gender {
	if rctx == nil {
		return GenderUnknown
	}
	if rctx.GenderOverride != GenderUnknown {
		return rctx.GenderOverride
	}
	if rctx.User != nil {
		return rctx.User.Gender
	}
	return GenderUnknown
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
