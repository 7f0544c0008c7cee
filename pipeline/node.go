package pipeline

import (
	"context"

	"github.com/rushteam/modakit/core"
)

// Kind 用于标记 Node 类型，方便观测/治理/编排（例如按阶段打点）。
type Kind string

const (
	KindScore       Kind = "score"       // 打分阶段：策略对候选池产出基础分
	KindFilter      Kind = "filter"      // 过滤阶段：剔除不符合约束的候选（性别关键词、规则等）
	KindPersonalize Kind = "personalize" // 个性化阶段：乘法调权 + 稳定排序
	KindReRank      Kind = "rerank"      // 重排阶段：多样性/TopN 截断
	KindPostProcess Kind = "postprocess" // 后处理阶段：补充元信息或最终结果修饰
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用"输入 items -> 输出 items"的形态，方便打分、过滤、调权、截断等操作。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}
