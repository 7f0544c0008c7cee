package core

import "context"

// Strategy 是三种打分策略（Embedding / Hybrid / Content）的统一契约。
//
// 设计要点：
//   - 个性化层与穿搭层只消费此接口，不感知具体实现
//   - Train 做全量训练并在结束时写持久化；TrainIncremental 以合并方式
//     更新（保留旧节点表示，只随机初始化新节点），成本约与增量数据成正比
//   - ScoreCandidates 只在有界候选池上计算，调用方负责候选池截断
type Strategy interface {
	// Name 返回策略名（embedding / hybrid / content），用于响应与观测
	Name() string

	// Train 全量训练：构建候选图/矩阵 → 更新模型状态 → 写持久化
	Train(ctx context.Context) error

	// TrainIncremental 增量训练：加载旧状态 → 合并当前节点集 → 只更新
	// 新增/变化部分 → 写持久化。旧状态缺失时退化为全量。
	TrainIncremental(ctx context.Context) error

	// ScoreCandidates 对候选商品打基础分。
	// 返回 map[productID]score；模型不可用时返回 MODEL_UNAVAILABLE，
	// 调用方应路由到冷启动兜底。
	ScoreCandidates(ctx context.Context, rctx *RecommendContext, candidateIDs []string) (map[string]float64, error)

	// IsAvailable 判断内存中是否已有可用模型状态（不触发训练/加载）
	IsAvailable(ctx context.Context) bool
}

// StrategyLoader 是策略的可选扩展：支持从持久化状态恢复内存模型。
// 引擎在 IsAvailable 为 false 时先尝试 Load，再决定是否训练。
type StrategyLoader interface {
	// Load 从持久化存储恢复模型状态；状态缺失/过期时返回 MODEL_UNAVAILABLE
	Load(ctx context.Context) error
}
