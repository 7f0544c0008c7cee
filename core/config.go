package core

import "time"

// EngineConfig 是引擎级配置：内存上限、批量大小、模型维度、
// 混合权重、持久化过期时间等。
//
// 约束：
//   - 上限/批量必须为正（零值由 Normalize 填默认）
//   - CFWeight + CBWeight 必须等于 1.0（Validate 拒绝其他取值）
type EngineConfig struct {
	// 候选图/矩阵构建上限
	MaxNodes    int `yaml:"max_nodes" json:"max_nodes"`       // 节点硬上限，超出则均匀采样
	MaxUsers    int `yaml:"max_users" json:"max_users"`       // 参与训练的用户上限
	MaxProducts int `yaml:"max_products" json:"max_products"` // 参与训练/候选池的商品上限
	BatchSize   int `yaml:"batch_size" json:"batch_size"`     // 分页批量（每批之间触发内存回收钩子）

	// Embedding 策略
	EmbeddingDim int     `yaml:"embedding_dim" json:"embedding_dim"` // 向量维度
	LearningRate float64 `yaml:"learning_rate" json:"learning_rate"` // 分数驱动 nudge 的步长
	Epochs       int     `yaml:"epochs" json:"epochs"`               // 更新轮数

	// Hybrid 策略
	CFWeight       float64 `yaml:"cf_weight" json:"cf_weight"`             // 协同分权重（默认 0.6）
	CBWeight       float64 `yaml:"cb_weight" json:"cb_weight"`             // 内容分权重（默认 0.4）
	TopKNeighbors  int     `yaml:"topk_neighbors" json:"topk_neighbors"`   // 稀疏相似度每实体保留的近邻数
	DenseThreshold int     `yaml:"dense_threshold" json:"dense_threshold"` // 超过该规模改用稀疏 top-K
	UserSimMetric  string  `yaml:"user_sim_metric" json:"user_sim_metric"` // 用户相似度度量：cosine（默认）/ pearson

	// 持久化
	StalenessTimeout time.Duration `yaml:"staleness_timeout" json:"staleness_timeout"` // 模型过期时间（默认 30m）
	StrictOffline    bool          `yaml:"strict_offline" json:"strict_offline"`       // 严格离线：持久化缺失/过期时直接返回 MODEL_UNAVAILABLE

	// 随机源种子（0 表示按时间播种；测试注入固定值获得确定性）
	Seed int64 `yaml:"seed" json:"seed"`
}

// 用户相似度度量取值。
const (
	SimMetricCosine  = "cosine"
	SimMetricPearson = "pearson"
)

// DefaultEngineConfig 返回默认配置。
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxNodes:         2000,
		MaxUsers:         1000,
		MaxProducts:      1000,
		BatchSize:        100,
		EmbeddingDim:     32,
		LearningRate:     0.01,
		Epochs:           3,
		CFWeight:         0.6,
		CBWeight:         0.4,
		TopKNeighbors:    50,
		DenseThreshold:   1000,
		StalenessTimeout: 30 * time.Minute,
	}
}

// Normalize 为零值字段填充默认值（不覆盖显式配置）。
func (c *EngineConfig) Normalize() {
	def := DefaultEngineConfig()
	if c.MaxNodes <= 0 {
		c.MaxNodes = def.MaxNodes
	}
	if c.MaxUsers <= 0 {
		c.MaxUsers = def.MaxUsers
	}
	if c.MaxProducts <= 0 {
		c.MaxProducts = def.MaxProducts
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.EmbeddingDim <= 0 {
		c.EmbeddingDim = def.EmbeddingDim
	}
	if c.LearningRate <= 0 {
		c.LearningRate = def.LearningRate
	}
	if c.Epochs <= 0 {
		c.Epochs = def.Epochs
	}
	if c.CFWeight == 0 && c.CBWeight == 0 {
		c.CFWeight = def.CFWeight
		c.CBWeight = def.CBWeight
	}
	if c.TopKNeighbors <= 0 {
		c.TopKNeighbors = def.TopKNeighbors
	}
	if c.DenseThreshold <= 0 {
		c.DenseThreshold = def.DenseThreshold
	}
	if c.StalenessTimeout <= 0 {
		c.StalenessTimeout = def.StalenessTimeout
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	if c.UserSimMetric == "" {
		c.UserSimMetric = SimMetricCosine
	}
}

// Validate 校验配置合法性。
func (c *EngineConfig) Validate() error {
	const eps = 1e-9
	sum := c.CFWeight + c.CBWeight
	if sum < 1-eps || sum > 1+eps {
		return NewDomainError(ModuleEngine, ErrorCodeInvalidInput,
			"config: cf_weight + cb_weight must sum to 1.0")
	}
	if c.CFWeight < 0 || c.CBWeight < 0 {
		return NewDomainError(ModuleEngine, ErrorCodeInvalidInput,
			"config: hybrid weights must be non-negative")
	}
	switch c.UserSimMetric {
	case "", SimMetricCosine, SimMetricPearson:
	default:
		return NewDomainError(ModuleEngine, ErrorCodeInvalidInput,
			"config: user_sim_metric must be cosine or pearson")
	}
	return nil
}
