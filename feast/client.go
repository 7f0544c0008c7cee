// Package feast 对接 Feast Feature Store，读取离线管线预计算的
// 商品/用户统计特征（热度、退货率、客单价等），供推荐流水线在
// 打分之后做特征补全。
//
// 特征本身由离线任务产出并物化到 Feast 在线存储，本包只消费。
// 参考：https://github.com/feast-dev/feast
package feast

import (
	"context"
	"time"
)

// 离线管线约定的特征名。
const (
	FeatureProductPopularity = "product_stats:popularity"  // 近 7 日热度分 [0,1]
	FeatureProductReturnRate = "product_stats:return_rate" // 退货率 [0,1]
	FeatureUserAvgOrderValue = "user_stats:avg_order_value"
)

// Client 是特征存储客户端接口。
type Client interface {
	// GetOnlineFeatures 获取在线特征（实时打分用）。
	// features 例如 ["product_stats:popularity"]；
	// entityRows 例如 [{"product_id": "p1"}, {"product_id": "p2"}]。
	GetOnlineFeatures(ctx context.Context, req *GetOnlineFeaturesRequest) (*GetOnlineFeaturesResponse, error)

	// Close 关闭客户端连接
	Close() error
}

// GetOnlineFeaturesRequest 获取在线特征请求。
type GetOnlineFeaturesRequest struct {
	// Features 特征名称列表
	Features []string

	// EntityRows 实体行
	EntityRows []map[string]any

	// Project 项目名称（可选，缺省用客户端默认）
	Project string
}

// GetOnlineFeaturesResponse 获取在线特征响应。
type GetOnlineFeaturesResponse struct {
	// FeatureVectors 特征向量列表，与 EntityRows 一一对应
	FeatureVectors []FeatureVector
}

// FeatureVector 是一个实体的特征值集合。
type FeatureVector struct {
	// Values key 为特征名称
	Values map[string]any

	// EntityRow 对应的实体行
	EntityRow map[string]any
}

// ClientConfig 是客户端配置。
type ClientConfig struct {
	Endpoint string
	Project  string
	Timeout  time.Duration
	Auth     *AuthConfig
}

// AuthConfig 是认证配置。
type AuthConfig struct {
	// Type 认证方式，目前支持 "static"（静态 Token）
	Type  string
	Token string
}

// ClientOption 是客户端配置选项。
type ClientOption func(*ClientConfig)

// WithTimeout 设置请求超时。
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithAuth 设置认证信息。
func WithAuth(auth *AuthConfig) ClientOption {
	return func(c *ClientConfig) {
		c.Auth = auth
	}
}
