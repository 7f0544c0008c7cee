package core

import "context"

// EntityStore 是用户/商品实体的只读访问接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 实体的写入（注册、下单、类目维护）属于外部协作方，本引擎只消费
//   - 分页读取是硬约束：Builder 必须按固定批量拉取以限制峰值内存
//
// 实现：
//   - store.MemoryEntityStore（测试/开发/原型）
//   - 业务侧可基于 MySQL / ES 等自行实现
type EntityStore interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// GetUser 按 id 读取用户；不存在时返回 NOT_FOUND
	GetUser(ctx context.Context, id string) (*User, error)

	// GetProduct 按 id 读取商品；不存在时返回 NOT_FOUND
	GetProduct(ctx context.Context, id string) (*Product, error)

	// ListUsers 分页读取用户（offset/limit），返回空切片表示读完
	ListUsers(ctx context.Context, offset, limit int) ([]*User, error)

	// ListProducts 分页读取商品（offset/limit），返回空切片表示读完
	ListProducts(ctx context.Context, offset, limit int) ([]*Product, error)

	// TopRatedProducts 按评分降序返回至多 limit 个商品（冷启动兜底查询）
	TopRatedProducts(ctx context.Context, limit int) ([]*Product, error)
}
