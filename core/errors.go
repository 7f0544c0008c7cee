package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 使用场景：
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
//   - Entity 错误：NOT_FOUND（用户/商品不存在）
//   - Engine 错误：NO_HISTORY, MISSING_PRECONDITION, MODEL_UNAVAILABLE
//   - Persist 错误：CORRUPT_ENTRY（单条持久化数据解码失败）
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "MODEL_UNAVAILABLE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "entity", "engine"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(*DomainError)
	return ok
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误

	// 推荐链路错误代码
	ErrorCodeNoHistory           = "NO_HISTORY"           // 用户无交互历史（可由冷启动兜底）
	ErrorCodeMissingPrecondition = "MISSING_PRECONDITION" // 缺少前置条件（如穿搭缺少锚点商品）
	ErrorCodeModelUnavailable    = "MODEL_UNAVAILABLE"    // 模型不可用（可重试，或触发训练）
	ErrorCodeCorruptEntry        = "CORRUPT_ENTRY"        // 持久化条目损坏（记录并跳过）
)

// 模块名称常量
const (
	ModuleStore   = "store"   // 存储模块
	ModuleEntity  = "entity"  // 实体存储模块（用户/商品）
	ModuleScorer  = "scorer"  // 打分策略模块
	ModulePersist = "persist" // 模型持久化模块
	ModuleEngine  = "engine"  // 推荐引擎模块
	ModuleOutfit  = "outfit"  // 穿搭合成模块
)

// 通用错误检查函数

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	return hasCode(err, ErrorCodeNotFound)
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	return hasCode(err, ErrorCodeNotSupported)
}

// IsNoHistory 检查错误是否为 NO_HISTORY
func IsNoHistory(err error) bool {
	return hasCode(err, ErrorCodeNoHistory)
}

// IsMissingPrecondition 检查错误是否为 MISSING_PRECONDITION
func IsMissingPrecondition(err error) bool {
	return hasCode(err, ErrorCodeMissingPrecondition)
}

// IsModelUnavailable 检查错误是否为 MODEL_UNAVAILABLE（可重试）
func IsModelUnavailable(err error) bool {
	return hasCode(err, ErrorCodeModelUnavailable)
}

// IsCorruptEntry 检查错误是否为 CORRUPT_ENTRY
func IsCorruptEntry(err error) bool {
	return hasCode(err, ErrorCodeCorruptEntry)
}

func hasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// 常用领域错误

var (
	// ErrUserNotFound 表示用户不存在
	ErrUserNotFound = NewDomainError(ModuleEntity, ErrorCodeNotFound, "entity: user not found")

	// ErrProductNotFound 表示商品不存在
	ErrProductNotFound = NewDomainError(ModuleEntity, ErrorCodeNotFound, "entity: product not found")

	// ErrNoHistory 表示用户没有可用的交互历史
	ErrNoHistory = NewDomainError(ModuleEngine, ErrorCodeNoHistory, "engine: user has no interaction history")

	// ErrModelUnavailable 表示策略没有可用的模型状态（内存和持久化均为空/过期）
	ErrModelUnavailable = NewDomainError(ModuleScorer, ErrorCodeModelUnavailable, "scorer: model state unavailable")
)
