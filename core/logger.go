package core

import "log"

// Logger 是引擎使用的最小日志接口（Printf 风格）。
// 训练跳过、持久化条目损坏、降级路径等关键事件通过它输出。
type Logger interface {
	Printf(format string, args ...any)
}

// NopLogger 丢弃所有日志（测试常用）。
type NopLogger struct{}

func (NopLogger) Printf(string, ...any) {}

// StdLogger 返回基于标准库 log 的默认实现。
func StdLogger() Logger {
	return log.Default()
}
