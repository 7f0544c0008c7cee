package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/modakit/core"
)

// LoadEngineConfig 从 YAML 文件加载引擎配置，缺省字段回填默认值
// 并校验（CF/CB 权重必须和为 1）。
func LoadEngineConfig(path string) (core.EngineConfig, error) {
	cfg := core.DefaultEngineConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
