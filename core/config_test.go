package core

import "testing"

func TestEngineConfig_NormalizeDefaults(t *testing.T) {
	var cfg EngineConfig
	cfg.Normalize()

	if cfg.MaxNodes <= 0 || cfg.BatchSize <= 0 || cfg.EmbeddingDim <= 0 {
		t.Errorf("defaults not filled: %+v", cfg)
	}
	if cfg.CFWeight+cfg.CBWeight != 1.0 {
		t.Errorf("default weights = %v + %v, want sum 1", cfg.CFWeight, cfg.CBWeight)
	}
	if cfg.StalenessTimeout <= 0 {
		t.Error("staleness default not filled")
	}
	// 零种子按时间播种，避免每个进程都用同一随机序列
	if cfg.Seed == 0 {
		t.Error("zero seed should be replaced with a time-based one")
	}
	if cfg.UserSimMetric != SimMetricCosine {
		t.Errorf("UserSimMetric default = %q, want cosine", cfg.UserSimMetric)
	}
}

func TestEngineConfig_NormalizeKeepsSeed(t *testing.T) {
	cfg := EngineConfig{Seed: 42}
	cfg.Normalize()
	if cfg.Seed != 42 {
		t.Errorf("explicit seed overwritten: %d", cfg.Seed)
	}
}

func TestEngineConfig_ValidateUserSimMetric(t *testing.T) {
	for _, metric := range []string{"", SimMetricCosine, SimMetricPearson} {
		cfg := EngineConfig{CFWeight: 0.6, CBWeight: 0.4, UserSimMetric: metric}
		if err := cfg.Validate(); err != nil {
			t.Errorf("metric %q rejected: %v", metric, err)
		}
	}
	cfg := EngineConfig{CFWeight: 0.6, CBWeight: 0.4, UserSimMetric: "euclidean"}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown metric should be rejected")
	}
}

func TestEngineConfig_NormalizeKeepsExplicit(t *testing.T) {
	cfg := EngineConfig{MaxNodes: 5, CFWeight: 0.7, CBWeight: 0.3}
	cfg.Normalize()
	if cfg.MaxNodes != 5 {
		t.Errorf("explicit MaxNodes overwritten: %d", cfg.MaxNodes)
	}
	if cfg.CFWeight != 0.7 || cfg.CBWeight != 0.3 {
		t.Errorf("explicit weights overwritten: %v/%v", cfg.CFWeight, cfg.CBWeight)
	}
}

func TestEngineConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cf, cb  float64
		wantErr bool
	}{
		{"default", 0.6, 0.4, false},
		{"all cf", 1, 0, false},
		{"sum below one", 0.5, 0.3, true},
		{"sum above one", 0.8, 0.4, true},
		{"negative weight", 1.5, -0.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := EngineConfig{CFWeight: tt.cf, CBWeight: tt.cb}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDomainErrorChecks(t *testing.T) {
	if !IsNotFound(ErrUserNotFound) {
		t.Error("ErrUserNotFound should match IsNotFound")
	}
	if !IsModelUnavailable(ErrModelUnavailable) {
		t.Error("ErrModelUnavailable should match IsModelUnavailable")
	}
	if !IsNoHistory(ErrNoHistory) {
		t.Error("ErrNoHistory should match IsNoHistory")
	}
	if IsNotFound(nil) {
		t.Error("nil error should not match")
	}
	if !IsStoreNotFound(ErrStoreNotFound) {
		t.Error("ErrStoreNotFound should match IsStoreNotFound")
	}
	// store 命名空间的 NOT_FOUND 不应与实体的混淆
	if IsStoreNotFound(ErrUserNotFound) {
		t.Error("entity NOT_FOUND should not match store NOT_FOUND")
	}
}
