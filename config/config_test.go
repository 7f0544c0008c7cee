package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rushteam/modakit/config"
	_ "github.com/rushteam/modakit/config/builders"
	"github.com/rushteam/modakit/core"
	"github.com/rushteam/modakit/pipeline"
)

const pipelineYAML = `
pipeline:
  name: home_feed
  nodes:
    - type: filter
      config:
        filters:
          - type: gender_keyword
          - type: rule
            expr: "product.price > 10000.0"
    - type: rerank.personalize
    - type: rerank.diversity
      config:
        max_per_category: 2
    - type: rerank.topn
      config:
        n: 3
`

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

func TestLoadAndBuildPipeline(t *testing.T) {
	cfg, err := pipeline.LoadFromYAML(writeYAML(t, pipelineYAML))
	if err != nil {
		t.Fatalf("LoadFromYAML: %v", err)
	}
	if cfg.Pipeline.Name != "home_feed" {
		t.Errorf("name = %q", cfg.Pipeline.Name)
	}
	if len(cfg.Pipeline.Nodes) != 4 {
		t.Fatalf("nodes = %d, want 4", len(cfg.Pipeline.Nodes))
	}

	if err := config.ValidatePipelineConfig(cfg); err != nil {
		t.Fatalf("ValidatePipelineConfig: %v", err)
	}

	p, err := cfg.BuildPipeline(config.DefaultFactory())
	if err != nil {
		t.Fatalf("BuildPipeline: %v", err)
	}
	if len(p.Nodes) != 4 {
		t.Fatalf("built nodes = %d, want 4", len(p.Nodes))
	}

	// 配置驱动的链路端到端跑一遍：过滤 + 个性化 + 多样性 + TopN
	rctx := &core.RecommendContext{
		UserID: "u1",
		User:   &core.User{ID: "u1", Gender: core.GenderFemale, Age: 24},
	}
	items := make([]*core.Item, 0, 4)
	for _, p := range []*core.Product{
		{ID: "p1", Name: "Summer Dress", Category: "dresses", Price: 89},
		{ID: "p2", Name: "Silk Scarf", Category: "accessories", Price: 39},
		{ID: "p3", Name: "Diamond Ring", Category: "accessories", Price: 12000}, // 超出规则价格上限
		{ID: "p4", Name: "Men Leather Belt", Category: "accessories", Price: 49},
	} {
		it := core.NewItem(p.ID)
		it.Score = 0.5
		it.SetProduct(p)
		items = append(items, it)
	}

	out, err := p.Run(context.Background(), rctx, items)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) > 3 {
		t.Errorf("topn leaked %d items", len(out))
	}
	for _, it := range out {
		if it.ID == "p3" {
			t.Error("rule filter should drop p3 (price over limit)")
		}
		if it.ID == "p4" {
			t.Error("gender filter should drop p4 for female user")
		}
	}
}

func TestValidatePipelineConfig_UnknownType(t *testing.T) {
	cfg, err := pipeline.LoadFromYAML(writeYAML(t, `
pipeline:
  name: broken
  nodes:
    - type: rerank.magic
`))
	if err != nil {
		t.Fatalf("LoadFromYAML: %v", err)
	}
	if err := config.ValidatePipelineConfig(cfg); err == nil {
		t.Error("expected error for unregistered node type")
	}
}

func TestBuildPipeline_UnknownType(t *testing.T) {
	cfg := &pipeline.Config{}
	cfg.Pipeline.Nodes = []pipeline.NodeConfig{{Type: "nope"}}
	if _, err := cfg.BuildPipeline(config.DefaultFactory()); err == nil {
		t.Error("expected build error for unknown node type")
	}
}

func TestSupportedTypes(t *testing.T) {
	types := config.SupportedTypes()
	want := map[string]bool{
		"filter": false, "rerank.personalize": false,
		"rerank.topn": false, "rerank.diversity": false,
	}
	for _, typ := range types {
		if _, ok := want[typ]; ok {
			want[typ] = true
		}
	}
	for typ, seen := range want {
		if !seen {
			t.Errorf("builtin type %q not registered", typ)
		}
	}
}

func TestLoadFromYAML_MissingFile(t *testing.T) {
	if _, err := pipeline.LoadFromYAML("/nonexistent/pipeline.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
