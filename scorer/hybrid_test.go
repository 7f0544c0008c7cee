package scorer

import (
	"context"
	"math"
	"testing"

	"github.com/rushteam/modakit/core"
)

func TestNewHybrid_RejectsBadWeights(t *testing.T) {
	cfg := testConfig()
	cfg.CFWeight = 0.8
	cfg.CBWeight = 0.4
	if _, err := NewHybrid(fashionEntities(), quietManager(), cfg); err == nil {
		t.Error("expected error for weights not summing to 1")
	}
}

func TestBlendItemSim(t *testing.T) {
	tests := []struct {
		name   string
		a, b   *core.Product
		va, vb map[string]float64
		want   float64
	}{
		{
			name: "empty vectors floor only",
			a:    &core.Product{Category: "X"},
			b:    &core.Product{Category: "Y"},
			want: 0.05,
		},
		{
			name: "category and brand bonuses",
			a:    &core.Product{Category: core.CategoryTops, Brand: "Zora"},
			b:    &core.Product{Category: core.CategoryTops, Brand: "Zora"},
			want: 0.05 + 0.3 + 0.2,
		},
		{
			name: "tag jaccard capped",
			a:    &core.Product{Category: "X", OutfitTags: []string{"casual", "summer"}},
			b:    &core.Product{Category: "Y", OutfitTags: []string{"casual", "summer"}},
			want: 0.05 + 0.3, // jaccard 1.0 封顶到 0.3
		},
		{
			name: "identical vectors clamp to one",
			a:    &core.Product{Category: core.CategoryTops, Brand: "Zora", OutfitTags: []string{"casual"}},
			b:    &core.Product{Category: core.CategoryTops, Brand: "Zora", OutfitTags: []string{"casual"}},
			va:   map[string]float64{"dress": 1},
			vb:   map[string]float64{"dress": 1},
			want: 1, // 1 + 0.3 + 0.2 + 0.3 钳制
		},
		{
			name: "low cosine lifted to floor",
			a:    &core.Product{Category: "X"},
			b:    &core.Product{Category: "Y"},
			va:   map[string]float64{"red": 1},
			vb:   map[string]float64{"blue": 1},
			want: 0.05,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := blendItemSim(tt.a, tt.b, tt.va, tt.vb)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("blendItemSim = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHybrid_TrainAndScore(t *testing.T) {
	ctx := context.Background()
	h, err := NewHybrid(fashionEntities(), quietManager(), testConfig())
	if err != nil {
		t.Fatalf("NewHybrid: %v", err)
	}
	h.Logger = core.NopLogger{}

	if err := h.Train(ctx); err != nil {
		t.Fatalf("Train: %v", err)
	}
	if !h.IsAvailable(ctx) {
		t.Fatal("trained model unavailable")
	}

	user, _ := fashionEntities().GetUser(ctx, "u1")
	rctx := &core.RecommendContext{UserID: "u1", User: user}
	scores, err := h.ScoreCandidates(ctx, rctx, []string{"p1", "p2", "p3", "p4"})
	if err != nil {
		t.Fatalf("ScoreCandidates: %v", err)
	}
	for id, s := range scores {
		if s < 0 || s > 1 {
			t.Errorf("score %s = %v out of [0,1]", id, s)
		}
	}
	// u1 买过同品牌同类目的 p1：p2 的内容分应高于跨类目的 p3
	if scores["p2"] <= scores["p3"] {
		t.Errorf("p2 (%v) should outscore p3 (%v) for dress buyer", scores["p2"], scores["p3"])
	}
}

func TestHybrid_ScoreWithoutTraining(t *testing.T) {
	h, err := NewHybrid(fashionEntities(), quietManager(), testConfig())
	if err != nil {
		t.Fatalf("NewHybrid: %v", err)
	}
	h.Logger = core.NopLogger{}
	if _, err := h.ScoreCandidates(context.Background(), &core.RecommendContext{UserID: "u1"}, []string{"p1"}); !core.IsModelUnavailable(err) {
		t.Errorf("err = %v, want MODEL_UNAVAILABLE", err)
	}
}

func TestHybrid_LoadFromPersistence(t *testing.T) {
	ctx := context.Background()
	pm := quietManager()
	entities := fashionEntities()

	trainer, err := NewHybrid(entities, pm, testConfig())
	if err != nil {
		t.Fatalf("NewHybrid: %v", err)
	}
	trainer.Logger = core.NopLogger{}
	if err := trainer.Train(ctx); err != nil {
		t.Fatalf("Train: %v", err)
	}
	wantSim := trainer.ItemSimilarity("p1", "p2")
	if wantSim <= 0 {
		t.Fatalf("expected positive item sim for twin dresses, got %v", wantSim)
	}

	loaded, err := NewHybrid(entities, pm, testConfig())
	if err != nil {
		t.Fatalf("NewHybrid: %v", err)
	}
	loaded.Logger = core.NopLogger{}
	if err := loaded.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.IsAvailable(ctx) {
		t.Fatal("loaded model unavailable")
	}
	if got := loaded.ItemSimilarity("p1", "p2"); math.Abs(got-wantSim) > 1e-9 {
		t.Errorf("loaded item sim = %v, want %v", got, wantSim)
	}

	user, _ := entities.GetUser(ctx, "u1")
	rctx := &core.RecommendContext{UserID: "u1", User: user}
	if _, err := loaded.ScoreCandidates(ctx, rctx, []string{"p1", "p2"}); err != nil {
		t.Errorf("loaded model should score: %v", err)
	}
}

func TestHybrid_IncrementalCoversNewEntities(t *testing.T) {
	ctx := context.Background()
	pm := quietManager()
	entities := fashionEntities()

	h, err := NewHybrid(entities, pm, testConfig())
	if err != nil {
		t.Fatalf("NewHybrid: %v", err)
	}
	h.Logger = core.NopLogger{}
	if err := h.Train(ctx); err != nil {
		t.Fatalf("Train: %v", err)
	}

	entities.PutProduct(&core.Product{
		ID: "p5", Name: "Silk Scarf", Category: core.CategoryAccessories, Brand: "Zora", Price: 25, Rating: 4.6,
	})
	entities.PutUser(&core.User{
		ID: "u3", Gender: core.GenderFemale, Age: 21,
		History: []core.InteractionEvent{{ProductID: "p5", Type: core.InteractionPurchase, Rating: 5}},
	})

	if err := h.TrainIncremental(ctx); err != nil {
		t.Fatalf("TrainIncremental: %v", err)
	}

	user, _ := entities.GetUser(ctx, "u3")
	rctx := &core.RecommendContext{UserID: "u3", User: user}
	scores, err := h.ScoreCandidates(ctx, rctx, []string{"p1", "p5"})
	if err != nil {
		t.Fatalf("ScoreCandidates: %v", err)
	}
	if _, ok := scores["p5"]; !ok {
		t.Error("new product p5 missing from scores")
	}
}

func TestHybrid_IncrementalPreservesWordVectors(t *testing.T) {
	ctx := context.Background()
	pm := quietManager()
	entities := fashionEntities()

	h, err := NewHybrid(entities, pm, testConfig())
	if err != nil {
		t.Fatalf("NewHybrid: %v", err)
	}
	h.Logger = core.NopLogger{}
	if err := h.Train(ctx); err != nil {
		t.Fatalf("Train: %v", err)
	}
	_, before, err := pm.LoadDocs(ctx, hybridModelDocs)
	if err != nil {
		t.Fatalf("LoadDocs: %v", err)
	}

	// 改写 p1 的文案后增量训练：既有商品沿用上次全量的词向量，
	// 只有新商品被投影
	entities.PutProduct(&core.Product{
		ID: "p1", Name: "Crimson Gala Dress", Category: core.CategoryDresses, Brand: "Zora", Price: 80, Rating: 4.8,
	})
	entities.PutProduct(&core.Product{
		ID: "p5", Name: "Silk Scarf", Category: core.CategoryAccessories, Brand: "Zora", Price: 25, Rating: 4.6,
	})
	if err := h.TrainIncremental(ctx); err != nil {
		t.Fatalf("TrainIncremental: %v", err)
	}
	_, after, err := pm.LoadDocs(ctx, hybridModelDocs)
	if err != nil {
		t.Fatalf("LoadDocs after incremental: %v", err)
	}

	if len(after["p1"]) != len(before["p1"]) {
		t.Fatalf("p1 vector size changed: %d -> %d", len(before["p1"]), len(after["p1"]))
	}
	for term, w := range before["p1"] {
		if math.Abs(after["p1"][term]-w) > 1e-9 {
			t.Errorf("p1[%s] = %v, want %v", term, after["p1"][term], w)
		}
	}
	if _, ok := after["p5"]; !ok {
		t.Error("new product p5 missing from persisted vectors")
	}
}

func TestHybrid_PearsonUserSimilarity(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.UserSimMetric = core.SimMetricPearson

	h, err := NewHybrid(fashionEntities(), quietManager(), cfg)
	if err != nil {
		t.Fatalf("NewHybrid: %v", err)
	}
	h.Logger = core.NopLogger{}
	if err := h.Train(ctx); err != nil {
		t.Fatalf("Train: %v", err)
	}

	user, err := h.Entities.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	rctx := &core.RecommendContext{UserID: "u1", User: user}
	scores, err := h.ScoreCandidates(ctx, rctx, []string{"p3", "p4"})
	if err != nil {
		t.Fatalf("ScoreCandidates: %v", err)
	}
	for id, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			t.Errorf("score[%s] = %v, want finite", id, s)
		}
	}
}
