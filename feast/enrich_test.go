package feast

import (
	"context"
	"math"
	"testing"

	"github.com/rushteam/modakit/core"
	"github.com/rushteam/modakit/store"
)

type countingClient struct {
	calls int
	rows  int
}

func (c *countingClient) GetOnlineFeatures(_ context.Context, req *GetOnlineFeaturesRequest) (*GetOnlineFeaturesResponse, error) {
	c.calls++
	c.rows += len(req.EntityRows)
	vecs := make([]FeatureVector, 0, len(req.EntityRows))
	for _, row := range req.EntityRows {
		vecs = append(vecs, FeatureVector{
			Values:    map[string]any{FeatureProductPopularity: 0.5},
			EntityRow: row,
		})
	}
	return &GetOnlineFeaturesResponse{FeatureVectors: vecs}, nil
}

func (c *countingClient) Close() error { return nil }

func TestEnrichNode_CacheServesRepeatLookups(t *testing.T) {
	ctx := context.Background()
	client := &countingClient{}
	n := &EnrichNode{
		Client:   client,
		Features: []string{FeatureProductPopularity},
		Cache:    store.NewMemoryStore(),
		Logger:   core.NopLogger{},
	}
	rctx := &core.RecommendContext{UserID: "u1"}

	candidates := func() []*core.Item {
		return []*core.Item{{ID: "p1", Score: 1}, {ID: "p2", Score: 1}}
	}

	first, err := n.Process(ctx, rctx, candidates())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if client.calls != 1 || client.rows != 2 {
		t.Fatalf("remote calls = %d (%d rows), want 1 call for 2 rows", client.calls, client.rows)
	}
	for _, it := range first {
		if math.Abs(it.Score-1.1) > 1e-9 {
			t.Errorf("%s score = %v, want 1.1", it.ID, it.Score)
		}
	}

	// 同样的候选再跑一遍：全部命中缓存，远端不再被调用，
	// 加权结果与远端拉取一致
	second, err := n.Process(ctx, rctx, candidates())
	if err != nil {
		t.Fatalf("second Process: %v", err)
	}
	if client.calls != 1 {
		t.Errorf("remote calls = %d after cached pass, want 1", client.calls)
	}
	for _, it := range second {
		if math.Abs(it.Score-1.1) > 1e-9 {
			t.Errorf("%s cached score = %v, want 1.1", it.ID, it.Score)
		}
		if it.Features[FeatureProductPopularity] != 0.5 {
			t.Errorf("%s feature = %v, want 0.5", it.ID, it.Features[FeatureProductPopularity])
		}
	}

	// 新商品走远端，已缓存的依旧跳过
	if _, err := n.Process(ctx, rctx, []*core.Item{{ID: "p1", Score: 1}, {ID: "p9", Score: 1}}); err != nil {
		t.Fatalf("mixed Process: %v", err)
	}
	if client.calls != 2 || client.rows != 3 {
		t.Errorf("remote calls = %d (%d rows), want 2 calls over 3 rows total", client.calls, client.rows)
	}
}
