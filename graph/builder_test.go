package graph

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rushteam/modakit/core"
	"github.com/rushteam/modakit/store"
)

func viewEvent(productID string) core.InteractionEvent {
	return core.InteractionEvent{
		ProductID: productID,
		Type:      core.InteractionView,
		Timestamp: time.Now(),
	}
}

func testEntities(nUsers, nProducts int) *store.MemoryEntityStore {
	users := make([]*core.User, 0, nUsers)
	for i := 0; i < nUsers; i++ {
		users = append(users, &core.User{
			ID:      fmt.Sprintf("u%03d", i),
			History: []core.InteractionEvent{viewEvent(fmt.Sprintf("p%03d", i%nProducts))},
		})
	}
	products := make([]*core.Product, 0, nProducts)
	for i := 0; i < nProducts; i++ {
		products = append(products, &core.Product{
			ID:       fmt.Sprintf("p%03d", i),
			Name:     fmt.Sprintf("product %d", i),
			Category: core.CategoryTops,
		})
	}
	return store.NewMemoryEntityStore(users, products)
}

func TestBuilder_SkipsUsersWithoutHistory(t *testing.T) {
	entities := store.NewMemoryEntityStore(
		[]*core.User{
			{ID: "active", History: []core.InteractionEvent{viewEvent("p1")}},
			{ID: "idle"},
		},
		[]*core.Product{{ID: "p1", Category: core.CategoryTops}},
	)
	b := &Builder{Entities: entities, ReclaimHook: func() {}}

	g, err := b.BuildGraph(context.Background())
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if len(g.UserIDs) != 1 || g.UserIDs[0] != "active" {
		t.Errorf("UserIDs = %v, want [active]", g.UserIDs)
	}
	if len(g.Edges) != 1 || g.Edges[0].From != "active" || g.Edges[0].To != "p1" {
		t.Errorf("Edges = %v", g.Edges)
	}
}

func TestBuilder_Caps(t *testing.T) {
	b := &Builder{
		Entities:    testEntities(30, 30),
		MaxUsers:    10,
		MaxProducts: 15,
		BatchSize:   7,
		ReclaimHook: func() {},
	}
	g, err := b.BuildGraph(context.Background())
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if len(g.UserIDs) != 10 {
		t.Errorf("users = %d, want 10", len(g.UserIDs))
	}
	if len(g.ProductIDs) != 15 {
		t.Errorf("products = %d, want 15", len(g.ProductIDs))
	}
}

func TestBuilder_SampleDown(t *testing.T) {
	b := &Builder{
		Entities:    testEntities(20, 20),
		MaxNodes:    10,
		ReclaimHook: func() {},
	}
	// Rand 为 nil：采样退化为前缀截断，结果确定
	g, err := b.BuildGraph(context.Background())
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if g.NodeCount() > 10 {
		t.Errorf("NodeCount = %d, want <= 10", g.NodeCount())
	}
	if len(g.UserIDs) == 0 || len(g.ProductIDs) == 0 {
		t.Errorf("sampling dropped an entire side: users=%d products=%d",
			len(g.UserIDs), len(g.ProductIDs))
	}
	// 边只引用采样后仍在图内的节点
	for _, e := range g.Edges {
		if g.Users[e.From] == nil && g.Products[e.From] == nil {
			t.Errorf("edge from unknown node %s", e.From)
		}
		if g.Users[e.To] == nil && g.Products[e.To] == nil {
			t.Errorf("edge to unknown node %s", e.To)
		}
	}
}

func TestBuilder_ReclaimHookCalledBetweenBatches(t *testing.T) {
	calls := 0
	b := &Builder{
		Entities:    testEntities(25, 25),
		BatchSize:   10,
		ReclaimHook: func() { calls++ },
	}
	if _, err := b.BuildGraph(context.Background()); err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	if calls == 0 {
		t.Error("reclaim hook never called")
	}
}

func TestBuilder_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &Builder{Entities: testEntities(5, 5), ReclaimHook: func() {}}
	if _, err := b.BuildGraph(ctx); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestBuilder_CompatibleEdgesSymmetric(t *testing.T) {
	entities := store.NewMemoryEntityStore(
		[]*core.User{{ID: "u1", History: []core.InteractionEvent{viewEvent("p1")}}},
		[]*core.Product{
			{ID: "p1", Category: core.CategoryTops, Compatible: []string{"p2"}},
			{ID: "p2", Category: core.CategoryBottoms, Compatible: []string{"p1"}},
		},
	)
	b := &Builder{Entities: entities, ReclaimHook: func() {}}
	g, err := b.BuildGraph(context.Background())
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}

	var forward, backward bool
	for _, e := range g.Edges {
		if e.From == "p1" && e.To == "p2" {
			forward = true
		}
		if e.From == "p2" && e.To == "p1" {
			backward = true
		}
	}
	if !forward || !backward {
		t.Errorf("compatible edges not symmetric: forward=%v backward=%v", forward, backward)
	}
}

func TestBuildMatrix(t *testing.T) {
	entities := store.NewMemoryEntityStore(
		[]*core.User{{
			ID: "u1",
			History: []core.InteractionEvent{
				{ProductID: "p1", Type: core.InteractionView},               // utility 1
				{ProductID: "p1", Type: core.InteractionPurchase, Rating: 5}, // utility 5
				{ProductID: "p2", Type: core.InteractionLike, Rating: 4},     // utility 1.6
			},
		}},
		[]*core.Product{
			{ID: "p1", Category: core.CategoryTops},
			{ID: "p2", Category: core.CategoryShoes},
		},
	)
	b := &Builder{Entities: entities, ReclaimHook: func() {}}
	g, err := b.BuildGraph(context.Background())
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}

	m := BuildMatrix(g)
	// 同一商品多次交互保留最大效用
	if got := m.Get("u1", "p1"); got != 5 {
		t.Errorf("Get(u1,p1) = %v, want 5", got)
	}
	if got := m.Get("u1", "p2"); !almostEqual(got, 1.6) {
		t.Errorf("Get(u1,p2) = %v, want 1.6", got)
	}
	if got := m.Get("u1", "missing"); got != 0 {
		t.Errorf("Get(u1,missing) = %v, want 0", got)
	}
}
