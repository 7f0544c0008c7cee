package filter

import (
	"context"
	"testing"

	"github.com/rushteam/modakit/core"
	"github.com/rushteam/modakit/store"
)

func TestSeenFilter_PurchaseHistory(t *testing.T) {
	f := NewSeenFilter(nil, "")
	rctx := &core.RecommendContext{
		UserID: "u1",
		User: &core.User{
			ID: "u1",
			History: []core.InteractionEvent{
				{ProductID: "bought", Type: core.InteractionPurchase},
				{ProductID: "viewed", Type: core.InteractionView},
			},
		},
	}

	got, err := f.ShouldFilter(context.Background(), rctx, itemWithProduct(&core.Product{ID: "bought"}))
	if err != nil || !got {
		t.Errorf("purchased product: got %v, %v; want filtered", got, err)
	}
	// 只看过没买过的不过滤
	got, err = f.ShouldFilter(context.Background(), rctx, itemWithProduct(&core.Product{ID: "viewed"}))
	if err != nil || got {
		t.Errorf("viewed product: got %v, %v; want kept", got, err)
	}
}

func TestSeenFilter_StoreBackedList(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	// Hash 后端：MarkSeen 按字段写入
	if err := MarkSeen(ctx, ms, "", "u1", "shown1", "shown2"); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}

	f := NewSeenFilter(ms, "")
	rctx := &core.RecommendContext{UserID: "u1", User: &core.User{ID: "u1"}}

	got, err := f.ShouldFilter(ctx, rctx, itemWithProduct(&core.Product{ID: "shown1"}))
	if err != nil || !got {
		t.Errorf("recently shown: got %v, %v; want filtered", got, err)
	}
	got, err = f.ShouldFilter(ctx, rctx, itemWithProduct(&core.Product{ID: "new"}))
	if err != nil || got {
		t.Errorf("unseen product: got %v, %v; want kept", got, err)
	}

	// 无记录的用户不过滤
	other := &core.RecommendContext{UserID: "u2", User: &core.User{ID: "u2"}}
	got, err = f.ShouldFilter(ctx, other, itemWithProduct(&core.Product{ID: "shown1"}))
	if err != nil || got {
		t.Errorf("user without record: got %v, %v; want kept", got, err)
	}
}

// 不支持 Hash 的后端退化为 JSON 数组，MarkSeen 读改写且去重。
func TestSeenFilter_PlainKVFallback(t *testing.T) {
	ctx := context.Background()
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := MarkSeen(ctx, fs, "", "u1", "shown1"); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if err := MarkSeen(ctx, fs, "", "u1", "shown1", "shown2"); err != nil {
		t.Fatalf("MarkSeen append: %v", err)
	}

	f := NewSeenFilter(fs, "")
	rctx := &core.RecommendContext{UserID: "u1", User: &core.User{ID: "u1"}}

	for _, pid := range []string{"shown1", "shown2"} {
		got, err := f.ShouldFilter(ctx, rctx, itemWithProduct(&core.Product{ID: pid}))
		if err != nil || !got {
			t.Errorf("shown %s: got %v, %v; want filtered", pid, got, err)
		}
	}
	got, err := f.ShouldFilter(ctx, rctx, itemWithProduct(&core.Product{ID: "new"}))
	if err != nil || got {
		t.Errorf("unseen product: got %v, %v; want kept", got, err)
	}
}

func TestRuleFilter(t *testing.T) {
	tests := []struct {
		name string
		expr string
		p    *core.Product
		want bool
	}{
		{
			name: "expensive non-sale filtered",
			expr: `product.sale == false && product.price > 500.0`,
			p:    &core.Product{ID: "x", Price: 800, Sale: false},
			want: true,
		},
		{
			name: "sale item kept",
			expr: `product.sale == false && product.price > 500.0`,
			p:    &core.Product{ID: "y", Price: 800, Sale: true},
			want: false,
		},
		{
			name: "category rule",
			expr: `product.category == "Accessories"`,
			p:    &core.Product{ID: "z", Category: core.CategoryAccessories},
			want: true,
		},
		{
			name: "broken expression keeps item",
			expr: `product.price >`,
			p:    &core.Product{ID: "w", Price: 1},
			want: false,
		},
		{
			name: "empty expression keeps item",
			expr: "",
			p:    &core.Product{ID: "v"},
			want: false,
		},
	}
	rctx := &core.RecommendContext{UserID: "u1", Scene: "recommend"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewRuleFilter(tt.expr)
			got, err := f.ShouldFilter(context.Background(), rctx, itemWithProduct(tt.p))
			if err != nil {
				t.Fatalf("ShouldFilter: %v", err)
			}
			if got != tt.want {
				t.Errorf("ShouldFilter = %v, want %v", got, tt.want)
			}
		})
	}
}
