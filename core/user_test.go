package core

import "testing"

func TestInteractionType_Weight(t *testing.T) {
	tests := []struct {
		typ  InteractionType
		want float64
	}{
		{InteractionView, 1},
		{InteractionLike, 2},
		{InteractionCart, 3},
		{InteractionReview, 4},
		{InteractionPurchase, 5},
		{InteractionType("unknown"), 1},
	}
	for _, tt := range tests {
		if got := tt.typ.Weight(); got != tt.want {
			t.Errorf("Weight(%s) = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestInteractionEvent_Utility(t *testing.T) {
	tests := []struct {
		name string
		ev   InteractionEvent
		want float64
	}{
		{"view unrated keeps neutral norm", InteractionEvent{Type: InteractionView}, 1},
		{"purchase full rating", InteractionEvent{Type: InteractionPurchase, Rating: 5}, 5},
		{"purchase low rating", InteractionEvent{Type: InteractionPurchase, Rating: 1}, 1},
		{"like rated 4", InteractionEvent{Type: InteractionLike, Rating: 4}, 1.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.Utility(); got != tt.want {
				t.Errorf("Utility = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUser_InteractedProducts(t *testing.T) {
	u := &User{
		ID: "u1",
		History: []InteractionEvent{
			{ProductID: "p1", Type: InteractionView},
			{ProductID: "p1", Type: InteractionLike},
			{ProductID: "p2", Type: InteractionPurchase, Rating: 5},
		},
	}
	got := u.InteractedProducts()
	if got["p1"] != 3 { // 1 + 2
		t.Errorf("p1 utility = %v, want 3", got["p1"])
	}
	if got["p2"] != 5 {
		t.Errorf("p2 utility = %v, want 5", got["p2"])
	}
}

func TestUser_IsAdult(t *testing.T) {
	if (&User{Age: 17}).IsAdult() {
		t.Error("17 should not be adult")
	}
	if !(&User{Age: 18}).IsAdult() {
		t.Error("18 should be adult")
	}
	if (&User{}).IsAdult() {
		t.Error("unknown age should not count as adult")
	}
}

func TestGenderCategories(t *testing.T) {
	male := GenderCategories(GenderMale)
	for _, c := range []string{CategoryTops, CategoryBottoms, CategoryShoes} {
		if !male[c] {
			t.Errorf("male whitelist missing %s", c)
		}
	}
	if male[CategoryDresses] {
		t.Error("male whitelist should not contain Dresses")
	}

	female := GenderCategories(GenderFemale)
	for _, c := range []string{CategoryDresses, CategoryAccessories, CategoryShoes} {
		if !female[c] {
			t.Errorf("female whitelist missing %s", c)
		}
	}

	if got := GenderCategories(GenderOther); len(got) != 5 {
		t.Errorf("other whitelist = %v, want union of all 5 categories", got)
	}
	if got := GenderCategories(GenderUnknown); got != nil {
		t.Errorf("unknown gender should not filter, got %v", got)
	}
}

func TestClassifyRole(t *testing.T) {
	tests := []struct {
		name string
		p    *Product
		want OutfitRole
	}{
		{"by category", &Product{Category: CategoryDresses}, RoleDress},
		{"shoes", &Product{Category: CategoryShoes}, RoleShoes},
		{"tag fallback", &Product{Category: "Clothing", OutfitTags: []string{"jeans"}}, RoleBottom},
		{"no match", &Product{Category: "Misc"}, RoleNone},
		{"nil", nil, RoleNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyRole(tt.p); got != tt.want {
				t.Errorf("ClassifyRole = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOutfit_Key(t *testing.T) {
	a := &Outfit{Products: []*Product{{ID: "p2"}, {ID: "p1"}}}
	b := &Outfit{Products: []*Product{{ID: "p1"}, {ID: "p2"}}}
	if a.Key() != b.Key() {
		t.Errorf("key not order-independent: %q vs %q", a.Key(), b.Key())
	}
	if a.Key() != "p1|p2" {
		t.Errorf("Key = %q, want p1|p2", a.Key())
	}
}
