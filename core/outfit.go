package core

import "sort"

// OutfitRole 是穿搭分桶角色，由商品类目/标签推导。
type OutfitRole string

const (
	RoleTop       OutfitRole = "top"
	RoleBottom    OutfitRole = "bottom"
	RoleShoes     OutfitRole = "shoes"
	RoleDress     OutfitRole = "dress"
	RoleAccessory OutfitRole = "accessory"
	RoleNone      OutfitRole = ""
)

// Outfit 是按请求合成的商品组合（不持久化）。
// 不变式：成员 ≥2 且互不相同；CompatibilityScore ∈ [0,1]。
type Outfit struct {
	Name     string     `json:"name"`
	Style    string     `json:"style,omitempty"`
	Gender   Gender     `json:"gender,omitempty"`
	Products []*Product `json:"products"`

	TotalPrice         float64 `json:"total_price"`
	CompatibilityScore float64 `json:"compatibility_score"`
}

// Key 返回组合的规范去重键：成员 id 排序后拼接。
func (o *Outfit) Key() string {
	ids := make([]string, 0, len(o.Products))
	for _, p := range o.Products {
		if p != nil {
			ids = append(ids, p.ID)
		}
	}
	sort.Strings(ids)
	key := ""
	for i, id := range ids {
		if i > 0 {
			key += "|"
		}
		key += id
	}
	return key
}

// ClassifyRole 按类目（其次按标签）推导商品的穿搭角色。
func ClassifyRole(p *Product) OutfitRole {
	if p == nil {
		return RoleNone
	}
	switch p.Category {
	case CategoryTops:
		return RoleTop
	case CategoryBottoms:
		return RoleBottom
	case CategoryShoes:
		return RoleShoes
	case CategoryDresses:
		return RoleDress
	case CategoryAccessories:
		return RoleAccessory
	}
	// 类目非标准时回退到标签
	for _, tag := range p.OutfitTags {
		switch tag {
		case "top", "shirt", "tee":
			return RoleTop
		case "bottom", "pants", "jeans", "skirt":
			return RoleBottom
		case "shoes", "sneakers", "boots":
			return RoleShoes
		case "dress":
			return RoleDress
		case "accessory", "bag", "belt", "hat":
			return RoleAccessory
		}
	}
	return RoleNone
}
