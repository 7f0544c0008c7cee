package core

import "strings"

// 标准类目常量（性别白名单与穿搭角色分桶依赖这些取值）。
const (
	CategoryTops        = "Tops"
	CategoryBottoms     = "Bottoms"
	CategoryShoes       = "Shoes"
	CategoryDresses     = "Dresses"
	CategoryAccessories = "Accessories"
)

// Product 是推荐引擎消费的商品实体。
//
// Compatible 与 Features 由引擎外部的离线预处理产出（本引擎只读）：
//   - Compatible 是对称的搭配提示（a 搭 b 则 b 搭 a）
//   - Features 是基于 name+description+category+brand+tags 的内容特征向量
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category"`
	Brand       string  `json:"brand,omitempty"`
	Price       float64 `json:"price"`
	Sale        bool    `json:"sale,omitempty"`

	OutfitTags []string `json:"outfit_tags,omitempty"` // 风格标签，如 casual / summer
	Colors     []string `json:"colors,omitempty"`      // 颜色名集合
	Compatible []string `json:"compatible,omitempty"`  // 可搭配商品 id 集合（对称）
	Rating     float64  `json:"rating,omitempty"`      // 均分（冷启动排序依据）

	Features map[string]float64 `json:"features,omitempty"` // 离线内容特征向量
}

// Document 返回商品的文本文档：name、description、category、brand、
// tags、颜色名拼接（TF-IDF 语料的输入）。
func (p *Product) Document() string {
	if p == nil {
		return ""
	}
	parts := make([]string, 0, 6)
	parts = append(parts, p.Name, p.Description, p.Category, p.Brand)
	parts = append(parts, strings.Join(p.OutfitTags, " "))
	parts = append(parts, strings.Join(p.Colors, " "))
	return strings.TrimSpace(strings.Join(parts, " "))
}

// HasTag 判断商品是否带有某个风格标签（大小写不敏感）。
func (p *Product) HasTag(tag string) bool {
	if p == nil {
		return false
	}
	for _, t := range p.OutfitTags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// HasColor 判断商品是否包含某个颜色（大小写不敏感）。
func (p *Product) HasColor(color string) bool {
	if p == nil {
		return false
	}
	for _, c := range p.Colors {
		if strings.EqualFold(c, color) {
			return true
		}
	}
	return false
}

// GenderCategories 返回性别对应的类目白名单：
//   - male   → {Tops, Bottoms, Shoes}
//   - female → {Dresses, Accessories, Shoes}
//   - other  → 两者并集
//
// 未知性别返回 nil（表示不过滤）。
func GenderCategories(g Gender) map[string]bool {
	switch g {
	case GenderMale:
		return map[string]bool{
			CategoryTops:    true,
			CategoryBottoms: true,
			CategoryShoes:   true,
		}
	case GenderFemale:
		return map[string]bool{
			CategoryDresses:     true,
			CategoryAccessories: true,
			CategoryShoes:       true,
		}
	case GenderOther:
		return map[string]bool{
			CategoryTops:        true,
			CategoryBottoms:     true,
			CategoryShoes:       true,
			CategoryDresses:     true,
			CategoryAccessories: true,
		}
	default:
		return nil
	}
}
