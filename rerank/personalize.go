package rerank

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rushteam/modakit/core"
	"github.com/rushteam/modakit/filter"
	"github.com/rushteam/modakit/pipeline"
	"github.com/rushteam/modakit/pkg/utils"
)

// 年龄段 → 合适的风格与类目。五个年龄段，覆盖 13 岁以上。
type ageBand struct {
	min, max   int // max 为 0 表示无上限
	style      string
	categories map[string]struct{}
}

var ageBands = []ageBand{
	{13, 18, "trendy", catSet(core.CategoryTops, core.CategoryShoes, core.CategoryAccessories)},
	{19, 25, "casual", catSet(core.CategoryTops, core.CategoryBottoms, core.CategoryShoes, core.CategoryAccessories)},
	{26, 35, "business", catSet(core.CategoryTops, core.CategoryBottoms, core.CategoryDresses, core.CategoryShoes)},
	{36, 50, "classic", catSet(core.CategoryTops, core.CategoryBottoms, core.CategoryDresses)},
	{51, 0, "elegant", catSet(core.CategoryDresses, core.CategoryAccessories)},
}

func catSet(cats ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(cats))
	for _, c := range cats {
		set[c] = struct{}{}
	}
	return set
}

func bandFor(age int) *ageBand {
	for i := range ageBands {
		b := &ageBands[i]
		if age >= b.min && (b.max == 0 || age <= b.max) {
			return b
		}
	}
	return nil
}

// PersonalizeNode 在基础打分之后施加个性化调整。
//
// 调整按固定顺序施加，全部以乘法叠加在基础分上：
//  1. 性别类目白名单：类目在白名单内 ×1.3，否则 ×0.3
//  2. 关键词性别排除：名称/描述含相反性别标记词的候选直接丢弃
//  3. 年龄适配：风格命中 ×1.2，类目命中 ×1.15
//  4. 历史亲和：类目交互过 ×1.4，品牌交互过 ×1.3，风格标签命中 ×1.25
//  5. 显式偏好：风格 ×1.2，价格区间外 ×0.5，颜色命中最高 ×1.2
//
// 最终按合成分稳定降序排序，同分保持原候选顺序。
type PersonalizeNode struct {
	// Entities 用于解析历史商品的类目/品牌/标签（亲和计算）
	Entities core.EntityStore
}

func (n *PersonalizeNode) Name() string {
	return "rerank.personalize"
}

func (n *PersonalizeNode) Kind() pipeline.Kind {
	return pipeline.KindPersonalize
}

func (n *PersonalizeNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	gender := rctx.EffectiveGender()
	allowed := core.GenderCategories(gender)

	var band *ageBand
	var adult bool
	if rctx.User != nil && rctx.User.Age > 0 {
		band = bandFor(rctx.User.Age)
		adult = rctx.User.IsAdult()
	}

	histCats, histBrands, histTags := n.historyAffinity(ctx, rctx.User)

	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		p := item.Product()
		if p == nil {
			out = append(out, item)
			continue
		}

		// 关键词性别排除（含成人用户的童装排除）
		text := p.Name + " " + p.Description
		if filter.HasOppositeGenderMarker(text, gender) {
			continue
		}
		if adult && filter.HasKidsMarker(text) {
			continue
		}

		boost := 1.0

		if allowed != nil {
			if _, ok := allowed[p.Category]; ok {
				boost *= 1.3
				item.PutLabel("personalize.gender_category", utils.Label{Value: "1.30", Source: n.Name()})
			} else {
				boost *= 0.3
				item.PutLabel("personalize.gender_category", utils.Label{Value: "0.30", Source: n.Name()})
			}
		}

		if band != nil {
			m := 1.0
			if p.HasTag(band.style) {
				m *= 1.2
			}
			if _, ok := band.categories[p.Category]; ok {
				m *= 1.15
			}
			if m != 1.0 {
				boost *= m
				item.PutLabel("personalize.age", utils.Label{Value: fmt.Sprintf("%.2f", m), Source: n.Name()})
			}
		}

		if m := historyBoost(p, histCats, histBrands, histTags); m != 1.0 {
			boost *= m
			item.PutLabel("personalize.history", utils.Label{Value: fmt.Sprintf("%.2f", m), Source: n.Name()})
		}

		if rctx.User != nil {
			if m := preferenceBoost(p, rctx.User.Preferences); m != 1.0 {
				boost *= m
				item.PutLabel("personalize.preference", utils.Label{Value: fmt.Sprintf("%.2f", m), Source: n.Name()})
			}
		}

		item.Score *= boost
		out = append(out, item)
	}

	// 稳定排序：同分保持原候选顺序
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out, nil
}

// historyAffinity 收集用户历史涉及的类目/品牌/风格标签集合。
// 历史商品按需从实体存储解析，缺失的忽略。
func (n *PersonalizeNode) historyAffinity(ctx context.Context, u *core.User) (cats, brands, tags map[string]struct{}) {
	cats = make(map[string]struct{})
	brands = make(map[string]struct{})
	tags = make(map[string]struct{})
	if u == nil || n.Entities == nil {
		return cats, brands, tags
	}
	seen := make(map[string]struct{}, len(u.History))
	for _, ev := range u.History {
		if _, ok := seen[ev.ProductID]; ok {
			continue
		}
		seen[ev.ProductID] = struct{}{}
		p, err := n.Entities.GetProduct(ctx, ev.ProductID)
		if err != nil || p == nil {
			continue
		}
		if p.Category != "" {
			cats[p.Category] = struct{}{}
		}
		if p.Brand != "" {
			brands[p.Brand] = struct{}{}
		}
		for _, t := range p.OutfitTags {
			tags[strings.ToLower(t)] = struct{}{}
		}
	}
	return cats, brands, tags
}

func historyBoost(p *core.Product, cats, brands, tags map[string]struct{}) float64 {
	m := 1.0
	if _, ok := cats[p.Category]; ok && p.Category != "" {
		m *= 1.4
	}
	if _, ok := brands[p.Brand]; ok && p.Brand != "" {
		m *= 1.3
	}
	for _, t := range p.OutfitTags {
		if _, ok := tags[strings.ToLower(t)]; ok {
			m *= 1.25
			break
		}
	}
	return m
}

func preferenceBoost(p *core.Product, prefs core.Preferences) float64 {
	m := 1.0
	if prefs.Style != "" && p.HasTag(prefs.Style) {
		m *= 1.2
	}
	if prefs.HasPriceRange() && (p.Price < prefs.PriceMin || p.Price > prefs.PriceMax) {
		m *= 0.5
	}
	if len(prefs.Colors) > 0 {
		matched := 0
		for _, c := range prefs.Colors {
			if p.HasColor(c) {
				matched++
			}
		}
		// 颜色命中按比例加成，封顶 ×1.2
		m *= 1 + 0.2*float64(matched)/float64(len(prefs.Colors))
	}
	return m
}
