// Package outfit 从排好序的候选池合成多件商品的穿搭组合。
package outfit

import (
	"context"
	"sort"
	"strings"

	"github.com/rushteam/modakit/core"
	"github.com/rushteam/modakit/graph"
)

// Synthesizer 按性别模板合成穿搭：
//
//	male/other：种子 + 上装 + 下装 + 鞋（种子属于其中某角色时顶替该位）
//	female：   种子 + 连衣裙 + 配饰 + 鞋；种子为上/下装时另出
//	           上装 + 下装 + 鞋 变体
//
// 组合成员 ≥2 才会产出；相同成员集按规范键去重后按兼容分截断到 k。
type Synthesizer struct {
	// Similarity 计算两商品的内容相似度（可选；由 content 策略提供）。
	// 为 nil 时兼容分只混合类目多样性与价格适配两项。
	Similarity func(a, b string) float64

	// RoleLimit 每个角色桶参与组合的候选上限，<= 0 时默认 4，
	// 用于约束组合枚举的规模。
	RoleLimit int

	// PriceBandRatio 价格带宽与参考价的比值，<= 0 时默认 1.0。
	// 参考价 = 种子单价 × 成员数。
	PriceBandRatio float64
}

func (s *Synthesizer) roleLimit() int {
	if s.RoleLimit > 0 {
		return s.RoleLimit
	}
	return 4
}

func (s *Synthesizer) bandRatio() float64 {
	if s.PriceBandRatio > 0 {
		return s.PriceBandRatio
	}
	return 1.0
}

// Compose 从候选池合成至多 k 套穿搭。候选池应已按分数降序。
// 种子与性别缺失属于前置条件错误，由调用方在入口校验；这里仍做
// 防御性检查。
func (s *Synthesizer) Compose(ctx context.Context, rctx *core.RecommendContext, seed *core.Product, pool []*core.Item, k int) ([]*core.Outfit, error) {
	if seed == nil {
		return nil, core.NewDomainError(core.ModuleOutfit, core.ErrorCodeMissingPrecondition,
			"outfit: seed product is required")
	}
	gender := rctx.EffectiveGender()
	if gender == core.GenderUnknown {
		return nil, core.NewDomainError(core.ModuleOutfit, core.ErrorCodeMissingPrecondition,
			"outfit: gender could not be resolved")
	}
	if k <= 0 {
		k = 3
	}

	buckets := s.bucket(seed, pool)
	seedRole := core.ClassifyRole(seed)

	var outfits []*core.Outfit
	emit := func(roles []core.OutfitRole) {
		outfits = append(outfits, s.enumerate(seed, seedRole, roles, buckets, gender)...)
	}

	switch gender {
	case core.GenderFemale:
		emit([]core.OutfitRole{core.RoleDress, core.RoleAccessory, core.RoleShoes})
		if seedRole == core.RoleTop || seedRole == core.RoleBottom {
			emit([]core.OutfitRole{core.RoleTop, core.RoleBottom, core.RoleShoes})
		}
	default:
		emit([]core.OutfitRole{core.RoleTop, core.RoleBottom, core.RoleShoes})
	}

	outfits = dedupe(outfits)
	sort.SliceStable(outfits, func(i, j int) bool {
		if outfits[i].CompatibilityScore != outfits[j].CompatibilityScore {
			return outfits[i].CompatibilityScore > outfits[j].CompatibilityScore
		}
		return outfits[i].Key() < outfits[j].Key()
	})
	if len(outfits) > k {
		outfits = outfits[:k]
	}
	return outfits, nil
}

// bucket 把候选池按角色分桶（排除种子自身），每桶保留排序靠前的
// RoleLimit 个。
func (s *Synthesizer) bucket(seed *core.Product, pool []*core.Item) map[core.OutfitRole][]*core.Product {
	limit := s.roleLimit()
	buckets := make(map[core.OutfitRole][]*core.Product)
	for _, it := range pool {
		if it == nil {
			continue
		}
		p := it.Product()
		if p == nil || p.ID == seed.ID {
			continue
		}
		role := core.ClassifyRole(p)
		if role == core.RoleNone {
			continue
		}
		if len(buckets[role]) < limit {
			buckets[role] = append(buckets[role], p)
		}
	}
	return buckets
}

// enumerate 枚举模板角色的候选组合。种子属于模板角色时顶替该位，
// 否则作为额外锚点加入。空桶角色留空，成员 ≥2 的组合才产出。
func (s *Synthesizer) enumerate(seed *core.Product, seedRole core.OutfitRole, roles []core.OutfitRole, buckets map[core.OutfitRole][]*core.Product, gender core.Gender) []*core.Outfit {
	choices := make([][]*core.Product, len(roles))
	for i, role := range roles {
		if role == seedRole {
			choices[i] = []*core.Product{seed}
			continue
		}
		if len(buckets[role]) == 0 {
			choices[i] = []*core.Product{nil}
			continue
		}
		choices[i] = buckets[role]
	}

	seedInTemplate := false
	for _, role := range roles {
		if role == seedRole {
			seedInTemplate = true
			break
		}
	}

	var outfits []*core.Outfit
	picks := make([]*core.Product, len(roles))
	var walk func(depth int)
	walk = func(depth int) {
		if depth == len(roles) {
			members := make([]*core.Product, 0, len(roles)+1)
			if !seedInTemplate {
				members = append(members, seed)
			}
			seen := make(map[string]struct{}, len(roles)+1)
			if !seedInTemplate {
				seen[seed.ID] = struct{}{}
			}
			for _, p := range picks {
				if p == nil {
					continue
				}
				if _, dup := seen[p.ID]; dup {
					continue
				}
				seen[p.ID] = struct{}{}
				members = append(members, p)
			}
			if len(members) < 2 {
				return
			}
			outfits = append(outfits, s.assemble(seed, members, gender))
			return
		}
		for _, p := range choices[depth] {
			picks[depth] = p
			walk(depth + 1)
		}
	}
	walk(0)
	return outfits
}

func (s *Synthesizer) assemble(seed *core.Product, members []*core.Product, gender core.Gender) *core.Outfit {
	var total float64
	for _, p := range members {
		total += p.Price
	}
	o := &core.Outfit{
		Style:      dominantStyle(members),
		Gender:     gender,
		Products:   members,
		TotalPrice: total,
	}
	if o.Style != "" {
		o.Name = o.Style + " look"
	} else {
		o.Name = "complete look"
	}
	o.CompatibilityScore = s.score(seed, members, total)
	return o
}

// score 计算兼容分：类目多样性、价格带适配、成员两两内容相似度
// 的加权混合，结果在 [0,1]。
func (s *Synthesizer) score(seed *core.Product, members []*core.Product, total float64) float64 {
	cats := make(map[string]struct{}, len(members))
	for _, p := range members {
		if p.Category != "" {
			cats[p.Category] = struct{}{}
		}
	}
	diversity := float64(len(cats)) / 3
	if diversity > 1 {
		diversity = 1
	}

	reference := seed.Price * float64(len(members))
	priceFit := 1.0
	if reference > 0 {
		band := reference * s.bandRatio()
		diff := total - reference
		if diff < 0 {
			diff = -diff
		}
		priceFit = 1 - diff/band
		if priceFit < 0 {
			priceFit = 0
		}
	}

	if s.Similarity == nil {
		return graph.Clamp01(0.5*diversity + 0.5*priceFit)
	}

	var simSum float64
	var pairs int
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			simSum += s.Similarity(members[i].ID, members[j].ID)
			pairs++
		}
	}
	sim := 0.0
	if pairs > 0 {
		sim = simSum / float64(pairs)
	}
	return graph.Clamp01((diversity + priceFit + sim) / 3)
}

// dominantStyle 取成员中出现最多的风格标签（并列时取字典序最小）。
func dominantStyle(members []*core.Product) string {
	counts := make(map[string]int)
	for _, p := range members {
		for _, t := range p.OutfitTags {
			counts[strings.ToLower(t)]++
		}
	}
	best := ""
	bestCount := 0
	for tag, c := range counts {
		if c > bestCount || (c == bestCount && (best == "" || tag < best)) {
			best = tag
			bestCount = c
		}
	}
	return best
}

func dedupe(outfits []*core.Outfit) []*core.Outfit {
	seen := make(map[string]struct{}, len(outfits))
	out := outfits[:0]
	for _, o := range outfits {
		key := o.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, o)
	}
	return out
}
