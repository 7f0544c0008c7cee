package filter

import (
	"context"
	"strings"
	"unicode"

	"github.com/rushteam/modakit/core"
)

// 性别/童装关键词表：对商品名称与描述做词元级匹配（整词，不做子串
// 匹配，避免 "women" 误命中 "men"）。
var (
	femaleMarkers = markerSet("women", "womens", "woman", "female", "ladies", "lady", "feminine")
	maleMarkers   = markerSet("men", "mens", "man", "male", "gentleman", "masculine")
	kidsMarkers   = markerSet("kid", "kids", "child", "children", "junior", "juniors",
		"boys", "girls", "toddler", "baby", "infant")
)

func markerSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func containsMarker(text string, markers map[string]struct{}) bool {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		if _, ok := markers[f]; ok {
			return true
		}
	}
	return false
}

// HasOppositeGenderMarker 判断文本是否含有与给定性别相反的性别标记词。
// 性别未知或 other 时恒为 false。
func HasOppositeGenderMarker(text string, gender core.Gender) bool {
	switch gender {
	case core.GenderMale:
		return containsMarker(text, femaleMarkers)
	case core.GenderFemale:
		return containsMarker(text, maleMarkers)
	default:
		return false
	}
}

// HasKidsMarker 判断文本是否含有童装标记词。
func HasKidsMarker(text string) bool {
	return containsMarker(text, kidsMarkers)
}

// GenderKeywordFilter 按关键词做性别排除：丢弃名称/描述中含有
// 相反性别标记词的商品；成年用户额外丢弃童装标记商品。
type GenderKeywordFilter struct{}

func (f *GenderKeywordFilter) Name() string {
	return "filter.gender_keyword"
}

func (f *GenderKeywordFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	p := item.Product()
	if p == nil {
		return false, nil
	}

	text := p.Name + " " + p.Description
	if HasOppositeGenderMarker(text, rctx.EffectiveGender()) {
		return true, nil
	}
	if rctx.User != nil && rctx.User.IsAdult() && HasKidsMarker(text) {
		return true, nil
	}
	return false, nil
}

// GenderCategoryFilter 按性别类目白名单做硬排除：类目不在白名单内
// 的候选直接丢弃。关键词排除只能拦截文本带标记词的商品，类目白
// 名单兜住其余（如无标记词的连衣裙之于男性用户）。
// 性别未知时不过滤。
type GenderCategoryFilter struct{}

func (f *GenderCategoryFilter) Name() string {
	return "filter.gender_category"
}

func (f *GenderCategoryFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	allowed := core.GenderCategories(rctx.EffectiveGender())
	if allowed == nil {
		return false, nil
	}
	p := item.Product()
	if p == nil {
		return false, nil
	}
	return !allowed[p.Category], nil
}
