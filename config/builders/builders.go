// Package builders 注册内置 Node 的配置构建器。
// import 此包（通常以 _ 形式）即可让 YAML/JSON 配置驱动的 pipeline
// 使用 filter、rerank.personalize、rerank.topn、rerank.diversity。
package builders

import (
	"fmt"

	"github.com/rushteam/modakit/config"
	"github.com/rushteam/modakit/filter"
	"github.com/rushteam/modakit/pipeline"
	"github.com/rushteam/modakit/pkg/conv"
	"github.com/rushteam/modakit/rerank"
)

func init() {
	config.Register("filter", BuildFilterNode)
	config.Register("rerank.personalize", BuildPersonalizeNode)
	config.Register("rerank.topn", BuildTopNNode)
	config.Register("rerank.diversity", BuildDiversityNode)
}

// BuildFilterNode 构建组合过滤节点。filters 列表支持：
//
//	gender_keyword          性别关键词排除
//	gender_category         性别类目白名单硬排除
//	rule { expr }           CEL 规则过滤
//	seen { key_prefix }     已购/已展示过滤（Store 需运行期注入）
func BuildFilterNode(cfg map[string]any) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]any)
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}

	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]any)
		if !ok {
			continue
		}
		filterType := conv.ConfigGet(filterMap, "type", "")
		switch filterType {
		case "gender_keyword":
			filters = append(filters, &filter.GenderKeywordFilter{})

		case "gender_category":
			filters = append(filters, &filter.GenderCategoryFilter{})

		case "rule":
			expr := conv.ConfigGet(filterMap, "expr", "")
			if expr == "" {
				return nil, fmt.Errorf("rule filter: expr not found")
			}
			filters = append(filters, filter.NewRuleFilter(expr))

		case "seen":
			keyPrefix := conv.ConfigGet(filterMap, "key_prefix", "")
			// Store 无法从配置构建，由运行期注入；无 Store 时只按历史过滤
			filters = append(filters, filter.NewSeenFilter(nil, keyPrefix))

		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}

	return &filter.FilterNode{Filters: filters}, nil
}

// BuildPersonalizeNode 构建个性化重排节点。
// EntityStore 无法从配置构建，历史亲和加成需运行期注入。
func BuildPersonalizeNode(_ map[string]any) (pipeline.Node, error) {
	return &rerank.PersonalizeNode{}, nil
}

// BuildTopNNode 构建 Top-N 截断节点。
func BuildTopNNode(cfg map[string]any) (pipeline.Node, error) {
	n := conv.ConfigGetInt64(cfg, "n", 0)
	return &rerank.TopNNode{N: int(n)}, nil
}

// BuildDiversityNode 构建类目多样性节点。
func BuildDiversityNode(cfg map[string]any) (pipeline.Node, error) {
	limit := conv.ConfigGetInt64(cfg, "max_per_category", 0)
	return &rerank.Diversity{MaxPerCategory: int(limit)}, nil
}
