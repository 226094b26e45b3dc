// Package builders 注册内置节点的配置构建器。
// 入口处 import _ 本包即可启用配置驱动的 Pipeline 组装。
//
// 依赖存储的节点（recall.geo、feature.enrich）从 Bind 注入的协作者取依赖，
// 未绑定时构建报错而非静默降级。
package builders

import (
	"fmt"
	"sync"

	"github.com/rushteam/acadmap/config"
	"github.com/rushteam/acadmap/core"
	"github.com/rushteam/acadmap/feature"
	"github.com/rushteam/acadmap/filter"
	"github.com/rushteam/acadmap/pipeline"
	"github.com/rushteam/acadmap/pkg/conv"
	"github.com/rushteam/acadmap/rank"
	"github.com/rushteam/acadmap/recall"
	"github.com/rushteam/acadmap/rerank"
)

func init() {
	config.Register("recall.geo", BuildGeoRecallNode)
	config.Register("filter", BuildFilterNode)
	config.Register("feature.enrich", BuildEnrichNode)
	config.Register("rank.weighted", BuildWeightedRankNode)
	config.Register("rank.location", BuildLocationRankNode)
	config.Register("rerank.threshold", BuildThresholdNode)
	config.Register("rerank.topn", BuildTopNNode)
	config.Register("rerank.diversity", BuildDiversityNode)
}

var (
	depsMu    sync.RWMutex
	academies core.AcademyStore
	reviews   core.ReviewStore
)

// Bind 注入依赖存储的节点所需的协作者。应在加载 Pipeline 配置前调用一次。
func Bind(a core.AcademyStore, r core.ReviewStore) {
	depsMu.Lock()
	defer depsMu.Unlock()
	academies = a
	reviews = r
}

func boundStores() (core.AcademyStore, core.ReviewStore) {
	depsMu.RLock()
	defer depsMu.RUnlock()
	return academies, reviews
}

func BuildGeoRecallNode(cfg map[string]any) (pipeline.Node, error) {
	a, _ := boundStores()
	if a == nil {
		return nil, fmt.Errorf("recall.geo requires an academy store (call builders.Bind first)")
	}
	return &recall.Node{Source: &recall.GeoSource{
		Academies: a,
		ScanLimit: conv.ConfigGetInt(cfg, "scan_limit", 0),
	}}, nil
}

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
		case "distance":
			filters = append(filters, &filter.Distance{})
		case "rule":
			expr := conv.ConfigGet(filterMap, "expr", "")
			if expr == "" {
				return nil, fmt.Errorf("rule filter requires expr")
			}
			rule, err := filter.NewRule(expr)
			if err != nil {
				return nil, fmt.Errorf("compile rule %q: %w", expr, err)
			}
			filters = append(filters, rule)
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}

	return &filter.Node{Filters: filters}, nil
}

func BuildEnrichNode(cfg map[string]any) (pipeline.Node, error) {
	a, r := boundStores()
	if a == nil {
		return nil, fmt.Errorf("feature.enrich requires an academy store (call builders.Bind first)")
	}
	return &feature.EnrichNode{Academies: a, Reviews: r}, nil
}

func BuildWeightedRankNode(cfg map[string]any) (pipeline.Node, error) {
	return &rank.WeightedNode{}, nil
}

func BuildLocationRankNode(cfg map[string]any) (pipeline.Node, error) {
	return &rank.LocationNode{}, nil
}

func BuildThresholdNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.Threshold{Min: conv.ConfigGetFloat64(cfg, "min", 0)}, nil
}

func BuildTopNNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.TopN{N: conv.ConfigGetInt(cfg, "n", 0)}, nil
}

func BuildDiversityNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.Diversity{MaxPerKey: conv.ConfigGetInt(cfg, "max_per_key", 0)}, nil
}
