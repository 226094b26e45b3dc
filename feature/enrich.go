// Package feature 提供候选富化：在排序前把实体属性与评价聚合挂载到 Item 上，
// 让打分节点只消费就绪数据、不触发取数。
package feature

import (
	"context"

	"github.com/rushteam/acadmap/core"
	"github.com/rushteam/acadmap/pipeline"
	"github.com/rushteam/acadmap/pkg/utils"
)

// reviewsMetaKey 是评价聚合在 Item.Meta 里的约定 key。
const reviewsMetaKey = "reviews"

// EnrichNode 是富化节点：
//   - Academy 缺失的 item 从 AcademyStore 批量补齐（单次往返）
//   - 为每个 item 挂载 ReviewStats（评价子系统的只读聚合）
//
// 取数失败按"缺数据"处理：对应因子在打分阶段自然跳过，不中断链路。
type EnrichNode struct {
	Academies core.AcademyStore
	Reviews   core.ReviewStore
}

func (n *EnrichNode) Name() string        { return "feature.enrich" }
func (n *EnrichNode) Kind() pipeline.Kind { return pipeline.KindEnrich }

func (n *EnrichNode) Process(
	ctx context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	n.loadMissingAcademies(ctx, items)
	n.loadReviewStats(ctx, items)
	return items, nil
}

func (n *EnrichNode) loadMissingAcademies(ctx context.Context, items []*core.Item) {
	if n.Academies == nil {
		return
	}
	var missing []string
	for _, it := range items {
		if it != nil && it.Academy == nil {
			missing = append(missing, it.ID)
		}
	}
	if len(missing) == 0 {
		return
	}

	academies, err := n.Academies.BatchGetAcademies(ctx, missing)
	if err != nil {
		return
	}
	for _, it := range items {
		if it == nil || it.Academy != nil {
			continue
		}
		if a, ok := academies[it.ID]; ok {
			it.Academy = a
			it.PutLabel("enriched", utils.Label{Value: "academy", Source: "enrich"})
		}
	}
}

func (n *EnrichNode) loadReviewStats(ctx context.Context, items []*core.Item) {
	if n.Reviews == nil {
		return
	}
	for _, it := range items {
		if it == nil {
			continue
		}
		stats, err := n.Reviews.Stats(ctx, it.ID)
		if err != nil {
			continue
		}
		SetReviewStats(it, stats)
	}
}

// SetReviewStats 把评价聚合写入 Item.Meta。
func SetReviewStats(it *core.Item, stats core.ReviewStats) {
	if it.Meta == nil {
		it.Meta = make(map[string]any)
	}
	it.Meta[reviewsMetaKey] = stats
}

// ReviewStatsOf 读取富化阶段挂载的评价聚合；未挂载返回零值。
func ReviewStatsOf(it *core.Item) core.ReviewStats {
	if it == nil || it.Meta == nil {
		return core.ReviewStats{}
	}
	if stats, ok := it.Meta[reviewsMetaKey].(core.ReviewStats); ok {
		return stats
	}
	return core.ReviewStats{}
}
