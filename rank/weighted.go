// Package rank 提供排序节点：把打分模型套在候选集上并降序排序。
package rank

import (
	"context"
	"sort"

	"github.com/rushteam/acadmap/core"
	"github.com/rushteam/acadmap/feature"
	"github.com/rushteam/acadmap/pipeline"
	"github.com/rushteam/acadmap/pkg/utils"
	"github.com/rushteam/acadmap/score"
)

// WeightedNode 是画像加权排序节点：对每个候选执行五因子加权打分，
// 写入 item.Score / item.Breakdown，并按分数降序排序。
//
// 排序确定性：同分时按实体 ID 升序（稳定 tie-break，不依赖检索顺序）。
type WeightedNode struct{}

func (n *WeightedNode) Name() string        { return "rank.weighted" }
func (n *WeightedNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *WeightedNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if rctx == nil || rctx.Profile == nil || len(items) == 0 {
		return items, nil
	}

	for _, it := range items {
		if it == nil || it.Academy == nil {
			continue
		}
		result := score.Score(rctx.Profile, it.Academy, rctx.Location, feature.ReviewStatsOf(it))
		it.Score = result.Total
		it.Breakdown = result.Breakdown
		if it.DistanceKM == nil {
			it.DistanceKM = result.DistanceKM
		}
		it.PutLabel("rank_model", utils.Label{Value: n.Name(), Source: "rank"})
	}

	SortByScore(items)
	return items, nil
}

// LocationNode 是无画像的位置排序节点：
// score = 0.6*距离分 + 0.4*评分分（无评价时评分按中性 50）。
// 距离分按请求半径线性衰减；精确距离由 filter.Distance 预先写入。
type LocationNode struct{}

func (n *LocationNode) Name() string        { return "rank.location" }
func (n *LocationNode) Kind() pipeline.Kind { return pipeline.KindRank }

const (
	locationDistanceWeight = 0.6
	locationRatingWeight   = 0.4
)

func (n *LocationNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if rctx == nil || rctx.Location == nil || rctx.Radius <= 0 || len(items) == 0 {
		return items, nil
	}

	for _, it := range items {
		if it == nil || it.DistanceKM == nil {
			continue
		}
		d := *it.DistanceKM
		distanceScore := 0.0
		if d <= rctx.Radius {
			distanceScore = (rctx.Radius - d) / rctx.Radius * 100
		}
		stats := feature.ReviewStatsOf(it)
		ratingScore := score.RatingScore(stats)

		it.Score = score.Round2(distanceScore*locationDistanceWeight + ratingScore*locationRatingWeight)
		it.Breakdown = map[string]core.FactorScore{
			score.FactorDistance: {Actual: d, Score: score.Round2(distanceScore)},
		}
		// 无评价的实体不在明细里暴露评分因子（中性 50 只参与总分）
		if stats.HasReviews() {
			it.Breakdown[score.FactorRating] = core.FactorScore{
				Actual:      stats.Average,
				Score:       score.Round2(ratingScore),
				ReviewCount: stats.Count,
			}
		}
		it.PutLabel("rank_model", utils.Label{Value: n.Name(), Source: "rank"})
	}

	SortByScore(items)
	return items, nil
}

// SortByScore 按分数降序稳定排序，同分按 ID 升序。
func SortByScore(items []*core.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i] == nil {
			return false
		}
		if items[j] == nil {
			return true
		}
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})
}
