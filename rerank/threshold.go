package rerank

import (
	"context"

	"github.com/rushteam/acadmap/core"
	"github.com/rushteam/acadmap/pipeline"
)

// DefaultMinScore 是推荐结果的默认最低分门槛。
const DefaultMinScore = 30.0

// Threshold 是最低分截断节点：剔除 Score 低于 Min 的候选。
// 边界为闭区间：恰好等于 Min 的候选保留（29.99 出局，30.0 入选）。
type Threshold struct {
	// Min 是最低保留分；<=0 时使用 DefaultMinScore。
	Min float64
}

func (n *Threshold) Name() string        { return "rerank.threshold" }
func (n *Threshold) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *Threshold) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	min := n.Min
	if min <= 0 {
		min = DefaultMinScore
	}

	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		if it.Score >= min {
			out = append(out, it)
		}
	}
	return out, nil
}
