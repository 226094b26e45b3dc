// Package rerank 提供排序后的结果调优：阈值截断、Top-N、科目多样性。
package rerank

import (
	"context"

	"github.com/rushteam/acadmap/core"
	"github.com/rushteam/acadmap/pipeline"
)

// TopN 是一个 Top-N 截断节点，用于在排序后截取前 N 个物品。
// 通常在阈值过滤之后使用，把结果池控制在缓存/返回的上限内。
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &rank.WeightedNode{},          // 排序
//	        &rerank.Threshold{Min: 30},    // 最低分门槛
//	        &rerank.TopN{N: 20},           // 截取 Top 20
//	    },
//	}
type TopN struct {
	// N 要保留的物品数量（Top N）
	// 如果 N <= 0，则返回所有物品（不截断）
	N int
}

func (n *TopN) Name() string        { return "rerank.topn" }
func (n *TopN) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *TopN) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.N <= 0 || len(items) <= n.N {
		return items, nil
	}
	return items[:n.N], nil
}
