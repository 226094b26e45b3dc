package rerank

import (
	"context"

	"github.com/rushteam/acadmap/core"
	"github.com/rushteam/acadmap/pipeline"
)

// Diversity 是科目多样性重排节点：限制单一主打科目在结果页的占比，
// 避免整页都是同一类学院。
//
// 规则：按排序顺序扫描，每个科目组合（实体科目集合的规范化串）最多
// 保留 MaxPerKey 个；无科目的实体不受限制。
type Diversity struct {
	// MaxPerKey 是同一科目组合的保留上限；<=0 表示不限制（节点退化为直通）。
	MaxPerKey int
}

func (n *Diversity) Name() string        { return "rerank.diversity" }
func (n *Diversity) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.MaxPerKey <= 0 || len(items) == 0 {
		return items, nil
	}

	counts := make(map[string]int, 16)
	out := make([]*core.Item, 0, len(items))

	for _, it := range items {
		if it == nil {
			continue
		}
		key := subjectKey(it)
		if key == "" {
			out = append(out, it)
			continue
		}
		if counts[key] >= n.MaxPerKey {
			continue
		}
		counts[key]++
		out = append(out, it)
	}

	return out, nil
}

func subjectKey(it *core.Item) string {
	if it.Academy == nil || it.Academy.Subjects.Len() == 0 {
		return ""
	}
	key := ""
	for _, s := range it.Academy.Subjects.Slice() {
		if key != "" {
			key += ","
		}
		key += string(s)
	}
	return key
}
