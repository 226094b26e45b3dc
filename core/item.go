package core

import "github.com/rushteam/acadmap/pkg/utils"

// FactorScore 是单个打分因子的明细：实测值、0-100 子分、加权后贡献。
type FactorScore struct {
	Actual        float64 `json:"actual"`         // 实测值（距离 km / 价格 / 平均分等）
	Score         float64 `json:"score"`          // 0-100 子分
	WeightedScore float64 `json:"weighted_score"` // score * weight/5
	ReviewCount   int     `json:"review_count,omitempty"`
}

// Item 是推荐链路中的统一承载结构：实体、分数、打分明细、标签。
// Labels 用于解释与策略驱动；Score 用于排序决策。
type Item struct {
	ID    string
	Score float64

	// Academy 由召回/富化阶段挂载，后续节点直接消费。
	Academy *Academy

	// Breakdown 由打分节点写入（factor -> 明细）。
	Breakdown map[string]FactorScore

	// DistanceKM 是与参照位置的精确距离；参照或实体坐标缺失时为 nil。
	DistanceKM *float64

	Meta   map[string]any
	Labels map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:        id,
		Breakdown: make(map[string]FactorScore),
		Meta:      make(map[string]any),
		Labels:    make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}
