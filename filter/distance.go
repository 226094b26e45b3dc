package filter

import (
	"context"

	"github.com/rushteam/acadmap/core"
	"github.com/rushteam/acadmap/geo"
)

// Distance 是精确距离过滤器：对边界盒粗过滤后的候选做 Haversine 复核，
// 剔除盒角误报。顺手把精确距离写回 item.DistanceKM，下游打分不用重复计算。
//
// 半径取请求 Radius，缺省退回画像 MaxDistance。参照位置缺失时不过滤
// （纯科目召回场景）。
type Distance struct{}

func (f *Distance) Name() string { return "filter.distance" }

func (f *Distance) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if rctx == nil || item == nil {
		return false, nil
	}
	ref := rctx.RefLocation()
	if ref == nil {
		return false, nil
	}

	radius := rctx.Radius
	if radius <= 0 && rctx.Profile != nil {
		radius = rctx.Profile.MaxDistance
	}
	if radius <= 0 {
		return false, nil
	}

	// 没有坐标的实体放行：距离因子在打分阶段自然跳过，
	// 这里只负责剔除"确定超出半径"的候选。
	if item.Academy == nil || item.Academy.Location == nil {
		return false, nil
	}

	d := geo.DistanceBetween(*ref, *item.Academy.Location)
	item.DistanceKM = &d

	return d > radius, nil
}
