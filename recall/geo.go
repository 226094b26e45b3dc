package recall

import (
	"context"

	"github.com/rushteam/acadmap/core"
	"github.com/rushteam/acadmap/geo"
	"github.com/rushteam/acadmap/pipeline"
	"github.com/rushteam/acadmap/pkg/utils"
)

// DefaultScanLimit 是候选扫描上限：打分是 O(候选 × 因子) 且无法提前退出，
// 用上限兜住最坏时延。
const DefaultScanLimit = 100

// GeoSource 是地理 + 科目召回源：
//   - 科目过滤：开设任一偏好/请求科目即命中（OR）
//   - 地理粗过滤：以参照位置为中心、半径为画像 MaxDistance（或请求 Radius）
//     的边界盒；盒内角部误报由下游 filter.Distance 精确复核
//   - 扫描上限：ScanLimit（<=0 用 DefaultScanLimit）
//
// 参照位置缺失时退化为纯科目召回（不做地理过滤）。
type GeoSource struct {
	Academies core.AcademyStore

	// ScanLimit 是单次召回的实体扫描上限。
	ScanLimit int
}

func (s *GeoSource) Name() string { return "recall.geo" }

func (s *GeoSource) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if s.Academies == nil || rctx == nil {
		return nil, nil
	}

	limit := s.ScanLimit
	if limit <= 0 {
		limit = DefaultScanLimit
	}

	q := core.AcademyQuery{
		Subjects: rctx.FilterSubjects(),
		Limit:    limit,
	}

	if ref := rctx.RefLocation(); ref != nil {
		radius := rctx.Radius
		if radius <= 0 && rctx.Profile != nil {
			radius = rctx.Profile.MaxDistance
		}
		if radius > 0 {
			box := geo.BoundingBox(ref.Lat, ref.Lon, radius)
			q.Box = &box
		}
	}

	academies, err := s.Academies.FindAcademies(ctx, q)
	if err != nil {
		return nil, err
	}

	items := make([]*core.Item, 0, len(academies))
	for _, a := range academies {
		if a == nil {
			continue
		}
		item := core.NewItem(a.ID)
		item.Academy = a
		item.PutLabel("recall_source", utils.Label{Value: s.Name(), Source: "recall"})
		items = append(items, item)
	}
	return items, nil
}

// Node 把召回源包装为 Pipeline 的第一个节点。
type Node struct {
	Source Source
}

func (n *Node) Name() string {
	if n.Source != nil {
		return n.Source.Name()
	}
	return "recall"
}

func (n *Node) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Node) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if n.Source == nil {
		return nil, nil
	}
	return n.Source.Recall(ctx, rctx)
}
