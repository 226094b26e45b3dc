package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/rushteam/acadmap/core"
)

func itemAt(id string, lat, lon float64) *core.Item {
	it := core.NewItem(id)
	it.Academy = &core.Academy{
		ID:       id,
		Location: &core.GeoPoint{Lat: lat, Lon: lon},
	}
	return it
}

func TestDistanceFilter(t *testing.T) {
	f := &Distance{}
	ctx := context.Background()
	rctx := &core.RecommendContext{
		Location: &core.GeoPoint{Lat: 37.50, Lon: 127.00},
		Radius:   5,
	}

	cases := []struct {
		name   string
		item   *core.Item
		remove bool
	}{
		{"半径内", itemAt("near", 37.51, 127.01), false},
		{"半径外（盒角误报）", itemAt("far", 37.54, 127.05), true},
		{"无坐标放行", core.NewItem("no-coords"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.ShouldFilter(ctx, rctx, tc.item)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.remove {
				t.Fatalf("ShouldFilter = %v, want %v", got, tc.remove)
			}
		})
	}

	// 精确距离应被写回，供下游打分复用
	near := itemAt("near", 37.51, 127.01)
	if _, err := f.ShouldFilter(ctx, rctx, near); err != nil {
		t.Fatal(err)
	}
	if near.DistanceKM == nil || *near.DistanceKM <= 0 {
		t.Fatal("应写回精确距离")
	}
}

func TestDistanceFilterNoReference(t *testing.T) {
	f := &Distance{}
	got, err := f.ShouldFilter(context.Background(), &core.RecommendContext{}, itemAt("a", 37.5, 127.0))
	if err != nil {
		t.Fatal(err)
	}
	if got {
		t.Fatal("无参照位置时不应过滤")
	}
}

func TestRuleFilter(t *testing.T) {
	ctx := context.Background()
	rctx := &core.RecommendContext{}

	expensive := core.NewItem("a")
	p := 800000.0
	expensive.Academy = &core.Academy{ID: "a", Price: &p, Subjects: core.NewSubjectSet(core.SubjectMath)}

	rule, err := NewRule(`academy.price != null && academy.price > 500000.0`)
	if err != nil {
		t.Fatalf("规则编译失败: %v", err)
	}
	got, err := rule.ShouldFilter(ctx, rctx, expensive)
	if err != nil {
		t.Fatal(err)
	}
	if !got {
		t.Fatal("超预算实体应被规则剔除")
	}

	subjectRule, err := NewRule(`!("math" in academy.subjects)`)
	if err != nil {
		t.Fatal(err)
	}
	got, err = subjectRule.ShouldFilter(ctx, rctx, expensive)
	if err != nil {
		t.Fatal(err)
	}
	if got {
		t.Fatal("开设数学的实体不应被剔除")
	}

	if _, err := NewRule(`academy.price >`); err == nil {
		t.Fatal("语法错误应在构建期暴露")
	}
}

// errFilter 总是报错，验证 Node 的兜底放行。
type errFilter struct{}

func (f *errFilter) Name() string { return "filter.err" }
func (f *errFilter) ShouldFilter(context.Context, *core.RecommendContext, *core.Item) (bool, error) {
	return true, errors.New("boom")
}

func TestFilterNodeSkipsBrokenFilter(t *testing.T) {
	node := &Node{Filters: []Filter{&errFilter{}}}
	items := []*core.Item{core.NewItem("a")}

	out, err := node.Process(context.Background(), &core.RecommendContext{}, items)
	if err != nil {
		t.Fatalf("过滤器错误不应中断链路: %v", err)
	}
	if len(out) != 1 {
		t.Fatal("报错的过滤器应按放行处理")
	}
}

func TestFilterNodeLabelsFiltered(t *testing.T) {
	rctx := &core.RecommendContext{
		Location: &core.GeoPoint{Lat: 37.50, Lon: 127.00},
		Radius:   1,
	}
	far := itemAt("far", 37.60, 127.10)
	node := &Node{Filters: []Filter{&Distance{}}}

	out, err := node.Process(context.Background(), rctx, []*core.Item{far})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatal("超半径实体应被剔除")
	}
	if lbl, ok := far.Labels["filtered"]; !ok || lbl.Source != "filter.distance" {
		t.Fatalf("被剔除的实体应携带过滤原因标签: %+v", far.Labels)
	}
}
