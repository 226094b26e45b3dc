package engine

import (
	"context"
	"testing"

	"github.com/rushteam/acadmap/core"
	"github.com/rushteam/acadmap/store"
)

// 测试夹具：两个学院的典型场景。
//   - A (37.51,127.01)：开数学，评分 4.5（10 条）
//   - B (37.50,127.00)：不开数学，评分 5.0（5 条）
//
// 画像偏好 math、基准位置 (37.50,127.00)、max_distance 5。
type fixture struct {
	engine    *Engine
	academies *store.MemoryAcademyStore
	reviews   *store.MemoryReviewStore
	profiles  *store.MemoryProfileStore
	histories *store.MemoryHistoryStore
	behaviors *store.MemoryBehaviorStore
	kv        *store.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		academies: store.NewMemoryAcademyStore(),
		reviews:   store.NewMemoryReviewStore(),
		profiles:  store.NewMemoryProfileStore(),
		histories: store.NewMemoryHistoryStore(),
		behaviors: store.NewMemoryBehaviorStore(),
		kv:        store.NewMemoryStore(),
	}
	t.Cleanup(func() { f.kv.Close() })

	eng, err := New(Options{
		Academies:  f.academies,
		Reviews:    f.reviews,
		Profiles:   f.profiles,
		Histories:  f.histories,
		Behaviors:  f.behaviors,
		CacheStore: f.kv,
	})
	if err != nil {
		t.Fatalf("构造引擎失败: %v", err)
	}
	f.engine = eng
	return f
}

func price(v float64) *float64 { return &v }

func (f *fixture) seedTwoAcademies() {
	f.academies.Put(&core.Academy{
		ID:       "a",
		Name:     "Academy A",
		Location: &core.GeoPoint{Lat: 37.51, Lon: 127.01},
		Subjects: core.NewSubjectSet(core.SubjectMath),
		Price:    price(400000),
	})
	f.academies.Put(&core.Academy{
		ID:       "b",
		Name:     "Academy B",
		Location: &core.GeoPoint{Lat: 37.50, Lon: 127.00},
		Subjects: core.NewSubjectSet(core.SubjectEnglish),
		Price:    price(400000),
	})
	for i := 0; i < 10; i++ {
		f.reviews.Add("a", 4.5)
	}
	for i := 0; i < 5; i++ {
		f.reviews.Add("b", 5.0)
	}
}

func (f *fixture) seedProfile(t *testing.T, userID string) {
	t.Helper()
	base := core.GeoPoint{Lat: 37.50, Lon: 127.00}
	_, err := f.engine.UpdateProfile(context.Background(), userID, core.ProfilePatch{
		PreferredSubjects: []core.Subject{core.SubjectMath},
		BaseLocation:      &base,
	})
	if err != nil {
		t.Fatalf("准备画像失败: %v", err)
	}
}

func TestRecommendEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.seedTwoAcademies()
	f.seedProfile(t, "u1")
	ctx := context.Background()

	// B 不开数学，科目过滤只放行 A；把请求科目清空以同时召回 B
	results, err := f.engine.Recommend(ctx, "u1", RecommendOptions{
		Subjects: []core.Subject{core.SubjectMath, core.SubjectEnglish},
	})
	if err != nil {
		t.Fatalf("Recommend 失败: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("两个实体都应出现在结果中, got %d", len(results))
	}

	var a, b *RankedResult
	for i := range results {
		switch results[i].AcademyID {
		case "a":
			a = &results[i]
		case "b":
			b = &results[i]
		}
	}
	if a == nil || b == nil {
		t.Fatalf("结果缺少实体: %+v", results)
	}

	if _, ok := a.Breakdown["subject_match"]; !ok {
		t.Fatal("A 应有 subject_match 因子加成")
	}
	if _, ok := b.Breakdown["subject_match"]; ok {
		t.Fatal("B 不开数学，不应有 subject_match 因子")
	}
	if a.Score <= b.Score {
		t.Fatalf("科目匹配应使 A 总分高于 B: a=%.2f b=%.2f", a.Score, b.Score)
	}
	if results[0].AcademyID != "a" {
		t.Fatalf("A 应排在首位, got %s", results[0].AcademyID)
	}
	if a.Reason == "" || b.Reason == "" {
		t.Fatal("推荐理由不应为空")
	}
	if a.DistanceKM == nil {
		t.Fatal("A 应携带精确距离")
	}
}

func TestRecommendCacheHit(t *testing.T) {
	f := newFixture(t)
	f.seedTwoAcademies()
	f.seedProfile(t, "u1")
	ctx := context.Background()

	first, err := f.engine.Recommend(ctx, "u1", RecommendOptions{})
	if err != nil {
		t.Fatal(err)
	}

	// 第二次请求命中缓存：不新增历史
	histBefore, _ := f.histories.ListByUser(ctx, "u1", 0)
	second, err := f.engine.Recommend(ctx, "u1", RecommendOptions{})
	if err != nil {
		t.Fatal(err)
	}
	histAfter, _ := f.histories.ListByUser(ctx, "u1", 0)

	if len(first) != len(second) {
		t.Fatalf("缓存命中结果应一致: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].AcademyID != second[i].AcademyID || first[i].Score != second[i].Score {
			t.Fatalf("缓存命中结果应一致: %+v vs %+v", first[i], second[i])
		}
	}
	if len(histAfter) != len(histBefore) {
		t.Fatal("缓存命中不应新增推荐历史")
	}

	hits, misses := f.engine.CacheStats(ctx)
	if hits < 1 || misses < 1 {
		t.Fatalf("命中计数异常: hits=%d misses=%d", hits, misses)
	}
}

func TestRecommendWritesHistory(t *testing.T) {
	f := newFixture(t)
	f.seedTwoAcademies()
	f.seedProfile(t, "u1")
	ctx := context.Background()

	results, err := f.engine.Recommend(ctx, "u1", RecommendOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("应有推荐结果")
	}

	hist, err := f.histories.ListByUser(ctx, "u1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != len(results) {
		t.Fatalf("历史条数应等于返回条数: %d vs %d", len(hist), len(results))
	}
	for _, h := range hist {
		if h.UserID != "u1" || h.Score <= 0 || h.Reason == "" {
			t.Fatalf("历史记录不完整: %+v", h)
		}
		if h.SearchLocation == nil {
			t.Fatal("历史应携带搜索位置快照")
		}
	}

	// 行为流水里应有一条 search
	logs, _ := f.behaviors.ListSince(ctx, "u1", hist[0].CreatedAt.AddDate(0, 0, -1))
	found := false
	for _, l := range logs {
		if l.Action == core.ActionSearch {
			found = true
		}
	}
	if !found {
		t.Fatal("应记录 search 行为")
	}
}

func TestRecommendLimitClamp(t *testing.T) {
	f := newFixture(t)
	f.seedTwoAcademies()
	f.seedProfile(t, "u1")
	ctx := context.Background()

	cases := []struct {
		name  string
		limit int
		most  int
	}{
		{"默认值", 0, 10},
		{"显式 1", 1, 1},
		{"超上限钳制", 999, 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			results, err := f.engine.Recommend(ctx, "u1", RecommendOptions{Limit: tc.limit})
			if err != nil {
				t.Fatal(err)
			}
			if len(results) > tc.most {
				t.Fatalf("结果数 %d 超出上限 %d", len(results), tc.most)
			}
		})
	}
}

func TestRecommendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Recommend(ctx, "", RecommendOptions{}); !core.IsInvalidInput(err) {
		t.Fatalf("空 user_id 应返回 INVALID_INPUT, got %v", err)
	}
	bad := &core.GeoPoint{Lat: 91, Lon: 0}
	if _, err := f.engine.Recommend(ctx, "u1", RecommendOptions{Location: bad}); !core.IsInvalidInput(err) {
		t.Fatalf("非法坐标应返回 INVALID_INPUT, got %v", err)
	}
}

func TestRecommendByLocation(t *testing.T) {
	f := newFixture(t)
	f.seedTwoAcademies()
	ctx := context.Background()

	results, err := f.engine.RecommendByLocation(ctx, 37.50, 127.00, LocationOptions{RadiusKM: 5})
	if err != nil {
		t.Fatalf("RecommendByLocation 失败: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("半径内两个实体都应返回, got %d", len(results))
	}
	// B 在圆心：距离分 100，0.6*100+0.4*100=100 > A
	if results[0].AcademyID != "b" {
		t.Fatalf("更近且高分的 B 应排在首位, got %s", results[0].AcademyID)
	}
	for _, r := range results {
		if r.Type != core.RecTypeLocation {
			t.Fatalf("类型应为 location: %s", r.Type)
		}
		if r.DistanceKM == nil {
			t.Fatal("位置推荐应携带精确距离")
		}
	}

	if _, err := f.engine.RecommendByLocation(ctx, 91, 0, LocationOptions{}); !core.IsInvalidInput(err) {
		t.Fatalf("非法坐标应返回 INVALID_INPUT, got %v", err)
	}
}

func TestSimilarAcademies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 三个同科目近邻 + 一个无关实体
	f.academies.Put(&core.Academy{
		ID: "anchor", Name: "Anchor",
		Location: &core.GeoPoint{Lat: 37.50, Lon: 127.00},
		Subjects: core.NewSubjectSet(core.SubjectMath, core.SubjectEnglish),
	})
	f.academies.Put(&core.Academy{
		ID: "near-same", Name: "NearSame",
		Location: &core.GeoPoint{Lat: 37.505, Lon: 127.005},
		Subjects: core.NewSubjectSet(core.SubjectMath, core.SubjectEnglish),
	})
	f.academies.Put(&core.Academy{
		ID: "near-partial", Name: "NearPartial",
		Location: &core.GeoPoint{Lat: 37.51, Lon: 127.01},
		Subjects: core.NewSubjectSet(core.SubjectMath, core.SubjectScience),
	})
	f.academies.Put(&core.Academy{
		ID: "unrelated", Name: "Unrelated",
		Location: &core.GeoPoint{Lat: 37.50, Lon: 127.00},
		Subjects: core.NewSubjectSet(core.SubjectArts),
	})

	results, err := f.engine.SimilarAcademies(ctx, "anchor", 0)
	if err != nil {
		t.Fatalf("SimilarAcademies 失败: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("应有相似结果")
	}
	for _, r := range results {
		if r.AcademyID == "anchor" {
			t.Fatal("锚点不应出现在自身的相似列表里")
		}
		if r.AcademyID == "unrelated" {
			t.Fatal("无共享科目的实体不应出现")
		}
		if r.Similarity < 50 {
			t.Fatalf("低于门槛的结果不应返回: %+v", r)
		}
	}
	if results[0].AcademyID != "near-same" {
		t.Fatalf("科目完全一致的近邻应排第一, got %s", results[0].AcademyID)
	}
	if results[0].Breakdown.Subject != 100 {
		t.Fatalf("科目子分应为 100: %+v", results[0].Breakdown)
	}

	if _, err := f.engine.SimilarAcademies(ctx, "missing", 5); !core.IsNotFound(err) {
		t.Fatalf("锚点不存在应返回 NOT_FOUND, got %v", err)
	}
}

func TestThresholdBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 构造一个只有"评分因子"可用的画像/实体组合，精确控制总分。
	// 单因子可用时 total = 子分 = avg/5*100。
	// avg=1.4995 → 29.99（出局）；avg=1.5 → 30.0（入选）。
	f.academies.Put(&core.Academy{ID: "out", Name: "Out"})
	f.academies.Put(&core.Academy{ID: "in", Name: "In"})
	for i := 0; i < 2; i++ {
		f.reviews.Add("out", 1.4995)
		f.reviews.Add("in", 1.5)
	}
	// min_rating 调到下限，保证评分因子"合格"而非只进分母
	minRating := 1.0
	_, err := f.engine.UpdateProfile(ctx, "u1", core.ProfilePatch{
		MinRating: &minRating,
	})
	if err != nil {
		t.Fatal(err)
	}

	results, err := f.engine.Recommend(ctx, "u1", RecommendOptions{})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.AcademyID == "out" {
			t.Fatalf("29.99 分的实体应被阈值剔除: %+v", r)
		}
	}
	found := false
	for _, r := range results {
		if r.AcademyID == "in" {
			found = true
			if r.Score != 30 {
				t.Fatalf("边界分应为 30.0, got %.2f", r.Score)
			}
		}
	}
	if !found {
		t.Fatal("恰好 30.0 分的实体应被保留（闭区间）")
	}
}

func TestUpdateProfileRejectsInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	weight := 9
	_, err := f.engine.UpdateProfile(ctx, "u1", core.ProfilePatch{DistanceWeight: &weight})
	if !core.IsInvalidInput(err) {
		t.Fatalf("越界权重应返回 INVALID_INPUT, got %v", err)
	}

	// 存储中的画像不应被污染
	p, _, err := f.engine.GetOrCreateProfile(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if p.DistanceWeight != core.DefaultDistanceWeight {
		t.Fatalf("失败的更新不应落库: %d", p.DistanceWeight)
	}
}

func TestResetProfilePreset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.engine.ResetProfile(ctx, "u1", core.PresetDistanceFirst)
	if err != nil {
		t.Fatal(err)
	}
	if p.DistanceWeight != 5 {
		t.Fatalf("distance_first 预设应置距离权重为 5, got %d", p.DistanceWeight)
	}
	if _, err := f.engine.ResetProfile(ctx, "u1", "no-such-preset"); !core.IsInvalidInput(err) {
		t.Fatalf("未知预设应返回 INVALID_INPUT, got %v", err)
	}
}

func TestRecordEngagementAndFeedback(t *testing.T) {
	f := newFixture(t)
	f.seedTwoAcademies()
	f.seedProfile(t, "u1")
	ctx := context.Background()

	if _, err := f.engine.Recommend(ctx, "u1", RecommendOptions{}); err != nil {
		t.Fatal(err)
	}
	hist, _ := f.histories.ListByUser(ctx, "u1", 1)
	if len(hist) == 0 {
		t.Fatal("应有历史记录")
	}

	if err := f.engine.RecordEngagement(ctx, hist[0].ID, core.EngagementBookmark); err != nil {
		t.Fatalf("RecordEngagement 失败: %v", err)
	}
	if err := f.engine.RecordFeedback(ctx, hist[0].ID, core.FeedbackLike); err != nil {
		t.Fatalf("RecordFeedback 失败: %v", err)
	}

	updated, _ := f.histories.ListByUser(ctx, "u1", 1)
	if !updated[0].Bookmarked {
		t.Fatal("收藏标志未回写")
	}
	if updated[0].Feedback == nil || *updated[0].Feedback != core.FeedbackLike {
		t.Fatal("反馈未回写")
	}
}

func TestSimilarAnchorDoesNotConsumeScanSlot(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"s1", "s2", "s3"} {
		f.academies.Put(&core.Academy{
			ID: id, Name: "Academy " + id,
			Location: &core.GeoPoint{Lat: 37.50, Lon: 127.00},
			Subjects: core.NewSubjectSet(core.SubjectMath),
		})
	}

	cfg := DefaultConfig()
	cfg.SimilarScanLimit = 2
	eng, err := New(Options{
		Config:    &cfg,
		Academies: f.academies,
		Reviews:   f.reviews,
		Profiles:  f.profiles,
	})
	if err != nil {
		t.Fatal(err)
	}

	// 扫描上限为 2 时锚点不占名额：s2/s3 都应进入候选
	results, err := eng.SimilarAcademies(context.Background(), "s1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("应返回 2 个相似实体, got %d: %+v", len(results), results)
	}
	if results[0].AcademyID != "s2" || results[1].AcademyID != "s3" {
		t.Fatalf("同分应按 ID 升序: %+v", results)
	}
}
