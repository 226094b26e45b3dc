// Package engine 是推荐引擎的组装层：把召回/过滤/富化/排序/重排节点
// 编排成完整链路，并对外暴露推荐、相似、画像、行为接口。
//
// 引擎通过依赖注入构造（New），自身无全局状态，可在测试中并行创建多个实例。
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rushteam/acadmap/cache"
	"github.com/rushteam/acadmap/core"
	"github.com/rushteam/acadmap/feature"
	"github.com/rushteam/acadmap/filter"
	"github.com/rushteam/acadmap/geo"
	"github.com/rushteam/acadmap/pipeline"
	"github.com/rushteam/acadmap/rank"
	"github.com/rushteam/acadmap/recall"
	"github.com/rushteam/acadmap/rerank"
	"github.com/rushteam/acadmap/score"
)

// Options 是引擎的构造参数。Academies 与 Profiles 必需，
// 其余协作者缺省时对应能力退化（不影响核心推荐）。
type Options struct {
	// Config 为 nil 时使用 DefaultConfig。
	Config *Config

	Academies core.AcademyStore
	Reviews   core.ReviewStore
	Profiles  core.ProfileStore
	Histories core.HistoryStore
	Behaviors core.BehaviorStore

	// CacheStore 是结果缓存后端；nil 时每次请求都重新计算。
	CacheStore core.Store
}

// Engine 是推荐服务对象。
type Engine struct {
	cfg Config

	academies core.AcademyStore
	reviews   core.ReviewStore
	profiles  core.ProfileStore
	histories core.HistoryStore
	behaviors core.BehaviorStore

	cache *cache.Cache

	// kv 是缓存后端的扩展能力（有序集合），用于行为热度榜。
	// 后端不支持时为 nil，榜单能力退化。
	kv core.KeyValueStore
}

// New 构造引擎并校验依赖与配置。
func New(opts Options) (*Engine, error) {
	cfg := DefaultConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Academies == nil {
		return nil, core.NewValidationError(core.ModuleEngine, "academies", "academy store is required")
	}
	if opts.Profiles == nil {
		return nil, core.NewValidationError(core.ModuleEngine, "profiles", "profile store is required")
	}
	e := &Engine{
		cfg:       cfg,
		academies: opts.Academies,
		reviews:   opts.Reviews,
		profiles:  opts.Profiles,
		histories: opts.Histories,
		behaviors: opts.Behaviors,
		cache:     cache.New(opts.CacheStore, cfg.CacheTTL),
	}
	if kv, ok := opts.CacheStore.(core.KeyValueStore); ok {
		e.kv = kv
	}
	return e, nil
}

// RankedResult 是一条对外的推荐结果（缓存中存储的也是它的序列化形态）。
type RankedResult struct {
	AcademyID  string                      `json:"academy_id"`
	Name       string                      `json:"name"`
	Summary    map[string]any              `json:"summary"`
	Score      float64                     `json:"score"`
	Breakdown  map[string]core.FactorScore `json:"breakdown"`
	Reason     string                      `json:"reason"`
	DistanceKM *float64                    `json:"distance_km,omitempty"`
	Type       core.RecommendationType     `json:"type"`
}

// RecommendOptions 是画像推荐的可选参数。
type RecommendOptions struct {
	// Location 显式参照位置；nil 时退回画像基准位置。
	Location *core.GeoPoint

	// Subjects 请求级科目过滤；nil 时使用画像偏好科目。
	Subjects []core.Subject

	// Limit 返回条数，<=0 用默认值，上限 MaxLimit。
	Limit int

	// Type 推荐类型标记，缺省 comprehensive。
	Type core.RecommendationType
}

// Recommend 为用户生成画像加权推荐。
//
// 流程：画像 get-or-create → 缓存检查 → 未命中时执行
// 召回 → 距离复核 → 富化 → 加权排序 → 阈值 → Top-N，
// 结果池整体缓存；返回前截断到 limit，并写入推荐历史与行为日志。
func (e *Engine) Recommend(ctx context.Context, userID string, opts RecommendOptions) ([]RankedResult, error) {
	if userID == "" {
		return nil, core.NewValidationError(core.ModuleEngine, "user_id", "user_id is required")
	}
	if opts.Location != nil {
		if err := core.ValidateGeoPoint(opts.Location.Lat, opts.Location.Lon); err != nil {
			return nil, err
		}
	}
	limit := e.clampLimit(opts.Limit)

	profile, _, err := e.profiles.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create profile: %w", err)
	}

	recType := opts.Type
	if recType == "" {
		recType = core.RecTypeComprehensive
	}

	rctx := &core.RecommendContext{
		UserID:   userID,
		Profile:  profile,
		Location: opts.Location,
		Subjects: opts.Subjects,
		Type:     recType,
	}

	key := e.recommendKey(rctx)
	data, hit, err := e.cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]byte, error) {
		pool, err := e.runRecommendPipeline(ctx, rctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(pool)
	})
	if err != nil {
		return nil, err
	}

	var pool []RankedResult
	if err := json.Unmarshal(data, &pool); err != nil {
		return nil, fmt.Errorf("decode cached results: %w", err)
	}
	if len(pool) > limit {
		pool = pool[:limit]
	}

	// 新计算的结果落历史与行为流水；写入失败不影响返回。
	if !hit {
		e.recordHistory(ctx, userID, rctx, pool)
		e.recordSearch(ctx, userID, rctx)
	}
	return pool, nil
}

func (e *Engine) runRecommendPipeline(ctx context.Context, rctx *core.RecommendContext) ([]RankedResult, error) {
	p := &pipeline.Pipeline{
		Name: "recommend",
		Nodes: []pipeline.Node{
			&recall.Node{Source: &recall.GeoSource{Academies: e.academies, ScanLimit: e.cfg.ScanLimit}},
			&filter.Node{Filters: []filter.Filter{&filter.Distance{}}},
			&feature.EnrichNode{Academies: e.academies, Reviews: e.reviews},
			&rank.WeightedNode{},
			&rerank.Threshold{Min: e.cfg.MinScore},
			&rerank.Diversity{MaxPerKey: e.cfg.DiversityMaxPerKey},
			&rerank.TopN{N: e.cfg.MaxRecommendations},
		},
	}
	items, err := p.Run(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}
	return e.toRanked(items, rctx.Type), nil
}

// LocationOptions 是位置推荐的可选参数。
type LocationOptions struct {
	// RadiusKM 检索半径（km），<=0 用默认值，上限同画像 MaxDistance 上限。
	RadiusKM float64

	Subjects []core.Subject
	Limit    int
}

// RecommendByLocation 生成无画像的位置推荐：
// score = 0.6*距离分 + 0.4*评分分，阈值与缓存策略同画像推荐。
func (e *Engine) RecommendByLocation(ctx context.Context, lat, lon float64, opts LocationOptions) ([]RankedResult, error) {
	if err := core.ValidateGeoPoint(lat, lon); err != nil {
		return nil, err
	}
	radius := opts.RadiusKM
	if radius <= 0 {
		radius = e.cfg.DefaultRadiusKM
	}
	if radius > core.MaxDistanceMax {
		radius = core.MaxDistanceMax
	}
	limit := e.clampLimit(opts.Limit)

	rctx := &core.RecommendContext{
		Location: &core.GeoPoint{Lat: lat, Lon: lon},
		Radius:   radius,
		Subjects: opts.Subjects,
		Type:     core.RecTypeLocation,
	}

	key := cache.Key("loc", map[string]any{
		"lat":      lat,
		"lon":      lon,
		"radius":   radius,
		"subjects": subjectsParam(opts.Subjects),
	})
	data, _, err := e.cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]byte, error) {
		p := &pipeline.Pipeline{
			Name: "recommend_by_location",
			Nodes: []pipeline.Node{
				&recall.Node{Source: &recall.GeoSource{Academies: e.academies, ScanLimit: e.cfg.ScanLimit}},
				&filter.Node{Filters: []filter.Filter{&filter.Distance{}}},
				&feature.EnrichNode{Academies: e.academies, Reviews: e.reviews},
				&rank.LocationNode{},
				&rerank.Threshold{Min: e.cfg.MinScore},
				&rerank.TopN{N: e.cfg.MaxRecommendations},
			},
		}
		items, err := p.Run(ctx, rctx, nil)
		if err != nil {
			return nil, err
		}
		return json.Marshal(e.toRanked(items, core.RecTypeLocation))
	})
	if err != nil {
		return nil, err
	}

	var pool []RankedResult
	if err := json.Unmarshal(data, &pool); err != nil {
		return nil, fmt.Errorf("decode cached results: %w", err)
	}
	if len(pool) > limit {
		pool = pool[:limit]
	}
	return pool, nil
}

// SimilarityBreakdown 是相似度三个子分的明细。
type SimilarityBreakdown struct {
	Subject  float64 `json:"subject"`
	Location float64 `json:"location"`
	Rating   float64 `json:"rating"`
}

// SimilarityResult 是一条对外的相似推荐结果。
type SimilarityResult struct {
	AcademyID  string              `json:"academy_id"`
	Name       string              `json:"name"`
	Summary    map[string]any      `json:"summary"`
	Similarity float64             `json:"similarity"`
	Breakdown  SimilarityBreakdown `json:"breakdown"`
}

// SimilarAcademies 返回与锚点实体最相似的学院。
//
// 候选限定为与锚点共享至少一个科目的实体；锚点有坐标时再限定 10km 内。
// 相似度低于门槛（默认 50）的剔除，按相似度降序（同分 ID 升序）截断。
// 锚点不存在返回 NOT_FOUND。
func (e *Engine) SimilarAcademies(ctx context.Context, academyID string, limit int) ([]SimilarityResult, error) {
	anchor, err := e.academies.GetAcademy(ctx, academyID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = e.cfg.DefaultSimilarLimit
	}
	if limit > e.cfg.MaxLimit {
		limit = e.cfg.MaxLimit
	}

	q := core.AcademyQuery{
		Subjects:  anchor.Subjects.Slice(),
		ExcludeID: anchor.ID,
		Limit:     e.cfg.SimilarScanLimit,
	}
	if anchor.Location != nil {
		box := geo.BoundingBox(anchor.Location.Lat, anchor.Location.Lon, score.SimilarityRadiusKM)
		q.Box = &box
	}
	candidates, err := e.academies.FindAcademies(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}

	anchorStats := e.reviewStats(ctx, anchor.ID)
	results := make([]SimilarityResult, 0, len(candidates))
	for _, cand := range candidates {
		if cand == nil || cand.ID == anchor.ID {
			continue
		}
		sim := score.Similarity(anchor, cand, anchorStats, e.reviewStats(ctx, cand.ID))
		if sim.Combined < e.cfg.SimilarMinScore {
			continue
		}
		results = append(results, SimilarityResult{
			AcademyID:  cand.ID,
			Name:       cand.Name,
			Summary:    cand.Summary(),
			Similarity: sim.Combined,
			Breakdown: SimilarityBreakdown{
				Subject:  sim.Subject,
				Location: sim.Location,
				Rating:   sim.Rating,
			},
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].AcademyID < results[j].AcademyID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// GetOrCreateProfile 读取画像，不存在则以默认值创建。
func (e *Engine) GetOrCreateProfile(ctx context.Context, userID string) (*core.PreferenceProfile, bool, error) {
	if userID == "" {
		return nil, false, core.NewValidationError(core.ModuleEngine, "user_id", "user_id is required")
	}
	return e.profiles.GetOrCreate(ctx, userID)
}

// UpdateProfile 对画像应用部分更新：仅修改补丁中设置的字段，整体重新校验。
// 校验失败返回字段级 INVALID_INPUT，存储不被修改。
func (e *Engine) UpdateProfile(ctx context.Context, userID string, patch core.ProfilePatch) (*core.PreferenceProfile, error) {
	if userID == "" {
		return nil, core.NewValidationError(core.ModuleEngine, "user_id", "user_id is required")
	}
	profile, _, err := e.profiles.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create profile: %w", err)
	}
	next, err := profile.Apply(patch)
	if err != nil {
		return nil, err
	}
	if err := e.profiles.Update(ctx, next); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return next, nil
}

// ResetProfile 按预设重置画像权重（balanced / distance_first / ...）。
func (e *Engine) ResetProfile(ctx context.Context, userID string, preset core.ProfilePreset) (*core.PreferenceProfile, error) {
	if userID == "" {
		return nil, core.NewValidationError(core.ModuleEngine, "user_id", "user_id is required")
	}
	profile, _, err := e.profiles.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get or create profile: %w", err)
	}
	if err := profile.ApplyPreset(preset); err != nil {
		return nil, err
	}
	if err := e.profiles.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return profile, nil
}

// RecordEngagement 回写推荐历史的互动标志（点击/收藏/咨询/报名）。
func (e *Engine) RecordEngagement(ctx context.Context, historyID string, kind core.EngagementKind) error {
	if e.histories == nil {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeUnavailable, "history store not configured")
	}
	return e.histories.UpdateEngagement(ctx, historyID, kind)
}

// RecordFeedback 回写推荐历史的显式反馈。
func (e *Engine) RecordFeedback(ctx context.Context, historyID string, fb core.Feedback) error {
	if e.histories == nil {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeUnavailable, "history store not configured")
	}
	return e.histories.UpdateFeedback(ctx, historyID, fb)
}

// CacheStats 返回缓存命中/未命中计数。
func (e *Engine) CacheStats(ctx context.Context) (hits, misses int64) {
	return e.cache.Stats(ctx)
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		return e.cfg.DefaultLimit
	}
	if limit > e.cfg.MaxLimit {
		return e.cfg.MaxLimit
	}
	return limit
}

// recommendKey 派生画像推荐的缓存 key。画像更新时间参与 key，
// 使画像变更后的请求自然落到新 key（无需主动失效）。
func (e *Engine) recommendKey(rctx *core.RecommendContext) string {
	params := map[string]any{
		"user": rctx.UserID,
		"type": string(rctx.Type),
	}
	if rctx.Profile != nil {
		params["profile_rev"] = rctx.Profile.UpdatedAt.UnixNano()
	}
	if ref := rctx.RefLocation(); ref != nil {
		params["lat"] = ref.Lat
		params["lon"] = ref.Lon
	}
	if subjects := subjectsParam(rctx.Subjects); subjects != nil {
		params["subjects"] = subjects
	}
	return cache.Key("rec", params)
}

// subjectsParam 把科目列表转成确定性的 key 片段；空列表返回 nil（丢弃参数）。
func subjectsParam(subjects []core.Subject) any {
	if len(subjects) == 0 {
		return nil
	}
	set := core.NewSubjectSet(subjects...)
	return strings.Join(set.Strings(), ",")
}

func (e *Engine) toRanked(items []*core.Item, recType core.RecommendationType) []RankedResult {
	results := make([]RankedResult, 0, len(items))
	for _, it := range items {
		if it == nil || it.Academy == nil {
			continue
		}
		r := RankedResult{
			AcademyID:  it.ID,
			Name:       it.Academy.Name,
			Summary:    it.Academy.Summary(),
			Score:      score.Round2(it.Score),
			Breakdown:  it.Breakdown,
			Reason:     score.Reason(score.Result{Total: it.Score, Breakdown: it.Breakdown}),
			DistanceKM: it.DistanceKM,
			Type:       recType,
		}
		results = append(results, r)
	}
	return results
}

// recordHistory 批量写入推荐历史。已消失的实体跳过；写入失败不上抛。
func (e *Engine) recordHistory(ctx context.Context, userID string, rctx *core.RecommendContext, results []RankedResult) {
	if e.histories == nil || len(results) == 0 {
		return
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.AcademyID)
	}
	existing, err := e.academies.BatchGetAcademies(ctx, ids)
	if err != nil {
		return
	}

	now := time.Now()
	records := make([]*core.RecommendationHistory, 0, len(results))
	for _, r := range results {
		if _, ok := existing[r.AcademyID]; !ok {
			continue
		}
		records = append(records, &core.RecommendationHistory{
			UserID:         userID,
			AcademyID:      r.AcademyID,
			Score:          r.Score,
			Breakdown:      r.Breakdown,
			Reason:         r.Reason,
			Type:           r.Type,
			SearchLocation: rctx.RefLocation(),
			CreatedAt:      now,
		})
	}
	if len(records) == 0 {
		return
	}
	_ = e.histories.BatchCreate(ctx, records)
}

// recordSearch 记录一次搜索行为（非自适应动作，不触发画像调整）。
func (e *Engine) recordSearch(ctx context.Context, userID string, rctx *core.RecommendContext) {
	if e.behaviors == nil {
		return
	}
	_ = e.behaviors.Create(ctx, &core.BehaviorLog{
		UserID:   userID,
		Action:   core.ActionSearch,
		Location: rctx.RefLocation(),
		Payload: map[string]any{
			"type": string(rctx.Type),
		},
		CreatedAt: time.Now(),
	})
}

func (e *Engine) reviewStats(ctx context.Context, academyID string) core.ReviewStats {
	if e.reviews == nil {
		return core.ReviewStats{}
	}
	stats, err := e.reviews.Stats(ctx, academyID)
	if err != nil {
		return core.ReviewStats{}
	}
	return stats
}
