package engine

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rushteam/acadmap/core"
	"github.com/rushteam/acadmap/geo"
)

// 画像自动调整的参数。
const (
	// adaptTopSubjects 偏好科目保留的 Top-N
	adaptTopSubjects = 5

	// adaptDistanceFactor / adaptDistanceCapKM：maxDistance = min(均值*1.5, 10)
	adaptDistanceFactor = 1.5
	adaptDistanceCapKM  = 10.0

	// adaptPriceFactor：maxPrice = 均值*1.2
	adaptPriceFactor = 1.2
)

// 行为热度榜在 KV 后端的 key。
const (
	engagementBoardKey    = "acadmap:board:engagement"
	engagementCountPrefix = "acadmap:board:academy:"
)

// BehaviorOptions 是行为记录的可选参数。
type BehaviorOptions struct {
	AcademyID string
	Location  *core.GeoPoint
	SessionID string
	Payload   map[string]any
}

// RecordBehavior 记录一条用户行为，并在动作属于自适应集合
// （bookmark/view/contact）时触发画像自动调整。
//
// 调整是同步但隔离的：调整失败只影响画像，不影响行为记录的成功返回。
func (e *Engine) RecordBehavior(ctx context.Context, userID string, action core.ActionType, opts BehaviorOptions) error {
	if userID == "" {
		return core.NewValidationError(core.ModuleEngine, "user_id", "user_id is required")
	}
	if !core.ValidActionType(action) {
		return core.NewValidationError(core.ModuleEngine, "action", "unknown action: %q", string(action))
	}
	if e.behaviors == nil {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeUnavailable, "behavior store not configured")
	}

	log := &core.BehaviorLog{
		UserID:    userID,
		AcademyID: opts.AcademyID,
		Action:    action,
		Location:  opts.Location,
		SessionID: opts.SessionID,
		Payload:   opts.Payload,
		CreatedAt: time.Now(),
	}
	if err := e.behaviors.Create(ctx, log); err != nil {
		return fmt.Errorf("record behavior: %w", err)
	}

	if opts.AcademyID != "" && e.kv != nil {
		// 热度榜 best-effort：计数后用新值刷新 zset 分数
		if n, err := e.kv.Incr(ctx, engagementCountPrefix+opts.AcademyID); err == nil {
			_ = e.kv.ZAdd(ctx, engagementBoardKey, float64(n), opts.AcademyID)
		}
	}

	if isAdaptiveAction(action) {
		// 失败吞掉：画像调整是 best-effort 的后台收益
		_ = e.adaptProfile(ctx, userID)
	}
	return nil
}

// BoardEntry 是行为热度榜的一条记录。
type BoardEntry struct {
	AcademyID   string `json:"academy_id"`
	Name        string `json:"name"`
	Engagements int64  `json:"engagements"`
}

// TopEngaged 返回行为热度最高的 N 个学院（行为次数降序）。
// 榜单由 RecordBehavior 在 KV 后端维护；后端不支持有序集合时返回 UNAVAILABLE。
func (e *Engine) TopEngaged(ctx context.Context, n int) ([]BoardEntry, error) {
	if e.kv == nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeUnavailable, "key-value store not configured")
	}
	if n <= 0 {
		n = e.cfg.DefaultLimit
	}
	if n > e.cfg.MaxLimit {
		n = e.cfg.MaxLimit
	}

	ids, err := e.kv.ZRange(ctx, engagementBoardKey, 0, int64(n)-1)
	if err != nil {
		return nil, fmt.Errorf("engagement board: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	academies, err := e.academies.BatchGetAcademies(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("engagement board: %w", err)
	}

	entries := make([]BoardEntry, 0, len(ids))
	for _, id := range ids {
		a, ok := academies[id]
		if !ok || a == nil {
			// 已下架的实体不再上榜
			continue
		}
		entry := BoardEntry{AcademyID: id, Name: a.Name}
		if raw, err := e.kv.Get(ctx, engagementCountPrefix+id); err == nil {
			if v, perr := strconv.ParseInt(string(raw), 10, 64); perr == nil {
				entry.Engagements = v
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func isAdaptiveAction(action core.ActionType) bool {
	for _, a := range core.AdaptiveActions {
		if a == action {
			return true
		}
	}
	return false
}

// adaptProfile 按最近行为窗口调整画像：
//   - 偏好科目：行为涉及实体的科目频次 Top-5（频次降序，同频按科目名升序）
//   - 最大距离：min(均值*1.5, 10)，且仅在均值小于当前值时收紧
//   - 最大价格：均值*1.2
//
// 前置条件：画像开启 AutoUpdateEnabled、有基准位置、窗口内有自适应行为。
// 任一不满足即静默跳过。
func (e *Engine) adaptProfile(ctx context.Context, userID string) error {
	profile, _, err := e.profiles.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	if !profile.AutoUpdateEnabled || profile.BaseLocation == nil {
		return nil
	}

	since := time.Now().AddDate(0, 0, -e.cfg.AdaptationWindowDays)
	logs, err := e.behaviors.ListSince(ctx, userID, since, core.AdaptiveActions...)
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		return nil
	}

	ids := make([]string, 0, len(logs))
	seen := make(map[string]struct{}, len(logs))
	for _, l := range logs {
		if l.AcademyID == "" {
			continue
		}
		if _, ok := seen[l.AcademyID]; ok {
			continue
		}
		seen[l.AcademyID] = struct{}{}
		ids = append(ids, l.AcademyID)
	}
	if len(ids) == 0 {
		return nil
	}
	academies, err := e.academies.BatchGetAcademies(ctx, ids)
	if err != nil {
		return err
	}
	if len(academies) == 0 {
		return nil
	}

	changed := false

	if subjects := topSubjects(academies, adaptTopSubjects); len(subjects) > 0 {
		profile.PreferredSubjects = subjects
		changed = true
	}

	if mean, ok := meanDistance(profile.BaseLocation, academies); ok {
		next := mean * adaptDistanceFactor
		if next > adaptDistanceCapKM {
			next = adaptDistanceCapKM
		}
		if next < core.MaxDistanceMin {
			next = core.MaxDistanceMin
		}
		// 只收紧不放宽：用户实际去得更近，才缩小检索圈
		if mean < profile.MaxDistance && next != profile.MaxDistance {
			profile.MaxDistance = next
			changed = true
		}
	}

	if mean, ok := meanPrice(academies); ok {
		next := mean * adaptPriceFactor
		if next != profile.MaxPrice {
			profile.MaxPrice = next
			changed = true
		}
	}

	if !changed {
		return nil
	}
	if err := profile.Validate(); err != nil {
		return err
	}
	profile.UpdatedAt = time.Now()
	return e.profiles.Update(ctx, profile)
}

// topSubjects 统计科目出现频次并取 Top-N。
// 确定性 tie-break：频次降序，同频按科目名升序。
func topSubjects(academies map[string]*core.Academy, n int) []core.Subject {
	counts := make(map[core.Subject]int)
	for _, a := range academies {
		if a == nil {
			continue
		}
		for _, s := range a.Subjects.Slice() {
			counts[s]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	subjects := make([]core.Subject, 0, len(counts))
	for s := range counts {
		subjects = append(subjects, s)
	}
	sort.Slice(subjects, func(i, j int) bool {
		if counts[subjects[i]] != counts[subjects[j]] {
			return counts[subjects[i]] > counts[subjects[j]]
		}
		return subjects[i] < subjects[j]
	})
	if len(subjects) > n {
		subjects = subjects[:n]
	}
	return subjects
}

func meanDistance(base *core.GeoPoint, academies map[string]*core.Academy) (float64, bool) {
	sum, count := 0.0, 0
	for _, a := range academies {
		if a == nil || a.Location == nil {
			continue
		}
		sum += geo.DistanceBetween(*base, *a.Location)
		count++
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

func meanPrice(academies map[string]*core.Academy) (float64, bool) {
	sum, count := 0.0, 0
	for _, a := range academies {
		if a == nil || a.Price == nil {
			continue
		}
		sum += *a.Price
		count++
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}
