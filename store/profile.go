package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rushteam/acadmap/core"
)

// MemoryProfileStore 是内存实现的 ProfileStore。
// GetOrCreate 在同一把锁内完成"查-建"，并发首次调用下每个用户至多一条画像。
type MemoryProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*core.PreferenceProfile
}

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]*core.PreferenceProfile)}
}

var _ core.ProfileStore = (*MemoryProfileStore)(nil)

func (s *MemoryProfileStore) GetOrCreate(ctx context.Context, userID string) (*core.PreferenceProfile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.profiles[userID]; ok {
		return clone(p), false, nil
	}
	p := core.NewPreferenceProfile(userID)
	s.profiles[userID] = p
	return clone(p), true, nil
}

func (s *MemoryProfileStore) Get(ctx context.Context, userID string) (*core.PreferenceProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, core.NewDomainError(core.ModuleProfile, core.ErrorCodeNotFound,
			fmt.Sprintf("profile for user %q not found", userID))
	}
	return clone(p), nil
}

func (s *MemoryProfileStore) Update(ctx context.Context, profile *core.PreferenceProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[profile.UserID] = clone(profile)
	return nil
}

// clone 返回画像的深副本，避免调用方拿到内部指针后绕过 Update 修改。
func clone(p *core.PreferenceProfile) *core.PreferenceProfile {
	c := *p
	if p.PreferredSubjects != nil {
		c.PreferredSubjects = append([]core.Subject(nil), p.PreferredSubjects...)
	}
	if p.BaseLocation != nil {
		loc := *p.BaseLocation
		c.BaseLocation = &loc
	}
	return &c
}

// MemoryHistoryStore 是内存实现的 HistoryStore（append-only，仅互动/反馈可回写）。
type MemoryHistoryStore struct {
	mu      sync.RWMutex
	records map[string]*core.RecommendationHistory
	byUser  map[string][]string // userID -> historyID（写入顺序）
	seq     atomic.Int64
}

func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{
		records: make(map[string]*core.RecommendationHistory),
		byUser:  make(map[string][]string),
	}
}

var _ core.HistoryStore = (*MemoryHistoryStore)(nil)

func (s *MemoryHistoryStore) BatchCreate(ctx context.Context, records []*core.RecommendationHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if r == nil {
			continue
		}
		if r.ID == "" {
			r.ID = fmt.Sprintf("hist-%d", s.seq.Add(1))
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now()
		}
		s.records[r.ID] = r
		s.byUser[r.UserID] = append(s.byUser[r.UserID], r.ID)
	}
	return nil
}

func (s *MemoryHistoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]*core.RecommendationHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUser[userID]
	result := make([]*core.RecommendationHistory, 0, len(ids))
	// 时间倒序：后写入的在前
	for i := len(ids) - 1; i >= 0; i-- {
		result = append(result, s.records[ids[i]])
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *MemoryHistoryStore) UpdateEngagement(ctx context.Context, historyID string, kind core.EngagementKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[historyID]
	if !ok {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeNotFound,
			fmt.Sprintf("history %q not found", historyID))
	}
	switch kind {
	case core.EngagementClick:
		r.Clicked = true
	case core.EngagementBookmark:
		r.Bookmarked = true
	case core.EngagementContact:
		r.Contacted = true
	case core.EngagementEnroll:
		r.Enrolled = true
	default:
		return core.NewValidationError(core.ModuleEngine, "engagement",
			"unknown engagement kind: %q", string(kind))
	}
	return nil
}

func (s *MemoryHistoryStore) UpdateFeedback(ctx context.Context, historyID string, fb core.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[historyID]
	if !ok {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeNotFound,
			fmt.Sprintf("history %q not found", historyID))
	}
	r.Feedback = &fb
	return nil
}

// MemoryBehaviorStore 是内存实现的 BehaviorStore（append-only 行为日志）。
type MemoryBehaviorStore struct {
	mu   sync.RWMutex
	logs map[string][]*core.BehaviorLog // userID -> 时间升序
	seq  atomic.Int64
}

func NewMemoryBehaviorStore() *MemoryBehaviorStore {
	return &MemoryBehaviorStore{logs: make(map[string][]*core.BehaviorLog)}
}

var _ core.BehaviorStore = (*MemoryBehaviorStore)(nil)

func (s *MemoryBehaviorStore) Create(ctx context.Context, log *core.BehaviorLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if log.ID == "" {
		log.ID = fmt.Sprintf("behavior-%d", s.seq.Add(1))
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	s.logs[log.UserID] = append(s.logs[log.UserID], log)
	return nil
}

func (s *MemoryBehaviorStore) ListSince(
	ctx context.Context,
	userID string,
	since time.Time,
	actions ...core.ActionType,
) ([]*core.BehaviorLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[core.ActionType]struct{}, len(actions))
	for _, a := range actions {
		wanted[a] = struct{}{}
	}

	var result []*core.BehaviorLog
	for _, l := range s.logs[userID] {
		if l.CreatedAt.Before(since) {
			continue
		}
		if len(wanted) > 0 {
			if _, ok := wanted[l.Action]; !ok {
				continue
			}
		}
		result = append(result, l)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
