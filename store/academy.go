package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/acadmap/core"
)

// MemoryAcademyStore 是内存实现的 AcademyStore，用于测试/开发。
// 生产环境应替换为数据库实现（接口语义不变）。
type MemoryAcademyStore struct {
	mu        sync.RWMutex
	academies map[string]*core.Academy
}

func NewMemoryAcademyStore() *MemoryAcademyStore {
	return &MemoryAcademyStore{academies: make(map[string]*core.Academy)}
}

var _ core.AcademyStore = (*MemoryAcademyStore)(nil)

// Put 写入或覆盖一个实体（测试数据装载用）。
func (s *MemoryAcademyStore) Put(a *core.Academy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.academies[a.ID] = a
}

func (s *MemoryAcademyStore) GetAcademy(ctx context.Context, id string) (*core.Academy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.academies[id]
	if !ok {
		return nil, core.NewDomainError(core.ModuleAcademy, core.ErrorCodeNotFound,
			fmt.Sprintf("academy %q not found", id))
	}
	return a, nil
}

func (s *MemoryAcademyStore) BatchGetAcademies(ctx context.Context, ids []string) (map[string]*core.Academy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*core.Academy, len(ids))
	for _, id := range ids {
		if a, ok := s.academies[id]; ok {
			result[id] = a
		}
	}
	return result, nil
}

// FindAcademies 按条件检索。返回顺序固定为 ID 升序，保证同输入同输出。
func (s *MemoryAcademyStore) FindAcademies(ctx context.Context, q core.AcademyQuery) ([]*core.Academy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.academies))
	for id := range s.academies {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var result []*core.Academy
	for _, id := range ids {
		a := s.academies[id]
		if !matchQuery(a, q) {
			continue
		}
		result = append(result, a)
		if q.Limit > 0 && len(result) >= q.Limit {
			break
		}
	}
	return result, nil
}

func matchQuery(a *core.Academy, q core.AcademyQuery) bool {
	if q.ExcludeID != "" && a.ID == q.ExcludeID {
		return false
	}
	if q.Box != nil {
		if a.Location == nil {
			return false
		}
		if !q.Box.Contains(a.Location.Lat, a.Location.Lon) {
			return false
		}
	}
	if len(q.Subjects) > 0 {
		hit := false
		for _, sub := range q.Subjects {
			if a.Subjects.Has(sub) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if len(q.AgeGroups) > 0 {
		hit := false
		for _, g := range q.AgeGroups {
			if a.AgeGroups.Has(g) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// MemoryReviewStore 是内存实现的 ReviewStore。
// 评分在 Add 时累计为聚合值，Stats 只做一次读。
type MemoryReviewStore struct {
	mu    sync.RWMutex
	stats map[string]*reviewAccum
}

type reviewAccum struct {
	sum   float64
	count int
}

func NewMemoryReviewStore() *MemoryReviewStore {
	return &MemoryReviewStore{stats: make(map[string]*reviewAccum)}
}

var _ core.ReviewStore = (*MemoryReviewStore)(nil)

// Add 追加一条评分（1-5），更新聚合。
func (s *MemoryReviewStore) Add(academyID string, rating float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.stats[academyID]
	if acc == nil {
		acc = &reviewAccum{}
		s.stats[academyID] = acc
	}
	acc.sum += rating
	acc.count++
}

// Stats 返回实体的评价聚合；无评价返回零值，不报错。
func (s *MemoryReviewStore) Stats(ctx context.Context, academyID string) (core.ReviewStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.stats[academyID]
	if !ok || acc.count == 0 {
		return core.ReviewStats{}, nil
	}
	return core.ReviewStats{
		Average: acc.sum / float64(acc.count),
		Count:   acc.count,
	}, nil
}
