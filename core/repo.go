package core

import (
	"context"
	"time"
)

// BoundingBox 是经纬度矩形，用于候选检索的一次粗过滤。
// 注意它是圆形半径的外接近似（含角部误报），命中后必须用精确距离复核。
type BoundingBox struct {
	LatMin, LatMax float64
	LonMin, LonMax float64
}

// Contains 判断点是否落在盒内。
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.LatMin && lat <= b.LatMax && lon >= b.LonMin && lon <= b.LonMax
}

// AcademyQuery 是候选检索条件。零值字段表示不过滤。
type AcademyQuery struct {
	// Box 非 nil 时只返回有坐标且落在盒内的实体。
	Box *BoundingBox

	// Subjects 非空时按 OR 过滤：开设任一科目即命中。
	Subjects []Subject

	// AgeGroups 非空时按 OR 过滤目标年龄段。
	AgeGroups []AgeGroup

	// ExcludeID 非空时跳过该实体（相似检索排除锚点自身，不占扫描名额）。
	ExcludeID string

	// Limit 是扫描上限（成本控制），<=0 表示不限制。
	Limit int
}

// AcademyStore 是学院实体的只读存储接口（引擎的外部协作者）。
type AcademyStore interface {
	// GetAcademy 按 ID 读取；不存在返回 NOT_FOUND。
	GetAcademy(ctx context.Context, id string) (*Academy, error)

	// BatchGetAcademies 批量读取；缺失的 ID 静默跳过。
	BatchGetAcademies(ctx context.Context, ids []string) (map[string]*Academy, error)

	// FindAcademies 按条件检索，返回顺序确定（按 ID 升序），便于稳定排序。
	FindAcademies(ctx context.Context, q AcademyQuery) ([]*Academy, error)
}

// ReviewStore 是评价聚合的只读接口（排除隐藏评价；由评价子系统维护）。
type ReviewStore interface {
	// Stats 返回实体的评价聚合；无评价时返回零值（Count==0），不报错。
	Stats(ctx context.Context, academyID string) (ReviewStats, error)
}

// ProfileStore 是偏好画像的持久化接口。
type ProfileStore interface {
	// GetOrCreate 读取画像，不存在则以默认值创建。
	// 必须原子：并发首次调用下每个用户至多一条画像（唯一性由存储层保证）。
	// created 标记本次调用是否发生了创建。
	GetOrCreate(ctx context.Context, userID string) (profile *PreferenceProfile, created bool, err error)

	// Get 读取画像；不存在返回 NOT_FOUND。
	Get(ctx context.Context, userID string) (*PreferenceProfile, error)

	// Update 整体覆盖画像。
	Update(ctx context.Context, profile *PreferenceProfile) error
}

// HistoryStore 是推荐历史的持久化接口。
type HistoryStore interface {
	// BatchCreate 批量写入历史（单次批量操作，不逐行往返）。
	BatchCreate(ctx context.Context, records []*RecommendationHistory) error

	// ListByUser 按时间倒序返回用户的推荐历史。
	ListByUser(ctx context.Context, userID string, limit int) ([]*RecommendationHistory, error)

	// UpdateEngagement 回写互动标志；历史不存在返回 NOT_FOUND。
	UpdateEngagement(ctx context.Context, historyID string, kind EngagementKind) error

	// UpdateFeedback 回写显式反馈；历史不存在返回 NOT_FOUND。
	UpdateFeedback(ctx context.Context, historyID string, fb Feedback) error
}

// BehaviorStore 是行为日志的持久化接口（append-only）。
type BehaviorStore interface {
	// Create 追加一条行为日志。
	Create(ctx context.Context, log *BehaviorLog) error

	// ListSince 返回 since 之后、动作在 actions 内的行为日志（时间升序）。
	// actions 为空表示不过滤动作。
	ListSince(ctx context.Context, userID string, since time.Time, actions ...ActionType) ([]*BehaviorLog, error)
}
