package core

import "time"

// RecommendationType 标记一次推荐的计算方式。
type RecommendationType string

const (
	RecTypeComprehensive RecommendationType = "comprehensive"  // 综合（画像加权）
	RecTypeDistanceBased RecommendationType = "distance_based" // 距离主导
	RecTypeRatingBased   RecommendationType = "rating_based"   // 评分主导
	RecTypePriceBased    RecommendationType = "price_based"    // 价格主导
	RecTypeLocation      RecommendationType = "location"       // 位置（无画像）
	RecTypeSimilar       RecommendationType = "similar"        // 相似实体
)

// Feedback 是用户对推荐条目的显式反馈。
type Feedback string

const (
	FeedbackLike          Feedback = "like"           // 喜欢
	FeedbackDislike       Feedback = "dislike"        // 不喜欢
	FeedbackNotInterested Feedback = "not_interested" // 不感兴趣
	FeedbackAlreadyKnown  Feedback = "already_known"  // 早就知道
)

// EngagementKind 是推荐条目的互动类型（回写到历史记录）。
type EngagementKind string

const (
	EngagementClick    EngagementKind = "click"    // 点击
	EngagementBookmark EngagementKind = "bookmark" // 收藏
	EngagementContact  EngagementKind = "contact"  // 咨询
	EngagementEnroll   EngagementKind = "enroll"   // 报名
)

// RecommendationHistory 是 append-only 的推荐流水：每返回一条推荐写一行。
// 之后仅互动/反馈字段可被回写，引擎永不删除。
type RecommendationHistory struct {
	ID        string
	UserID    string
	AcademyID string

	Score     float64
	Breakdown map[string]FactorScore // 打分明细快照
	Reason    string
	Type      RecommendationType

	// 搜索位置快照（请求时的参照位置，可缺失）
	SearchLocation *GeoPoint

	// 用户互动（后续回写）
	Clicked    bool
	Bookmarked bool
	Contacted  bool
	Enrolled   bool

	Feedback *Feedback

	CreatedAt time.Time
}

// ActionType 是行为日志的动作枚举。
type ActionType string

const (
	ActionSearch     ActionType = "search"     // 搜索
	ActionView       ActionType = "view"       // 查看
	ActionBookmark   ActionType = "bookmark"   // 收藏
	ActionUnbookmark ActionType = "unbookmark" // 取消收藏
	ActionReview     ActionType = "review"     // 写评价
	ActionContact    ActionType = "contact"    // 咨询
	ActionCompare    ActionType = "compare"    // 对比
	ActionShare      ActionType = "share"      // 分享
)

// ValidActionType 判断动作是否在已知枚举内。
func ValidActionType(a ActionType) bool {
	switch a {
	case ActionSearch, ActionView, ActionBookmark, ActionUnbookmark,
		ActionReview, ActionContact, ActionCompare, ActionShare:
		return true
	}
	return false
}

// AdaptiveActions 是会触发画像自动调整的动作集合。
var AdaptiveActions = []ActionType{ActionBookmark, ActionView, ActionContact}

// BehaviorLog 是 append-only 的用户行为事件，是画像自动调整的事实来源。
// 按 30 天滚动窗口读取。
type BehaviorLog struct {
	ID        string
	UserID    string
	AcademyID string // 可为空（如纯搜索）

	Action  ActionType
	Payload map[string]any // 自由负载（搜索词、对比对象等）

	Location  *GeoPoint // 用户当时位置，可缺失
	SessionID string
	CreatedAt time.Time
}
