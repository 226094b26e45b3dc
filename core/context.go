package core

import "github.com/rushteam/acadmap/pkg/utils"

// RecommendContext 承载一次推荐请求的用户/位置/场景信息，贯穿整个 Pipeline 透传。
//
// 引擎是无状态的：跨请求状态只存在于画像与历史存储中，
// RecommendContext 只活在单次请求的生命周期内。
type RecommendContext struct {
	UserID string
	Scene  string // 调用场景（如 "home", "search", "detail"）

	// Profile 是已解析的偏好画像；位置推荐（无画像）时为 nil。
	Profile *PreferenceProfile

	// Location 是本次请求的显式参照位置；为 nil 时退回画像基准位置。
	Location *GeoPoint

	// Radius 是位置推荐的检索半径（km），画像推荐时不使用。
	Radius float64

	// Subjects 是请求级科目过滤；为 nil 时使用画像偏好科目。
	Subjects []Subject

	Type RecommendationType

	// Labels 是请求级标签，可驱动整个 Pipeline 行为。
	Labels map[string]utils.Label

	// Params 请求级上下文参数（session_id、query 等自由字段）。
	Params map[string]any
}

// RefLocation 返回本次请求的有效参照位置：显式位置优先，其次画像基准位置。
func (rctx *RecommendContext) RefLocation() *GeoPoint {
	if rctx.Location != nil {
		return rctx.Location
	}
	if rctx.Profile != nil {
		return rctx.Profile.BaseLocation
	}
	return nil
}

// FilterSubjects 返回本次请求的有效科目过滤：请求级优先，其次画像偏好。
func (rctx *RecommendContext) FilterSubjects() []Subject {
	if rctx.Subjects != nil {
		return rctx.Subjects
	}
	if rctx.Profile != nil {
		return rctx.Profile.PreferredSubjects
	}
	return nil
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
