// Package score 实现学院的多因子加权打分与实体间相似度计算。
//
// 打分是纯函数：给定画像、实体、参照位置与评价聚合，输出确定。
// 任何因子的前置条件不满足（缺坐标 / 无价格 / 无评价）时，
// 该因子静默跳过，绝不让单因子失败中断整体打分。
package score

import (
	"math"

	"github.com/rushteam/acadmap/core"
	"github.com/rushteam/acadmap/geo"
)

// 因子名（Breakdown 的 key）。
const (
	FactorDistance = "distance"      // 距离
	FactorPrice    = "price"         // 价格
	FactorRating   = "rating"        // 评分
	FactorSubject  = "subject_match" // 科目匹配
	FactorFacility = "facility"      // 设施
)

// 设施启发式分值。
const (
	facilityBase      = 50.0
	facilityShuttle   = 20.0
	facilityParking   = 15.0
	facilityCafeteria = 15.0
)

// Result 是一次打分的完整输出。
//
// 归一化设计：因子分"可用（applicable）"与"合格（qualified）"两档——
// 数据前置条件成立即为可用，满分 100*weight/5 计入 MaxPossible；
// 在可用基础上通过阈值才算合格，子分 score*weight/5 计入 Raw。
// 数据缺失的因子同时退出分子与分母，实体相当于只在可用因子上被
// 重新归一化，而不是被记零分惩罚。Total = Raw/MaxPossible*100（分母为 0 时取 0）。
type Result struct {
	Total       float64                     // 0-100 归一化总分
	Raw         float64                     // 加权原始分
	MaxPossible float64                     // 可达满分
	Breakdown   map[string]core.FactorScore // factor -> 明细
	DistanceKM  *float64                    // 与参照位置的精确距离（两侧坐标都存在时）
}

// Score 计算画像对某学院的推荐分。
//
// refLocation 为显式参照位置，可为 nil（此时退回画像基准位置）；
// reviews 是评价子系统的只读聚合（排除隐藏评价）。
func Score(profile *core.PreferenceProfile, academy *core.Academy, refLocation *core.GeoPoint, reviews core.ReviewStats) Result {
	result := Result{Breakdown: make(map[string]core.FactorScore)}
	if profile == nil || academy == nil {
		return result
	}

	ref := refLocation
	if ref == nil {
		ref = profile.BaseLocation
	}

	scoreDistance(&result, profile, academy, ref)
	scorePrice(&result, profile, academy)
	scoreRating(&result, profile, reviews)
	scoreSubjectMatch(&result, profile, academy)
	scoreFacility(&result, profile, academy)

	if result.MaxPossible > 0 {
		result.Total = Round2(result.Raw / result.MaxPossible * 100)
	}
	result.Raw = Round2(result.Raw)
	result.MaxPossible = Round2(result.MaxPossible)
	return result
}

// 距离因子。可用：参照位置与实体坐标都存在；合格：距离 ≤ MaxDistance。
// 线性衰减：0 距离得 100，MaxDistance 处得 0。
func scoreDistance(r *Result, p *core.PreferenceProfile, a *core.Academy, ref *core.GeoPoint) {
	if ref == nil || a.Location == nil {
		return
	}
	d := geo.DistanceBetween(*ref, *a.Location)
	r.DistanceKM = &d

	weight := float64(p.DistanceWeight) / 5
	if d <= p.MaxDistance && p.MaxDistance > 0 {
		sub := math.Max(0, (p.MaxDistance-d)/p.MaxDistance*100)
		r.Raw += sub * weight
		r.Breakdown[FactorDistance] = core.FactorScore{
			Actual:        d,
			Score:         sub,
			WeightedScore: sub * weight,
		}
	}
	r.MaxPossible += 100 * weight
}

// 价格因子。可用：摄入时解析出了价格；合格：价格 ≤ MaxPrice。
func scorePrice(r *Result, p *core.PreferenceProfile, a *core.Academy) {
	if a.Price == nil || p.MaxPrice <= 0 {
		return
	}
	weight := float64(p.PriceWeight) / 5
	if *a.Price <= p.MaxPrice {
		sub := math.Max(0, (p.MaxPrice-*a.Price)/p.MaxPrice*100)
		r.Raw += sub * weight
		r.Breakdown[FactorPrice] = core.FactorScore{
			Actual:        *a.Price,
			Score:         sub,
			WeightedScore: sub * weight,
		}
	}
	r.MaxPossible += 100 * weight
}

// 评分因子。可用：存在未隐藏评价；合格：均分 ≥ MinRating。
func scoreRating(r *Result, p *core.PreferenceProfile, reviews core.ReviewStats) {
	if !reviews.HasReviews() {
		return
	}
	weight := float64(p.RatingWeight) / 5
	if reviews.Average >= p.MinRating {
		sub := reviews.Average / 5 * 100
		r.Raw += sub * weight
		r.Breakdown[FactorRating] = core.FactorScore{
			Actual:        reviews.Average,
			Score:         sub,
			WeightedScore: sub * weight,
			ReviewCount:   reviews.Count,
		}
	}
	r.MaxPossible += 100 * weight
}

// 科目匹配因子。可用：画像有偏好科目；子分 = 命中数/偏好数*100。
// 全不命中时子分为 0，不进 Breakdown，但满分仍计入分母。
func scoreSubjectMatch(r *Result, p *core.PreferenceProfile, a *core.Academy) {
	total := len(p.PreferredSubjects)
	if total == 0 {
		return
	}
	weight := float64(p.TeacherWeight) / 5
	matches := 0
	for _, sub := range p.PreferredSubjects {
		if a.Subjects.Has(sub) {
			matches++
		}
	}
	if matches > 0 {
		sub := float64(matches) / float64(total) * 100
		r.Raw += sub * weight
		r.Breakdown[FactorSubject] = core.FactorScore{
			Actual:        float64(matches),
			Score:         sub,
			WeightedScore: sub * weight,
		}
	}
	r.MaxPossible += 100 * weight
}

// 设施因子。可用：至少一个设施标志为真；子分 = 基础 50 + 班车 20 +
// 停车 15 + 餐厅 15，上限 100。
func scoreFacility(r *Result, p *core.PreferenceProfile, a *core.Academy) {
	if !a.Shuttle && !a.Parking && !a.Cafeteria {
		return
	}
	weight := float64(p.FacilityWeight) / 5
	sub := facilityBase
	if a.Shuttle {
		sub += facilityShuttle
	}
	if a.Parking {
		sub += facilityParking
	}
	if a.Cafeteria {
		sub += facilityCafeteria
	}
	sub = math.Min(sub, 100)

	r.Raw += sub * weight
	r.Breakdown[FactorFacility] = core.FactorScore{
		Actual:        sub,
		Score:         sub,
		WeightedScore: sub * weight,
	}
	r.MaxPossible += 100 * weight
}

// RatingScore 把评价聚合换算为 0-100 分；无评价时返回中性 50。
// 位置推荐与相似度计算共用此默认。
func RatingScore(reviews core.ReviewStats) float64 {
	if !reviews.HasReviews() {
		return 50
	}
	return reviews.Average / 5 * 100
}

// Round2 四舍五入到 2 位小数（对外分数的统一精度）。
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
