package score

import (
	"math"

	"github.com/rushteam/acadmap/core"
	"github.com/rushteam/acadmap/geo"
)

// 相似度组合权重与参数。
const (
	similaritySubjectWeight  = 0.4
	similarityLocationWeight = 0.3
	similarityRatingWeight   = 0.3

	// SimilarityRadiusKM 是位置近邻度的基准半径：距离 0 得 100，10km 及以上得 0。
	SimilarityRadiusKM = 10.0

	// 任一侧缺坐标时位置近邻度的中性默认值。
	neutralProximity = 50.0
)

// SimilarityResult 是一对实体的相似度输出，三个子分各自可独立取用。
type SimilarityResult struct {
	Combined float64 // 0.4*subject + 0.3*location + 0.3*rating
	Subject  float64 // Jaccard 科目相似度
	Location float64 // 位置近邻度
	Rating   float64 // 评分接近度
}

// Similarity 计算两个学院的相似度（0-100）。
// 各子分对称：Similarity(a,b) 与 Similarity(b,a) 一致。
func Similarity(a, b *core.Academy, reviewsA, reviewsB core.ReviewStats) SimilarityResult {
	result := SimilarityResult{
		Subject:  SubjectSimilarity(a.Subjects, b.Subjects),
		Location: LocationProximity(a, b),
		Rating:   RatingSimilarity(reviewsA, reviewsB),
	}
	result.Combined = Round2(result.Subject*similaritySubjectWeight +
		result.Location*similarityLocationWeight +
		result.Rating*similarityRatingWeight)
	return result
}

// SubjectSimilarity 是科目集合的 Jaccard 相似度 * 100。
// 边界语义：双方都没有科目视为完全相似（100），恰有一方为空视为完全不相似（0）。
func SubjectSimilarity(a, b core.SubjectSet) float64 {
	if a.Len() == 0 && b.Len() == 0 {
		return 100
	}
	if a.Len() == 0 || b.Len() == 0 {
		return 0
	}
	union := a.UnionCount(b)
	if union == 0 {
		return 0
	}
	return Round2(float64(a.IntersectCount(b)) / float64(union) * 100)
}

// LocationProximity 是位置近邻度：双方都有坐标时按 10km 基准线性衰减，
// 否则返回中性 50。
func LocationProximity(a, b *core.Academy) float64 {
	if a.Location == nil || b.Location == nil {
		return neutralProximity
	}
	d := geo.DistanceBetween(*a.Location, *b.Location)
	return Round2(math.Max(0, (SimilarityRadiusKM-d)/SimilarityRadiusKM*100))
}

// RatingSimilarity 是评分接近度：100 减去双方 0-100 评分差的绝对值。
// 无评价一侧按中性 50 分参与（见 RatingScore）。
func RatingSimilarity(a, b core.ReviewStats) float64 {
	return Round2(100 - math.Abs(RatingScore(a)-RatingScore(b)))
}
