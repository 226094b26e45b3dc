package score

import (
	"math"
	"testing"

	"github.com/rushteam/acadmap/core"
)

func floatPtr(v float64) *float64 { return &v }

func baseProfile() *core.PreferenceProfile {
	p := core.NewPreferenceProfile("u1")
	p.BaseLocation = &core.GeoPoint{Lat: 37.50, Lon: 127.00}
	return p
}

func TestScore_NoApplicableFactors(t *testing.T) {
	// 无坐标、无价格、无评价、无偏好科目、无设施标志：
	// 分子分母都为 0，Total 必须为 0（除零被保护）。
	profile := core.NewPreferenceProfile("u1") // 无基准位置
	academy := &core.Academy{ID: "a1", Name: "bare"}

	result := Score(profile, academy, nil, core.ReviewStats{})
	if result.Total != 0 {
		t.Errorf("Total = %v, want 0", result.Total)
	}
	if result.MaxPossible != 0 {
		t.Errorf("MaxPossible = %v, want 0", result.MaxPossible)
	}
	if len(result.Breakdown) != 0 {
		t.Errorf("Breakdown = %v, want empty", result.Breakdown)
	}
}

func TestScore_DistanceMonotonicity(t *testing.T) {
	// 其余不变，距离越近 distance 子分严格越高。
	profile := baseProfile()
	prev := -1.0
	// 从远到近
	for _, dLat := range []float64{0.040, 0.030, 0.020, 0.010, 0.002} {
		academy := &core.Academy{
			ID:       "a1",
			Location: &core.GeoPoint{Lat: 37.50 + dLat, Lon: 127.00},
		}
		result := Score(profile, academy, nil, core.ReviewStats{})
		fs, ok := result.Breakdown[FactorDistance]
		if !ok {
			t.Fatalf("dLat=%v: distance factor missing", dLat)
		}
		if fs.Score <= prev {
			t.Errorf("dLat=%v: distance score %v not strictly greater than %v", dLat, fs.Score, prev)
		}
		prev = fs.Score
	}
}

func TestScore_WeightedSumInvariant(t *testing.T) {
	profile := baseProfile()
	profile.PreferredSubjects = []core.Subject{core.SubjectMath, core.SubjectEnglish}
	academy := &core.Academy{
		ID:       "a1",
		Location: &core.GeoPoint{Lat: 37.51, Lon: 127.01},
		Subjects: core.NewSubjectSet(core.SubjectMath),
		Price:    floatPtr(300000),
		Shuttle:  true,
	}
	reviews := core.ReviewStats{Average: 4.2, Count: 8}

	result := Score(profile, academy, nil, reviews)

	var sum float64
	for _, fs := range result.Breakdown {
		sum += fs.WeightedScore
	}
	if math.Abs(sum-result.Raw) > 0.01 {
		t.Errorf("Raw = %v, sum of weighted scores = %v", result.Raw, sum)
	}
	if result.MaxPossible <= 0 {
		t.Fatalf("MaxPossible = %v, want > 0", result.MaxPossible)
	}
	wantTotal := Round2(result.Raw / result.MaxPossible * 100)
	if math.Abs(result.Total-wantTotal) > 0.01 {
		t.Errorf("Total = %v, want raw/max*100 = %v", result.Total, wantTotal)
	}
}

func TestScore_FactorPreconditions(t *testing.T) {
	tests := []struct {
		name        string
		academy     *core.Academy
		reviews     core.ReviewStats
		prefSubject []core.Subject
		wantFactor  string
		wantInScore bool // 因子是否进 Breakdown
		wantInMax   bool // 因子满分是否进 MaxPossible
	}{
		{
			name: "distance beyond max contributes to max only",
			academy: &core.Academy{
				ID:       "far",
				Location: &core.GeoPoint{Lat: 38.50, Lon: 127.00}, // 超过 5km
			},
			wantFactor:  FactorDistance,
			wantInScore: false,
			wantInMax:   true,
		},
		{
			name:        "missing coordinates excludes distance entirely",
			academy:     &core.Academy{ID: "nowhere"},
			wantFactor:  FactorDistance,
			wantInScore: false,
			wantInMax:   false,
		},
		{
			name: "price above budget contributes to max only",
			academy: &core.Academy{
				ID:    "pricey",
				Price: floatPtr(900000),
			},
			wantFactor:  FactorPrice,
			wantInScore: false,
			wantInMax:   true,
		},
		{
			name: "rating below min contributes to max only",
			academy: &core.Academy{
				ID: "lowrated",
			},
			reviews:     core.ReviewStats{Average: 2.0, Count: 4},
			wantFactor:  FactorRating,
			wantInScore: false,
			wantInMax:   true,
		},
		{
			name: "facility flag enables heuristic",
			academy: &core.Academy{
				ID:      "shuttled",
				Shuttle: true,
			},
			wantFactor:  FactorFacility,
			wantInScore: true,
			wantInMax:   true,
		},
		{
			name: "subject mismatch contributes to max only",
			academy: &core.Academy{
				ID:       "wrongsubj",
				Subjects: core.NewSubjectSet(core.SubjectArts),
			},
			prefSubject: []core.Subject{core.SubjectMath},
			wantFactor:  FactorSubject,
			wantInScore: false,
			wantInMax:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := baseProfile()
			profile.PreferredSubjects = tt.prefSubject

			// 基线用无偏好科目的画像：MaxPossible 的增量只能来自被测因子
			base := Score(baseProfile(), &core.Academy{ID: "empty"}, nil, core.ReviewStats{})
			result := Score(profile, tt.academy, nil, tt.reviews)

			_, inScore := result.Breakdown[tt.wantFactor]
			if inScore != tt.wantInScore {
				t.Errorf("factor %s in breakdown = %v, want %v", tt.wantFactor, inScore, tt.wantInScore)
			}
			inMax := result.MaxPossible > base.MaxPossible
			if inMax != tt.wantInMax {
				t.Errorf("factor %s in max possible = %v, want %v (max=%v base=%v)",
					tt.wantFactor, inMax, tt.wantInMax, result.MaxPossible, base.MaxPossible)
			}
		})
	}
}

func TestScore_FullMarks(t *testing.T) {
	// 距离 0、价格 0、满分评价、全科目命中、全设施：Total 应为 100。
	profile := baseProfile()
	profile.PreferredSubjects = []core.Subject{core.SubjectMath}
	academy := &core.Academy{
		ID:        "perfect",
		Location:  &core.GeoPoint{Lat: 37.50, Lon: 127.00},
		Subjects:  core.NewSubjectSet(core.SubjectMath),
		Price:     floatPtr(0),
		Shuttle:   true,
		Parking:   true,
		Cafeteria: true,
	}
	result := Score(profile, academy, nil, core.ReviewStats{Average: 5.0, Count: 3})
	if result.Total != 100 {
		t.Errorf("Total = %v, want 100 (breakdown: %+v)", result.Total, result.Breakdown)
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		name      string
		breakdown map[string]core.FactorScore
		wantEmpty bool
	}{
		{
			name: "distance and rating fire",
			breakdown: map[string]core.FactorScore{
				FactorDistance: {Actual: 1.2, Score: 76, WeightedScore: 60.8},
				FactorRating:   {Actual: 4.5, Score: 90, WeightedScore: 90, ReviewCount: 10},
			},
		},
		{
			name:      "no factor fired falls back",
			breakdown: map[string]core.FactorScore{},
			wantEmpty: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reason(Result{Breakdown: tt.breakdown})
			if got == "" {
				t.Fatal("Reason returned empty string")
			}
			if tt.wantEmpty && got != reasonFallback {
				t.Errorf("Reason = %q, want fallback %q", got, reasonFallback)
			}
			if !tt.wantEmpty && got == reasonFallback {
				t.Errorf("Reason = fallback, want factor fragments")
			}
		})
	}
}
