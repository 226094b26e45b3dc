package core

import "time"

// 画像默认值与边界。
const (
	WeightMin = 1
	WeightMax = 5

	MaxDistanceMin = 0.1  // km
	MaxDistanceMax = 50.0 // km

	MinRatingMin = 1.0
	MinRatingMax = 5.0

	DefaultDistanceWeight = 4
	DefaultPriceWeight    = 3
	DefaultRatingWeight   = 5
	DefaultFacilityWeight = 3
	DefaultTeacherWeight  = 4

	DefaultMaxDistance = 5.0
	DefaultMaxPrice    = 500000
	DefaultMinRating   = 3.0
)

// PreferenceProfile 是用户的打分偏好画像，与用户一一对应。
//
// 一句话定义：画像 = 打分公式的"参数表 + 候选过滤阈值 + 基准位置"。
//
// 生命周期：
//   - 首次请求推荐时懒创建（GetOrCreate，并发下至多一条）
//   - 用户显式编辑 / 预设重置 / 行为驱动自动调整时更新
//   - 仅随账号删除而级联删除
type PreferenceProfile struct {
	UserID string

	// 五个因子权重（1-5）
	DistanceWeight int // 距离重要度
	PriceWeight    int // 价格重要度
	RatingWeight   int // 评分重要度
	FacilityWeight int // 设施重要度
	TeacherWeight  int // 师资/科目重要度

	// 候选阈值
	MaxDistance float64 // 最大距离（km）
	MaxPrice    float64 // 最大价格
	MinRating   float64 // 最低评分

	PreferredSubjects []Subject // 偏好科目

	// 基准位置（家或学校），可缺失
	BaseLocation *GeoPoint

	AutoUpdateEnabled bool // 是否允许行为驱动自动调整
	UpdatedAt         time.Time
}

// NewPreferenceProfile 创建带默认值的画像。
func NewPreferenceProfile(userID string) *PreferenceProfile {
	return &PreferenceProfile{
		UserID:            userID,
		DistanceWeight:    DefaultDistanceWeight,
		PriceWeight:       DefaultPriceWeight,
		RatingWeight:      DefaultRatingWeight,
		FacilityWeight:    DefaultFacilityWeight,
		TeacherWeight:     DefaultTeacherWeight,
		MaxDistance:       DefaultMaxDistance,
		MaxPrice:          DefaultMaxPrice,
		MinRating:         DefaultMinRating,
		AutoUpdateEnabled: true,
		UpdatedAt:         time.Now(),
	}
}

// Validate 校验画像不变量，返回第一个违反项的字段级错误。
func (p *PreferenceProfile) Validate() error {
	weights := []struct {
		field string
		value int
	}{
		{"distance_weight", p.DistanceWeight},
		{"price_weight", p.PriceWeight},
		{"rating_weight", p.RatingWeight},
		{"facility_weight", p.FacilityWeight},
		{"teacher_weight", p.TeacherWeight},
	}
	for _, w := range weights {
		if w.value < WeightMin || w.value > WeightMax {
			return NewValidationError(ModuleProfile, w.field,
				"weight must be in [%d,%d], got %d", WeightMin, WeightMax, w.value)
		}
	}
	if p.MaxDistance < MaxDistanceMin || p.MaxDistance > MaxDistanceMax {
		return NewValidationError(ModuleProfile, "max_distance",
			"max_distance must be in [%g,%g], got %g", MaxDistanceMin, MaxDistanceMax, p.MaxDistance)
	}
	if p.MaxPrice <= 0 {
		return NewValidationError(ModuleProfile, "max_price",
			"max_price must be positive, got %g", p.MaxPrice)
	}
	if p.MinRating < MinRatingMin || p.MinRating > MinRatingMax {
		return NewValidationError(ModuleProfile, "min_rating",
			"min_rating must be in [%g,%g], got %g", MinRatingMin, MinRatingMax, p.MinRating)
	}
	if p.BaseLocation != nil {
		if err := ValidateGeoPoint(p.BaseLocation.Lat, p.BaseLocation.Lon); err != nil {
			return err
		}
	}
	return nil
}

// ValidateGeoPoint 校验经纬度范围。
func ValidateGeoPoint(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return NewValidationError(ModuleProfile, "latitude",
			"latitude must be in [-90,90], got %g", lat)
	}
	if lon < -180 || lon > 180 {
		return NewValidationError(ModuleProfile, "longitude",
			"longitude must be in [-180,180], got %g", lon)
	}
	return nil
}

// PreferredSubjectSet 返回偏好科目的集合视图。
func (p *PreferenceProfile) PreferredSubjectSet() SubjectSet {
	return NewSubjectSet(p.PreferredSubjects...)
}

// ProfilePatch 是画像的部分更新。nil 字段表示不修改。
type ProfilePatch struct {
	DistanceWeight *int
	PriceWeight    *int
	RatingWeight   *int
	FacilityWeight *int
	TeacherWeight  *int

	MaxDistance *float64
	MaxPrice    *float64
	MinRating   *float64

	PreferredSubjects []Subject // nil 不修改；空 slice 清空
	BaseLocation      *GeoPoint

	AutoUpdateEnabled *bool
}

// Apply 将补丁应用到画像副本上并校验；原画像不被修改。
func (p *PreferenceProfile) Apply(patch ProfilePatch) (*PreferenceProfile, error) {
	next := *p
	if patch.DistanceWeight != nil {
		next.DistanceWeight = *patch.DistanceWeight
	}
	if patch.PriceWeight != nil {
		next.PriceWeight = *patch.PriceWeight
	}
	if patch.RatingWeight != nil {
		next.RatingWeight = *patch.RatingWeight
	}
	if patch.FacilityWeight != nil {
		next.FacilityWeight = *patch.FacilityWeight
	}
	if patch.TeacherWeight != nil {
		next.TeacherWeight = *patch.TeacherWeight
	}
	if patch.MaxDistance != nil {
		next.MaxDistance = *patch.MaxDistance
	}
	if patch.MaxPrice != nil {
		next.MaxPrice = *patch.MaxPrice
	}
	if patch.MinRating != nil {
		next.MinRating = *patch.MinRating
	}
	if patch.PreferredSubjects != nil {
		next.PreferredSubjects = append([]Subject(nil), patch.PreferredSubjects...)
	}
	if patch.BaseLocation != nil {
		loc := *patch.BaseLocation
		next.BaseLocation = &loc
	}
	if patch.AutoUpdateEnabled != nil {
		next.AutoUpdateEnabled = *patch.AutoUpdateEnabled
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now()
	return &next, nil
}

// ProfilePreset 是一组预设权重，用于一键重置画像。
type ProfilePreset string

const (
	PresetBalanced      ProfilePreset = "balanced"       // 均衡
	PresetDistanceFirst ProfilePreset = "distance_first" // 距离优先
	PresetRatingFirst   ProfilePreset = "rating_first"   // 评分优先
	PresetPriceFirst    ProfilePreset = "price_first"    // 价格优先
)

// ApplyPreset 按预设重置五个权重，其余字段不变。未知预设返回 INVALID_INPUT。
func (p *PreferenceProfile) ApplyPreset(preset ProfilePreset) error {
	switch preset {
	case PresetBalanced:
		p.DistanceWeight, p.PriceWeight, p.RatingWeight = 3, 3, 3
		p.FacilityWeight, p.TeacherWeight = 3, 3
	case PresetDistanceFirst:
		p.DistanceWeight, p.PriceWeight, p.RatingWeight = 5, 3, 3
		p.FacilityWeight, p.TeacherWeight = 2, 3
	case PresetRatingFirst:
		p.DistanceWeight, p.PriceWeight, p.RatingWeight = 3, 2, 5
		p.FacilityWeight, p.TeacherWeight = 3, 4
	case PresetPriceFirst:
		p.DistanceWeight, p.PriceWeight, p.RatingWeight = 3, 5, 3
		p.FacilityWeight, p.TeacherWeight = 2, 3
	default:
		return NewValidationError(ModuleProfile, "preset", "unknown preset: %q", string(preset))
	}
	p.UpdatedAt = time.Now()
	return nil
}
