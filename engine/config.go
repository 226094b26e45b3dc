package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/acadmap/core"
)

// Config 是引擎的运行参数。零值无效，请从 DefaultConfig 出发修改。
type Config struct {
	// CacheTTL 推荐结果缓存存活时间（秒）
	CacheTTL int `yaml:"cache_ttl" json:"cache_ttl"`

	// MaxRecommendations 单次计算的结果池上限（缓存的是整个池）
	MaxRecommendations int `yaml:"max_recommendations" json:"max_recommendations"`

	// MinScore 推荐结果最低分门槛（闭区间：等于即保留）
	MinScore float64 `yaml:"min_score" json:"min_score"`

	// ScanLimit 召回阶段的候选扫描上限
	ScanLimit int `yaml:"scan_limit" json:"scan_limit"`

	// SimilarScanLimit 相似推荐的候选扫描上限
	SimilarScanLimit int `yaml:"similar_scan_limit" json:"similar_scan_limit"`

	// SimilarMinScore 相似推荐的最低相似度门槛
	SimilarMinScore float64 `yaml:"similar_min_score" json:"similar_min_score"`

	// DefaultLimit / MaxLimit 返回条数的默认值与上限（请求值钳制到 [1,MaxLimit]）
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
	MaxLimit     int `yaml:"max_limit" json:"max_limit"`

	// DefaultSimilarLimit 相似推荐的默认返回条数
	DefaultSimilarLimit int `yaml:"default_similar_limit" json:"default_similar_limit"`

	// DefaultRadiusKM 位置推荐的默认检索半径（km）
	DefaultRadiusKM float64 `yaml:"default_radius_km" json:"default_radius_km"`

	// AdaptationWindowDays 画像自动调整的行为回看窗口（天）
	AdaptationWindowDays int `yaml:"adaptation_window_days" json:"adaptation_window_days"`

	// DiversityMaxPerKey 科目多样性重排的同组上限；0 表示关闭
	DiversityMaxPerKey int `yaml:"diversity_max_per_key" json:"diversity_max_per_key"`
}

// DefaultConfig 返回默认参数。
func DefaultConfig() Config {
	return Config{
		CacheTTL:             3600,
		MaxRecommendations:   20,
		MinScore:             30,
		ScanLimit:            100,
		SimilarScanLimit:     20,
		SimilarMinScore:      50,
		DefaultLimit:         10,
		MaxLimit:             50,
		DefaultSimilarLimit:  5,
		DefaultRadiusKM:      5,
		AdaptationWindowDays: 30,
		DiversityMaxPerKey:   0,
	}
}

// Validate 校验配置不变量。
func (c Config) Validate() error {
	check := func(ok bool, field, format string, args ...any) error {
		if ok {
			return nil
		}
		return core.NewValidationError(core.ModuleEngine, field, format, args...)
	}
	if err := check(c.CacheTTL > 0, "cache_ttl", "cache_ttl must be positive, got %d", c.CacheTTL); err != nil {
		return err
	}
	if err := check(c.MaxRecommendations > 0, "max_recommendations",
		"max_recommendations must be positive, got %d", c.MaxRecommendations); err != nil {
		return err
	}
	if err := check(c.MinScore >= 0 && c.MinScore <= 100, "min_score",
		"min_score must be in [0,100], got %g", c.MinScore); err != nil {
		return err
	}
	if err := check(c.ScanLimit > 0, "scan_limit", "scan_limit must be positive, got %d", c.ScanLimit); err != nil {
		return err
	}
	if err := check(c.SimilarScanLimit > 0, "similar_scan_limit",
		"similar_scan_limit must be positive, got %d", c.SimilarScanLimit); err != nil {
		return err
	}
	if err := check(c.DefaultLimit > 0, "default_limit",
		"default_limit must be positive, got %d", c.DefaultLimit); err != nil {
		return err
	}
	if err := check(c.MaxLimit >= c.DefaultLimit, "max_limit",
		"max_limit must be >= default_limit, got %d < %d", c.MaxLimit, c.DefaultLimit); err != nil {
		return err
	}
	if err := check(c.DefaultSimilarLimit > 0, "default_similar_limit",
		"default_similar_limit must be positive, got %d", c.DefaultSimilarLimit); err != nil {
		return err
	}
	if err := check(c.DefaultRadiusKM > 0, "default_radius_km",
		"default_radius_km must be positive, got %g", c.DefaultRadiusKM); err != nil {
		return err
	}
	if err := check(c.AdaptationWindowDays > 0, "adaptation_window_days",
		"adaptation_window_days must be positive, got %d", c.AdaptationWindowDays); err != nil {
		return err
	}
	return nil
}

// LoadConfig 从 YAML 文件加载配置：缺省字段取 DefaultConfig，整体校验后返回。
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
