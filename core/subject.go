package core

import "sort"

// Subject 是学院科目的强类型枚举。
//
// 原始数据以布尔列（数学/英语/...）的形式存储科目开设情况，
// 这里统一收敛为枚举 + 集合，避免按字符串拼字段名的反射式访问：
// 非法科目在入口处（ParseSubject）就报错，而不是在打分时静默跳过。
type Subject string

const (
	SubjectMath    Subject = "math"    // 数学
	SubjectEnglish Subject = "english" // 英语
	SubjectKorean  Subject = "korean"  // 国语
	SubjectScience Subject = "science" // 科学
	SubjectSocial  Subject = "social"  // 社会
	SubjectArts    Subject = "arts"    // 艺体
	SubjectEssay   Subject = "essay"   // 论述
	SubjectForeign Subject = "foreign" // 第二外语
)

// AllSubjects 返回全部已知科目（固定顺序）。
func AllSubjects() []Subject {
	return []Subject{
		SubjectMath, SubjectEnglish, SubjectKorean, SubjectScience,
		SubjectSocial, SubjectArts, SubjectEssay, SubjectForeign,
	}
}

var validSubjects = func() map[Subject]struct{} {
	m := make(map[Subject]struct{})
	for _, s := range AllSubjects() {
		m[s] = struct{}{}
	}
	return m
}()

// ParseSubject 校验并返回科目枚举。未知科目返回 INVALID_INPUT。
func ParseSubject(s string) (Subject, error) {
	sub := Subject(s)
	if _, ok := validSubjects[sub]; !ok {
		return "", NewValidationError(ModuleAcademy, "subject", "unknown subject: %q", s)
	}
	return sub, nil
}

// ParseSubjects 批量校验科目，任一非法即失败。
func ParseSubjects(ss []string) ([]Subject, error) {
	out := make([]Subject, 0, len(ss))
	for _, s := range ss {
		sub, err := ParseSubject(s)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}

// SubjectSet 是科目集合。零值可读（Has 返回 false），写入前需 make。
type SubjectSet map[Subject]struct{}

// NewSubjectSet 由科目列表构建集合（自动去重）。
func NewSubjectSet(subjects ...Subject) SubjectSet {
	set := make(SubjectSet, len(subjects))
	for _, s := range subjects {
		set[s] = struct{}{}
	}
	return set
}

// Has 判断科目是否在集合中。
func (s SubjectSet) Has(sub Subject) bool {
	_, ok := s[sub]
	return ok
}

// Add 添加科目。
func (s SubjectSet) Add(sub Subject) {
	s[sub] = struct{}{}
}

// Len 返回集合大小。
func (s SubjectSet) Len() int { return len(s) }

// Slice 返回排序后的科目列表（确定性输出，便于缓存键与测试）。
func (s SubjectSet) Slice() []Subject {
	out := make([]Subject, 0, len(s))
	for sub := range s {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings 返回排序后的字符串列表。
func (s SubjectSet) Strings() []string {
	subjects := s.Slice()
	out := make([]string, len(subjects))
	for i, sub := range subjects {
		out[i] = string(sub)
	}
	return out
}

// IntersectCount 返回与另一集合的交集大小。
func (s SubjectSet) IntersectCount(other SubjectSet) int {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	n := 0
	for sub := range small {
		if large.Has(sub) {
			n++
		}
	}
	return n
}

// UnionCount 返回与另一集合的并集大小。
func (s SubjectSet) UnionCount(other SubjectSet) int {
	return len(s) + len(other) - s.IntersectCount(other)
}

// AgeGroup 是目标年龄段枚举。
type AgeGroup string

const (
	AgeGroupPreschool  AgeGroup = "preschool"  // 学龄前
	AgeGroupElementary AgeGroup = "elementary" // 小学
	AgeGroupMiddle     AgeGroup = "middle"     // 初中
	AgeGroupHigh       AgeGroup = "high"       // 高中
	AgeGroupAdult      AgeGroup = "adult"      // 成人
)

// AgeGroupSet 是年龄段集合。
type AgeGroupSet map[AgeGroup]struct{}

// NewAgeGroupSet 由年龄段列表构建集合。
func NewAgeGroupSet(groups ...AgeGroup) AgeGroupSet {
	set := make(AgeGroupSet, len(groups))
	for _, g := range groups {
		set[g] = struct{}{}
	}
	return set
}

// Has 判断年龄段是否在集合中。
func (s AgeGroupSet) Has(g AgeGroup) bool {
	_, ok := s[g]
	return ok
}
