package core

// GeoPoint 是一个经纬度坐标。
type GeoPoint struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Academy 是可被检索/推荐的学院实体。
//
// 引擎视角下它是只读的：入库清洗（价格解析、科目归一化）发生在
// 数据摄入边界，打分热路径只消费 typed 字段。
type Academy struct {
	ID   string // 唯一 ID
	Name string // 展示名称

	// 坐标可能缺失（老数据未标注），缺失时距离因子整体跳过。
	Location *GeoPoint

	Subjects  SubjectSet  // 开设科目
	AgeGroups AgeGroupSet // 目标年龄段

	// Price 是摄入时解析好的月均价；RawPrice 保留原始串（如 "450,000원"）。
	// 解析失败时 Price 为 nil，价格因子跳过。
	Price    *float64
	RawPrice string

	// 设施标志
	Shuttle   bool // 班车
	Parking   bool // 停车
	Cafeteria bool // 餐厅

	Address string
	Phone   string
}

// Summary 返回对外序列化用的摘要 map（推荐结果里携带的实体快照）。
func (a *Academy) Summary() map[string]any {
	summary := map[string]any{
		"id":       a.ID,
		"name":     a.Name,
		"address":  a.Address,
		"phone":    a.Phone,
		"subjects": a.Subjects.Strings(),
		"shuttle":  a.Shuttle,
	}
	if a.Location != nil {
		summary["latitude"] = a.Location.Lat
		summary["longitude"] = a.Location.Lon
	} else {
		summary["latitude"] = nil
		summary["longitude"] = nil
	}
	return summary
}

// ReviewStats 是评价子系统维护的只读聚合（排除被隐藏的评价）。
type ReviewStats struct {
	Average float64 // 平均分（1-5）
	Count   int     // 评价数
}

// HasReviews 判断是否存在有效评价。
func (s ReviewStats) HasReviews() bool { return s.Count > 0 }
