package score

import (
	"fmt"
	"strings"
)

const reasonSeparator = " • "

// 没有任何因子成立时的兜底文案。
const reasonFallback = "综合条件较为合适"

// Reason 把打分明细转成人类可读的推荐理由。
// 每个命中的因子产出一个片段，按固定顺序以 " • " 连接；
// 一个因子都没有时返回兜底文案。
func Reason(result Result) string {
	var fragments []string

	if fs, ok := result.Breakdown[FactorDistance]; ok {
		fragments = append(fragments, fmt.Sprintf("距离 %.1fkm，通勤便利", fs.Actual))
	}
	if fs, ok := result.Breakdown[FactorRating]; ok {
		fragments = append(fragments, fmt.Sprintf("评分 %.1f 分（评价 %d 条）", fs.Actual, fs.ReviewCount))
	}
	if _, ok := result.Breakdown[FactorSubject]; ok {
		fragments = append(fragments, "匹配偏好科目")
	}
	if fs, ok := result.Breakdown[FactorPrice]; ok {
		fragments = append(fragments, fmt.Sprintf("价格 %.0f 在预算内", fs.Actual))
	}

	if len(fragments) == 0 {
		return reasonFallback
	}
	return strings.Join(fragments, reasonSeparator)
}
