package score

import (
	"strconv"
	"strings"
)

// 数据源里的价格是带千分位和货币后缀的自由文本（如 "450,000원"）。
// 解析放在摄入边界：入库时调用一次，打分热路径只看 typed 字段。
var priceSuffixes = []string{"원", "won", "krw"}

// ParsePrice 解析货币文本为数值。
// 去掉千分位分隔符、空白和货币后缀后按浮点解析；失败返回 (0, false)。
func ParsePrice(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")

	lower := strings.ToLower(s)
	for _, suffix := range priceSuffixes {
		if strings.HasSuffix(lower, suffix) {
			s = s[:len(s)-len(suffix)]
			break
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
