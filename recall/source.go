// Package recall 提供候选集生成：按科目/地理条件从实体存储召回候选。
package recall

import (
	"context"

	"github.com/rushteam/acadmap/core"
)

// Source 表示一个可复用的召回源（地理/科目/热门/...）。
// 可以把它理解为"可并发 fan-out 的策略单元"。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}
