package filter

import (
	"context"

	"github.com/rushteam/acadmap/core"
	"github.com/rushteam/acadmap/pkg/dsl"
)

// Rule 是 CEL 表达式过滤器：运营侧用表达式定义排除规则，
// 表达式求值为 true 的候选被剔除。
//
// 示例：
//   - `academy.price != null && academy.price > 1000000.0` → 剔除高价实体
//   - `!("math" in academy.subjects)` → 只保留开设数学的实体
//
// 表达式错误按"不过滤"处理（ShouldFilter 返回 error，由 Node 兜底放行），
// 规则配置问题不应让线上请求失败。
type Rule struct {
	// Expr 是 CEL 表达式（见 pkg/dsl 支持的语法）。
	Expr string
}

// NewRule 创建规则过滤器并提前编译表达式，语法错误在配置加载期暴露。
func NewRule(expr string) (*Rule, error) {
	if err := dsl.Check(expr); err != nil {
		return nil, err
	}
	return &Rule{Expr: expr}, nil
}

func (f *Rule) Name() string { return "filter.rule" }

func (f *Rule) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if f.Expr == "" || item == nil {
		return false, nil
	}
	return dsl.NewEval(item, rctx).Evaluate(f.Expr)
}
