// Package pipeline 把推荐逻辑拆成可组合的 Node 链：
// 召回 → 过滤 → 富化 → 排序 → 重排，每个阶段都是独立可替换的 Node。
package pipeline

import (
	"context"
	"fmt"

	"github.com/rushteam/acadmap/core"
)

// Pipeline 是推荐链路的核心抽象：依序执行 Node，前一个的输出是后一个的输入。
type Pipeline struct {
	Name  string
	Nodes []Node
}

// Run 依序执行所有 Node。任一 Node 报错即中断并携带节点名返回。
func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.Name(), err)
		}
		cur = next
	}
	return cur, nil
}
