// Package dsl 提供基于 CEL (Common Expression Language) 的规则解释器，
// 用于运营侧以表达式形式定义候选过滤/圈选规则。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/acadmap/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量和函数
func initCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("academy", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
	return env, err
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = initCELEnv()
	})
	return celEnv, err
}

// Eval 是规则 DSL 解释器。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：academy.shuttle == true / label.recall_source != null
//   - 数值：item.score > 70.0 / academy.price <= 500000.0
//   - 逻辑：academy.shuttle && item.score > 50.0
//   - 包含："math" in academy.subjects
//
// 示例：
//   - `"math" in academy.subjects` → 开设数学
//   - `academy.price != null && academy.price <= 300000.0` → 预算内
//   - `label.recall_source.contains("geo")` → 地理召回来源
type Eval struct {
	item *core.Item
	rctx *core.RecommendContext
	env  *cel.Env
}

// NewEval 创建一个新的 DSL 解释器。
func NewEval(item *core.Item, rctx *core.RecommendContext) *Eval {
	env, _ := getCELEnv()
	return &Eval{
		item: item,
		rctx: rctx,
		env:  env,
	}
}

// Evaluate 解析并执行 DSL 表达式，返回布尔结果。
//
// 注意：CEL 访问不存在的 key 会报错，检查存在性应写 `label.key != null`。
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	if e.env == nil {
		return false, fmt.Errorf("cel env not initialized")
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("compile error: %v", issues.Err())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("program error: %v", err)
	}

	out, _, err := prg.Eval(e.buildInput())
	if err != nil {
		return false, fmt.Errorf("eval error: %v", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}

	return result, nil
}

// Check 仅编译表达式，不求值。用于配置加载时提前暴露语法错误。
func Check(expr string) error {
	if expr == "" {
		return nil
	}
	env, err := getCELEnv()
	if err != nil || env == nil {
		return fmt.Errorf("cel env not initialized: %v", err)
	}
	if _, issues := env.Compile(expr); issues != nil && issues.Err() != nil {
		return fmt.Errorf("compile error: %v", issues.Err())
	}
	return nil
}

// buildInput 构建 CEL 表达式的输入数据
func (e *Eval) buildInput() map[string]any {
	labels := make(map[string]any)
	labelAccessor := make(map[string]any)
	for k, v := range e.item.Labels {
		labels[k] = map[string]any{
			"value":  v.Value,
			"source": v.Source,
		}
		// label.recall_source 直接取 value，兼容简写
		labelAccessor[k] = v.Value
	}

	item := map[string]any{
		"id":     e.item.ID,
		"score":  e.item.Score,
		"meta":   e.item.Meta,
		"labels": labels,
	}

	academy := map[string]any{}
	if a := e.item.Academy; a != nil {
		academy["id"] = a.ID
		academy["name"] = a.Name
		academy["subjects"] = a.Subjects.Strings()
		academy["shuttle"] = a.Shuttle
		academy["parking"] = a.Parking
		academy["cafeteria"] = a.Cafeteria
		if a.Price != nil {
			academy["price"] = *a.Price
		} else {
			academy["price"] = nil
		}
		if a.Location != nil {
			academy["latitude"] = a.Location.Lat
			academy["longitude"] = a.Location.Lon
		}
	}

	rctx := map[string]any{}
	if e.rctx != nil {
		rctx["user_id"] = e.rctx.UserID
		rctx["scene"] = e.rctx.Scene
		rctx["params"] = e.rctx.Params
	}

	return map[string]any{
		"item":    item,
		"academy": academy,
		"label":   labelAccessor,
		"rctx":    rctx,
	}
}
