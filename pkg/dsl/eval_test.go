package dsl

import (
	"testing"

	"github.com/rushteam/acadmap/core"
	"github.com/rushteam/acadmap/pkg/utils"
)

func testItem() *core.Item {
	it := core.NewItem("a1")
	it.Score = 72.5
	price := 300000.0
	it.Academy = &core.Academy{
		ID:       "a1",
		Name:     "Academy",
		Subjects: core.NewSubjectSet(core.SubjectMath, core.SubjectEnglish),
		Price:    &price,
		Shuttle:  true,
	}
	it.PutLabel("recall_source", utils.Label{Value: "recall.geo", Source: "recall"})
	return it
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name string
		expr string
		want bool
	}{
		{"科目包含", `"math" in academy.subjects`, true},
		{"科目不包含", `"arts" in academy.subjects`, false},
		{"价格比较", `academy.price != null && academy.price <= 500000.0`, true},
		{"设施标志", `academy.shuttle`, true},
		{"分数比较", `item.score > 70.0`, true},
		{"标签取值", `label.recall_source.contains("geo")`, true},
		{"逻辑组合", `academy.shuttle && item.score > 80.0`, false},
		{"空表达式恒真", ``, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewEval(testItem(), &core.RecommendContext{UserID: "u1"}).Evaluate(tc.expr)
			if err != nil {
				t.Fatalf("求值失败: %v", err)
			}
			if got != tc.want {
				t.Fatalf("%s = %v, want %v", tc.expr, got, tc.want)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	e := NewEval(testItem(), nil)
	if _, err := e.Evaluate(`academy.price >`); err == nil {
		t.Fatal("语法错误应报错")
	}
	if _, err := e.Evaluate(`academy.name`); err == nil {
		t.Fatal("非布尔结果应报错")
	}
}

func TestCheck(t *testing.T) {
	if err := Check(`item.score > 50.0`); err != nil {
		t.Fatalf("合法表达式不应报错: %v", err)
	}
	if err := Check(`&&&`); err == nil {
		t.Fatal("非法表达式应在编译期报错")
	}
	if err := Check(""); err != nil {
		t.Fatal("空表达式视为合法")
	}
}
