// Package acadmap 是一个学院推荐引擎（Academy Map Recommender）。
//
// 设计要点：
// - Pipeline-first: 推荐逻辑通过 Node 串联（Recall → Filter → Enrich → Rank → ReRank）
// - Labels-first: labels 全链路透传与标准化 merge，支持 explain / 观测 / 策略驱动
// - 依赖注入: engine.New 显式接收存储协作者，无全局单例，可并行构造测试实例
//
// 核心能力：
// - 画像加权五因子打分（距离/价格/评分/科目/设施），归一化到 0-100
// - Haversine 精确距离 + 边界盒粗过滤的地理候选检索
// - 实体相似度（科目 Jaccard + 位置近邻 + 评分接近）
// - 行为驱动的画像自动调整（30 天窗口）
// - 结果缓存（SHA-1 参数寻址 + singleflight 合并）
package acadmap

import "github.com/rushteam/acadmap/pipeline"

// 轻量 facade：便于用户直接 import "acadmap" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindEnrich      = pipeline.KindEnrich
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
