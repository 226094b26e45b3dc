// Package store 提供领域接口的基础设施实现。
//
// 注意：此包只包含实现，接口定义在 core 包。
//   - core.Store / core.KeyValueStore：MemoryStore、RedisStore
//   - core.AcademyStore / core.ReviewStore：MemoryAcademyStore、MemoryReviewStore
//   - core.ProfileStore / core.HistoryStore / core.BehaviorStore：对应 Memory* 实现
//
// 示例：
//
//	var kv core.KeyValueStore = store.NewMemoryStore()
//	var academies core.AcademyStore = store.NewMemoryAcademyStore()
package store
