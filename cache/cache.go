// Package cache 提供推荐结果缓存：参数化 key 派生、读穿透计算、
// 并发请求合并（singleflight）与命中计数。
//
// 后端通过 core.Store 注入，内存/Redis 均可；后端不可用时退化为
// 直接计算，不向上抛错。
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/rushteam/acadmap/core"
)

// DefaultTTL 是缓存条目的默认存活时间（秒）。
const DefaultTTL = 3600

// 命中计数器的约定 key（与缓存条目同一后端）。
const (
	hitsKey   = "acadmap:cache:hits"
	missesKey = "acadmap:cache:misses"
)

// Cache 是带请求合并的读穿透缓存。
type Cache struct {
	store core.Store
	ttl   int
	group singleflight.Group
}

// New 创建 Cache；ttlSeconds <= 0 时使用 DefaultTTL。
func New(store core.Store, ttlSeconds int) *Cache {
	if ttlSeconds <= 0 {
		ttlSeconds = DefaultTTL
	}
	return &Cache{store: store, ttl: ttlSeconds}
}

// Key 从命名空间和参数派生确定性缓存 key：
//   - 丢弃 nil 值参数
//   - 参数名升序排列后拼接 "k=v"，以 "&" 连接
//   - 对拼接串取 SHA-1 十六进制摘要，前缀命名空间
//
// 相同参数集合（无关传入顺序）得到相同 key。
func Key(namespace string, params map[string]any) string {
	names := make([]string, 0, len(params))
	for name, v := range params {
		if v == nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(fmt.Sprintf("%v", params[name]))
	}

	sum := sha1.Sum([]byte(sb.String()))
	return namespace + ":" + hex.EncodeToString(sum[:])
}

// GetOrCompute 读取 key；未命中时调用 compute 并回填。
// 返回值第二项表示是否命中缓存。
//
// 行为约定：
//   - 并发的同 key 未命中只触发一次 compute（singleflight 合并）
//   - 后端读写失败按未命中处理，compute 结果直接返回（计算穿透）
//   - compute 返回错误时不回填，错误原样上抛
func (c *Cache) GetOrCompute(
	ctx context.Context,
	key string,
	compute func(ctx context.Context) ([]byte, error),
) ([]byte, bool, error) {
	if c.store != nil {
		if data, err := c.store.Get(ctx, key); err == nil {
			c.count(ctx, hitsKey)
			return data, true, nil
		}
	}
	c.count(ctx, missesKey)

	v, err, _ := c.group.Do(key, func() (any, error) {
		// 合并窗口内后到的请求先复查一次，避免重复计算
		if c.store != nil {
			if data, err := c.store.Get(ctx, key); err == nil {
				return data, nil
			}
		}
		data, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if c.store != nil {
			_ = c.store.Set(ctx, key, data, c.ttl)
		}
		return data, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), false, nil
}

// Set 直接写入缓存（用于推荐池的主动回填）。
func (c *Cache) Set(ctx context.Context, key string, data []byte) error {
	if c.store == nil {
		return nil
	}
	return c.store.Set(ctx, key, data, c.ttl)
}

// Invalidate 删除缓存条目（画像更新后调用，保证下次重新计算）。
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if c.store == nil {
		return nil
	}
	return c.store.Delete(ctx, key)
}

// Stats 返回累计的命中/未命中次数；后端不支持计数时返回零值。
func (c *Cache) Stats(ctx context.Context) (hits, misses int64) {
	if c.store == nil {
		return 0, 0
	}
	hits = readCounter(ctx, c.store, hitsKey)
	misses = readCounter(ctx, c.store, missesKey)
	return hits, misses
}

// count 尽力而为地自增计数器；失败不影响主流程。
func (c *Cache) count(ctx context.Context, key string) {
	if c.store == nil {
		return
	}
	_, _ = c.store.Incr(ctx, key)
}

func readCounter(ctx context.Context, s core.Store, key string) int64 {
	data, err := s.Get(ctx, key)
	if err != nil {
		return 0
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
