package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rushteam/acadmap/store"
)

func TestKeyDeterministic(t *testing.T) {
	a := Key("rec", map[string]any{"user": "u1", "lat": 37.5, "lon": 127.0})
	b := Key("rec", map[string]any{"lon": 127.0, "lat": 37.5, "user": "u1"})
	if a != b {
		t.Fatalf("同参数不同顺序应得到相同 key: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "rec:") {
		t.Fatalf("key 应带命名空间前缀: %s", a)
	}
}

func TestKeyIgnoresNil(t *testing.T) {
	a := Key("rec", map[string]any{"user": "u1", "subjects": nil})
	b := Key("rec", map[string]any{"user": "u1"})
	if a != b {
		t.Fatalf("nil 参数应被丢弃: %s vs %s", a, b)
	}
}

func TestKeyDistinguishesParams(t *testing.T) {
	a := Key("rec", map[string]any{"user": "u1"})
	b := Key("rec", map[string]any{"user": "u2"})
	if a == b {
		t.Fatal("不同参数值应得到不同 key")
	}
	c := Key("similar", map[string]any{"user": "u1"})
	if a == c {
		t.Fatal("不同命名空间应得到不同 key")
	}
}

func TestGetOrCompute(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	c := New(s, 60)
	ctx := context.Background()

	var calls int32
	compute := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("result"), nil
	}

	data, hit, err := c.GetOrCompute(ctx, "k1", compute)
	if err != nil {
		t.Fatalf("首次读取失败: %v", err)
	}
	if hit {
		t.Fatal("首次读取不应命中")
	}
	if string(data) != "result" {
		t.Fatalf("计算结果错误: %s", data)
	}

	data, hit, err = c.GetOrCompute(ctx, "k1", compute)
	if err != nil {
		t.Fatalf("二次读取失败: %v", err)
	}
	if !hit {
		t.Fatal("二次读取应命中缓存")
	}
	if string(data) != "result" {
		t.Fatalf("缓存结果错误: %s", data)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("compute 应只执行一次, got %d", got)
	}

	hits, misses := c.Stats(ctx)
	if hits != 1 || misses != 1 {
		t.Fatalf("命中计数错误: hits=%d misses=%d", hits, misses)
	}
}

func TestGetOrComputeCoalesces(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	c := New(s, 60)
	ctx := context.Background()

	var calls int32
	compute := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond)
		return []byte("slow"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, _, err := c.GetOrCompute(ctx, "hot", compute)
			if err != nil {
				t.Errorf("并发读取失败: %v", err)
				return
			}
			if string(data) != "slow" {
				t.Errorf("并发结果错误: %s", data)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("并发同 key 未命中应合并为一次计算, got %d", got)
	}
}

func TestGetOrComputeWithoutBackend(t *testing.T) {
	c := New(nil, 60)
	data, hit, err := c.GetOrCompute(context.Background(), "k", func(context.Context) ([]byte, error) {
		return []byte("direct"), nil
	})
	if err != nil {
		t.Fatalf("无后端应直接计算: %v", err)
	}
	if hit {
		t.Fatal("无后端不应命中")
	}
	if string(data) != "direct" {
		t.Fatalf("结果错误: %s", data)
	}
}

func TestInvalidate(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	c := New(s, 60)
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if err := c.Invalidate(ctx, "k"); err != nil {
		t.Fatalf("失效失败: %v", err)
	}
	_, hit, err := c.GetOrCompute(ctx, "k", func(context.Context) ([]byte, error) {
		return []byte("recomputed"), nil
	})
	if err != nil {
		t.Fatalf("重算失败: %v", err)
	}
	if hit {
		t.Fatal("失效后不应命中")
	}
}
