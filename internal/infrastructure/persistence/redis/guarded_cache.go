package redis

import (
	"context"
	"time"

	"github.com/xiebiao/shiptrack/pkg/circuitbreaker"
)

// GuardedCache 带熔断的JSONCache
// Redis连续故障后熔断器打开,读写直接返回circuitbreaker.ErrOpenState,
// 调用方按缓存故障处理(降级查库),不必每个请求都等Redis超时
type GuardedCache struct {
	cache   *JSONCache
	breaker *circuitbreaker.CircuitBreaker
}

// NewGuardedCache 创建带熔断的缓存
func NewGuardedCache(cache *JSONCache, breaker *circuitbreaker.CircuitBreaker) *GuardedCache {
	return &GuardedCache{cache: cache, breaker: breaker}
}

// GetJSON 未命中不计入失败
func (g *GuardedCache) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	var hit bool
	err := g.breaker.Execute(func() error {
		var err error
		hit, err = g.cache.GetJSON(ctx, key, dst)
		return err
	})
	return hit, err
}

// Delete 删除缓存
func (g *GuardedCache) Delete(ctx context.Context, keys ...string) error {
	return g.breaker.Execute(func() error {
		return g.cache.Delete(ctx, keys...)
	})
}

// SetJSON 写入缓存
func (g *GuardedCache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	return g.breaker.Execute(func() error {
		return g.cache.SetJSON(ctx, key, v, ttl)
	})
}
