package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/shiptrack/pkg/errors"
)

// JSONCache 以JSON存储的键值缓存
// 所有key自动加上命名空间前缀,如"shiptrack:tracking:ITP-00001"
type JSONCache struct {
	client    redis.Cmdable
	namespace string
}

// NewJSONCache 创建缓存
func NewJSONCache(client redis.Cmdable, namespace string) *JSONCache {
	return &JSONCache{client: client, namespace: namespace}
}

func (c *JSONCache) key(k string) string {
	if c.namespace == "" {
		return k
	}
	return c.namespace + ":" + k
}

// GetJSON 读取并反序列化到dst
// 未命中返回(false, nil)
func (c *JSONCache) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Wrap(err, "读取缓存失败")
	}

	if err := json.Unmarshal(data, dst); err != nil {
		// 结构变更后的旧数据按未命中处理,下次写入覆盖
		return false, nil
	}
	return true, nil
}

// SetJSON 序列化后写入,ttl<=0时不写
func (c *JSONCache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return apperrors.Wrap(err, "缓存序列化失败")
	}

	if err := c.client.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		return apperrors.Wrap(err, "写入缓存失败")
	}
	return nil
}

// Delete 删除缓存,不存在的键忽略
func (c *JSONCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return apperrors.Wrap(err, "删除缓存失败")
	}
	return nil
}
