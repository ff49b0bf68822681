package shipment

import (
	"context"
	"time"
)

// Transactor 事务执行器,由mysql.TxManager实现
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher 领域事件发布,由mq.Publisher实现
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

// Cache 查询缓存,由redis.GuardedCache实现
type Cache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// NopPublisher 未启用消息队列时使用
type NopPublisher struct{}

// Publish 丢弃事件
func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }

// NopCache 未启用Redis时使用,永远未命中
type NopCache struct{}

// GetJSON 永远未命中
func (NopCache) GetJSON(context.Context, string, interface{}) (bool, error) { return false, nil }

// SetJSON 不写入
func (NopCache) SetJSON(context.Context, string, interface{}, time.Duration) error { return nil }

// Delete 无需删除
func (NopCache) Delete(context.Context, ...string) error { return nil }
