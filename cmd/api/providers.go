package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	appclient "github.com/xiebiao/shiptrack/internal/application/client"
	appshipment "github.com/xiebiao/shiptrack/internal/application/shipment"
	"github.com/xiebiao/shiptrack/internal/domain/client"
	"github.com/xiebiao/shiptrack/internal/domain/shipment"
	"github.com/xiebiao/shiptrack/internal/infrastructure/config"
	"github.com/xiebiao/shiptrack/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/shiptrack/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/shiptrack/pkg/circuitbreaker"
	"github.com/xiebiao/shiptrack/pkg/logger"
	"github.com/xiebiao/shiptrack/pkg/metrics"
	"github.com/xiebiao/shiptrack/pkg/mq"
)

const (
	// cacheNamespace Redis key前缀
	cacheNamespace = "shiptrack"
	// cacheBreakerName 追踪查询缓存熔断器名称
	cacheBreakerName = "tracking-cache"
)

// App 组装完成的应用
type App struct {
	Engine *gin.Engine
	Log    *zap.Logger
}

// ========================================
// 自定义Provider
// ========================================
// 构造函数参数需要从Config中提取,或者需要返回cleanup时,在这里包一层

// provideLogger 按log配置创建logger,同时替换zap全局logger
func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	log, err := logger.New(logger.Options{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
		MaxSizeMB:    cfg.Log.MaxSizeMB,
		MaxBackups:   cfg.Log.MaxBackups,
		MaxAgeDays:   cfg.Log.MaxAgeDays,
		Compress:     cfg.Log.Compress,
	})
	if err != nil {
		return nil, nil, err
	}
	restore := zap.ReplaceGlobals(log)
	return log, func() {
		_ = log.Sync()
		restore()
	}, nil
}

// provideDB 创建数据库连接,cleanup时关闭连接池
func provideDB(ctx context.Context, cfg *config.Config, log *zap.Logger) (*gorm.DB, func(), error) {
	db, err := mysql.NewDB(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return db, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}, nil
}

// provideCache redis.enabled=false时使用NopCache,追踪查询直接查库
func provideCache(ctx context.Context, cfg *config.Config, log *zap.Logger) (appshipment.Cache, func(), error) {
	if !cfg.Redis.Enabled || cfg.Tracking.LookupCacheTTL <= 0 {
		log.Info("tracking lookup cache disabled")
		return appshipment.NopCache{}, func() {}, nil
	}

	rdb, err := redis.NewClient(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	breaker := circuitbreaker.New(cacheBreakerName, circuitbreaker.Config{
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			metrics.RecordBreakerTransition(name, to.String())
			log.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	cache := redis.NewGuardedCache(redis.NewJSONCache(rdb, cacheNamespace), breaker)
	return cache, func() { _ = rdb.Close() }, nil
}

// providePublisher mq.enabled=false时丢弃领域事件
func providePublisher(cfg *config.Config, log *zap.Logger) (appshipment.EventPublisher, func(), error) {
	if !cfg.MQ.Enabled {
		log.Info("event publishing disabled")
		return appshipment.NopPublisher{}, func() {}, nil
	}

	p, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, log)
	if err != nil {
		return nil, nil, err
	}
	return p, func() { _ = p.Close() }, nil
}

// provideAllocator 按tracking.exhaustion_policy创建分配器
func provideAllocator(repo client.Repository, cfg *config.Config) client.Allocator {
	return client.NewAllocator(repo, client.WithExhaustionPolicy(client.ExhaustionPolicy(cfg.Tracking.ExhaustionPolicy)))
}

// provideClientSettings 客户用例参数
func provideClientSettings(cfg *config.Config) appclient.Settings {
	return appclient.Settings{PrefixRetryAttempts: cfg.Tracking.PrefixRetryAttempts}
}

// provideLookupShipmentUseCase 追踪查询用例(缓存TTL来自配置)
func provideLookupShipmentUseCase(repo shipment.Repository, cache appshipment.Cache, cfg *config.Config, log *zap.Logger) *appshipment.LookupShipmentUseCase {
	return appshipment.NewLookupShipmentUseCase(repo, cache, cfg.Tracking.LookupCacheTTL, log)
}

// newApp 最终产物
func newApp(engine *gin.Engine, log *zap.Logger) *App {
	return &App{Engine: engine, Log: log}
}
