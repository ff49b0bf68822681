// Package metrics 提供基于Prometheus的指标收集
//
// # 指标分组
//
// 1. HTTP请求:总数、耗时、处理中请求数(由middleware.Metrics记录)
// 2. 追踪号签发:签发总数、失败总数、签发耗时
// 3. 前缀分配:按命中阶段计数、候选耗尽次数、唯一索引冲突次数
// 4. 查询缓存:命中/未命中/错误
// 5. 消息队列:发布总数
//
// # 使用示例
//
//	metrics.InitMetrics()
//	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
//
//	start := time.Now()
//	code, err := allocator.NextTrackingCode(ctx, clientID)
//	metrics.RecordTrackingCodeIssued(time.Since(start), err)
//
// # 命名规范
//
//   - Counter以_total结尾
//   - Histogram以单位结尾(_seconds)
//   - 标签只用有限取值(phase、result),不要用client_id这类高基数字段
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 缓存查询结果标签值
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	initOnce sync.Once

	// HTTP请求相关指标

	// HTTPRequestsTotal HTTP请求总数
	// 标签:method、path(路由模板)、status
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration HTTP请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsInProgress 正在处理的HTTP请求数
	HTTPRequestsInProgress prometheus.Gauge

	// 追踪号指标

	// TrackingCodesIssuedTotal 成功签发的追踪号总数
	TrackingCodesIssuedTotal prometheus.Counter

	// TrackingCodesFailedTotal 签发失败总数(客户不存在、未分配前缀、数据库错误)
	TrackingCodesFailedTotal prometheus.Counter

	// TrackingCodeIssueDuration 签发耗时,主要是行锁等待
	TrackingCodeIssueDuration prometheus.Histogram

	// 前缀分配指标

	// PrefixAllocationsTotal 自动分配前缀次数
	// 标签:phase(base/numeric/alpha/fallback)
	PrefixAllocationsTotal *prometheus.CounterVec

	// PrefixAllocationExhaustedTotal 候选前缀全部被占用的次数
	PrefixAllocationExhaustedTotal prometheus.Counter

	// PrefixConflictsTotal 写入时触发前缀唯一索引冲突的次数(预检与写入之间被抢占)
	PrefixConflictsTotal prometheus.Counter

	// 运单指标

	// ShipmentsCreatedTotal 运单创建总数
	ShipmentsCreatedTotal prometheus.Counter

	// LookupCacheRequestsTotal 追踪查询缓存访问
	// 标签:result(hit/miss/error)
	LookupCacheRequestsTotal *prometheus.CounterVec

	// 消息队列指标

	// MessagesPublishedTotal 消息发布总数
	// 标签:exchange、routing_key、result(success/failure)
	MessagesPublishedTotal *prometheus.CounterVec

	// CircuitBreakerTransitionsTotal 熔断器状态切换次数
	// 标签:name、to(closed/open/half_open)
	CircuitBreakerTransitionsTotal *prometheus.CounterVec
)

// InitMetrics 注册所有指标(可重复调用)
func InitMetrics() {
	initOnce.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP请求耗时(秒)",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_progress",
			Help: "正在处理的HTTP请求数",
		},
	)

	TrackingCodesIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracking_codes_issued_total",
			Help: "成功签发的追踪号总数",
		},
	)

	TrackingCodesFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracking_codes_failed_total",
			Help: "追踪号签发失败总数",
		},
	)

	TrackingCodeIssueDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "tracking_code_issue_duration_seconds",
			Help: "追踪号签发耗时(秒)",
			// 正常是一次加锁+一次UPDATE,热点客户会排队等锁
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	PrefixAllocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prefix_allocations_total",
			Help: "自动分配前缀次数(按命中阶段)",
		},
		[]string{"phase"},
	)

	PrefixAllocationExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prefix_allocation_exhausted_total",
			Help: "候选前缀耗尽次数",
		},
	)

	PrefixConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prefix_conflicts_total",
			Help: "前缀唯一索引冲突次数",
		},
	)

	ShipmentsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shipments_created_total",
			Help: "运单创建总数",
		},
	)

	LookupCacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookup_cache_requests_total",
			Help: "追踪查询缓存访问次数",
		},
		[]string{"result"},
	)

	MessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_published_total",
			Help: "消息发布总数",
		},
		[]string{"exchange", "routing_key", "result"},
	)

	CircuitBreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "熔断器状态切换次数",
		},
		[]string{"name", "to"},
	)
}

// RecordTrackingCodeIssued 记录一次追踪号签发
func RecordTrackingCodeIssued(elapsed time.Duration, err error) {
	InitMetrics()
	TrackingCodeIssueDuration.Observe(elapsed.Seconds())
	if err != nil {
		TrackingCodesFailedTotal.Inc()
		return
	}
	TrackingCodesIssuedTotal.Inc()
}

// RecordPrefixAllocation 记录一次自动前缀分配及其命中阶段
func RecordPrefixAllocation(phase string, exhausted bool) {
	InitMetrics()
	PrefixAllocationsTotal.WithLabelValues(phase).Inc()
	if exhausted {
		PrefixAllocationExhaustedTotal.Inc()
	}
}

// RecordPrefixExhausted 记录fail策略下的候选耗尽(没有分配结果)
func RecordPrefixExhausted() {
	InitMetrics()
	PrefixAllocationExhaustedTotal.Inc()
}

// RecordPrefixConflict 记录一次前缀唯一索引冲突
func RecordPrefixConflict() {
	InitMetrics()
	PrefixConflictsTotal.Inc()
}

// RecordShipmentCreated 记录运单创建
func RecordShipmentCreated() {
	InitMetrics()
	ShipmentsCreatedTotal.Inc()
}

// RecordLookupCache 记录缓存访问结果(CacheHit/CacheMiss/CacheError)
func RecordLookupCache(result string) {
	InitMetrics()
	LookupCacheRequestsTotal.WithLabelValues(result).Inc()
}

// RecordMessagePublished 记录消息发布结果
func RecordMessagePublished(exchange, routingKey string, err error) {
	InitMetrics()
	result := "success"
	if err != nil {
		result = "failure"
	}
	MessagesPublishedTotal.WithLabelValues(exchange, routingKey, result).Inc()
}

// RecordBreakerTransition 记录熔断器状态切换
func RecordBreakerTransition(name, to string) {
	InitMetrics()
	CircuitBreakerTransitionsTotal.WithLabelValues(name, to).Inc()
}
