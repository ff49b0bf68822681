// Package circuitbreaker 熔断器
//
// 状态转换:CLOSED --失败达到阈值--> OPEN --Timeout后--> HALF_OPEN --探测成功--> CLOSED
// 用于保护可降级的外部依赖(如追踪查询缓存),依赖故障时快速失败,不再逐个请求等待超时
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State 熔断器状态
type State int

const (
	StateClosed   State = iota // 正常放行,统计失败
	StateOpen                  // 快速失败
	StateHalfOpen              // 放行少量探测请求
)

// String 状态名(日志、指标标签用)
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrOpenState 熔断器打开,请求未执行
var ErrOpenState = errors.New("circuit breaker is open")

// Config 熔断器配置
type Config struct {
	// MaxRequests 半开状态下允许的探测请求数,0按1处理
	MaxRequests uint32
	// Interval 关闭状态下的统计窗口,<=0表示不按时间重置
	Interval time.Duration
	// Timeout 打开状态持续时间
	Timeout time.Duration
	// ReadyToTrip 关闭状态下每次失败后调用,返回true则打开;为nil时连续失败5次打开
	ReadyToTrip func(counts Counts) bool
	// OnStateChange 状态变化回调(在锁内调用,不要在回调里访问熔断器)
	OnStateChange func(name string, from, to State)
	// Now 时钟,测试用
	Now func() time.Time
}

// Counts 当前窗口的统计
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// FailureRate 失败率
func (c Counts) FailureRate() float64 {
	if c.Requests == 0 {
		return 0
	}
	return float64(c.TotalFailures) / float64(c.Requests)
}

func (c *Counts) success() {
	c.TotalSuccesses++
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
}

func (c *Counts) failure() {
	c.TotalFailures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

// CircuitBreaker 熔断器,可被多个goroutine共享
type CircuitBreaker struct {
	name string
	cfg  Config

	mu         sync.Mutex
	state      State
	generation uint64 // 每次状态切换递增,丢弃切换前发出的请求结果
	counts     Counts
	expiry     time.Time
}

// New 创建熔断器
func New(name string, cfg Config) *CircuitBreaker {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.ReadyToTrip == nil {
		cfg.ReadyToTrip = func(c Counts) bool { return c.ConsecutiveFailures >= 5 }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	cb := &CircuitBreaker{name: name, cfg: cfg, state: StateClosed}
	cb.resetWindow(cfg.Now())
	return cb
}

// Name 熔断器名称
func (cb *CircuitBreaker) Name() string { return cb.name }

// Execute 在熔断器保护下执行req
// 打开时直接返回ErrOpenState;isFailure为nil时任何非nil错误都算失败
func (cb *CircuitBreaker) Execute(req func() error) error {
	return cb.ExecuteFunc(req, nil)
}

// ExecuteFunc 同Execute,由isFailure决定哪些错误计入失败(如缓存未命中不算故障)
func (cb *CircuitBreaker) ExecuteFunc(req func() error, isFailure func(error) bool) error {
	generation, err := cb.before()
	if err != nil {
		return err
	}

	err = req()

	failed := err != nil
	if failed && isFailure != nil {
		failed = isFailure(err)
	}
	cb.after(generation, !failed)
	return err
}

// State 当前状态
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	state, _ := cb.current(cb.cfg.Now())
	return state
}

// Counts 当前窗口统计
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.counts
}

func (cb *CircuitBreaker) before() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state, generation := cb.current(cb.cfg.Now())
	switch {
	case state == StateOpen:
		return generation, ErrOpenState
	case state == StateHalfOpen && cb.counts.Requests >= cb.cfg.MaxRequests:
		return generation, ErrOpenState
	}

	cb.counts.Requests++
	return generation, nil
}

func (cb *CircuitBreaker) after(before uint64, success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.cfg.Now()
	state, generation := cb.current(now)
	if generation != before {
		return
	}

	if success {
		cb.counts.success()
		if state == StateHalfOpen && cb.counts.ConsecutiveSuccesses >= cb.cfg.MaxRequests {
			cb.setState(StateClosed, now)
		}
		return
	}

	cb.counts.failure()
	switch state {
	case StateClosed:
		if cb.cfg.ReadyToTrip(cb.counts) {
			cb.setState(StateOpen, now)
		}
	case StateHalfOpen:
		cb.setState(StateOpen, now)
	}
}

// current 处理到期:关闭状态重置统计窗口,打开状态超时后转半开
func (cb *CircuitBreaker) current(now time.Time) (State, uint64) {
	switch cb.state {
	case StateClosed:
		if !cb.expiry.IsZero() && cb.expiry.Before(now) {
			cb.resetWindow(now)
		}
	case StateOpen:
		if cb.expiry.Before(now) {
			cb.setState(StateHalfOpen, now)
		}
	}
	return cb.state, cb.generation
}

func (cb *CircuitBreaker) setState(state State, now time.Time) {
	if cb.state == state {
		return
	}
	prev := cb.state
	cb.state = state

	switch state {
	case StateClosed:
		cb.resetWindow(now)
	case StateOpen:
		cb.generation++
		cb.counts = Counts{}
		cb.expiry = now.Add(cb.cfg.Timeout)
	case StateHalfOpen:
		cb.generation++
		cb.counts = Counts{}
		cb.expiry = time.Time{}
	}

	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, prev, state)
	}
}

func (cb *CircuitBreaker) resetWindow(now time.Time) {
	cb.generation++
	cb.counts = Counts{}
	if cb.cfg.Interval > 0 {
		cb.expiry = now.Add(cb.cfg.Interval)
	} else {
		cb.expiry = time.Time{}
	}
}
