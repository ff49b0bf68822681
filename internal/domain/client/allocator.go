package client

import (
	"context"
	"fmt"
	"time"
)

// AllocationPhase 前缀分配命中的阶段
type AllocationPhase string

const (
	PhaseBase     AllocationPhase = "base"     // 基础前缀可用
	PhaseNumeric  AllocationPhase = "numeric"  // 数字后缀 2-9
	PhaseAlpha    AllocationPhase = "alpha"    // 字母后缀 A-Z
	PhaseFallback AllocationPhase = "fallback" // 候选耗尽,时间戳后缀(不保证唯一)
)

// ExhaustionPolicy 候选前缀耗尽时的处理策略
type ExhaustionPolicy string

const (
	// ExhaustionFallback 使用"基础前缀+当前毫秒时间戳末3位",不做可用性检查
	ExhaustionFallback ExhaustionPolicy = "fallback"
	// ExhaustionFail 返回ErrAllocationExhausted,需要人工指定前缀
	ExhaustionFail ExhaustionPolicy = "fail"
)

// Allocation 前缀分配结果
type Allocation struct {
	Prefix string
	Phase  AllocationPhase
}

// Exhausted 是否走了耗尽兜底分支
func (a Allocation) Exhausted() bool {
	return a.Phase == PhaseFallback
}

// Allocator 追踪号分配领域服务
// 职责:
// 1. 前缀分配:推导、校验、查重
// 2. 序号分配:为客户签发下一个单调递增的追踪号
type Allocator interface {
	// IsPrefixAvailable 前缀是否未被任何客户使用(大小写不敏感)
	// 只是预检,并发下不保证写入时仍可用
	IsPrefixAvailable(ctx context.Context, prefix string) (bool, error)

	// IsPrefixAvailableFor 同上,但排除clientID自身
	IsPrefixAvailableFor(ctx context.Context, prefix string, clientID uint) (bool, error)

	// AllocatePrefix 为公司名称挑选第一个可用候选前缀,并返回命中阶段
	// 候选顺序:基础前缀 → 基础+2..9 → 基础+A..Z → 兜底
	AllocatePrefix(ctx context.Context, companyName string) (Allocation, error)

	// AllocateUniquePrefix 只返回前缀字符串的便捷版本
	AllocateUniquePrefix(ctx context.Context, companyName string) (string, error)

	// NextTrackingCode 签发客户的下一个追踪号,如"ITP-00001"
	// 客户不存在返回ErrClientNotFound,调用方必须中止运单创建
	NextTrackingCode(ctx context.Context, clientID uint) (string, error)

	// IssueNext 同NextTrackingCode,返回前缀与序号而不是拼好的字符串
	IssueNext(ctx context.Context, clientID uint) (IssuedCode, error)
}

// Option 分配器选项
type Option func(*allocator)

// WithExhaustionPolicy 设置候选耗尽策略
func WithExhaustionPolicy(policy ExhaustionPolicy) Option {
	return func(a *allocator) {
		if policy != "" {
			a.policy = policy
		}
	}
}

// WithClock 替换时钟(测试兜底分支用)
func WithClock(now func() time.Time) Option {
	return func(a *allocator) {
		if now != nil {
			a.now = now
		}
	}
}

// allocator 领域服务实现
type allocator struct {
	repo   Repository
	policy ExhaustionPolicy
	now    func() time.Time
}

// NewAllocator 创建追踪号分配器
func NewAllocator(repo Repository, opts ...Option) Allocator {
	a := &allocator{
		repo:   repo,
		policy: ExhaustionFallback,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IsPrefixAvailable 前缀是否可用
func (a *allocator) IsPrefixAvailable(ctx context.Context, prefix string) (bool, error) {
	return a.IsPrefixAvailableFor(ctx, prefix, 0)
}

// IsPrefixAvailableFor 前缀是否可用(排除指定客户)
func (a *allocator) IsPrefixAvailableFor(ctx context.Context, prefix string, clientID uint) (bool, error) {
	count, err := a.repo.CountByPrefix(ctx, NormalizePrefix(prefix), clientID)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// AllocatePrefix 分配唯一前缀
// 每个候选一次查询,最坏情况(走到兜底)共35次:基础1次 + 数字8次 + 字母26次
func (a *allocator) AllocatePrefix(ctx context.Context, companyName string) (Allocation, error) {
	base := DeriveBasePrefix(companyName)

	for _, c := range prefixCandidates(base) {
		ok, err := a.IsPrefixAvailable(ctx, c.Prefix)
		if err != nil {
			return Allocation{}, err
		}
		if ok {
			return c, nil
		}
	}

	if a.policy == ExhaustionFail {
		return Allocation{}, ErrAllocationExhausted
	}

	// 兜底:毫秒时间戳末3位,不检查可用性,最终由唯一索引拦截冲突
	suffix := fmt.Sprintf("%03d", a.now().UnixMilli()%1000)
	return Allocation{Prefix: base + suffix, Phase: PhaseFallback}, nil
}

// AllocateUniquePrefix 分配唯一前缀
func (a *allocator) AllocateUniquePrefix(ctx context.Context, companyName string) (string, error) {
	alloc, err := a.AllocatePrefix(ctx, companyName)
	if err != nil {
		return "", err
	}
	return alloc.Prefix, nil
}

// NextTrackingCode 签发下一个追踪号
// 递增由Repository.NextSequence在存储层原子完成,这里不做读后写
func (a *allocator) NextTrackingCode(ctx context.Context, clientID uint) (string, error) {
	issued, err := a.IssueNext(ctx, clientID)
	if err != nil {
		return "", err
	}
	return issued.Code(), nil
}

// IssueNext 签发下一个序号
func (a *allocator) IssueNext(ctx context.Context, clientID uint) (IssuedCode, error) {
	if clientID == 0 {
		return IssuedCode{}, ErrClientNotFound
	}

	prefix, seq, err := a.repo.NextSequence(ctx, clientID)
	if err != nil {
		return IssuedCode{}, err
	}
	return IssuedCode{Prefix: prefix, Sequence: seq}, nil
}

// prefixCandidates 按顺序生成候选前缀
func prefixCandidates(base string) []Allocation {
	candidates := make([]Allocation, 0, 1+8+26)
	candidates = append(candidates, Allocation{Prefix: base, Phase: PhaseBase})
	for n := 2; n <= 9; n++ {
		candidates = append(candidates, Allocation{Prefix: fmt.Sprintf("%s%d", base, n), Phase: PhaseNumeric})
	}
	for l := 'A'; l <= 'Z'; l++ {
		candidates = append(candidates, Allocation{Prefix: base + string(l), Phase: PhaseAlpha})
	}
	return candidates
}
