package client

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/shiptrack/internal/domain/client"
	apperrors "github.com/xiebiao/shiptrack/pkg/errors"
	"github.com/xiebiao/shiptrack/pkg/metrics"
	"github.com/xiebiao/shiptrack/pkg/tracing"
)

// CreateClientUseCase 创建客户用例
// 两种模式:
//  1. 自动:根据公司名称分配唯一前缀,写入时撞上唯一索引则重新分配
//  2. 手工:校验格式与可用性,写入冲突直接返回"prefix already in use"
type CreateClientUseCase struct {
	clientRepo client.Repository
	allocator  client.Allocator
	settings   Settings
	log        *zap.Logger
}

// NewCreateClientUseCase 创建客户用例
func NewCreateClientUseCase(
	clientRepo client.Repository,
	allocator client.Allocator,
	settings Settings,
	log *zap.Logger,
) *CreateClientUseCase {
	return &CreateClientUseCase{
		clientRepo: clientRepo,
		allocator:  allocator,
		settings:   settings,
		log:        log,
	}
}

// CreateClientRequest 创建客户请求
type CreateClientRequest struct {
	Name        string
	ContactName string
	Email       string
	Phone       string
	Address     string
	Prefix      string // 为空时自动分配
}

// Execute 执行创建客户
func (uc *CreateClientUseCase) Execute(ctx context.Context, req CreateClientRequest) (resp *CreateClientResponse, err error) {
	ctx, span := tracing.StartSpan(ctx, "CreateClient")
	defer func() { tracing.End(span, err) }()

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, apperrors.ErrInvalidParams.WithMessage("name is required")
	}

	if req.Prefix != "" {
		span.SetAttributes(attribute.String("prefix.mode", "manual"))
		return uc.createWithPrefix(ctx, req)
	}
	span.SetAttributes(attribute.String("prefix.mode", "auto"))
	return uc.createWithAllocation(ctx, req)
}

// createWithPrefix 手工前缀
func (uc *CreateClientUseCase) createWithPrefix(ctx context.Context, req CreateClientRequest) (*CreateClientResponse, error) {
	prefix, err := client.CheckPrefixFormat(req.Prefix)
	if err != nil {
		return nil, err
	}

	ok, err := uc.allocator.IsPrefixAvailable(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, client.ErrPrefixUnavailable
	}

	c := client.NewClient(req.Name, req.ContactName, req.Email, req.Phone, req.Address, prefix)
	if err := uc.clientRepo.Create(ctx, c); err != nil {
		if errors.Is(err, client.ErrPrefixDuplicate) {
			// 预检通过后被并发请求抢占
			metrics.RecordPrefixConflict()
			return nil, client.ErrPrefixUnavailable
		}
		return nil, err
	}

	uc.log.Info("client created",
		zap.Uint("client_id", c.ID),
		zap.String("prefix", c.Prefix),
		zap.String("mode", "manual"),
	)
	return &CreateClientResponse{ClientResponse: toClientResponse(c)}, nil
}

// createWithAllocation 自动分配前缀
// 预检与写入之间可能被抢占,冲突时重新分配,最多settings.PrefixRetryAttempts次
func (uc *CreateClientUseCase) createWithAllocation(ctx context.Context, req CreateClientRequest) (*CreateClientResponse, error) {
	for attempt := 1; attempt <= uc.settings.attempts(); attempt++ {
		alloc, err := allocate(ctx, uc.allocator, req.Name, uc.log)
		if err != nil {
			return nil, err
		}

		c := client.NewClient(req.Name, req.ContactName, req.Email, req.Phone, req.Address, alloc.Prefix)
		err = uc.clientRepo.Create(ctx, c)
		if err == nil {
			uc.log.Info("client created",
				zap.Uint("client_id", c.ID),
				zap.String("prefix", c.Prefix),
				zap.String("phase", string(alloc.Phase)),
				zap.Int("attempt", attempt),
			)
			return &CreateClientResponse{
				ClientResponse: toClientResponse(c),
				Allocation:     &AllocationInfo{Phase: string(alloc.Phase), Exhausted: alloc.Exhausted()},
			}, nil
		}
		if !errors.Is(err, client.ErrPrefixDuplicate) {
			return nil, err
		}

		metrics.RecordPrefixConflict()
		uc.log.Warn("allocated prefix taken concurrently, retrying",
			zap.String("prefix", alloc.Prefix),
			zap.Int("attempt", attempt),
		)
	}
	return nil, client.ErrPrefixUnavailable
}

// allocate 分配前缀并记录指标,兜底分支打WARN日志
func allocate(ctx context.Context, allocator client.Allocator, name string, log *zap.Logger) (client.Allocation, error) {
	ctx, span := tracing.StartSpan(ctx, "AllocatePrefix")
	alloc, err := allocator.AllocatePrefix(ctx, name)
	tracing.End(span, err)

	if err != nil {
		if errors.Is(err, client.ErrAllocationExhausted) {
			metrics.RecordPrefixExhausted()
			log.Warn("prefix candidates exhausted",
				zap.String("company_name", name),
				zap.String("base_prefix", client.DeriveBasePrefix(name)),
			)
		}
		return client.Allocation{}, err
	}

	metrics.RecordPrefixAllocation(string(alloc.Phase), alloc.Exhausted())
	if alloc.Exhausted() {
		// 时间戳后缀不做可用性检查,碰撞由唯一索引拦截
		log.Warn("prefix candidates exhausted, using timestamp fallback",
			zap.String("company_name", name),
			zap.String("prefix", alloc.Prefix),
		)
	}
	return alloc, nil
}
