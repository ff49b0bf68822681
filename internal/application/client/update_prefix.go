package client

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xiebiao/shiptrack/internal/domain/client"
	"github.com/xiebiao/shiptrack/pkg/metrics"
)

// UpdatePrefixUseCase 修改客户前缀用例
// 已签发的追踪号不会改写,新前缀从客户当前序号继续
type UpdatePrefixUseCase struct {
	clientRepo client.Repository
	allocator  client.Allocator
	log        *zap.Logger
}

// NewUpdatePrefixUseCase 创建修改前缀用例
func NewUpdatePrefixUseCase(clientRepo client.Repository, allocator client.Allocator, log *zap.Logger) *UpdatePrefixUseCase {
	return &UpdatePrefixUseCase{
		clientRepo: clientRepo,
		allocator:  allocator,
		log:        log,
	}
}

// Execute 修改前缀
// 规范化后与当前前缀相同时直接返回,不做校验也不写库
func (uc *UpdatePrefixUseCase) Execute(ctx context.Context, clientID uint, prefix string) (*ClientResponse, error) {
	c, err := uc.clientRepo.FindByID(ctx, clientID)
	if err != nil {
		return nil, err
	}

	if c.SamePrefix(prefix) {
		resp := toClientResponse(c)
		return &resp, nil
	}

	normalized, err := client.CheckPrefixFormat(prefix)
	if err != nil {
		return nil, err
	}

	ok, err := uc.allocator.IsPrefixAvailableFor(ctx, normalized, clientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, client.ErrPrefixUnavailable
	}

	if err := uc.clientRepo.UpdatePrefix(ctx, clientID, normalized); err != nil {
		if errors.Is(err, client.ErrPrefixDuplicate) {
			metrics.RecordPrefixConflict()
			return nil, client.ErrPrefixUnavailable
		}
		return nil, err
	}

	uc.log.Info("client prefix changed",
		zap.Uint("client_id", clientID),
		zap.String("old_prefix", c.Prefix),
		zap.String("new_prefix", normalized),
		zap.Int64("last_sequence", c.LastSequence),
	)

	c.Prefix = normalized
	resp := toClientResponse(c)
	return &resp, nil
}
