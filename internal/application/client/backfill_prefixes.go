package client

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xiebiao/shiptrack/internal/domain/client"
	"github.com/xiebiao/shiptrack/pkg/metrics"
)

// BackfillPrefixesUseCase 为历史客户补分配前缀
// 按ID升序处理prefix为NULL的客户,单个客户失败不影响其他客户
type BackfillPrefixesUseCase struct {
	clientRepo client.Repository
	allocator  client.Allocator
	settings   Settings
	log        *zap.Logger
}

// NewBackfillPrefixesUseCase 创建回填用例
func NewBackfillPrefixesUseCase(
	clientRepo client.Repository,
	allocator client.Allocator,
	settings Settings,
	log *zap.Logger,
) *BackfillPrefixesUseCase {
	return &BackfillPrefixesUseCase{
		clientRepo: clientRepo,
		allocator:  allocator,
		settings:   settings,
		log:        log,
	}
}

// BackfillRequest 回填参数
type BackfillRequest struct {
	Limit  int  // 本次最多处理多少个客户,<=0表示全部
	DryRun bool // 只预览不写库;同批次内同名客户的预览结果可能相同
}

// BackfillItem 单个客户的分配结果
type BackfillItem struct {
	ClientID uint   `json:"client_id"`
	Name     string `json:"name"`
	Prefix   string `json:"prefix,omitempty"`
	Phase    string `json:"phase,omitempty"`
	Error    string `json:"error,omitempty"`
}

// BackfillResult 回填汇总
type BackfillResult struct {
	DryRun   bool           `json:"dry_run"`
	Assigned []BackfillItem `json:"assigned"`
	Failed   []BackfillItem `json:"failed"`
}

// Execute 执行回填
// 只有列出客户失败时返回error,单个客户的失败记录在Failed中
func (uc *BackfillPrefixesUseCase) Execute(ctx context.Context, req BackfillRequest) (*BackfillResult, error) {
	pending, err := uc.clientRepo.ListWithoutPrefix(ctx, req.Limit)
	if err != nil {
		return nil, err
	}

	result := &BackfillResult{
		DryRun:   req.DryRun,
		Assigned: make([]BackfillItem, 0, len(pending)),
		Failed:   make([]BackfillItem, 0),
	}

	for _, c := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		item := BackfillItem{ClientID: c.ID, Name: c.Name}
		alloc, err := uc.assign(ctx, c, req.DryRun)
		if err != nil {
			item.Error = err.Error()
			result.Failed = append(result.Failed, item)
			uc.log.Warn("backfill prefix failed", zap.Uint("client_id", c.ID), zap.Error(err))
			continue
		}

		item.Prefix, item.Phase = alloc.Prefix, string(alloc.Phase)
		result.Assigned = append(result.Assigned, item)
	}

	uc.log.Info("backfill prefixes finished",
		zap.Bool("dry_run", req.DryRun),
		zap.Int("assigned", len(result.Assigned)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// assign 为单个客户分配并写入前缀,冲突时重新分配
func (uc *BackfillPrefixesUseCase) assign(ctx context.Context, c *client.Client, dryRun bool) (client.Allocation, error) {
	if dryRun {
		return uc.allocator.AllocatePrefix(ctx, c.Name)
	}

	for attempt := 1; attempt <= uc.settings.attempts(); attempt++ {
		alloc, err := allocate(ctx, uc.allocator, c.Name, uc.log)
		if err != nil {
			return client.Allocation{}, err
		}

		err = uc.clientRepo.UpdatePrefix(ctx, c.ID, alloc.Prefix)
		if err == nil {
			return alloc, nil
		}
		if !errors.Is(err, client.ErrPrefixDuplicate) {
			return client.Allocation{}, err
		}
		metrics.RecordPrefixConflict()
	}
	return client.Allocation{}, client.ErrPrefixUnavailable
}
