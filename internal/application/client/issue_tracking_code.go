package client

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/shiptrack/internal/domain/client"
	"github.com/xiebiao/shiptrack/pkg/metrics"
	"github.com/xiebiao/shiptrack/pkg/tracing"
)

// IssueTrackingCodeUseCase 单独签发追踪号(不创建运单)
// 用于线下面单预打印等运维场景,签发后的号不会回收
type IssueTrackingCodeUseCase struct {
	allocator client.Allocator
	log       *zap.Logger
}

// NewIssueTrackingCodeUseCase 创建签发用例
func NewIssueTrackingCodeUseCase(allocator client.Allocator, log *zap.Logger) *IssueTrackingCodeUseCase {
	return &IssueTrackingCodeUseCase{allocator: allocator, log: log}
}

// TrackingCodeResponse 签发结果
type TrackingCodeResponse struct {
	ClientID     uint   `json:"client_id"`
	TrackingCode string `json:"tracking_code"`
	Sequence     int64  `json:"sequence"`
}

// Execute 签发下一个追踪号
func (uc *IssueTrackingCodeUseCase) Execute(ctx context.Context, clientID uint) (*TrackingCodeResponse, error) {
	issued, err := IssueTrackingCode(ctx, uc.allocator, clientID)
	if err != nil {
		return nil, err
	}

	code := issued.Code()
	uc.log.Info("tracking code issued", zap.Uint("client_id", clientID), zap.String("tracking_code", code))
	return &TrackingCodeResponse{ClientID: clientID, TrackingCode: code, Sequence: issued.Sequence}, nil
}

// IssueTrackingCode 签发追踪号并记录耗时、成功/失败指标
// 运单创建也通过它签发,在事务ctx中调用时递增随事务提交或回滚
func IssueTrackingCode(ctx context.Context, allocator client.Allocator, clientID uint) (issued client.IssuedCode, err error) {
	ctx, span := tracing.StartSpan(ctx, "NextTrackingCode")
	span.SetAttributes(attribute.Int64("client.id", int64(clientID)))
	start := time.Now()
	defer func() {
		metrics.RecordTrackingCodeIssued(time.Since(start), err)
		if err == nil {
			span.SetAttributes(attribute.String("tracking.code", issued.Code()))
		}
		tracing.End(span, err)
	}()

	return allocator.IssueNext(ctx, clientID)
}
