package shipment

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/shiptrack/internal/domain/shipment"
	apperrors "github.com/xiebiao/shiptrack/pkg/errors"
	"github.com/xiebiao/shiptrack/pkg/metrics"
)

// LookupShipmentUseCase 公开追踪查询
// 先按追踪号查,查不到再按客户单号查;结果做短时缓存(read-through)
type LookupShipmentUseCase struct {
	shipmentRepo shipment.Repository
	cache        Cache
	ttl          time.Duration
	log          *zap.Logger
}

// NewLookupShipmentUseCase 创建追踪查询用例
// ttl<=0时不使用缓存
func NewLookupShipmentUseCase(shipmentRepo shipment.Repository, cache Cache, ttl time.Duration, log *zap.Logger) *LookupShipmentUseCase {
	if cache == nil {
		cache = NopCache{}
	}
	return &LookupShipmentUseCase{
		shipmentRepo: shipmentRepo,
		cache:        cache,
		ttl:          ttl,
		log:          log,
	}
}

func cacheKey(query string) string {
	return "tracking:" + strings.ToUpper(query)
}

// Execute 查询运单及状态历史
func (uc *LookupShipmentUseCase) Execute(ctx context.Context, query string) (*ShipmentResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.ErrInvalidParams.WithMessage("tracking code or reference is required")
	}

	if uc.ttl > 0 {
		var cached ShipmentResponse
		hit, err := uc.cache.GetJSON(ctx, cacheKey(query), &cached)
		switch {
		case err != nil:
			// 缓存故障降级为直接查库
			metrics.RecordLookupCache(metrics.CacheError)
			uc.log.Warn("tracking cache read failed", zap.Error(err))
		case hit:
			metrics.RecordLookupCache(metrics.CacheHit)
			return &cached, nil
		default:
			metrics.RecordLookupCache(metrics.CacheMiss)
		}
	}

	s, err := uc.shipmentRepo.FindByTrackingCode(ctx, query)
	if errors.Is(err, shipment.ErrShipmentNotFound) {
		s, err = uc.shipmentRepo.FindByReference(ctx, query)
	}
	if err != nil {
		return nil, err
	}

	events, err := uc.shipmentRepo.ListEvents(ctx, s.ID)
	if err != nil {
		return nil, err
	}

	resp := toShipmentResponse(s, events)
	if uc.ttl > 0 {
		if err := uc.cache.SetJSON(ctx, cacheKey(query), resp, uc.ttl); err != nil {
			uc.log.Warn("tracking cache write failed", zap.Error(err))
		}
	}
	return resp, nil
}
