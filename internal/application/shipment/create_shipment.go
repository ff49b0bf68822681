package shipment

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	clientapp "github.com/xiebiao/shiptrack/internal/application/client"
	"github.com/xiebiao/shiptrack/internal/domain/client"
	"github.com/xiebiao/shiptrack/internal/domain/shipment"
	"github.com/xiebiao/shiptrack/pkg/metrics"
	"github.com/xiebiao/shiptrack/pkg/tracing"
)

// CreateShipmentUseCase 创建运单用例
//
// 流程(同一事务):
//  1. NextTrackingCode 锁定客户行并递增序号
//  2. 写入运单与初始状态历史
//  3. COMMIT释放客户行锁
//  4. 删除该追踪号与客户单号的查询缓存,按客户单号查询总是返回最新运单
//
// 运单写入失败时序号递增一起回滚,不会出现跳号。
// 客户不存在或未分配前缀时中止,不会创建没有追踪号的运单。
type CreateShipmentUseCase struct {
	allocator    client.Allocator
	shipmentRepo shipment.Repository
	tx           Transactor
	publisher    EventPublisher
	cache        Cache
	log          *zap.Logger
}

// NewCreateShipmentUseCase 创建运单用例
func NewCreateShipmentUseCase(
	allocator client.Allocator,
	shipmentRepo shipment.Repository,
	tx Transactor,
	publisher EventPublisher,
	cache Cache,
	log *zap.Logger,
) *CreateShipmentUseCase {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if cache == nil {
		cache = NopCache{}
	}
	return &CreateShipmentUseCase{
		allocator:    allocator,
		shipmentRepo: shipmentRepo,
		tx:           tx,
		publisher:    publisher,
		cache:        cache,
		log:          log,
	}
}

// CreateShipmentRequest 创建运单请求
type CreateShipmentRequest struct {
	ClientID          uint
	ClientReference   string
	Description       string
	WeightKg          *float64
	Origin            string
	Destination       string
	EstimatedDelivery *time.Time
	CreatedBy         uint // 操作人,来自X-User-ID(可选)
}

// Execute 执行创建运单
func (uc *CreateShipmentUseCase) Execute(ctx context.Context, req CreateShipmentRequest) (resp *ShipmentResponse, err error) {
	ctx, span := tracing.StartSpan(ctx, "CreateShipment")
	span.SetAttributes(attribute.Int64("client.id", int64(req.ClientID)))
	defer func() { tracing.End(span, err) }()

	if req.WeightKg != nil && *req.WeightKg <= 0 {
		return nil, shipment.ErrInvalidWeight
	}

	var created *shipment.Shipment
	err = uc.tx.Transaction(ctx, func(txCtx context.Context) error {
		issued, err := clientapp.IssueTrackingCode(txCtx, uc.allocator, req.ClientID)
		if err != nil {
			return err
		}

		s := shipment.NewShipment(issued.Code(), req.ClientID, shipment.Details{
			ClientReference:   req.ClientReference,
			Description:       req.Description,
			WeightKg:          req.WeightKg,
			Origin:            req.Origin,
			Destination:       req.Destination,
			EstimatedDelivery: req.EstimatedDelivery,
		}, req.CreatedBy)

		if err := uc.shipmentRepo.Create(txCtx, s); err != nil {
			return err
		}
		created = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordShipmentCreated()
	span.SetAttributes(attribute.String("tracking.code", created.TrackingCode))
	uc.log.Info("shipment created",
		zap.Uint("shipment_id", created.ID),
		zap.String("tracking_code", created.TrackingCode),
		zap.Uint("client_id", created.ClientID),
		zap.String("trace_id", tracing.ExtractTraceID(ctx)),
	)

	uc.invalidateLookup(ctx, created)
	uc.publishCreated(ctx, created)
	return toShipmentResponse(created, created.Events), nil
}

// invalidateLookup 删除可能过期的查询缓存,失败只记日志,等TTL自然过期
func (uc *CreateShipmentUseCase) invalidateLookup(ctx context.Context, s *shipment.Shipment) {
	keys := []string{cacheKey(s.TrackingCode)}
	if s.ClientReference != "" {
		keys = append(keys, cacheKey(s.ClientReference))
	}
	if err := uc.cache.Delete(ctx, keys...); err != nil {
		uc.log.Warn("tracking cache invalidation failed",
			zap.String("tracking_code", s.TrackingCode),
			zap.Error(err),
		)
	}
}

// publishCreated 事务提交后发布事件,失败只记日志
// 运单已经落库,不能因为消息队列不可用让请求失败
func (uc *CreateShipmentUseCase) publishCreated(ctx context.Context, s *shipment.Shipment) {
	evt := ShipmentCreatedEvent{
		ShipmentID:      s.ID,
		TrackingCode:    s.TrackingCode,
		ClientID:        s.ClientID,
		ClientReference: s.ClientReference,
		CreatedBy:       s.CreatedBy,
		CreatedAt:       s.CreatedAt,
	}
	if err := uc.publisher.Publish(ctx, RoutingKeyShipmentCreated, evt); err != nil {
		uc.log.Warn("publish shipment.created failed",
			zap.String("tracking_code", s.TrackingCode),
			zap.Error(err),
		)
	}
}
