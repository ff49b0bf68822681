package shipment

import (
	"context"
)

// Repository 运单仓储接口
// 支持事务操作(通过context传递事务),与客户序号递增处于同一事务
type Repository interface {
	// Create 创建运单,同时写入Events中的初始状态历史
	// 追踪号冲突返回ErrTrackingCodeDuplicate
	Create(ctx context.Context, s *Shipment) error

	// FindByTrackingCode 根据追踪号查找(大小写不敏感),不存在返回ErrShipmentNotFound
	FindByTrackingCode(ctx context.Context, code string) (*Shipment, error)

	// FindByReference 根据客户单号查找最新一条运单
	FindByReference(ctx context.Context, reference string) (*Shipment, error)

	// ListEvents 按时间倒序列出状态历史
	ListEvents(ctx context.Context, shipmentID uint) ([]StatusEvent, error)
}
