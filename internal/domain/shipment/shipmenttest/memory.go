// Package shipmenttest 提供shipment.Repository的内存实现,供各层单元测试使用
package shipmenttest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/xiebiao/shiptrack/internal/domain/shipment"
)

// MemoryRepository 内存版运单仓储
type MemoryRepository struct {
	mu        sync.Mutex
	shipments []*shipment.Shipment

	// CreateErr 非nil时Create直接返回该错误
	CreateErr error

	// FindCalls FindByTrackingCode被调用的次数(断言缓存命中用)
	FindCalls int
}

// NewMemoryRepository 创建内存仓储
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// All 返回全部运单快照
func (r *MemoryRepository) All() []shipment.Shipment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shipment.Shipment, len(r.shipments))
	for i, s := range r.shipments {
		out[i] = *s
	}
	return out
}

// Create 写入运单及其状态历史,追踪号重复返回ErrTrackingCodeDuplicate
func (r *MemoryRepository) Create(ctx context.Context, s *shipment.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return r.CreateErr
	}
	for _, existing := range r.shipments {
		if existing.TrackingCode == s.TrackingCode {
			return shipment.ErrTrackingCodeDuplicate
		}
	}

	s.ID = uint(len(r.shipments) + 1)
	for i := range s.Events {
		s.Events[i].ID = uint(i + 1)
		s.Events[i].ShipmentID = s.ID
	}
	stored := *s
	stored.Events = append([]shipment.StatusEvent(nil), s.Events...)
	r.shipments = append(r.shipments, &stored)
	return nil
}

// FindByTrackingCode 按追踪号查找(大小写不敏感)
func (r *MemoryRepository) FindByTrackingCode(ctx context.Context, code string) (*shipment.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FindCalls++
	for _, s := range r.shipments {
		if strings.EqualFold(s.TrackingCode, code) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, shipment.ErrShipmentNotFound
}

// FindByReference 按客户单号查找,多条时取最新
func (r *MemoryRepository) FindByReference(ctx context.Context, ref string) (*shipment.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ref == "" {
		return nil, shipment.ErrShipmentNotFound
	}
	for i := len(r.shipments) - 1; i >= 0; i-- {
		if r.shipments[i].ClientReference == ref {
			cp := *r.shipments[i]
			return &cp, nil
		}
	}
	return nil, shipment.ErrShipmentNotFound
}

// ListEvents 状态历史,最新在前
func (r *MemoryRepository) ListEvents(ctx context.Context, shipmentID uint) ([]shipment.StatusEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.shipments {
		if s.ID != shipmentID {
			continue
		}
		events := append([]shipment.StatusEvent(nil), s.Events...)
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].CreatedAt.Equal(events[j].CreatedAt) {
				return events[i].ID > events[j].ID
			}
			return events[i].CreatedAt.After(events[j].CreatedAt)
		})
		return events, nil
	}
	return []shipment.StatusEvent{}, nil
}
