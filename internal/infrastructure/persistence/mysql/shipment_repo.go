package mysql

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/xiebiao/shiptrack/internal/domain/shipment"
	apperrors "github.com/xiebiao/shiptrack/pkg/errors"
)

// shipmentRepository 运单仓储实现(GORM版本)
type shipmentRepository struct {
	db *gorm.DB
}

// NewShipmentRepository 创建运单仓储
func NewShipmentRepository(db *gorm.DB) shipment.Repository {
	return &shipmentRepository{db: db}
}

// Create 创建运单及其初始状态历史
// GORM会在同一事务内级联插入Events
func (r *shipmentRepository) Create(ctx context.Context, s *shipment.Shipment) error {
	model := toShipmentModel(s)

	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return shipment.ErrTrackingCodeDuplicate
		}
		return apperrors.Wrap(err, "创建运单失败")
	}

	s.ID = model.ID
	s.CreatedAt = model.CreatedAt
	s.UpdatedAt = model.UpdatedAt
	for i := range s.Events {
		s.Events[i].ID = model.Events[i].ID
		s.Events[i].ShipmentID = model.ID
	}
	return nil
}

// FindByTrackingCode 根据追踪号查找
func (r *shipmentRepository) FindByTrackingCode(ctx context.Context, code string) (*shipment.Shipment, error) {
	var model ShipmentModel
	err := getDB(ctx, r.db).
		Where("tracking_code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shipment.ErrShipmentNotFound
		}
		return nil, apperrors.Wrap(err, "查询运单失败")
	}
	return toShipmentEntity(&model), nil
}

// FindByReference 根据客户单号查找最新一条运单
func (r *shipmentRepository) FindByReference(ctx context.Context, reference string) (*shipment.Shipment, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, shipment.ErrShipmentNotFound
	}

	var model ShipmentModel
	err := getDB(ctx, r.db).
		Where("client_reference = ?", reference).
		Order("id DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shipment.ErrShipmentNotFound
		}
		return nil, apperrors.Wrap(err, "查询运单失败")
	}
	return toShipmentEntity(&model), nil
}

// ListEvents 按时间倒序列出状态历史
func (r *shipmentRepository) ListEvents(ctx context.Context, shipmentID uint) ([]shipment.StatusEvent, error) {
	var models []ShipmentEventModel
	err := getDB(ctx, r.db).
		Where("shipment_id = ?", shipmentID).
		Order("created_at DESC, id DESC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询状态历史失败")
	}

	events := make([]shipment.StatusEvent, len(models))
	for i := range models {
		events[i] = toEventEntity(&models[i])
	}
	return events, nil
}

func toShipmentModel(s *shipment.Shipment) *ShipmentModel {
	events := make([]ShipmentEventModel, len(s.Events))
	for i, e := range s.Events {
		events[i] = ShipmentEventModel{
			Status:    string(e.Status),
			Location:  e.Location,
			Comment:   e.Comment,
			CreatedBy: e.CreatedBy,
			CreatedAt: e.CreatedAt,
		}
	}

	return &ShipmentModel{
		TrackingCode:      s.TrackingCode,
		ClientID:          s.ClientID,
		ClientReference:   s.ClientReference,
		Description:       s.Description,
		WeightKg:          s.WeightKg,
		Origin:            s.Origin,
		Destination:       s.Destination,
		EstimatedDelivery: s.EstimatedDelivery,
		Status:            string(s.Status),
		CreatedBy:         s.CreatedBy,
		Events:            events,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

func toShipmentEntity(m *ShipmentModel) *shipment.Shipment {
	return &shipment.Shipment{
		ID:                m.ID,
		TrackingCode:      m.TrackingCode,
		ClientID:          m.ClientID,
		ClientReference:   m.ClientReference,
		Description:       m.Description,
		WeightKg:          m.WeightKg,
		Origin:            m.Origin,
		Destination:       m.Destination,
		EstimatedDelivery: m.EstimatedDelivery,
		Status:            shipment.Status(m.Status),
		CreatedBy:         m.CreatedBy,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func toEventEntity(m *ShipmentEventModel) shipment.StatusEvent {
	return shipment.StatusEvent{
		ID:         m.ID,
		ShipmentID: m.ShipmentID,
		Status:     shipment.Status(m.Status),
		Location:   m.Location,
		Comment:    m.Comment,
		CreatedBy:  m.CreatedBy,
		CreatedAt:  m.CreatedAt,
	}
}
