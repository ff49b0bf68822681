package shipment

import (
	"strings"
	"time"
)

// Status 运单状态
// 使用字符串而非int:与历史数据的状态值一一对应,查询结果可直接展示
type Status string

const (
	StatusCreated        Status = "created"          // 已创建
	StatusInTransit      Status = "in_transit"       // 运输中
	StatusOutForDelivery Status = "out_for_delivery" // 派送中
	StatusDelivered      Status = "delivered"        // 已签收
	StatusCancelled      Status = "cancelled"        // 已取消
	StatusDelayed        Status = "delayed"          // 延误
)

// Valid 是否为已定义的状态
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusInTransit, StatusOutForDelivery, StatusDelivered, StatusCancelled, StatusDelayed:
		return true
	}
	return false
}

// Shipment 运单实体(聚合根)
// TrackingCode创建后不可修改;客户改前缀不影响已签发的追踪号
type Shipment struct {
	ID                uint
	TrackingCode      string // 追踪号,全局唯一,如"ITP-00001"
	ClientID          uint
	ClientReference   string // 客户自己的单号(可选),也可用于查询
	Description       string
	WeightKg          *float64
	Origin            string
	Destination       string
	EstimatedDelivery *time.Time
	Status            Status
	CreatedBy         uint // 操作人(0表示未知)
	Events            []StatusEvent
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// StatusEvent 运单状态历史
type StatusEvent struct {
	ID         uint
	ShipmentID uint
	Status     Status
	Location   string
	Comment    string
	CreatedBy  uint
	CreatedAt  time.Time
}

// Details 创建运单时的业务字段
type Details struct {
	ClientReference   string
	Description       string
	WeightKg          *float64
	Origin            string
	Destination       string
	EstimatedDelivery *time.Time
}

// InitialEventComment 初始状态历史的备注
const InitialEventComment = "shipment created"

// NewShipment 创建新运单(工厂方法)
// 初始状态为created,并附带一条created状态历史,由Repository.Create一并写入
func NewShipment(trackingCode string, clientID uint, d Details, createdBy uint) *Shipment {
	now := time.Now()
	return &Shipment{
		TrackingCode:      trackingCode,
		ClientID:          clientID,
		ClientReference:   strings.TrimSpace(d.ClientReference),
		Description:       d.Description,
		WeightKg:          d.WeightKg,
		Origin:            d.Origin,
		Destination:       d.Destination,
		EstimatedDelivery: d.EstimatedDelivery,
		Status:            StatusCreated,
		CreatedBy:         createdBy,
		Events: []StatusEvent{{
			Status:    StatusCreated,
			Location:  d.Origin,
			Comment:   InitialEventComment,
			CreatedBy: createdBy,
			CreatedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
