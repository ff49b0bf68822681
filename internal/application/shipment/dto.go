package shipment

import (
	"time"

	"github.com/xiebiao/shiptrack/internal/domain/shipment"
)

// RoutingKeyShipmentCreated 运单创建事件的路由键
const RoutingKeyShipmentCreated = "shipment.created"

// ShipmentResponse 运单信息
type ShipmentResponse struct {
	ID                uint            `json:"id"`
	TrackingCode      string          `json:"tracking_code"`
	ClientID          uint            `json:"client_id"`
	ClientReference   string          `json:"client_reference,omitempty"`
	Description       string          `json:"description,omitempty"`
	WeightKg          *float64        `json:"weight_kg,omitempty"`
	Origin            string          `json:"origin,omitempty"`
	Destination       string          `json:"destination,omitempty"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty"`
	Status            string          `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	Events            []EventResponse `json:"events"`
}

// EventResponse 状态历史
type EventResponse struct {
	Status    string    `json:"status"`
	Location  string    `json:"location,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ShipmentCreatedEvent 运单创建事件载荷
type ShipmentCreatedEvent struct {
	ShipmentID      uint      `json:"shipment_id"`
	TrackingCode    string    `json:"tracking_code"`
	ClientID        uint      `json:"client_id"`
	ClientReference string    `json:"client_reference,omitempty"`
	CreatedBy       uint      `json:"created_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func toShipmentResponse(s *shipment.Shipment, events []shipment.StatusEvent) *ShipmentResponse {
	resp := &ShipmentResponse{
		ID:                s.ID,
		TrackingCode:      s.TrackingCode,
		ClientID:          s.ClientID,
		ClientReference:   s.ClientReference,
		Description:       s.Description,
		WeightKg:          s.WeightKg,
		Origin:            s.Origin,
		Destination:       s.Destination,
		EstimatedDelivery: s.EstimatedDelivery,
		Status:            string(s.Status),
		CreatedAt:         s.CreatedAt,
		Events:            make([]EventResponse, len(events)),
	}
	for i, e := range events {
		resp.Events[i] = EventResponse{
			Status:    string(e.Status),
			Location:  e.Location,
			Comment:   e.Comment,
			CreatedAt: e.CreatedAt,
		}
	}
	return resp
}
