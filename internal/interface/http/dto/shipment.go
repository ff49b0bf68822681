package dto

import "time"

// CreateShipmentRequest HTTP创建运单请求
// 追踪号由服务端签发,请求中不接受
type CreateShipmentRequest struct {
	ClientID          uint       `json:"client_id" binding:"required,min=1" example:"1"`
	ClientReference   string     `json:"client_reference" binding:"max=100" example:"PO-778"`
	Description       string     `json:"description" binding:"max=1000" example:"Refacciones"`
	WeightKg          *float64   `json:"weight_kg" example:"12.5"`
	Origin            string     `json:"origin" binding:"max=200" example:"Monterrey"`
	Destination       string     `json:"destination" binding:"max=200" example:"CDMX"`
	EstimatedDelivery *time.Time `json:"estimated_delivery" example:"2026-10-20T18:00:00Z"`
}
