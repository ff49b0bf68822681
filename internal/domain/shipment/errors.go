package shipment

import (
	apperrors "github.com/xiebiao/shiptrack/pkg/errors"
)

// 运单领域错误定义
var (
	// ErrShipmentNotFound 运单不存在
	ErrShipmentNotFound = apperrors.New(apperrors.ErrCodeShipmentNotFound, "shipment not found")

	// ErrTrackingCodeDuplicate 追踪号唯一索引冲突
	ErrTrackingCodeDuplicate = apperrors.New(apperrors.ErrCodeTrackingCodeDup, "tracking code already exists")

	// ErrInvalidWeight 重量必须大于0
	ErrInvalidWeight = apperrors.New(apperrors.ErrCodeInvalidWeight, "weight must be greater than 0")
)
