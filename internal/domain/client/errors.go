package client

import (
	apperrors "github.com/xiebiao/shiptrack/pkg/errors"
)

// 客户/追踪号领域错误定义
var (
	// ErrClientNotFound 客户不存在
	ErrClientNotFound = apperrors.New(apperrors.ErrCodeClientNotFound, "client not found")

	// ErrInvalidPrefixFormat 前缀格式不合法(具体原因见WithMessage)
	ErrInvalidPrefixFormat = apperrors.New(apperrors.ErrCodeInvalidPrefixFormat, "invalid prefix format")

	// ErrPrefixUnavailable 前缀已被占用(面向用户)
	ErrPrefixUnavailable = apperrors.New(apperrors.ErrCodePrefixUnavailable, "prefix already in use")

	// ErrPrefixDuplicate 写入时触发唯一索引冲突(存储层返回)
	ErrPrefixDuplicate = apperrors.New(apperrors.ErrCodePrefixDuplicate, "prefix violates unique constraint")

	// ErrAllocationExhausted 所有候选前缀均已被占用
	ErrAllocationExhausted = apperrors.New(apperrors.ErrCodeAllocationExhausted, "no candidate prefix available, assign one manually")

	// ErrPrefixNotAssigned 客户尚未分配前缀,不能签发追踪号
	ErrPrefixNotAssigned = apperrors.New(apperrors.ErrCodePrefixNotAssigned, "client has no tracking prefix")

	// ErrInvalidTrackingCode 追踪号格式不正确
	ErrInvalidTrackingCode = apperrors.New(apperrors.ErrCodeInvalidTrackingCode, "invalid tracking code")
)
