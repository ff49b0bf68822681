package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError 自定义应用错误
// 设计说明：
// 1. Code用于客户端判断错误类型（不要直接暴露HTTP状态码）
// 2. Message是用户友好的提示信息
// 3. Err是内部错误，仅记录到日志，不返回给客户端
type AppError struct {
	Code    int    `json:"code"`    // 业务错误码
	Message string `json:"message"` // 用户友好的错误提示
	Err     error  `json:"-"`       // 内部错误（不序列化）
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，New出来的哨兵错误与WithMessage派生的错误视为同一类
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && t.Err == nil
}

// New 创建新的AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// WithMessage 复制错误码，替换提示信息
// 用途：同一类错误需要携带具体原因（如前缀格式校验失败的具体规则）
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: message,
	}
}

// Wrap 包装系统错误（如数据库错误、网络错误）
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// =========================================
// 错误码定义
// =========================================
// 规范：
// - 4xxxx: 客户端错误（参数错误、业务规则校验失败）
// - 5xxxx: 服务端错误（数据库异常、外部服务调用失败）

const (
	// 系统级错误码（50000-50099）
	ErrCodeInternal      = 50000 // 内部错误
	ErrCodeDatabaseError = 50001 // 数据库错误
	ErrCodeRedisError    = 50002 // Redis错误

	// 资源错误（40400-40499）
	ErrCodeNotFound         = 40400 // 资源不存在(通用)
	ErrCodeClientNotFound   = 40401 // 客户不存在
	ErrCodeShipmentNotFound = 40402 // 运单不存在

	// 业务规则错误（40000-40099）
	ErrCodeBusinessError       = 40000 // 业务错误(通用)
	ErrCodePrefixUnavailable   = 40001 // 前缀已被占用
	ErrCodeAllocationExhausted = 40002 // 候选前缀耗尽
	ErrCodePrefixNotAssigned   = 40003 // 客户尚未分配前缀
	ErrCodeDuplicateEntry      = 40009 // 重复记录(通用)
	ErrCodePrefixDuplicate     = 40010 // 前缀唯一索引冲突
	ErrCodeTrackingCodeDup     = 40011 // 追踪号唯一索引冲突

	// 参数错误（40900-40999）
	ErrCodeInvalidParams       = 40900 // 参数错误
	ErrCodeBindError           = 40901 // 参数绑定失败
	ErrCodeInvalidPrefixFormat = 40902 // 前缀格式不合法
	ErrCodeInvalidWeight       = 40903 // 重量不合法
	ErrCodeInvalidTrackingCode = 40904 // 追踪号格式不合法
)

// =========================================
// 预定义错误
// =========================================

var (
	// 系统错误
	ErrInternal      = New(ErrCodeInternal, "internal server error")
	ErrDatabaseError = New(ErrCodeDatabaseError, "database error")
	ErrRedisError    = New(ErrCodeRedisError, "cache error")

	// 参数错误
	ErrInvalidParams = New(ErrCodeInvalidParams, "invalid parameters")
	ErrBindError     = New(ErrCodeBindError, "malformed request body")
)

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError（如果不是AppError则包装成Internal错误）
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "internal server error")
}

// HTTPStatus 根据错误码段映射HTTP状态码
func HTTPStatus(code int) int {
	switch {
	case code == 0:
		return http.StatusOK
	case code >= ErrCodeDuplicateEntry && code <= ErrCodeTrackingCodeDup, code == ErrCodePrefixUnavailable:
		return http.StatusConflict
	case code >= 40900 && code < 41000:
		return http.StatusBadRequest
	case code >= 40400 && code < 40500:
		return http.StatusNotFound
	case code >= 40000 && code < 40100:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
