package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/xiebiao/shiptrack/pkg/errors"
)

// LoggerKey gin上下文中请求级logger的键(由middleware.Logger写入)
const LoggerKey = "logger"

// Response 统一响应结构
// 设计说明:
// 1. Code是业务错误码,客户端据此判断错误类型
// 2. HTTP状态码由错误码段推导(见apperrors.HTTPStatus)
// 3. Data是业务数据,成功时返回,失败时省略
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应(Code=0表示成功)
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应(201)
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应(自动处理AppError)
// 用法:
//
//	code, err := uc.Execute(ctx, clientID)
//	if err != nil {
//	    response.Error(c, err)
//	    return
//	}
func Error(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	status := apperrors.HTTPStatus(appErr.Code)

	// 内部错误只写日志,不返回给客户端
	if appErr.Err != nil || status >= http.StatusInternalServerError {
		Logger(c).Error("request failed",
			zap.Int("code", appErr.Code),
			zap.String("message", appErr.Message),
			zap.Error(err),
		)
	}

	c.JSON(status, Response{
		Code:    appErr.Code,
		Message: appErr.Message,
	})
}

// ErrorWithCode 自定义错误码和消息
func ErrorWithCode(c *gin.Context, code int, message string) {
	c.JSON(apperrors.HTTPStatus(code), Response{
		Code:    code,
		Message: message,
	})
}

// Logger 取请求级logger,没有则使用全局logger
func Logger(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(LoggerKey); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return zap.L()
}
