package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiebiao/shiptrack/pkg/response"
)

// RequestIDHeader 请求ID响应头
const RequestIDHeader = "X-Request-ID"

// slowRequestThreshold 超过该耗时记WARN
const slowRequestThreshold = 3 * time.Second

// Logger 请求日志中间件
// 1. 生成请求ID(客户端传了X-Request-ID则沿用)
// 2. 把带request_id字段的logger放入上下文,response.Error等处通过response.Logger取用
// 3. 请求结束后输出一行结构化访问日志
func Logger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		reqLog := log.With(zap.String("request_id", requestID))
		c.Set(response.LoggerKey, reqLog)

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case latency > slowRequestThreshold:
			reqLog.Warn("slow request", fields...)
		case c.Writer.Status() >= 500:
			reqLog.Error("request", fields...)
		default:
			reqLog.Info("request", fields...)
		}
	}
}

// GetRequestID 从Context获取请求ID
func GetRequestID(c *gin.Context) string {
	if v, ok := c.Get("request_id"); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
