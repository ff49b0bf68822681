// Package router 组装gin引擎:全局中间件、运维端点和/api/v1业务路由
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/xiebiao/shiptrack/internal/infrastructure/config"
	"github.com/xiebiao/shiptrack/internal/interface/http/handler"
	"github.com/xiebiao/shiptrack/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/shiptrack/pkg/errors"
	"github.com/xiebiao/shiptrack/pkg/response"
)

// Handlers 业务处理器集合
type Handlers struct {
	Client   *handler.ClientHandler
	Prefix   *handler.PrefixHandler
	Shipment *handler.ShipmentHandler
}

// New 创建并配置Gin引擎
// 中间件顺序:Logger → Recovery → Metrics → 路由匹配 → Handler
func New(cfg *config.Config, log *zap.Logger, h Handlers) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Logger(log))
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		response.Logger(c).Error("panic recovered", zap.Any("panic", recovered), zap.Stack("stack"))
		response.ErrorWithCode(c, apperrors.ErrCodeInternal, "internal server error")
		c.Abort()
	}))
	r.Use(middleware.Metrics())

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.Server.Mode != "release" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	{
		clients := v1.Group("/clients")
		{
			clients.POST("", h.Client.CreateClient)
			clients.GET("/:id", h.Client.GetClient)
			clients.PUT("/:id/prefix", h.Client.UpdatePrefix)
			clients.POST("/:id/tracking-codes", h.Client.IssueTrackingCode)
		}

		prefixes := v1.Group("/prefixes")
		{
			prefixes.GET("/suggest", h.Prefix.Suggest)
			prefixes.GET("/check", h.Prefix.Check)
		}

		v1.POST("/shipments", h.Shipment.CreateShipment)
		v1.GET("/tracking/:code", h.Shipment.Track)
	}

	return r
}
