// @title           Shiptrack API
// @version         1.0
// @description     客户前缀分配、追踪号签发与运单追踪查询
// @BasePath        /
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/shiptrack/internal/infrastructure/config"
	"github.com/xiebiao/shiptrack/pkg/tracing"
)

func main() {
	// 1. 加载配置(logger依赖配置,这里失败只能用标准库log输出)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	ctx := context.Background()

	// 2. 链路追踪(可选)
	shutdownTracer := func(context.Context) error { return nil }
	if cfg.Tracing.Enabled {
		shutdownTracer, err = tracing.InitTracer(ctx, tracing.Options{
			ServiceName: cfg.Tracing.ServiceName,
			Endpoint:    cfg.Tracing.Endpoint,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			log.Fatalf("初始化链路追踪失败: %v", err)
		}
	}

	// 3. 依赖注入
	app, cleanup, err := InitializeApp(ctx, cfg)
	if err != nil {
		log.Fatalf("初始化应用失败: %v", err)
	}
	defer cleanup()

	// 4. 启动HTTP服务
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		app.Log.Info("server started",
			zap.String("addr", srv.Addr),
			zap.String("mode", cfg.Server.Mode),
			zap.String("exhaustion_policy", cfg.Tracking.ExhaustionPolicy),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Log.Fatal("server failed", zap.Error(err))
		}
	}()

	// 5. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	app.Log.Info("shutting down", zap.String("signal", sig.String()))

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Log.Error("server forced to shutdown", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		app.Log.Warn("tracer shutdown failed", zap.Error(err))
	}
	app.Log.Info("server stopped")
}
