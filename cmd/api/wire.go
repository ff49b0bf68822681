//go:build wireinject
// +build wireinject

// Wire依赖注入配置
// 修改Provider后运行 `wire gen ./cmd/api` 重新生成wire_gen.go

package main

import (
	"context"

	"github.com/google/wire"

	appclient "github.com/xiebiao/shiptrack/internal/application/client"
	appshipment "github.com/xiebiao/shiptrack/internal/application/shipment"
	"github.com/xiebiao/shiptrack/internal/infrastructure/config"
	"github.com/xiebiao/shiptrack/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/shiptrack/internal/interface/http/handler"
	"github.com/xiebiao/shiptrack/internal/interface/http/router"
)

// infrastructureSet 基础设施层依赖:日志、数据库、缓存、消息队列
var infrastructureSet = wire.NewSet(
	provideLogger,
	provideDB,
	provideCache,
	providePublisher,
)

// repositorySet 仓储层依赖
var repositorySet = wire.NewSet(
	mysql.NewClientRepository,
	mysql.NewShipmentRepository,
	mysql.NewTxManager,
	wire.Bind(new(appshipment.Transactor), new(*mysql.TxManager)),
)

// domainSet 领域层依赖
var domainSet = wire.NewSet(
	provideAllocator,
)

// applicationSet 应用层依赖
var applicationSet = wire.NewSet(
	provideClientSettings,
	appclient.NewCreateClientUseCase,
	appclient.NewGetClientUseCase,
	appclient.NewUpdatePrefixUseCase,
	appclient.NewIssueTrackingCodeUseCase,
	appclient.NewPrefixQueryUseCase,
	appshipment.NewCreateShipmentUseCase,
	provideLookupShipmentUseCase,
)

// handlerSet HTTP处理器依赖
var handlerSet = wire.NewSet(
	handler.NewClientHandler,
	handler.NewPrefixHandler,
	handler.NewShipmentHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)

// InitializeApp 初始化整个应用
// 返回的cleanup按创建的逆序释放资源(MQ、Redis、数据库、日志)
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		domainSet,
		applicationSet,
		handlerSet,
		newApp,
	)
	return nil, nil, nil
}
