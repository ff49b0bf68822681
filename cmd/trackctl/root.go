package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xiebiao/shiptrack/internal/domain/client"
	"github.com/xiebiao/shiptrack/internal/infrastructure/config"
	"github.com/xiebiao/shiptrack/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/shiptrack/pkg/logger"
)

// cli 命令共享的依赖
// 数据库只在需要的子命令里打开,derive不依赖任何外部服务
type cli struct {
	configPath string
	verbose    bool

	loadConfig func(path string) (*config.Config, error)
	openRepo   func(ctx context.Context, cfg *config.Config, log *zap.Logger) (client.Repository, func(), error)
	newLogger  func(cfg *config.Config, verbose bool) (*zap.Logger, error)
}

func defaultCLI() *cli {
	return &cli{
		loadConfig: config.LoadFile,
		openRepo:   openMySQLRepo,
		newLogger:  newCLILogger,
	}
}

// openMySQLRepo 打开数据库并返回客户仓储
func openMySQLRepo(ctx context.Context, cfg *config.Config, log *zap.Logger) (client.Repository, func(), error) {
	db, err := mysql.NewDB(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return mysql.NewClientRepository(db), closeFn, nil
}

// newCLILogger 命令行日志写stderr,不影响stdout上的命令输出
func newCLILogger(cfg *config.Config, verbose bool) (*zap.Logger, error) {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logger.New(logger.Options{
		Level:  level,
		Format: "console",
		Output: "stderr",
	})
}

// env 解析后的配置与logger
type env struct {
	cfg *config.Config
	log *zap.Logger
}

func (r *cli) env() (*env, error) {
	cfg, err := r.loadConfig(r.configPath)
	if err != nil {
		return nil, err
	}
	log, err := r.newLogger(cfg, r.verbose)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log}, nil
}

// withRepo 加载配置、打开仓储后执行fn
func (r *cli) withRepo(ctx context.Context, fn func(e *env, repo client.Repository) error) error {
	e, err := r.env()
	if err != nil {
		return err
	}
	defer func() { _ = e.log.Sync() }()

	repo, closeFn, err := r.openRepo(ctx, e.cfg, e.log)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(e, repo)
}

func newRootCmd(rt *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "trackctl",
		Short:         "Tracking prefix and code administration",
		Long:          `Derives and checks client tracking prefixes, issues tracking codes and backfills legacy clients.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&rt.configPath, "config", "c", "", "config file (default config/config.yaml)")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(
		newDeriveCmd(),
		newCheckCmd(rt),
		newNextCodeCmd(rt),
		newBackfillCmd(rt),
		newTailEventsCmd(rt),
	)
	return root
}

func allocatorFor(e *env, repo client.Repository) client.Allocator {
	return client.NewAllocator(repo, client.WithExhaustionPolicy(client.ExhaustionPolicy(e.cfg.Tracking.ExhaustionPolicy)))
}
