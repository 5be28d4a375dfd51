package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hijjiri/todo-api/internal/config"
	"github.com/hijjiri/todo-api/internal/observability"
	"github.com/hijjiri/todo-api/internal/server"
	todo_usecase "github.com/hijjiri/todo-api/internal/usecase/todo"

	"go.uber.org/zap"
)

func main() {
	// ---- Logger ----
	logger, err := observability.NewLogger(os.Getenv("APP_ENV"))
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	defer logger.Sync()

	// ---- Config 読み込み ----
	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}
	logger.Info("loaded config",
		zap.String("env", cfg.Env),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("grpc_addr", cfg.GRPCAddr),
		zap.String("metrics_addr", cfg.MetricsAddr),
		zap.String("store_driver", cfg.StoreDriver),
		zap.Duration("request_timeout", cfg.RequestTimeout),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.String("otel_traces", cfg.OTELTraces),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		stop()
		_ = logger.Sync()
		os.Exit(1)
	}
}

// run は defer で後片付けできるよう main から切り出している。
func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	// ---- Tracing ----
	shutdownTracing, err := observability.SetupTracing(cfg.OTELTraces, os.Stdout, "todo-api")
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	// ---- Store ----
	store, closeStore, err := server.OpenStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	// ---- Usecase ----
	metrics := observability.NewMetrics()
	uc := todo_usecase.New(store, store, logger, todo_usecase.WithRecorder(metrics))

	// ---- HTTP / gRPC / metrics ----
	return server.New(cfg, uc, metrics, logger).Run(ctx)
}
