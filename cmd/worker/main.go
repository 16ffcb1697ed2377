package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/kursadbilgin/number-console/internal/config"
	"github.com/kursadbilgin/number-console/internal/handler"
	"github.com/kursadbilgin/number-console/internal/infra/postgresql"
	"github.com/kursadbilgin/number-console/internal/infra/postgresql/migrations"
	"github.com/kursadbilgin/number-console/internal/observability"
	"github.com/kursadbilgin/number-console/internal/queue"
	"github.com/kursadbilgin/number-console/internal/repository"
	"github.com/kursadbilgin/number-console/internal/service"
	"github.com/kursadbilgin/number-console/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN, postgresql.PoolOptions{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	mq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}

	consumer := queue.NewRabbitMQConsumer(mq, cfg.AuditPrefetch, logger)
	defer consumer.Close()

	metrics := observability.NewMetrics()

	auditSvc, err := service.NewAuditService(
		repository.NewGormAuditRepo(db),
		consumer,
		cfg.AuditPrefetch,
		logger,
	)
	if err != nil {
		logger.Fatal("audit service initialization failed", zap.Error(err))
	}
	auditSvc.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          transport.ErrorHandler(logger),
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	handler.RegisterHealthRoutes(app,
		handler.PostgresCheck(sqlDB),
		handler.ReadinessCheck{Name: "rabbitmq", Ping: mq.Ping},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return auditSvc.Start(gctx)
	})
	g.Go(func() error {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.WorkerPort)); err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", zap.Error(err))
		}
		return nil
	})

	logger.Info("number-console audit worker started",
		zap.Int("port", cfg.WorkerPort),
		zap.Int("prefetch", cfg.AuditPrefetch),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped with error", zap.Error(err))
		return
	}
	logger.Info("number-console audit worker stopped")
}
