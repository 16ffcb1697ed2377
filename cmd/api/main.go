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
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/kursadbilgin/number-console/internal/batch"
	"github.com/kursadbilgin/number-console/internal/config"
	"github.com/kursadbilgin/number-console/internal/handler"
	"github.com/kursadbilgin/number-console/internal/infra/postgresql"
	"github.com/kursadbilgin/number-console/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/number-console/internal/infra/redis"
	"github.com/kursadbilgin/number-console/internal/observability"
	"github.com/kursadbilgin/number-console/internal/provider"
	"github.com/kursadbilgin/number-console/internal/queue"
	"github.com/kursadbilgin/number-console/internal/repository"
	"github.com/kursadbilgin/number-console/internal/selection"
	"github.com/kursadbilgin/number-console/internal/service"
	"github.com/kursadbilgin/number-console/internal/transport"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

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

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	mq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer mq.Close()

	publisher := queue.NewRabbitMQPublisher(mq)
	defer publisher.Close()

	carrier, err := provider.NewCarrierClient(cfg.NumberAPIURL, cfg.NumberAPIToken, cfg.NumberAPITimeout())
	if err != nil {
		logger.Fatal("carrier client initialization failed", zap.Error(err))
	}

	pacer, err := newPacer(cfg, rdb)
	if err != nil {
		logger.Fatal("pacer initialization failed", zap.Error(err))
	}

	progressStore, err := infraredis.NewProgressStore(rdb, cfg.ProgressTTL())
	if err != nil {
		logger.Fatal("progress store initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	selections := selection.NewRegistry()
	numberRepo := repository.NewGormNumberRepo(db)

	batchSvc, err := service.NewBatchService(
		selections,
		numberRepo,
		repository.NewGormBatchRepo(db),
		carrier,
		publisher,
		pacer,
		logger,
	)
	if err != nil {
		logger.Fatal("batch service initialization failed", zap.Error(err))
	}
	batchSvc.SetMetrics(metrics)
	batchSvc.SetProgressStore(progressStore)

	if _, err := batchSvc.RecoverInterrupted(context.Background()); err != nil {
		logger.Fatal("batch job recovery failed", zap.Error(err))
	}

	numberSvc, err := service.NewNumberService(numberRepo, selections, logger)
	if err != nil {
		logger.Fatal("number service initialization failed", zap.Error(err))
	}

	janitor, err := service.NewJobJanitor(batchSvc, time.Minute, cfg.JobRetention(), logger)
	if err != nil {
		logger.Fatal("job janitor initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(handler.RequestContext())
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler.RegisterHealthRoutes(app,
		handler.PostgresCheck(sqlDB),
		handler.RedisCheck(rdb),
		handler.ReadinessCheck{Name: "rabbitmq", Ping: mq.Ping},
	)
	if err := handler.RegisterNumberRoutes(app, numberSvc); err != nil {
		logger.Fatal("number routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterSelectionRoutes(app, selections); err != nil {
		logger.Fatal("selection routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterBatchRoutes(app, batchSvc); err != nil {
		logger.Fatal("batch routes registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return janitor.Start(gctx)
	})
	g.Go(func() error {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Warn("http shutdown failed", zap.Error(err))
		}
		if err := batchSvc.Wait(shutdownCtx); err != nil {
			if job, ok := batchSvc.RunningJob(); ok {
				logger.Warn("batch job still running at shutdown", zap.String("jobId", job), zap.Error(err))
			}
		}
		return nil
	})

	logger.Info("number-console api started", zap.Int("port", cfg.APIPort))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("api stopped with error", zap.Error(err))
		return
	}
	logger.Info("number-console api stopped")
}

// newPacer spaces reputation lookups with the shared Redis limiter when a
// rate is configured, otherwise with a random delay per item. The random
// delay also covers the limiter while Redis is unreachable.
func newPacer(cfg *config.Config, rdb *goredis.Client) (batch.Pacer, error) {
	minDelay, maxDelay := cfg.ThrottleDelays()
	jitter, err := batch.NewJitterPacer(minDelay, maxDelay)
	if err != nil {
		return nil, err
	}
	if cfg.ReputationRateLimitPerSec <= 0 {
		return jitter, nil
	}

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.ReputationRateLimitPerSec)
	if err != nil {
		return nil, err
	}
	pacer, err := batch.NewLimiterPacer(limiter, jitter)
	if err != nil {
		return nil, err
	}
	return pacer, nil
}
