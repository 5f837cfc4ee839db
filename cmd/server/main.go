package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seu-repo/sigec-ve/internal/adapter/cache"
	"github.com/seu-repo/sigec-ve/internal/adapter/http/fiber/handlers"
	"github.com/seu-repo/sigec-ve/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/sigec-ve/internal/adapter/queue"
	"github.com/seu-repo/sigec-ve/internal/adapter/storage/postgres"
	"github.com/seu-repo/sigec-ve/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/sigec-ve/internal/ocpp"
	"github.com/seu-repo/sigec-ve/pkg/config"
)

const (
	serviceName    = "ocpp-central-system"
	serviceVersion = "v1.0.0"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer logger.Sync()

	logger.Info("starting central system", zap.String("service", serviceName), zap.String("version", serviceVersion))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	var db *gorm.DB
	err = circuitbreaker.RetryWithBackoff(context.Background(), 5, time.Second, func() error {
		conn, openErr := postgres.NewConnection(cfg.Database.URL, postgres.PoolSettings{
			MaxOpenConns:    cfg.Database.PoolSize + cfg.Database.MaxOverflow,
			MaxIdleConns:    cfg.Database.PoolSize,
			ConnMaxLifetime: cfg.Database.PoolRecycle,
			ConnMaxIdleTime: cfg.Database.PoolTimeout,
		}, logger)
		if openErr != nil {
			return openErr
		}
		db = conn
		return nil
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := postgres.RunMigrations(db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			logger.Error("error closing database", zap.Error(err))
		}
	}()

	idTagCache, err := cache.NewRedisCache(cfg.Redis.URL, logger)
	if err != nil {
		logger.Warn("redis not available, falling back to in-memory cache", zap.Error(err))
		idTagCache = cache.NewLocalCache(time.Minute, logger)
	}
	defer idTagCache.Close()

	messageQueue, err := queue.NewNATSQueue(cfg.NATS.URL, logger)
	if err != nil {
		logger.Warn("NATS not available, events will not be published", zap.Error(err))
		messageQueue = nil
	} else {
		defer messageQueue.Close()
	}

	chargePointRepo := postgres.NewChargePointRepository(db, logger)
	idTagRepo := postgres.NewIdTagRepository(db, logger)
	sessionRepo := postgres.NewSessionRepository(db, logger)
	meterValueRepo := postgres.NewMeterValueRepository(db, logger)
	connectorStatusRepo := postgres.NewConnectorStatusRepository(db, logger)

	breakers := circuitbreaker.NewManager(logger)
	commandBreakerSettings := circuitbreaker.Settings{
		FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		Timeout:          cfg.CircuitBreaker.Timeout,
		MaxRequests:      3,
		Interval:         time.Minute,
	}

	registry := ocpp.NewRegistry(chargePointRepo, logger)
	dispatcher := ocpp.NewDispatcher(logger)
	tags := ocpp.NewTagResolver(idTagRepo, idTagCache, cfg.Redis.IdTagCacheTTL, logger)
	events := ocpp.NewEventPublisher(messageQueue, logger)
	ocppHandlers := ocpp.NewHandlers(chargePointRepo, sessionRepo, meterValueRepo, connectorStatusRepo, tags, events, idTagCache, logger)
	ocppHandlers.Register(dispatcher)
	commands := ocpp.NewCommandService(registry, chargePointRepo, sessionRepo, tags, breakers, commandBreakerSettings, logger)
	acceptor := ocpp.NewAcceptor(registry, dispatcher, cfg.OCPP.CallTimeout, logger)

	ocppMux := http.NewServeMux()
	ocppMux.Handle("/", acceptor)
	ocppServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.OCPP.Host, cfg.OCPP.Port),
		Handler: ocppMux,
	}
	go func() {
		logger.Info("starting OCPP websocket listener", zap.String("addr", ocppServer.Addr))
		if err := ocppServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("OCPP listener failed", zap.Error(err))
		}
	}()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Prometheus.Port),
		Handler: metricsMux,
	}
	go func() {
		logger.Info("starting metrics listener", zap.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics listener failed", zap.Error(err))
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		ServerHeader:          serviceName,
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(middleware.DefaultCORS())
	app.Use(middleware.CircuitBreaker(breakers, logger))

	app.Get("/health/live", func(c *fiber.Ctx) error { return c.SendString("OK") })
	app.Get("/health/ready", func(c *fiber.Ctx) error {
		if err := idTagCache.Ping(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).SendString("cache not ready")
		}
		return c.SendString("ready")
	})
	cpHandler := handlers.NewChargePointHandler(chargePointRepo, logger)
	app.Get("/charge-points", cpHandler.List)
	app.Get("/charge-points/:id", cpHandler.Get)

	cmdHandler := handlers.NewCommandHandler(commands, logger)
	app.Post("/commands/remote-start", cmdHandler.RemoteStart)
	app.Post("/commands/remote-stop", cmdHandler.RemoteStop)
	app.Post("/commands/change-availability", cmdHandler.ChangeAvailabilityHTTP)

	go func() {
		logger.Info("starting HTTP operator surface", zap.Int("port", cfg.HTTP.Port))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	if err := ocppServer.Shutdown(ctx); err != nil {
		logger.Error("OCPP listener forced to shutdown", zap.Error(err))
	}
	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Error("metrics listener forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited gracefully")
}
