package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/HuuVinh0901/shoe-store-backend/internal/config"
	"github.com/HuuVinh0901/shoe-store-backend/internal/database"
	"github.com/HuuVinh0901/shoe-store-backend/internal/handlers"
	"github.com/HuuVinh0901/shoe-store-backend/internal/jobs"
	"github.com/HuuVinh0901/shoe-store-backend/internal/middleware"
	"github.com/HuuVinh0901/shoe-store-backend/internal/repositories"
	"github.com/HuuVinh0901/shoe-store-backend/internal/services"
	"github.com/HuuVinh0901/shoe-store-backend/pkg/logging"
	"github.com/HuuVinh0901/shoe-store-backend/pkg/metrics"
	"github.com/HuuVinh0901/shoe-store-backend/pkg/rabbitmq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	zapLogger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zapLogger); err != nil {
		zapLogger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

// server holds everything main starts and later shuts down.
type server struct {
	app       *fiber.App
	scheduler *cron.Cron
	closers   []func() error
}

func run(ctx context.Context, cfg config.Config, zapLogger *zap.Logger) error {
	srv, err := newServer(ctx, cfg, zapLogger)
	if err != nil {
		return err
	}
	defer srv.close(zapLogger)

	srv.scheduler.Start()

	listenErr := make(chan error, 1)
	go func() {
		zapLogger.Info("starting server", zap.String("addr", cfg.AppPort))
		listenErr <- srv.app.Listen(cfg.AppPort)
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	zapLogger.Info("shutting down server")
	<-srv.scheduler.Stop().Done()
	if err := srv.app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return err
	}
	zapLogger.Info("server gracefully stopped")
	return nil
}

func newServer(ctx context.Context, cfg config.Config, zapLogger *zap.Logger) (*server, error) {
	srv := &server{}

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN, zapLogger)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		srv.closers = append(srv.closers, sqlDB.Close)
	}
	if err := database.Migrate(db); err != nil {
		srv.close(zapLogger)
		return nil, err
	}

	// --- Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	variantRepo := repositories.NewGORMVariantRepository(db)
	var promotionRepo repositories.PromotionRepository = repositories.NewGORMPromotionRepository(db)
	if redisClient := connectRedis(ctx, cfg, zapLogger); redisClient != nil {
		srv.closers = append(srv.closers, redisClient.Close)
		promotionRepo = repositories.NewCachedPromotionRepository(promotionRepo, redisClient, cfg.RedisTTL, zapLogger)
	}

	// --- Events & metrics ---
	var events services.OrderEventPublisher
	if mqClient := connectRabbitMQ(cfg, zapLogger); mqClient != nil {
		srv.closers = append(srv.closers, mqClient.Close)
		events = mqClient
	}
	registry := metrics.NewRegistry()
	orderMetrics := metrics.NewOrderMetrics(registry)

	// --- Services ---
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, zapLogger)
	pricingService, err := services.NewPricingService(services.PricingServiceDeps{
		Products:   repositories.NewGORMProductRepository(db),
		Promotions: promotionRepo,
		Metrics:    orderMetrics,
		Logger:     zapLogger,
	})
	if err != nil {
		srv.close(zapLogger)
		return nil, err
	}
	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:             orderRepo,
		Histories:          repositories.NewGORMHistoryRepository(db),
		Users:              userRepo,
		Inventory:          services.NewInventoryService(variantRepo, zapLogger),
		Pricing:            pricingService,
		UnitOfWork:         repositories.NewGORMUnitOfWork(db),
		Events:             events,
		Metrics:            orderMetrics,
		Logger:             zapLogger,
		Location:           cfg.Location,
		SweepPaymentMethod: cfg.SweepPaymentMethod,
		SweepGrace:         cfg.SweepGrace,
	})
	if err != nil {
		srv.close(zapLogger)
		return nil, err
	}
	voucherService, err := services.NewVoucherService(repositories.NewGORMVoucherRepository(db), userRepo, nil)
	if err != nil {
		srv.close(zapLogger)
		return nil, err
	}

	// --- Scheduled sweep ---
	srv.scheduler = jobs.NewScheduler(zapLogger)
	builder := jobs.NewCronJobBuilder(ctx, zapLogger, cfg.SweepTimeout)
	if _, err := builder.Register(srv.scheduler, cfg.SweepSchedule, jobs.NewOverdueOrderJob(orderService)); err != nil {
		srv.close(zapLogger)
		return nil, err
	}

	// --- HTTP ---
	app := fiber.New(fiber.Config{AppName: "shoe-store-backend"})
	app.Use(logger.New())

	app.Get("/health", healthHandler(db, events != nil))
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(registry)))

	apiV1 := app.Group("/api/v1")
	handlers.NewAuthHandler(authService, zapLogger).RegisterRoutes(apiV1)
	handlers.NewPricingHandler(pricingService).RegisterRoutes(apiV1)

	protected := apiV1.Group("", middleware.AuthRequired(authService, zapLogger))
	handlers.NewOrderHandler(orderService, zapLogger).RegisterRoutes(protected)
	handlers.NewVoucherHandler(voucherService).RegisterRoutes(protected)

	srv.app = app
	return srv, nil
}

func (s *server) close(zapLogger *zap.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			zapLogger.Warn("failed to release resource", zap.Error(err))
		}
	}
	s.closers = nil
}

// connectRedis returns nil when caching is disabled or the server is unreachable.
func connectRedis(ctx context.Context, cfg config.Config, zapLogger *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		zapLogger.Warn("redis unavailable, promotion cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}

// connectRabbitMQ returns nil when events are disabled or the broker is unreachable. A
// consumer logs every order event it sees.
func connectRabbitMQ(cfg config.Config, zapLogger *zap.Logger) *rabbitmq.Client {
	if cfg.RabbitMQURL == "" {
		return nil
	}
	mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, zapLogger)
	if err != nil {
		zapLogger.Warn("rabbitmq unavailable, order events disabled", zap.Error(err))
		return nil
	}
	err = mqClient.ConsumeOrderEvents(func(event rabbitmq.OrderEvent) error {
		zapLogger.Info("order event received",
			zap.String("type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.String("from", event.From),
			zap.String("to", event.To))
		return nil
	})
	if err != nil && !errors.Is(err, rabbitmq.ErrChannelClosed) {
		zapLogger.Warn("failed to start order event consumer", zap.Error(err))
	}
	return mqClient
}

func healthHandler(db *gorm.DB, eventsEnabled bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbStatus := "connected"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			dbStatus = "unreachable"
		}
		status := fiber.StatusOK
		if dbStatus != "connected" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": dbStatus,
			"events":   eventsEnabled,
		})
	}
}
