package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"

	"devlinks/internal/config"
	"devlinks/internal/handlers"
	"devlinks/internal/logging"
	"devlinks/internal/metrics"
	"devlinks/internal/services"
	"devlinks/internal/storage"
	"devlinks/pkg/rabbitmq"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// --- Configuration ---
	cfg, err := config.Load(viper.New())
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	appLogger := logging.New(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := NewApp(ctx, cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	// --- Start HTTP Server ---
	go func() {
		appLogger.Info(ctx, "starting server", "addr", cfg.Port)
		if err := app.Listen(cfg.Port); err != nil {
			appLogger.Error(ctx, "server stopped", "error", err)
			stop()
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()
	appLogger.Info(context.Background(), "shutting down server")

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		appLogger.Error(context.Background(), "error during fiber shutdown", "error", err)
	}
	cleanup()
	appLogger.Info(context.Background(), "server gracefully stopped")
}

// NewApp wires the stores, services and routes described by cfg. The
// returned cleanup func closes every backend connection.
func NewApp(ctx context.Context, cfg *config.Config, appLogger logging.Logger) (*fiber.App, func(), error) {
	b, err := openBackends(ctx, cfg, appLogger)
	if err != nil {
		return nil, nil, err
	}
	appLogger.Info(ctx, "backends ready",
		"store", b.store,
		"sessions", cfg.ResolvedSessionBackend(b.store),
		"avatars", cfg.AvatarStorage,
	)

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	// --- Initialize Services ---
	opts := []services.Option{
		services.WithBlobStore(b.blobs),
		services.WithLogger(appLogger.With("component", "account_service")),
		services.WithMetrics(appMetrics),
	}
	if mqClient := startEvents(ctx, cfg, appLogger); mqClient != nil {
		b.closers = append(b.closers, mqClient.Close)
		opts = append(opts, services.WithEventPublisher(mqClient))
	}
	accountService := services.NewAccountService(b.accounts, b.sessions, opts...)
	resolver := services.NewProfileResolver(b.accounts, appLogger.With("component", "profile_resolver"))

	// --- Initialize Handlers ---
	accountHandler := handlers.NewAccountHandler(accountService, appLogger.With("component", "account_handler"))
	profileHandler := handlers.NewProfileHandler(resolver)

	// --- Initialize Fiber App ---
	app := fiber.New(fiber.Config{
		AppName:   "devlinks",
		BodyLimit: cfg.BodyLimit(),
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(logger.New()) // Request logger
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// --- API Routes ---
	api := app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	accountHandler.RegisterRoutes(api)
	profileHandler.RegisterRoutes(app)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	if dir, ok := b.localUploadsDir(); ok {
		app.Static(storage.UploadsPath, dir)
	}

	cleanup := func() {
		if err := b.Close(); err != nil {
			appLogger.Error(context.Background(), "error closing backends", "error", err)
		}
	}
	return app, cleanup, nil
}

// startEvents connects to RabbitMQ and logs every account event it
// receives. Events are disabled when RABBITMQ_URL is empty or the broker
// is unreachable.
func startEvents(ctx context.Context, cfg *config.Config, appLogger logging.Logger) *rabbitmq.Client {
	if cfg.RabbitMQURL == "" {
		return nil
	}
	mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
	if err != nil {
		appLogger.Warn(ctx, "rabbitmq unreachable, account events disabled", "error", err)
		return nil
	}

	eventLogger := appLogger.With("component", "account_events")
	messageHandler := func(msg amqp.Delivery) error {
		eventLogger.Info(context.Background(), "account event", "routing_key", msg.RoutingKey, "body", string(msg.Body))
		return nil // Return nil to acknowledge
	}
	onError := func(err error) {
		eventLogger.Warn(context.Background(), "account event consumer", "error", err)
	}
	if err := mqClient.ConsumeAccountEvents(messageHandler, onError); err != nil {
		eventLogger.Warn(ctx, "failed to start account event consumer", "error", err)
	}
	return mqClient
}
