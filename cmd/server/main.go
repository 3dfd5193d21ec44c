package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/stemworks/api/internal/aggregator"
	"github.com/stemworks/api/internal/config"
	"github.com/stemworks/api/internal/eventbus"
	"github.com/stemworks/api/internal/eventlog"
	"github.com/stemworks/api/internal/handler"
	"github.com/stemworks/api/internal/middleware"
	"github.com/stemworks/api/internal/model"
	"github.com/stemworks/api/internal/pipeline"
	"github.com/stemworks/api/internal/registry"
	"github.com/stemworks/api/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Event bus and log. The log must be attached before anything publishes
	// so no event is missed; there is no replay.
	bus := eventbus.New()
	eventLog := eventlog.New()
	eventLog.Attach(bus, model.KnownEventNames...)

	// Ingestion pipeline over the redis-backed registry
	uploadStore := registry.NewRedisStore(redisClient)
	scheduler := worker.NewAsynqScheduler(asynqClient, cfg.Pipeline.Queue)
	ingestion := pipeline.New(uploadStore, bus, scheduler, pipeline.Config{
		ProcessingDelay: cfg.Pipeline.ProcessingDelay,
		SampleURI:       cfg.Pipeline.SampleURI,
	})

	// Aggregator over the event log
	exportStore := aggregator.NewRedisExportStore(redisClient)
	agg := aggregator.New(eventLog, exportStore)

	// Initialize handlers
	stemsHandler := handler.NewStemsHandler(ingestion, validate)
	analyticsHandler := handler.NewAnalyticsHandler(agg)

	// Initialize middleware
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		redisOK := redisClient.Ping(c.Context()).Err() == nil
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis": redisOK,
			},
		})
	})

	// API routes
	api := app.Group("/api")

	// Stems routes
	stems := api.Group("/stems")
	stems.Post("/upload", rateLimiter.UploadLimit(cfg.RateLimit.UploadPerHour), stemsHandler.Submit)
	stems.Get("/status/:uploadId", stemsHandler.Status)
	stems.Post("/retry/:uploadId", stemsHandler.Retry)
	stems.Post("/cancel/:uploadId", stemsHandler.Cancel)

	// Analytics routes
	analytics := api.Group("/analytics", rateLimiter.AnalyticsLimit(cfg.RateLimit.AnalyticsPerHour))
	analytics.Get("/artists/:artistId/stats", analyticsHandler.Stats)
	analytics.Get("/artists/:artistId/dashboard", analyticsHandler.Dashboard)
	analytics.Post("/rollup", analyticsHandler.Rollup)

	// Start Asynq worker server
	go startWorkerServer(cfg, ingestion)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, ingestion *pipeline.Pipeline) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				cfg.Pipeline.Queue: 10,
			},
		},
	)

	stemsWorker := worker.NewStemsWorker(ingestion)

	mux := asynq.NewServeMux()
	mux.HandleFunc(worker.TaskTypeProcessStems, stemsWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
