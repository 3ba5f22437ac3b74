package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"vehicle_import/internal/config"
	"vehicle_import/internal/domain"
	"vehicle_import/internal/handler"
	"vehicle_import/internal/middleware"
	"vehicle_import/internal/repository"
	"vehicle_import/internal/service"
	"vehicle_import/internal/tasks"
	"vehicle_import/pkg/logger"
)

func main() {
	runMode := flag.String("m", "", "run mode: api, worker or all (overrides RUN_MODE)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *runMode != "" {
		switch *runMode {
		case config.RunModeAPI, config.RunModeWorker, config.RunModeAll:
			cfg.Worker.RunMode = *runMode
		default:
			log.Fatalf("Unknown run mode %q", *runMode)
		}
	}

	appLogger := logger.New(cfg.Log.Level)

	dbPool, err := connectDB(cfg.Database)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	defer dbPool.Close()
	appLogger.Info("Database connection established")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", "error", err)
	}
	appLogger.Info("Redis connection established")

	taskClient := tasks.NewClient(rdb)
	defer taskClient.Close()

	repos := repository.NewRepositories(dbPool, rdb, appLogger)
	services := service.NewServices(repos, cfg, tasks.NewNotifier(taskClient, appLogger), appLogger)
	defer services.Catalog.Stop()

	runAPI := cfg.Worker.RunMode != config.RunModeWorker
	runWorker := cfg.Worker.RunMode != config.RunModeAPI

	var srv *http.Server
	if runAPI {
		handlers := handler.NewHandlers(services, dbPool, rdb, appLogger)
		authMiddleware := middleware.NewAuthMiddleware(cfg.JWT, appLogger)

		router := setupRouter(handlers, authMiddleware, cfg, appLogger)

		srv = &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			appLogger.Info("Starting server", "port", cfg.Server.Port)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				appLogger.Fatal("Failed to start server", "error", err)
			}
		}()
	}

	var taskServer *asynq.Server
	var scheduler *asynq.Scheduler
	if runWorker {
		processor := tasks.NewTaskProcessor(services.Inquiry, repos.Notification, appLogger)
		taskServer = tasks.SetupServer(rdb, cfg.Worker, appLogger)
		if err := taskServer.Start(tasks.NewServeMux(processor)); err != nil {
			appLogger.Fatal("Failed to start task server", "error", err)
		}

		scheduler, err = tasks.NewScheduler(rdb, cfg.Inquiry.SweepCron, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to create scheduler", "error", err)
		}
		if err := scheduler.Start(); err != nil {
			appLogger.Fatal("Failed to start scheduler", "error", err)
		}
		appLogger.Info("Worker started", "concurrency", cfg.Worker.Concurrency)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...", "run_mode", cfg.Worker.RunMode)

	if scheduler != nil {
		scheduler.Shutdown()
	}
	if taskServer != nil {
		taskServer.Shutdown()
	}

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			appLogger.Error("Server forced to shutdown", "error", err)
		}
	}

	appLogger.Info("Server exited")
}

func connectDB(cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConnections)
	poolCfg.MaxConnIdleTime = cfg.MaxIdleTime
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

func setupRouter(
	handlers *handler.Handlers,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))

	router.GET("/health", handlers.Health.Check)

	v1 := router.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		inquiries := protected.Group("/inquiries")
		{
			inquiries.POST("", handlers.Inquiry.Create)
			inquiries.GET("", handlers.Inquiry.List)
			inquiries.GET("/:id", handlers.Inquiry.GetByID)
			inquiries.PATCH("/:id", handlers.Inquiry.Update)

			inquiries.GET("/:id/messages", handlers.Message.List)
			inquiries.POST("/:id/messages", handlers.Message.Send)
			inquiries.POST("/:id/mark-read", handlers.Message.MarkRead)
			inquiries.GET("/:id/messages/unread-count", handlers.Message.UnreadCount)
			inquiries.GET("/:id/read-receipts", handlers.Message.ReadReceipts)
		}

		protected.GET("/notifications", handlers.Notification.List)

		admin := protected.Group("/admin")
		admin.Use(authMiddleware.RequireCapability(domain.CapRunMaintenance))
		{
			admin.POST("/inquiries/expire", handlers.Inquiry.Expire)
		}
	}

	return router
}
