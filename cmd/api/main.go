package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	httpAdapter "github.com/lorrc/ohq-statistics/internal/adapters/primary/http"
	mw "github.com/lorrc/ohq-statistics/internal/adapters/primary/http/middleware"
	"github.com/lorrc/ohq-statistics/internal/adapters/primary/websocket"
	"github.com/lorrc/ohq-statistics/internal/adapters/secondary/postgres"
	"github.com/lorrc/ohq-statistics/internal/auth"
	"github.com/lorrc/ohq-statistics/internal/config"
	"github.com/lorrc/ohq-statistics/internal/core/services"
	"github.com/lorrc/ohq-statistics/internal/infrastructure/logging"
	"github.com/lorrc/ohq-statistics/internal/scheduler"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err == nil {
		err = cfg.ValidateServer()
	}
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})
	slog.SetDefault(logger)

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"config", cfg.String(),
	)

	// 3. Initialize Database Pool
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.Database.AutoMigrate {
		version, err := postgres.Migrate(cfg.Database.URL, cfg.Stats.MigrationsPath)
		if err != nil {
			logger.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("database schema up to date", "version", version)
	}

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		URL:             cfg.Database.URL,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connection established")

	// 4. Initialize Security & Real-time Components
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	// 5. Initialize Rate Limiters
	var generalRateLimiter, adminRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalConfig := mw.DefaultRateLimiterConfig()
		generalConfig.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		generalConfig.BurstSize = cfg.RateLimit.BurstSize
		generalRateLimiter = mw.NewRateLimiter(generalConfig)
		defer generalRateLimiter.Stop()

		adminConfig := mw.AdminRateLimiterConfig()
		adminConfig.RequestsPerSecond = cfg.RateLimit.AdminRPS
		adminConfig.BurstSize = cfg.RateLimit.AdminBurst
		adminRateLimiter = mw.NewRateLimiter(adminConfig)
		defer adminRateLimiter.Stop()
	}

	// 6. Dependency Injection (Wiring the Hexagon)
	errorHandler := httpAdapter.NewErrorHandler(logger)

	// Repositories (Secondary Adapters)
	questionRepo := postgres.NewQuestionRepository(pool)
	courseRepo := postgres.NewCourseRepository(pool)
	statsRepo := postgres.NewStatisticsRepository(pool)
	txManager := postgres.NewTransactionManager(pool)

	// Services (Core)
	statsService := services.NewStatisticsService(questionRepo, courseRepo, statsRepo, txManager, hub, logger, services.StatisticsOptions{
		Location:             cfg.Stats.Location,
		HeatmapLookbackWeeks: cfg.Stats.HeatmapLookbackWeeks,
		Concurrency:          cfg.Stats.Concurrency,
		WaitEstimateWindow:   cfg.Stats.WaitEstimateWindow,
	})
	queryService := services.NewStatisticsQueryService(courseRepo, statsRepo)

	sched := scheduler.New(statsService, logger, scheduler.Config{
		Enabled:              cfg.Stats.ScheduleEnabled,
		Location:             cfg.Stats.Location,
		RunHour:              cfg.Stats.RunHour,
		WaitEstimateInterval: cfg.Stats.WaitEstimateInterval,
	})
	sched.Start(ctx)

	// Handlers (Primary Adapters)
	statsHandler := httpAdapter.NewStatisticsHandler(queryService, errorHandler, logger)
	jobHandler := httpAdapter.NewJobHandler(sched, cfg.Stats.Location, errorHandler, logger)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, tokenManager, httpAdapter.WebSocketConfig{
		AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		PingInterval:    cfg.WebSocket.PingInterval,
		PongWait:        cfg.WebSocket.PongWait,
		IsDevelopment:   cfg.IsDevelopment(),
	}, logger)
	healthHandler := httpAdapter.NewHealthHandler(pool, sched, []string{services.OpDaily, services.OpCalculateWaitTimes}, cfg.App.Version)

	// 7. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders:   []string{mw.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	// Apply general rate limiting if enabled
	if generalRateLimiter != nil {
		r.Use(generalRateLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	healthHandler.RegisterRoutes(r)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket route (Authentication is handled inside the handler)
		r.Get("/ws", wsHandler.ServeHTTP)

		// Protected REST routes
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(tokenManager))
			statsHandler.RegisterRoutes(r)

			r.Route("/admin/jobs", func(r chi.Router) {
				r.Use(mw.RequireAdmin)
				if adminRateLimiter != nil {
					r.Use(adminRateLimiter.Middleware)
				}
				jobHandler.RegisterRoutes(r)
			})
		})
	})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Stop the schedule and the hub, then let in-flight runs finish
	stop()
	sched.Wait()

	logger.Info("server shutdown complete")
}
