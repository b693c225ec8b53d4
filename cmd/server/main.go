package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/promptforge/api/internal/cache"
	"github.com/promptforge/api/internal/config"
	"github.com/promptforge/api/internal/database"
	"github.com/promptforge/api/internal/eventbus"
	"github.com/promptforge/api/internal/handlers"
	"github.com/promptforge/api/internal/llm"
	"github.com/promptforge/api/internal/middleware"
	"github.com/promptforge/api/internal/optimizer"
	"github.com/promptforge/api/internal/orchestration"
	"github.com/promptforge/api/internal/repository"
	"github.com/promptforge/api/internal/telemetry"

	_ "github.com/promptforge/api/docs" // Swagger docs
)

// @title PromptForge API
// @version 0.1.0
// @description Three-stage prompt refinement over chat model backends.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
func main() {
	ctx := context.Background()
	cfg := config.Load()

	logger, err := telemetry.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("PromptForge API starting...",
		zap.String("version", "0.1.0"),
		zap.String("environment", cfg.Environment),
	)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	shutdownTelemetry, err := telemetry.InitTracer(ctx, "promptforge-api", cfg.OTLPEndpoint)
	if err != nil {
		// Collector may be down; tracing is optional
		logger.Error("failed to initialize telemetry", zap.Error(err))
	} else {
		defer func() {
			if err := shutdownTelemetry(ctx); err != nil {
				logger.Error("failed to shutdown telemetry", zap.Error(err))
			}
		}()
	}
	metrics := telemetry.NewMetrics()

	var publisher eventbus.Publisher = eventbus.NopPublisher{}
	var natsStatus handlers.ConnStatus
	nc, js, err := eventbus.Connect(cfg.NATSURL, logger)
	if err != nil {
		logger.Error("failed to connect to NATS, events disabled", zap.Error(err))
	} else {
		defer nc.Close()
		natsStatus = nc
		jsPublisher, err := eventbus.NewJetStreamPublisher(js, logger)
		if err != nil {
			logger.Error("failed to init JetStream publisher", zap.Error(err))
		} else {
			publisher = jsPublisher
			logger.Info("connected to NATS")
		}
	}

	pipelineBudget := optimizer.PipelineBudget(cfg.MaxRetries, cfg.APITimeout, cfg.RetryDelay)

	var runner handlers.WorkflowRunner
	temporalClient, err := orchestration.Dial(cfg.TemporalAddress, logger)
	if err != nil {
		// The API runs without async optimization when Temporal is down
		logger.Error("failed to connect to temporal", zap.Error(err))
	} else {
		defer temporalClient.Close()
		runner = orchestration.NewRunner(temporalClient, cfg.TemporalTaskQueue, pipelineBudget)
		logger.Info("connected to temporal")
	}

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.DatabaseURL, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	var redisPinger handlers.Pinger
	var summaryCache handlers.SummaryCache
	rdb, err := database.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to redis, summary cache disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		redisPinger = rdb
		summaryCache = cache.NewSummaryCache(rdb.Client(), cfg.SummaryCacheTTL, logger)
	}

	templates, err := optimizer.LoadTemplates(cfg.TemplatesPath)
	if err != nil {
		logger.Fatal("failed to load prompt templates", zap.Error(err))
	}
	svc := optimizer.NewService(llm.Endpoints(cfg, logger), templates, optimizer.Settings{
		SummaryThreshold: cfg.SummaryThreshold,
		MaxRetries:       cfg.MaxRetries,
		RetryDelay:       cfg.RetryDelay,
	}, logger, optimizer.WithRecorder(metrics))

	store := repository.New(db.Pool())
	access := middleware.NewSessionAccess(store, logger)

	breaker := middleware.NewCircuitBreaker()
	breaker.OnStateChange = func(from, to middleware.CircuitState) {
		logger.Warn("model circuit breaker changed state",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	apiLimiter := middleware.APIRateLimiter(cfg.RateLimitPerMinute)
	modelLimiter := middleware.ModelRateLimiter(cfg.ModelRateLimitPerMinute)
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepLimiters(sweepCtx, apiLimiter, modelLimiter)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS())
	router.Use(metrics.Middleware())

	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	healthHandler := handlers.NewHealthHandler(db, redisPinger, natsStatus,
		[]config.Backend{cfg.BackendA, cfg.BackendB, cfg.BackendC})
	router.GET("/health", healthHandler.Health)
	router.GET("/health/deep", healthHandler.DeepHealth)

	authHandler := handlers.NewAuthHandler(store, cfg.JWTSecret, cfg.JWTTTL, logger)
	sessionHandler := handlers.NewSessionHandler(store, svc, logger)
	conversationHandler := handlers.NewConversationHandler(store, store, access, svc, publisher, logger)
	resultHandler := handlers.NewResultHandler(store, access, logger)
	optimizeHandler := handlers.NewOptimizeHandler(svc, summaryCache, publisher, breaker, metrics, handlers.Limits{
		MaxRequirementLength: cfg.MaxRequirementLength,
		MaxHistoryTurns:      cfg.MaxHistoryTurns,
		SummaryMinLength:     cfg.SummaryMinLength,
	}, logger)
	asyncHandler := handlers.NewAsyncHandler(runner, optimizeHandler, access, logger)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/current", middleware.Auth(cfg.JWTSecret), authHandler.GetCurrentUser)
		}

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		protected.Use(middleware.RateLimitMiddleware(apiLimiter))
		{
			sessions := protected.Group("/sessions")
			{
				sessions.GET("", sessionHandler.ListSessions)
				sessions.POST("", sessionHandler.CreateSession)
				sessions.DELETE("/:sessionId", sessionHandler.DeleteSession)
			}

			conversations := protected.Group("/conversations")
			{
				conversations.POST("", conversationHandler.AddConversation)
				conversations.GET("/:sessionId", access.RequireOwner(), conversationHandler.ListConversations)
				conversations.DELETE("/:sessionId", access.RequireOwner(), conversationHandler.ClearConversations)
			}

			results := protected.Group("/optimization-results")
			{
				results.POST("", resultHandler.SaveResult)
				results.GET("/:sessionId", access.RequireOwner(), resultHandler.ListResults)
			}

			// Model-backed routes: stricter rate limit + circuit breaker
			modelRoutes := protected.Group("")
			modelRoutes.Use(middleware.RateLimitMiddleware(modelLimiter))
			modelRoutes.Use(middleware.CircuitBreakerMiddleware(breaker))
			{
				modelRoutes.POST("/optimize", optimizeHandler.Optimize)
				modelRoutes.POST("/summarize", optimizeHandler.Summarize)
				modelRoutes.POST("/optimize/async", asyncHandler.StartOptimization)
			}
			protected.GET("/optimize/async/:id", asyncHandler.GetOptimizationStatus)
		}
	}

	// A full pipeline run is three model calls, each retried, so writes get a long deadline.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: pipelineBudget + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited gracefully")
}

func sweepLimiters(ctx context.Context, limiters ...*middleware.RateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, rl := range limiters {
				rl.Sweep()
			}
		}
	}
}
