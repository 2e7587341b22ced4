package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"artstory-server/internal/ai"
	"artstory-server/internal/config"
	"artstory-server/internal/database"
	"artstory-server/internal/handler"
	"artstory-server/internal/logger"
	"artstory-server/internal/middleware"
	"artstory-server/internal/service"
	"artstory-server/pkg/migration"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

const (
	postgresMaxRetries = 50
	postgresRetryDelay = 3 * time.Second
	redisMaxRetries    = 10
	redisRetryDelay    = 2 * time.Second
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)
	zap.L().Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("logLevel", cfg.LogLevel),
		zap.String("dsn", cfg.MaskedDSN()),
		zap.String("aiClient", cfg.AIClientType),
		zap.String("aiModel", cfg.AIModel),
	)

	// --- External Connections ---
	ctx := context.Background()

	pgPool, err := database.NewPool(ctx, database.PoolConfig{
		DSN:         cfg.GetDSN(),
		MaxConns:    cfg.DBMaxConns,
		IdleTimeout: cfg.DBIdleTimeout,
		MaxRetries:  postgresMaxRetries,
		RetryDelay:  postgresRetryDelay,
	}, log.Named("Postgres"))
	if err != nil {
		zap.L().Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()

	if cfg.RunMigrations {
		migrator := migration.New(pgPool, database.MigrationsFS(), database.MigrationsPath,
			zerolog.New(os.Stdout).With().Timestamp().Logger())
		if err := migrator.Up(ctx); err != nil {
			zap.L().Fatal("Failed to apply database migrations", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = setupRedis(ctx, cfg)
		if err != nil {
			zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		zap.L().Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))
	} else {
		zap.L().Info("REDIS_ADDR not set, rate limiter counters are kept in memory")
	}

	// --- Dependency Injection ---
	aiClient, err := ai.NewClient(cfg, log.Named("AIClient"))
	if err != nil {
		zap.L().Fatal("Failed to create AI client", zap.Error(err))
	}

	storyOptions, err := service.LoadStoryOptions(cfg.StoryOptionsPath)
	if err != nil {
		zap.L().Fatal("Failed to load story options", zap.String("path", cfg.StoryOptionsPath), zap.Error(err))
	}

	txHelper := database.NewTransactionHelper(pgPool, log)
	instructionRepo := database.NewPgInstructionRepository(log)
	hashtagRepo := database.NewPgHashtagRepository(log)
	analysisRepo := database.NewPgAnalysisRepository(log)
	storyRepo := database.NewPgStoryGenerationRepository(log)
	sessionRepo := database.NewPgSessionRepository(log)
	segmentRepo := database.NewPgSegmentRepository(log)

	catalogSvc := service.NewCatalogService(pgPool, txHelper, instructionRepo, hashtagRepo, log)
	seedCtx, seedCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := catalogSvc.SeedDefaults(seedCtx); err != nil {
		seedCancel()
		zap.L().Fatal("Failed to seed default instruction and hashtags", zap.Error(err))
	}
	seedCancel()

	analyzer := service.NewArtworkAnalyzer(aiClient, &http.Client{Timeout: cfg.ImageFetchTimeout}, cfg.ImageMaxBytes, log)
	analysisSvc := service.NewAnalysisService(pgPool, analyzer, catalogSvc, analysisRepo, log)
	storySvc := service.NewStoryService(aiClient, pgPool, analysisRepo, storyRepo, storyOptions, cfg.StoryTemperature, log)
	graphSvc := service.NewStoryGraphService(aiClient, pgPool, txHelper, sessionRepo, segmentRepo, analysisRepo, cfg.StoryTemperature, log)

	cookies := handler.NewSessionCookie(cfg.SessionSecret, cfg.SessionTTL, cfg.Env != "development")
	artHandler := handler.NewArtStoryHandler(catalogSvc, analysisSvc, storySvc, graphSvc, cookies, log)

	rateLimitMiddleware := handler.NewRateLimiter(redisClient, cfg.RateLimitPerMinute)
	zap.L().Info("Rate limiter middleware initialized", zap.Uint("perMinute", cfg.RateLimitPerMinute))

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(middleware.GinZapLogger(log))
	router.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("gin")
	// Метки по шаблону маршрута, иначе каждый id даёт новую серию
	p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
		if path := c.FullPath(); path != "" {
			return path
		}
		return "unmatched"
	}

	corsConfig := cors.DefaultConfig()
	allowedOrigins := cfg.GetAllowedOrigins()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
		zap.L().Info("CORS_ALLOWED_ORIGINS not set, allowing default", zap.String("origin", "http://localhost:3000"))
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	artHandler.RegisterRoutes(router, rateLimitMiddleware)

	// Prometheus подключается после регистрации маршрутов
	p.Use(router)

	// --- Start HTTP Server ---
	// Запись ответа ждёт вызова модели, поэтому WriteTimeout больше AI_TIMEOUT
	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AITimeout + cfg.ImageFetchTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	zap.L().Info("Starting HTTP server", zap.String("port", cfg.ServerPort))

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("Server exiting")
}

// setupRedis подключается к Redis с повторными попытками.
func setupRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	var lastErr error
	for attempt := 1; attempt <= redisMaxRetries; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		lastErr = client.Ping(pingCtx).Err()
		cancel()
		if lastErr == nil {
			return client, nil
		}
		zap.L().Warn("Redis is not ready, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", redisMaxRetries),
			zap.Error(lastErr),
		)
		time.Sleep(redisRetryDelay)
	}
	_ = client.Close()
	return nil, fmt.Errorf("redis ping failed after %d attempts: %w", redisMaxRetries, lastErr)
}
