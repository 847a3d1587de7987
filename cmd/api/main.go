package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mrbrocoli/grocer/backend/config"
	"github.com/mrbrocoli/grocer/backend/internal/api"
	"github.com/mrbrocoli/grocer/backend/internal/database"
	"github.com/mrbrocoli/grocer/backend/internal/logging"
	"github.com/mrbrocoli/grocer/backend/internal/metrics"
	"github.com/mrbrocoli/grocer/backend/internal/middleware"
	"github.com/mrbrocoli/grocer/backend/internal/ratelimit"
	"github.com/mrbrocoli/grocer/backend/internal/server"
	"github.com/mrbrocoli/grocer/backend/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := database.NewGorm(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.RunMigrations(db, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Redis backs the shared rate limit store and the product image cache.
	// Without it the limiter stays process-local and lookups go uncached.
	redisClient, err := database.NewRedisClient(cfg, logger)
	if err != nil {
		if cfg.RateLimitStore == "redis" {
			return err
		}
		logger.Warn("Redis unavailable, continuing without it", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	collector := metrics.NewCollector(nil)

	store := newRateLimitStore(cfg, redisClient)
	planLimiter := ratelimit.NewLimiter(store, ratelimit.Policy{
		Name:      ratelimit.PlanPolicy.Name,
		PerMinute: cfg.PlanRateLimitPerMinute,
		PerHour:   cfg.PlanRateLimitPerHour,
	}, logger)
	cartLimiter := ratelimit.NewLimiter(store, ratelimit.Policy{
		Name:      ratelimit.CartPolicy.Name,
		PerMinute: cfg.CartRateLimitPerMinute,
		PerHour:   cfg.CartRateLimitPerHour,
	}, logger)

	sweeper := ratelimit.NewSweeper(store, cfg.RateLimitSweepSchedule, logger)
	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start rate limit sweeper: %w", err)
	}
	defer sweeper.Stop()

	identity, err := newIdentityProvider(cfg)
	if err != nil {
		return err
	}

	planner, err := service.NewLLMService(service.LLMConfig{
		APIKey:      cfg.LLMAPIKey,
		APIURL:      cfg.LLMAPIURL,
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: &cfg.LLMTemperature,
		Timeout:     cfg.LLMTimeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM service: %w", err)
	}

	products, err := newProductService(ctx, cfg, redisClient, collector, logger)
	if err != nil {
		return err
	}

	cart := service.NewCartService(service.CartConfig{
		WorkerURL:  cfg.CartWorkerURL,
		Timeout:    cfg.CartTimeout,
		MaxRetries: uint64(cfg.CartMaxRetries),
	}, collector, logger)
	if !cart.Enabled() {
		logger.Warn("CART_AUTOMATION_URL not set, cart automation disabled")
	}

	srv := server.New(cfg, api.Dependencies{
		Authenticator: middleware.NewAuthenticator(identity, logger),
		PlanLimiter:   planLimiter,
		CartLimiter:   cartLimiter,
		Planner:       planner,
		Cart:          cart,
		Products:      products,
		History:       service.NewHistoryService(db, logger),
		Metrics:       collector,
		DB:            db,
		Redis:         redisClient,
		Logger:        logger,
	}, logger)

	logger.Info("starting server",
		zap.String("environment", string(cfg.Environment)),
		zap.String("addr", cfg.Addr()),
		zap.String("rate_limit_store", cfg.RateLimitStore))
	return srv.Start(ctx)
}

func newRateLimitStore(cfg *config.Config, client *redis.Client) ratelimit.Store {
	if cfg.RateLimitStore == "redis" && client != nil {
		return ratelimit.NewRedisStore(client, "grocer:rate_limit")
	}
	return ratelimit.NewMemoryStore()
}

func newIdentityProvider(cfg *config.Config) (service.IdentityProvider, error) {
	switch cfg.IdentityProvider {
	case "jwt":
		return service.NewJWTIdentityProvider(cfg.JWTSecret)
	default:
		return service.NewSupabaseIdentityProvider(cfg.SupabaseURL, cfg.SupabaseAnonKey, 0)
	}
}

func newProductService(ctx context.Context, cfg *config.Config, client *redis.Client, collector *metrics.Collector, logger *zap.Logger) (*service.ProductService, error) {
	var cache service.ProductCache
	if client != nil {
		cache = service.NewRedisProductCache(client)
	}

	var uploader service.ObjectUploader
	s3cfg, err := config.NewS3Config(ctx, cfg)
	if err != nil {
		return nil, err
	}
	bucket := ""
	if s3cfg != nil {
		uploader = s3cfg.Client
		bucket = s3cfg.BucketName
	}

	return service.NewProductService(service.ProductConfig{
		SearchURL:         cfg.ProductSearchURL,
		PlaceholderURL:    cfg.ProductPlaceholderURL,
		RequestsPerSecond: cfg.ProductRequestsPerSecond,
		Concurrency:       cfg.ProductConcurrency,
		CacheTTL:          cfg.ProductCacheTTL,
		Bucket:            bucket,
	}, cache, uploader, collector, logger), nil
}
