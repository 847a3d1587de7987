package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrbrocoli/grocer/backend/internal/database"
	"github.com/mrbrocoli/grocer/backend/internal/metrics"
	"github.com/mrbrocoli/grocer/backend/internal/middleware"
	"github.com/mrbrocoli/grocer/backend/internal/ratelimit"
	"github.com/mrbrocoli/grocer/backend/internal/service"
)

const healthTimeout = 2 * time.Second

// Dependencies carries everything RegisterRoutes wires into handlers.
// Cart, Products and History are optional; their routes are skipped when nil.
type Dependencies struct {
	Authenticator *middleware.Authenticator
	PlanLimiter   *ratelimit.Limiter
	CartLimiter   *ratelimit.Limiter
	Planner       service.PlanRequester
	Cart          service.CartAutomator
	Products      service.ProductLookup
	History       service.HistoryStore
	Metrics       *metrics.Collector
	DB            *gorm.DB
	Redis         *redis.Client
	Logger        *zap.Logger
}

// HealthHandler reports process and dependency health
type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewHealthHandler(db *gorm.DB, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient}
}

// HealthCheck returns the health status of the API
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	checks := gin.H{}
	status := "healthy"
	if h.db != nil {
		if err := database.Ping(ctx, h.db); err != nil {
			checks["database"] = err.Error()
			status = "degraded"
		} else {
			checks["database"] = "ok"
		}
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			status = "degraded"
		} else {
			checks["redis"] = "ok"
		}
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":  status,
		"message": "Grocer API is running",
		"checks":  checks,
	})
}

// RegisterRoutes registers all API routes
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	health := NewHealthHandler(deps.DB, deps.Redis)
	router.GET("/health", health.HealthCheck)
	router.GET("/api/health", health.HealthCheck)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// The plan endpoint validates its body before authenticating, so it
	// gates inside the handler instead of through group middleware.
	plans := NewPlanHandler(deps.Authenticator, deps.PlanLimiter, deps.Planner, deps.Metrics, logger)
	plans.RegisterRoutes(router.Group("/api"))

	v1 := router.Group("/api/v1")
	plans.RegisterRoutes(v1)

	authed := v1.Group("")
	authed.Use(deps.Authenticator.RequireIdentity())

	if deps.Cart != nil && deps.CartLimiter != nil {
		cart := authed.Group("")
		cart.Use(middleware.RateLimit(deps.CartLimiter, deps.Metrics))
		NewCartHandler(deps.Cart, logger).RegisterRoutes(cart)
	}
	if deps.Products != nil {
		NewProductHandler(deps.Products).RegisterRoutes(authed)
	}
	if deps.History != nil {
		NewHistoryHandler(deps.History, logger).RegisterRoutes(authed)
	}
}
