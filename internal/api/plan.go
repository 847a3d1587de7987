package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrbrocoli/grocer/backend/internal/metrics"
	"github.com/mrbrocoli/grocer/backend/internal/middleware"
	"github.com/mrbrocoli/grocer/backend/internal/ratelimit"
	"github.com/mrbrocoli/grocer/backend/internal/service"
	"github.com/mrbrocoli/grocer/backend/internal/types"
)

// PlanSourceHeader tells clients whether the plan was generated or synthesized
const PlanSourceHeader = "X-Plan-Source"

// PlanHandler serves grocery plan generation
type PlanHandler struct {
	auth    *middleware.Authenticator
	limiter *ratelimit.Limiter
	planner service.PlanRequester
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewPlanHandler creates a new PlanHandler instance
func NewPlanHandler(auth *middleware.Authenticator, limiter *ratelimit.Limiter, planner service.PlanRequester, collector *metrics.Collector, logger *zap.Logger) *PlanHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanHandler{
		auth:    auth,
		limiter: limiter,
		planner: planner,
		metrics: collector,
		logger:  logger.Named("plan"),
	}
}

// RegisterRoutes registers the plan routes
func (h *PlanHandler) RegisterRoutes(router gin.IRoutes) {
	router.POST("/generate-plan", h.GeneratePlan)
}

// GeneratePlan validates the request, then authenticates, rate limits,
// generates and normalizes, stopping at the first gate that fails.
func (h *PlanHandler) GeneratePlan(c *gin.Context) {
	var req types.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.RecordPlanOutcome(metrics.OutcomeInvalid)
		abortInvalid(c, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		h.metrics.RecordPlanOutcome(metrics.OutcomeInvalid)
		abortInvalid(c, err.Error())
		return
	}

	if !h.auth.Authenticate(c) {
		h.metrics.RecordPlanOutcome(metrics.OutcomeUnauthorized)
		return
	}

	if !middleware.ApplyRateLimit(c, h.limiter, h.metrics) {
		h.metrics.RecordPlanOutcome(metrics.OutcomeRateLimited)
		return
	}

	start := time.Now()
	raw, err := h.planner.RequestPlan(c.Request.Context(), req.Prompt, req.Budget)
	h.metrics.ObserveGeneration(time.Since(start))
	if err != nil {
		h.logger.Error("plan generation failed",
			zap.String("user_id", middleware.UserID(c)),
			zap.Error(err))
		h.metrics.RecordPlanOutcome(metrics.OutcomeFailed)
		c.AbortWithStatusJSON(http.StatusInternalServerError, types.ErrorResponse{
			Error: "Failed to generate plan",
			Type:  types.GenerationFailed,
		})
		return
	}

	result := service.Normalize(raw, req.Prompt, req.Budget)
	if result.Source == service.SourceFallback {
		h.logger.Warn("generated plan unusable, served fallback",
			zap.String("user_id", middleware.UserID(c)),
			zap.NamedError("reason", result.Reason))
	}

	h.metrics.RecordPlanSource(string(result.Source))
	h.metrics.RecordPlanOutcome(metrics.OutcomeSuccess)
	c.Header(PlanSourceHeader, string(result.Source))
	c.JSON(http.StatusOK, result.Plan)
}

func abortInvalid(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, types.ErrorResponse{
		Error: msg,
		Type:  types.InvalidInput,
	})
}
