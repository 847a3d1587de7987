package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mrbrocoli/grocer/backend/internal/middleware"
	"github.com/mrbrocoli/grocer/backend/internal/models"
	"github.com/mrbrocoli/grocer/backend/internal/service"
	"github.com/mrbrocoli/grocer/backend/internal/types"
)

// HistoryHandler exposes a user's saved plans
type HistoryHandler struct {
	store  service.HistoryStore
	logger *zap.Logger
}

func NewHistoryHandler(store service.HistoryStore, logger *zap.Logger) *HistoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryHandler{store: store, logger: logger.Named("history")}
}

// RegisterRoutes registers the history routes on an authenticated group
func (h *HistoryHandler) RegisterRoutes(router gin.IRoutes) {
	router.POST("/history", h.SavePlan)
	router.GET("/history", h.ListPlans)
	router.GET("/history/similar", h.SimilarPlans)
	router.GET("/history/:id", h.GetPlan)
}

type historyEntry struct {
	ID        uuid.UUID         `json:"id"`
	Prompt    string            `json:"prompt"`
	Budget    float64           `json:"budget"`
	Source    string            `json:"source"`
	Plan      types.GroceryPlan `json:"plan"`
	CreatedAt string            `json:"createdAt"`
}

func toHistoryEntry(rec *models.GroceryPlanRecord) historyEntry {
	return historyEntry{
		ID:        rec.ID,
		Prompt:    rec.Prompt,
		Budget:    rec.Budget,
		Source:    rec.Source,
		Plan:      rec.Plan(),
		CreatedAt: rec.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func toHistoryEntries(recs []models.GroceryPlanRecord) []historyEntry {
	entries := make([]historyEntry, 0, len(recs))
	for i := range recs {
		entries = append(entries, toHistoryEntry(&recs[i]))
	}
	return entries
}

// SavePlan handles POST /history
func (h *HistoryHandler) SavePlan(c *gin.Context) {
	var req types.SavePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, "Invalid request body")
		return
	}

	rec, err := h.store.Save(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPlan) || errors.Is(err, types.ErrPromptRequired) || errors.Is(err, types.ErrBudgetInvalid) {
			abortInvalid(c, err.Error())
			return
		}
		h.internalError(c, "failed to save plan", err)
		return
	}
	c.JSON(http.StatusCreated, toHistoryEntry(rec))
}

// ListPlans handles GET /history
func (h *HistoryHandler) ListPlans(c *gin.Context) {
	recs, err := h.store.List(c.Request.Context(), middleware.UserID(c), queryLimit(c))
	if err != nil {
		h.internalError(c, "failed to list plans", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": toHistoryEntries(recs)})
}

// GetPlan handles GET /history/:id
func (h *HistoryHandler) GetPlan(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortNotFound(c)
		return
	}
	rec, err := h.store.Get(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		if errors.Is(err, service.ErrPlanNotFound) {
			abortNotFound(c)
			return
		}
		h.internalError(c, "failed to load plan", err)
		return
	}
	c.JSON(http.StatusOK, toHistoryEntry(rec))
}

// SimilarPlans handles GET /history/similar?q=
func (h *HistoryHandler) SimilarPlans(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		abortInvalid(c, "Query parameter q is required")
		return
	}
	recs, err := h.store.FindSimilar(c.Request.Context(), middleware.UserID(c), query, queryLimit(c))
	if err != nil {
		h.internalError(c, "failed to search plans", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": toHistoryEntries(recs)})
}

func (h *HistoryHandler) internalError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, zap.String("user_id", middleware.UserID(c)), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, types.ErrorResponse{
		Error: "Internal server error",
		Type:  types.InternalError,
	})
}

// queryLimit reads ?limit=; zero lets the store apply its default.
func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

func abortNotFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, types.ErrorResponse{
		Error: "Plan not found",
		Type:  types.NotFound,
	})
}
