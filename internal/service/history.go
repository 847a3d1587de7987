package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrbrocoli/grocer/backend/internal/models"
	"github.com/mrbrocoli/grocer/backend/internal/types"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

var (
	ErrPlanNotFound = errors.New("grocery plan not found")
	ErrInvalidPlan  = errors.New("plan must include a summary and at least one ingredient")
)

// HistoryService persists saved grocery plans per user.
type HistoryService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewHistoryService(db *gorm.DB, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{db: db, logger: logger.Named("history")}
}

// Save stores a plan for userID.
func (s *HistoryService) Save(ctx context.Context, userID string, req *types.SavePlanRequest) (*models.GroceryPlanRecord, error) {
	planReq := types.PlanRequest{Prompt: req.Prompt, Budget: req.Budget}
	if err := planReq.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Plan.Summary) == "" || len(req.Plan.Ingredients) == 0 {
		return nil, ErrInvalidPlan
	}

	source := req.Source
	if source != string(SourceFallback) {
		source = string(SourceGenerated)
	}

	record := &models.GroceryPlanRecord{
		UserID:      userID,
		Prompt:      strings.TrimSpace(req.Prompt),
		Budget:      req.Budget,
		Summary:     req.Plan.Summary,
		Ingredients: models.IngredientList(req.Plan.Ingredients),
		TotalCost:   req.Plan.TotalCost,
		Tips:        models.JSONBStringArray(req.Plan.Tips),
		Source:      source,
		Embedding:   GenerateEmbedding(req.Prompt + " " + req.Plan.Summary),
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to save grocery plan: %w", err)
	}

	s.logger.Debug("saved grocery plan", zap.String("user_id", userID), zap.String("plan_id", record.ID.String()))
	return record, nil
}

// List returns the user's plans, most recent first.
func (s *HistoryService) List(ctx context.Context, userID string, limit int) ([]models.GroceryPlanRecord, error) {
	var records []models.GroceryPlanRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list grocery plans: %w", err)
	}
	return records, nil
}

// Get returns one of the user's plans. Plans owned by someone else are
// reported as not found.
func (s *HistoryService) Get(ctx context.Context, userID string, id uuid.UUID) (*models.GroceryPlanRecord, error) {
	var record models.GroceryPlanRecord
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get grocery plan: %w", err)
	}
	return &record, nil
}

// FindSimilar returns the user's plans closest to query. On Postgres this
// is a pgvector nearest-neighbour search; other databases fall back to
// matching prompt words.
func (s *HistoryService) FindSimilar(ctx context.Context, userID, query string, limit int) ([]models.GroceryPlanRecord, error) {
	tx := s.db.WithContext(ctx).Where("user_id = ?", userID).Limit(clampLimit(limit))

	if s.db.Dialector.Name() == "postgres" {
		tx = tx.Clauses(clause.OrderBy{
			Expression: clause.Expr{SQL: "embedding <-> ?", Vars: []interface{}{GenerateEmbedding(query)}},
		})
	} else {
		tokens := tokenize(query)
		if len(tokens) == 0 {
			return []models.GroceryPlanRecord{}, nil
		}
		conds := make([]string, len(tokens))
		args := make([]interface{}, len(tokens))
		for i, token := range tokens {
			conds[i] = "LOWER(prompt) LIKE ?"
			args[i] = "%" + token + "%"
		}
		tx = tx.Where("("+strings.Join(conds, " OR ")+")", args...).Order("created_at DESC")
	}

	var records []models.GroceryPlanRecord
	if err := tx.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to search grocery plans: %w", err)
	}
	return records, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultHistoryLimit
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	default:
		return limit
	}
}
