package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/mrbrocoli/grocer/backend/internal/models"
	"github.com/mrbrocoli/grocer/backend/internal/types"
)

// PlanRequester asks a text generation service for a raw grocery plan
type PlanRequester interface {
	RequestPlan(ctx context.Context, prompt string, budget float64) (string, error)
}

// IdentityProvider maps a bearer token to a user id
type IdentityProvider interface {
	ResolveToken(ctx context.Context, token string) (string, error)
}

// ProductLookup resolves ingredient names to product images
type ProductLookup interface {
	LookupImages(ctx context.Context, names []string) []types.ProductImage
}

// CartAutomator adds groceries to a retailer cart
type CartAutomator interface {
	AddToCart(ctx context.Context, userID string, names []string) (*CartResult, error)
}

// HistoryStore persists saved plans
type HistoryStore interface {
	Save(ctx context.Context, userID string, req *types.SavePlanRequest) (*models.GroceryPlanRecord, error)
	List(ctx context.Context, userID string, limit int) ([]models.GroceryPlanRecord, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (*models.GroceryPlanRecord, error)
	FindSimilar(ctx context.Context, userID, query string, limit int) ([]models.GroceryPlanRecord, error)
}

var (
	_ PlanRequester    = (*LLMService)(nil)
	_ IdentityProvider = (*SupabaseIdentityProvider)(nil)
	_ IdentityProvider = (*JWTIdentityProvider)(nil)
	_ ProductLookup    = (*ProductService)(nil)
	_ CartAutomator    = (*CartService)(nil)
	_ HistoryStore     = (*HistoryService)(nil)
)
