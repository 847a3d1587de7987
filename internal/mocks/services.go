package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/mrbrocoli/grocer/backend/internal/models"
	"github.com/mrbrocoli/grocer/backend/internal/service"
	"github.com/mrbrocoli/grocer/backend/internal/types"
)

// MockPlanRequester is a mock implementation of the PlanRequester interface
type MockPlanRequester struct {
	mock.Mock
}

func (m *MockPlanRequester) RequestPlan(ctx context.Context, prompt string, budget float64) (string, error) {
	args := m.Called(ctx, prompt, budget)
	return args.String(0), args.Error(1)
}

// MockProductLookup is a mock implementation of the ProductLookup interface
type MockProductLookup struct {
	mock.Mock
}

func (m *MockProductLookup) LookupImages(ctx context.Context, names []string) []types.ProductImage {
	args := m.Called(ctx, names)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]types.ProductImage)
}

// MockCartAutomator is a mock implementation of the CartAutomator interface
type MockCartAutomator struct {
	mock.Mock
}

func (m *MockCartAutomator) AddToCart(ctx context.Context, userID string, names []string) (*service.CartResult, error) {
	args := m.Called(ctx, userID, names)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CartResult), args.Error(1)
}

// MockHistoryStore is a mock implementation of the HistoryStore interface
type MockHistoryStore struct {
	mock.Mock
}

func (m *MockHistoryStore) Save(ctx context.Context, userID string, req *types.SavePlanRequest) (*models.GroceryPlanRecord, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GroceryPlanRecord), args.Error(1)
}

func (m *MockHistoryStore) List(ctx context.Context, userID string, limit int) ([]models.GroceryPlanRecord, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.GroceryPlanRecord), args.Error(1)
}

func (m *MockHistoryStore) Get(ctx context.Context, userID string, id uuid.UUID) (*models.GroceryPlanRecord, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GroceryPlanRecord), args.Error(1)
}

func (m *MockHistoryStore) FindSimilar(ctx context.Context, userID, query string, limit int) ([]models.GroceryPlanRecord, error) {
	args := m.Called(ctx, userID, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.GroceryPlanRecord), args.Error(1)
}

var (
	_ service.PlanRequester    = (*MockPlanRequester)(nil)
	_ service.IdentityProvider = (*MockIdentityProvider)(nil)
	_ service.ProductLookup    = (*MockProductLookup)(nil)
	_ service.CartAutomator    = (*MockCartAutomator)(nil)
	_ service.HistoryStore     = (*MockHistoryStore)(nil)
)
