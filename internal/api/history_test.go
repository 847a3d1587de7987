package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mrbrocoli/grocer/backend/internal/models"
	"github.com/mrbrocoli/grocer/backend/internal/service"
	"github.com/mrbrocoli/grocer/backend/internal/types"
)

func sampleRecord() *models.GroceryPlanRecord {
	return &models.GroceryPlanRecord{
		ID:        uuid.New(),
		UserID:    testUser,
		Prompt:    "bulk up",
		Budget:    50,
		Summary:   "High protein week",
		TotalCost: "45.00",
		Ingredients: models.IngredientList{
			{Name: "Eggs", Quantity: "12", Price: "3.50", Category: types.CategoryProtein},
		},
		Tips:      models.JSONBStringArray{"Boil a dozen at once"},
		Source:    "generated",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSavePlan(t *testing.T) {
	env := newTestEnv(t)
	rec := sampleRecord()
	env.history.On("Save", mock.Anything, testUser, mock.AnythingOfType("*types.SavePlanRequest")).Return(rec, nil).Once()

	resp := env.do(http.MethodPost, "/api/v1/history", testToken, types.SavePlanRequest{
		Prompt: "bulk up",
		Budget: 50,
		Plan:   rec.Plan(),
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var entry historyEntry
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &entry))
	assert.Equal(t, rec.ID, entry.ID)
	assert.Equal(t, "45.00", entry.Plan.TotalCost)
	assert.Equal(t, "2026-03-01T12:00:00Z", entry.CreatedAt)
}

func TestSavePlan_Invalid(t *testing.T) {
	env := newTestEnv(t)
	env.history.On("Save", mock.Anything, testUser, mock.Anything).Return(nil, service.ErrInvalidPlan).Once()

	resp := env.do(http.MethodPost, "/api/v1/history", testToken, types.SavePlanRequest{Prompt: "x", Budget: 10})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, types.InvalidInput, decodeError(t, resp).Type)
}

func TestListPlans(t *testing.T) {
	env := newTestEnv(t)
	rec := sampleRecord()
	env.history.On("List", mock.Anything, testUser, 5).Return([]models.GroceryPlanRecord{*rec}, nil).Once()

	resp := env.do(http.MethodGet, "/api/v1/history?limit=5", testToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Plans []historyEntry `json:"plans"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Plans, 1)
	assert.Equal(t, "bulk up", body.Plans[0].Prompt)
}

func TestListPlans_StoreError(t *testing.T) {
	env := newTestEnv(t)
	env.history.On("List", mock.Anything, testUser, 0).Return(nil, errors.New("db down")).Once()

	resp := env.do(http.MethodGet, "/api/v1/history", testToken, nil)
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.NotContains(t, resp.Body.String(), "db down")
}

func TestGetPlan(t *testing.T) {
	env := newTestEnv(t)
	rec := sampleRecord()
	missing := uuid.New()
	env.history.On("Get", mock.Anything, testUser, rec.ID).Return(rec, nil).Once()
	env.history.On("Get", mock.Anything, testUser, missing).Return(nil, service.ErrPlanNotFound).Once()

	resp := env.do(http.MethodGet, "/api/v1/history/"+rec.ID.String(), testToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = env.do(http.MethodGet, "/api/v1/history/"+missing.String(), testToken, nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, types.NotFound, decodeError(t, resp).Type)

	resp = env.do(http.MethodGet, "/api/v1/history/not-a-uuid", testToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSimilarPlans(t *testing.T) {
	env := newTestEnv(t)
	rec := sampleRecord()
	env.history.On("FindSimilar", mock.Anything, testUser, "protein", 0).Return([]models.GroceryPlanRecord{*rec}, nil).Once()

	resp := env.do(http.MethodGet, "/api/v1/history/similar?q=protein", testToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), rec.ID.String())

	resp = env.do(http.MethodGet, "/api/v1/history/similar", testToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHistory_RequiresIdentity(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(http.MethodGet, "/api/v1/history", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	env.history.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}
