package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mrbrocoli/grocer/backend/internal/metrics"
	"github.com/mrbrocoli/grocer/backend/internal/middleware"
	"github.com/mrbrocoli/grocer/backend/internal/mocks"
	"github.com/mrbrocoli/grocer/backend/internal/ratelimit"
	"github.com/mrbrocoli/grocer/backend/internal/service"
	"github.com/mrbrocoli/grocer/backend/internal/types"
)

const (
	testToken  = "good-token"
	otherToken = "other-token"
	testUser   = "user-1"
	otherUser  = "user-2"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router    *gin.Engine
	identity  *mocks.MockIdentityProvider
	planner   *mocks.MockPlanRequester
	cart      *mocks.MockCartAutomator
	products  *mocks.MockProductLookup
	history   *mocks.MockHistoryStore
	collector *metrics.Collector
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	identity := new(mocks.MockIdentityProvider)
	identity.On("ResolveToken", mock.Anything, testToken).Return(testUser, nil).Maybe()
	identity.On("ResolveToken", mock.Anything, otherToken).Return(otherUser, nil).Maybe()
	identity.On("ResolveToken", mock.Anything, mock.Anything).Return("", service.ErrInvalidToken).Maybe()

	env := &testEnv{
		identity:  identity,
		planner:   new(mocks.MockPlanRequester),
		cart:      new(mocks.MockCartAutomator),
		products:  new(mocks.MockProductLookup),
		history:   new(mocks.MockHistoryStore),
		collector: metrics.NewCollector(prometheus.NewRegistry()),
	}

	store := ratelimit.NewMemoryStore()
	env.router = gin.New()
	RegisterRoutes(env.router, Dependencies{
		Authenticator: middleware.NewAuthenticator(identity, nil),
		PlanLimiter:   ratelimit.NewLimiter(store, ratelimit.PlanPolicy, nil),
		CartLimiter:   ratelimit.NewLimiter(store, ratelimit.CartPolicy, nil),
		Planner:       env.planner,
		Cart:          env.cart,
		Products:      env.products,
		History:       env.history,
		Metrics:       env.collector,
	})
	return env
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if raw, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(raw))
	} else if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	var body types.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// doWithHeader posts a plan request with a raw Authorization header.
func (e *testEnv) doWithHeader(header string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate-plan", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
