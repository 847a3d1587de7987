package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrbrocoli/grocer/backend/internal/service"
	"github.com/mrbrocoli/grocer/backend/internal/types"
)

type stubResolver struct {
	tokens map[string]string
	calls  int
}

func (s *stubResolver) ResolveToken(_ context.Context, token string) (string, error) {
	s.calls++
	if id, ok := s.tokens[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid token")
}

var _ service.IdentityProvider = (*stubResolver)(nil)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAuthenticator_ResolveIdentity(t *testing.T) {
	resolver := &stubResolver{tokens: map[string]string{"good": "user-1", "blank": ""}}
	auth := NewAuthenticator(resolver, nil)

	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{"valid", "Bearer good", "user-1", true},
		{"missing", "", "", false},
		{"lowercase scheme", "bearer good", "", false},
		{"basic scheme", "Basic good", "", false},
		{"no token", "Bearer ", "", false},
		{"extra parts", "Bearer good extra", "", false},
		{"unknown token", "Bearer bad", "", false},
		{"empty identity", "Bearer blank", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := auth.ResolveIdentity(context.Background(), tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthenticator_MalformedHeaderSkipsProvider(t *testing.T) {
	resolver := &stubResolver{}
	auth := NewAuthenticator(resolver, nil)

	_, ok := auth.ResolveIdentity(context.Background(), "Token abc")
	assert.False(t, ok)
	assert.Zero(t, resolver.calls)
}

func TestRequireIdentity(t *testing.T) {
	auth := NewAuthenticator(&stubResolver{tokens: map[string]string{"good": "user-1"}}, nil)

	router := gin.New()
	router.GET("/me", auth.RequireIdentity(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})

	t.Run("authenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user_id":"user-1"}`, rec.Body.String())
	})

	t.Run("anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		var body types.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, types.AuthenticationRequired, body.Type)
		assert.NotEmpty(t, body.Error)
	})
}

func TestAuthenticator_JWTProvider(t *testing.T) {
	provider, err := service.NewJWTIdentityProvider("test-secret")
	require.NoError(t, err)
	token, err := provider.SignToken("user-7", time.Minute)
	require.NoError(t, err)

	auth := NewAuthenticator(provider, nil)

	got, ok := auth.ResolveIdentity(context.Background(), "Bearer "+token)
	assert.True(t, ok)
	assert.Equal(t, "user-7", got)

	_, ok = auth.ResolveIdentity(context.Background(), "Bearer "+token+"x")
	assert.False(t, ok)
}
