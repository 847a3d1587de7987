package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrbrocoli/grocer/backend/internal/service"
	"github.com/mrbrocoli/grocer/backend/internal/types"
)

// ContextUserID is the gin context key holding the resolved user id
const ContextUserID = "user_id"

// Authenticator turns Authorization headers into user identities
type Authenticator struct {
	resolver service.IdentityProvider
	logger   *zap.Logger
}

func NewAuthenticator(resolver service.IdentityProvider, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{resolver: resolver, logger: logger.Named("auth")}
}

// ResolveIdentity returns the user behind header. Anything other than a
// well-formed "Bearer <token>" header, or a token the provider rejects,
// yields ok=false.
func (a *Authenticator) ResolveIdentity(ctx context.Context, header string) (string, bool) {
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}

	userID, err := a.resolver.ResolveToken(ctx, token)
	if err != nil {
		a.logger.Debug("token rejected", zap.Error(err))
		return "", false
	}
	if userID == "" {
		return "", false
	}
	return userID, true
}

// Authenticate resolves the request's identity, stores it on the context and
// aborts with 401 when there is none. It reports whether the request may continue.
func (a *Authenticator) Authenticate(c *gin.Context) bool {
	userID, ok := a.ResolveIdentity(c.Request.Context(), c.GetHeader("Authorization"))
	if !ok {
		AbortUnauthenticated(c)
		return false
	}
	c.Set(ContextUserID, userID)
	return true
}

// RequireIdentity is middleware form of Authenticate
func (a *Authenticator) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Authenticate(c) {
			return
		}
		c.Next()
	}
}

// UserID returns the identity stored by Authenticate
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// AbortUnauthenticated writes the 401 response
func AbortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{
		Error: "Authentication required",
		Type:  types.AuthenticationRequired,
	})
}
