package types

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims represents the claims in an identity provider access token.
// The user identity travels in the standard "sub" claim.
type TokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// UserID returns the identity carried by the token
func (c *TokenClaims) UserID() string {
	return c.Subject
}
