package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mrbrocoli/grocer/backend/internal/types"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

// SupabaseIdentityProvider resolves access tokens by asking the Supabase
// auth API who the bearer is.
type SupabaseIdentityProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewSupabaseIdentityProvider creates a provider for the project at baseURL
func NewSupabaseIdentityProvider(baseURL, apiKey string, timeout time.Duration) (*SupabaseIdentityProvider, error) {
	if baseURL == "" || apiKey == "" {
		return nil, fmt.Errorf("supabase URL and anon key must be set")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SupabaseIdentityProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// ResolveToken returns the user id that owns token.
func (p *SupabaseIdentityProvider) ResolveToken(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", p.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach identity provider: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var user struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&user); err != nil {
		return "", fmt.Errorf("failed to decode user: %w", err)
	}
	if user.ID == "" {
		return "", ErrInvalidToken
	}
	return user.ID, nil
}

// JWTIdentityProvider verifies HS256 access tokens locally with the
// project's JWT secret.
type JWTIdentityProvider struct {
	secret []byte
}

// NewJWTIdentityProvider creates a provider that trusts tokens signed with secret
func NewJWTIdentityProvider(secret string) (*JWTIdentityProvider, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret must be set")
	}
	return &JWTIdentityProvider{secret: []byte(secret)}, nil
}

// ResolveToken returns the subject of a valid token.
func (p *JWTIdentityProvider) ResolveToken(_ context.Context, tokenString string) (string, error) {
	claims := &types.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID() == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID(), nil
}

// SignToken issues an HS256 token for userID. It is used by tests and local
// tooling; production tokens come from the identity provider.
func (p *JWTIdentityProvider) SignToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &types.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: "authenticated",
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}
