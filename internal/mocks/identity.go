package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockIdentityProvider is a mock implementation of the IdentityProvider interface
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) ResolveToken(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}
