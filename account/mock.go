package account

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/scanpool/scanpool/interfaces"
)

// MockClient mocks interfaces.AccountServiceClient for workflow tests.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Register(ctx context.Context, id interfaces.Identity, password, displayName string) error {
	args := m.Called(ctx, id, password, displayName)
	return args.Error(0)
}

func (m *MockClient) ConfirmActivation(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockClient) Login(ctx context.Context, address, password string) (bool, error) {
	args := m.Called(ctx, address, password)
	return args.Bool(0), args.Error(1)
}

func (m *MockClient) FetchProfile(ctx context.Context) (interfaces.Profile, error) {
	args := m.Called(ctx)
	return args.Get(0).(interfaces.Profile), args.Error(1)
}
