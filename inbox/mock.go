package inbox

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/scanpool/scanpool/interfaces"
)

// MockClient implements interfaces.InboxClient for testing. Behavior is
// configured through the embedded testify mock.
type MockClient struct {
	mock.Mock
}

// ListDomains implements interfaces.InboxClient.
func (m *MockClient) ListDomains(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

// ListMessages implements interfaces.InboxClient.
func (m *MockClient) ListMessages(ctx context.Context, id interfaces.Identity) ([]interfaces.Message, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]interfaces.Message), args.Error(1)
}

// FetchMessage implements interfaces.InboxClient.
func (m *MockClient) FetchMessage(ctx context.Context, id interfaces.Identity, messageID string) (string, error) {
	args := m.Called(ctx, id, messageID)
	return args.String(0), args.Error(1)
}
