package interfaces

import "context"

// InboxClient provides read access to a disposable-inbox provider.
type InboxClient interface {
	// ListDomains returns the provider's currently advertised email domains.
	ListDomains(ctx context.Context) ([]string, error)

	// ListMessages returns the message listing for the identity's address.
	ListMessages(ctx context.Context, id Identity) ([]Message, error)

	// FetchMessage returns the raw body of a single message.
	FetchMessage(ctx context.Context, id Identity, messageID string) (string, error)
}

// AccountServiceClient is the scanning service's account API. Implementations
// hold per-attempt session state (cookies); construct a fresh client for each
// provisioning attempt and never share one across attempts.
type AccountServiceClient interface {
	// Register creates an unactivated account for the identity.
	Register(ctx context.Context, id Identity, password, displayName string) error

	// ConfirmActivation submits an activation token. A false return means
	// the service explicitly rejected the token.
	ConfirmActivation(ctx context.Context, token string) (bool, error)

	// Login authenticates the session. A false return means the service
	// explicitly rejected the credentials.
	Login(ctx context.Context, address, password string) (bool, error)

	// FetchProfile returns the profile of the logged-in account.
	FetchProfile(ctx context.Context) (Profile, error)
}
