package interfaces

import (
	"errors"
	"fmt"
	"strings"
)

// usernameAlphabet is the only character set identities are generated from.
const usernameAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Identity is a disposable email identity: a generated username at one of
// the inbox provider's advertised domains. Immutable once constructed.
type Identity struct {
	Username string
	Domain   string
}

// NewIdentity validates and constructs an identity. The username must be
// non-empty lowercase alphanumeric, the domain non-empty.
func NewIdentity(username, domain string) (Identity, error) {
	if username == "" {
		return Identity{}, errors.New("invalid identity: empty username")
	}
	if domain == "" {
		return Identity{}, errors.New("invalid identity: empty domain")
	}
	for _, r := range username {
		if !strings.ContainsRune(usernameAlphabet, r) {
			return Identity{}, fmt.Errorf("invalid identity: username contains character %q", r)
		}
	}
	return Identity{Username: username, Domain: domain}, nil
}

// Address returns the full email address of the identity.
func (id Identity) Address() string {
	return id.Username + "@" + id.Domain
}

// String implements fmt.Stringer.
func (id Identity) String() string {
	return id.Address()
}

// Account is a successfully provisioned account as persisted in the rotation
// store. Immutable after creation; accounts are appended, never mutated.
type Account struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	APIToken string `json:"api"`
}

// Message is one entry of an inbox message listing. Only ID and From are
// contractual; bodies are fetched separately as raw text.
type Message struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject,omitempty"`
}

// Profile is the authenticated-profile payload of the account service,
// reduced to the fields the provisioner consumes.
type Profile struct {
	API APICredential `json:"api"`
}

// APICredential carries the API token issued to an account.
type APICredential struct {
	Token string `json:"token"`
}
