package devstack

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// message is one delivered inbox message.
type message struct {
	id      string
	from    string
	subject string
	body    string
}

// accountRecord tracks a signed-up account through its lifecycle.
type accountRecord struct {
	email       string
	displayName string
	password    string
	activated   bool
	apiToken    string
}

// state is the in-memory world the devstack serves. Restarting the process
// resets everything.
type state struct {
	mu sync.Mutex

	domains  []string
	accounts map[string]*accountRecord // keyed by email
	inboxes  map[string][]message      // keyed by address
	tokens   map[string]string         // activation token -> email
	sessions map[string]string         // session id -> email
	timers   []*time.Timer
}

func newState(domains []string) *state {
	return &state{
		domains:  domains,
		accounts: make(map[string]*accountRecord),
		inboxes:  make(map[string][]message),
		tokens:   make(map[string]string),
		sessions: make(map[string]string),
	}
}

// newToken returns a uuid with the dashes stripped, the shape the emulated
// service uses for activation tokens, API tokens and message ids.
func newToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

func (s *state) listDomains() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.domains...)
}

// createAccount registers a new unactivated account and returns its
// activation token. Returns false when the email is already taken.
func (s *state) createAccount(email, displayName, password string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[email]; exists {
		return "", false
	}

	s.accounts[email] = &accountRecord{
		email:       email,
		displayName: displayName,
		password:    password,
		apiToken:    newToken(),
	}

	token := newToken()
	s.tokens[token] = email
	return token, true
}

func (s *state) deliver(address string, msg message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inboxes[address] = append(s.inboxes[address], msg)
}

// deliverAfter schedules a delivery, mimicking provider latency. A
// non-positive delay delivers immediately.
func (s *state) deliverAfter(delay time.Duration, address string, msg message) {
	if delay <= 0 {
		s.deliver(address, msg)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	timer := time.AfterFunc(delay, func() { s.deliver(address, msg) })
	s.timers = append(s.timers, timer)
}

// stopTimers cancels pending deliveries on shutdown.
func (s *state) stopTimers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, timer := range s.timers {
		timer.Stop()
	}
	s.timers = nil
}

func (s *state) messages(address string) []message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]message{}, s.inboxes[address]...)
}

func (s *state) messageBody(address, id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.inboxes[address] {
		if msg.id == id {
			return msg.body, true
		}
	}
	return "", false
}

// activate marks the token's account as activated. Unknown tokens report
// false; the token is single-use.
func (s *state) activate(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.tokens[token]
	if !ok {
		return false
	}
	delete(s.tokens, token)

	account, ok := s.accounts[email]
	if !ok {
		return false
	}
	account.activated = true
	return true
}

// signIn authenticates an activated account and returns a fresh session id.
func (s *state) signIn(email, password string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[email]
	if !ok || !account.activated || account.password != password {
		return "", false
	}

	session := newToken()
	s.sessions[session] = email
	return session, true
}

// profileToken resolves a session id to the account's API token.
func (s *state) profileToken(session string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.sessions[session]
	if !ok {
		return "", false
	}
	account, ok := s.accounts[email]
	if !ok {
		return "", false
	}
	return account.apiToken, true
}
