package interfaces

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAccounts is returned when rotation is requested against an empty
	// or missing rotation store. This is a user-visible condition, not an
	// internal failure.
	ErrNoAccounts = errors.New("no accounts available in the rotation store")

	// ErrNoDomains is returned when the inbox provider advertises no usable
	// email domains.
	ErrNoDomains = errors.New("inbox provider advertised no usable domains")

	// ErrStoreNotFound is returned by store backends when the persisted
	// rotation file does not exist yet.
	ErrStoreNotFound = errors.New("rotation store not found")

	// ErrNoActivationLink is returned when an activation message arrived but
	// its body does not contain the expected confirmation link. The
	// condition is not retryable.
	ErrNoActivationLink = errors.New("activation link not found in message body")

	// ErrLoginRejected is returned when the account service explicitly
	// rejected a login.
	ErrLoginRejected = errors.New("login rejected by the account service")

	// ErrMissingAPIToken is returned when an authenticated profile carries
	// no API credential.
	ErrMissingAPIToken = errors.New("profile carries no API token")
)

// RequestError is an HTTP-level failure from a collaborator endpoint. It
// preserves the status code for classification while keeping the wrapped
// error's message.
type RequestError struct {
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string { return e.Err.Error() }

func (e *RequestError) Unwrap() error { return e.Err }

// StepError attributes a provisioning failure to the workflow step that
// produced it. The message names the step itself, never a neighboring one.
type StepError struct {
	Step    Step
	Address string
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step failed for %s: %v", e.Step, e.Address, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// ActivationTimeoutError reports that no usable activation message appeared
// within the polling budget.
type ActivationTimeoutError struct {
	Attempts int
}

func (e *ActivationTimeoutError) Error() string {
	return fmt.Sprintf("gave up waiting for activation after %d attempts", e.Attempts)
}

// TransitionError reports a workflow event that is not legal from the
// current state.
type TransitionError struct {
	Current ProvisioningState
	Event   WorkflowEvent
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}
