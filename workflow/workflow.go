package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/scanpool/scanpool/interfaces"
	"github.com/scanpool/scanpool/metrics"
)

// Defaults match the scanning service's production behavior.
const (
	DefaultSender      = "security@wpscan.com"
	DefaultLinkPattern = `https://wpscan\.com/confirm\?token=([A-Za-z0-9]+)`
	DefaultAttempts    = 5
	DefaultDelay       = 3 * time.Second
)

// Config parameterizes a provisioning workflow.
type Config struct {
	// Sender is the address activation email arrives from. Messages from
	// anyone else are ignored.
	Sender string

	// LinkPattern is the regular expression locating the confirmation link in
	// a message body. Its first capture group must be the token.
	LinkPattern string

	// Attempts caps activation polling rounds.
	Attempts int

	// Delay separates consecutive polling rounds.
	Delay time.Duration

	Log     *slog.Logger
	Metrics *metrics.ProvisioningMetrics
}

// Workflow drives one identity through the provisioning state machine:
// registration, activation polling, login, and token retrieval. A workflow
// instance is bound to one account service session and must not be reused
// across attempts.
type Workflow struct {
	cfg     Config
	link    *regexp.Regexp
	inbox   interfaces.InboxClient
	account interfaces.AccountServiceClient
	log     *slog.Logger
}

// New validates the configuration and constructs a workflow. Zero-valued
// config fields fall back to the production defaults.
func New(cfg Config, inboxClient interfaces.InboxClient, accountClient interfaces.AccountServiceClient) (*Workflow, error) {
	if cfg.Sender == "" {
		cfg.Sender = DefaultSender
	}
	if cfg.LinkPattern == "" {
		cfg.LinkPattern = DefaultLinkPattern
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	link, err := regexp.Compile(cfg.LinkPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid activation link pattern: %w", err)
	}
	if link.NumSubexp() < 1 {
		return nil, errors.New("activation link pattern must capture the token")
	}

	return &Workflow{
		cfg:     cfg,
		link:    link,
		inbox:   inboxClient,
		account: accountClient,
		log:     cfg.Log,
	}, nil
}

// Run drives a single identity from registration to token retrieval and
// returns the provisioned account. On failure the returned error is a
// StepError naming the step that actually failed, the machine lands in the
// terminal failed state, and the attempt is abandoned.
func (w *Workflow) Run(ctx context.Context, id interfaces.Identity, password, displayName string) (interfaces.Account, error) {
	m := newMachine()
	address := id.Address()

	w.log.Info("Provisioning account", slog.String("address", address))

	if err := w.account.Register(ctx, id, password, displayName); err != nil {
		return interfaces.Account{}, w.fail(ctx, m, interfaces.StepRegister, address, err)
	}
	if _, err := m.fire(ctx, interfaces.EventRegister); err != nil {
		return interfaces.Account{}, w.fail(ctx, m, interfaces.StepRegister, address, err)
	}
	w.log.Debug("Account registered", slog.String("address", address))

	if _, err := m.fire(ctx, interfaces.EventAwaitActivation); err != nil {
		return interfaces.Account{}, w.fail(ctx, m, interfaces.StepActivate, address, err)
	}
	if err := w.pollActivation(ctx, id); err != nil {
		return interfaces.Account{}, w.fail(ctx, m, interfaces.StepActivate, address, err)
	}
	if _, err := m.fire(ctx, interfaces.EventActivate); err != nil {
		return interfaces.Account{}, w.fail(ctx, m, interfaces.StepActivate, address, err)
	}
	w.log.Debug("Account activated", slog.String("address", address))

	ok, err := w.account.Login(ctx, address, password)
	if err != nil {
		return interfaces.Account{}, w.fail(ctx, m, interfaces.StepLogin, address, err)
	}
	if !ok {
		return interfaces.Account{}, w.fail(ctx, m, interfaces.StepLogin, address, interfaces.ErrLoginRejected)
	}
	if _, err := m.fire(ctx, interfaces.EventLogin); err != nil {
		return interfaces.Account{}, w.fail(ctx, m, interfaces.StepLogin, address, err)
	}
	w.log.Debug("Logged in", slog.String("address", address))

	profile, err := w.account.FetchProfile(ctx)
	if err != nil {
		return interfaces.Account{}, w.fail(ctx, m, interfaces.StepToken, address, err)
	}
	if profile.API.Token == "" {
		return interfaces.Account{}, w.fail(ctx, m, interfaces.StepToken, address, interfaces.ErrMissingAPIToken)
	}
	if _, err := m.fire(ctx, interfaces.EventRetrieveToken); err != nil {
		return interfaces.Account{}, w.fail(ctx, m, interfaces.StepToken, address, err)
	}

	w.cfg.Metrics.ObserveAttempt("success")
	w.log.Info("Account provisioned", slog.String("address", address))

	return interfaces.Account{
		Email:    address,
		Password: password,
		APIToken: profile.API.Token,
	}, nil
}

// fail drives the machine into its terminal failed state and wraps the cause
// with the step it belongs to.
func (w *Workflow) fail(ctx context.Context, m *machine, step interfaces.Step, address string, cause error) error {
	if _, err := m.fire(ctx, interfaces.EventFail); err != nil {
		w.log.Debug("Could not mark workflow failed", slog.String("address", address), slog.String("err", err.Error()))
	}
	w.cfg.Metrics.ObserveAttempt("failure")
	w.log.Error("Provisioning step failed",
		slog.String("step", string(step)),
		slog.String("address", address),
		slog.String("err", cause.Error()),
	)
	return &interfaces.StepError{Step: step, Address: address, Err: cause}
}
