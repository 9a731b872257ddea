package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/scanpool/scanpool/identity"
	"github.com/scanpool/scanpool/interfaces"
	"github.com/scanpool/scanpool/workflow"
)

// Params sizes one batch run.
type Params struct {
	Count          int
	UsernameMinLen int
	UsernameMaxLen int
	PasswordMinLen int
	PasswordMaxLen int
}

// DomainFilter narrows the advertised domain list before identities are
// paired with domains.
type DomainFilter interface {
	Filter(ctx context.Context, domains []string) []string
}

// Config wires an orchestrator.
type Config struct {
	// Workflow parameterizes each per-account provisioning run.
	Workflow workflow.Config

	// NewAccountClient returns a fresh account service session. One session
	// is created per account so cookies never leak across attempts.
	NewAccountClient func() (interfaces.AccountServiceClient, error)

	// DomainFilter optionally narrows the advertised domains. Nil keeps all.
	DomainFilter DomainFilter

	Log *slog.Logger
}

// Orchestrator provisions account batches sequentially. Failed accounts are
// logged and skipped; successes come back in input order.
type Orchestrator struct {
	cfg   Config
	inbox interfaces.InboxClient
	log   *slog.Logger
}

// New constructs an orchestrator.
func New(cfg Config, inboxClient interfaces.InboxClient) (*Orchestrator, error) {
	if cfg.NewAccountClient == nil {
		return nil, errors.New("account client factory is required")
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	return &Orchestrator{cfg: cfg, inbox: inboxClient, log: cfg.Log}, nil
}

// Run provisions params.Count accounts. Credentials are generated up front,
// the provider's domains are resolved once, and each identity is paired with
// a random domain. A failed account does not stop the batch; the returned
// slice holds the successes in input order and may be empty.
func (o *Orchestrator) Run(ctx context.Context, params Params) ([]interfaces.Account, error) {
	usernames, err := identity.GenerateUsernames(params.Count, params.UsernameMinLen, params.UsernameMaxLen)
	if err != nil {
		return nil, err
	}

	passwords := make([]string, 0, params.Count)
	for i := 0; i < params.Count; i++ {
		password, err := identity.GeneratePassword(params.PasswordMinLen, params.PasswordMaxLen)
		if err != nil {
			return nil, err
		}
		passwords = append(passwords, password)
	}

	ids, err := o.resolveIdentities(ctx, usernames)
	if err != nil {
		return nil, err
	}

	accounts := make([]interfaces.Account, 0, params.Count)
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return accounts, err
		}

		o.log.Info("Creating account",
			slog.Int("n", i+1),
			slog.Int("count", params.Count),
			slog.String("address", id.Address()))

		account, err := o.provisionOne(ctx, id, passwords[i])
		if err != nil {
			o.logSkip(id, err)
			continue
		}
		accounts = append(accounts, account)
	}

	return accounts, nil
}

// resolveIdentities fetches the provider's domains once and pairs every
// username with a random domain.
func (o *Orchestrator) resolveIdentities(ctx context.Context, usernames []string) ([]interfaces.Identity, error) {
	domains, err := o.inbox.ListDomains(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not resolve inbox domains: %w", err)
	}
	if o.cfg.DomainFilter != nil {
		domains = o.cfg.DomainFilter.Filter(ctx, domains)
	}
	if len(domains) == 0 {
		return nil, interfaces.ErrNoDomains
	}

	ids := make([]interfaces.Identity, 0, len(usernames))
	for _, username := range usernames {
		id, err := interfaces.NewIdentity(username, domains[rand.Intn(len(domains))])
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// provisionOne runs the full workflow for a single identity on a fresh
// account service session.
func (o *Orchestrator) provisionOne(ctx context.Context, id interfaces.Identity, password string) (interfaces.Account, error) {
	client, err := o.cfg.NewAccountClient()
	if err != nil {
		return interfaces.Account{}, fmt.Errorf("could not create account service session: %w", err)
	}

	wf, err := workflow.New(o.cfg.Workflow, o.inbox, client)
	if err != nil {
		return interfaces.Account{}, err
	}

	return wf.Run(ctx, id, password, identity.RandomDisplayName())
}

// logSkip reports a failed account with the step it failed at when known.
func (o *Orchestrator) logSkip(id interfaces.Identity, err error) {
	attrs := []any{
		slog.String("address", id.Address()),
		slog.String("err", err.Error()),
	}
	var stepErr *interfaces.StepError
	if errors.As(err, &stepErr) {
		attrs = append(attrs, slog.String("step", string(stepErr.Step)))
	}
	o.log.Warn("Account provisioning failed, skipping", attrs...)
}
