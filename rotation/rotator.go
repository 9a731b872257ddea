package rotation

import (
	"context"
	"log/slog"

	"github.com/scanpool/scanpool/interfaces"
	"github.com/scanpool/scanpool/store"
)

// Rotator hands out accounts from the rotation store in round-robin order.
type Rotator struct {
	store *store.RotationStore
	log   *slog.Logger
}

// NewRotator wraps a rotation store.
func NewRotator(st *store.RotationStore, log *slog.Logger) *Rotator {
	return &Rotator{store: st, log: log}
}

// SelectNext returns the next account in rotation together with its index,
// persisting the advanced cursor before the caller acts on the account. A
// selection that crashes mid-scan therefore still burns its turn. Returns
// ErrNoAccounts when the pool is empty.
func (r *Rotator) SelectNext(ctx context.Context) (interfaces.Account, int, error) {
	accounts, index := r.store.Load(ctx)
	if len(accounts) == 0 {
		return interfaces.Account{}, -1, interfaces.ErrNoAccounts
	}

	// A stored cursor outside [0,len) still lands on a valid account; the
	// double mod guards against hand-edited negative values.
	next := ((index+1)%len(accounts) + len(accounts)) % len(accounts)
	r.store.AdvanceIndex(ctx, next)

	r.log.Debug("Selected account from rotation",
		slog.String("email", accounts[next].Email),
		slog.Int("index", next),
		slog.Int("pool", len(accounts)))

	return accounts[next], next, nil
}
