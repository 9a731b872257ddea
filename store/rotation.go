package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/scanpool/scanpool/interfaces"
)

// rotationDocument is the persisted shape of the rotation state.
type rotationDocument struct {
	Index    int                  `json:"index"`
	Accounts []interfaces.Account `json:"accounts"`
}

// RotationStore persists provisioned accounts together with the round-robin
// cursor. The document is one JSON object; every operation is a whole
// document read or rewrite.
type RotationStore struct {
	backend interfaces.StoreBackend
	log     *slog.Logger
}

// NewRotationStore wraps a store backend.
func NewRotationStore(backend interfaces.StoreBackend, log *slog.Logger) *RotationStore {
	return &RotationStore{backend: backend, log: log}
}

// Load returns the persisted accounts and cursor. A missing or malformed
// document degrades to no accounts and a reset cursor, so a first run and a
// corrupted file behave the same.
func (s *RotationStore) Load(ctx context.Context) ([]interfaces.Account, int) {
	data, err := s.backend.Read(ctx)
	if err != nil {
		if !errors.Is(err, interfaces.ErrStoreNotFound) {
			s.log.Warn("Could not read rotation store, starting empty",
				slog.String("location", s.backend.LocationURI()),
				slog.String("err", err.Error()))
		}
		return []interfaces.Account{}, -1
	}

	doc := rotationDocument{Index: -1}
	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.Warn("Rotation store is malformed, starting empty",
			slog.String("location", s.backend.LocationURI()),
			slog.String("err", err.Error()))
		return []interfaces.Account{}, -1
	}

	if doc.Accounts == nil {
		doc.Accounts = []interfaces.Account{}
	}
	return doc.Accounts, doc.Index
}

// SaveAll replaces the stored accounts and resets the cursor, so rotation
// restarts from the first account on the next selection.
func (s *RotationStore) SaveAll(ctx context.Context, accounts []interfaces.Account) error {
	doc := rotationDocument{
		Index:    -1,
		Accounts: accounts,
	}
	if doc.Accounts == nil {
		doc.Accounts = []interfaces.Account{}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("could not encode rotation store: %w", err)
	}

	if err := s.backend.Write(ctx, data); err != nil {
		return err
	}

	s.log.Info("Saved rotation store",
		slog.String("location", s.backend.LocationURI()),
		slog.Int("accounts", len(accounts)))

	return nil
}

// AdvanceIndex rewrites only the cursor, leaving the stored account bytes
// untouched. A missing or malformed document makes this a silent no-op, so
// rotation keeps working with whatever state the next load recovers.
func (s *RotationStore) AdvanceIndex(ctx context.Context, index int) {
	data, err := s.backend.Read(ctx)
	if err != nil {
		s.log.Debug("Skipping cursor update, rotation store unreadable",
			slog.String("location", s.backend.LocationURI()),
			slog.String("err", err.Error()))
		return
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.Debug("Skipping cursor update, rotation store malformed",
			slog.String("location", s.backend.LocationURI()),
			slog.String("err", err.Error()))
		return
	}

	encoded, err := json.Marshal(index)
	if err != nil {
		return
	}
	doc["index"] = encoded

	out, err := json.Marshal(doc)
	if err != nil {
		s.log.Debug("Skipping cursor update, could not re-encode document",
			slog.String("err", err.Error()))
		return
	}

	if err := s.backend.Write(ctx, out); err != nil {
		s.log.Warn("Could not persist rotation cursor",
			slog.String("location", s.backend.LocationURI()),
			slog.String("err", err.Error()))
	}
}
