package store

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scanpool/scanpool/interfaces"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

var sampleAccounts = []interfaces.Account{
	{Email: "a1@example.org", Password: "pw1", APIToken: "tok1"},
	{Email: "a2@example.org", Password: "pw2", APIToken: "tok2"},
	{Email: "a3@example.org", Password: "pw3", APIToken: "tok3"},
}

func newFileStore(t *testing.T) (*RotationStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.txt")
	backend, err := NewFileBackend(path, testLog)
	require.NoError(t, err)
	return NewRotationStore(backend, testLog), path
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	store, _ := newFileStore(t)

	accounts, index := store.Load(context.Background())
	require.Empty(t, accounts)
	require.Equal(t, -1, index)
}

func TestLoadMalformedFileStartsEmpty(t *testing.T) {
	store, path := newFileStore(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	accounts, index := store.Load(context.Background())
	require.Empty(t, accounts)
	require.Equal(t, -1, index)
}

func TestLoadDefaultsMissingKeys(t *testing.T) {
	store, path := newFileStore(t)
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"accounts":[{"email":"x@y.example","password":"p","api":"t"}]}`), 0644))

	accounts, index := store.Load(context.Background())
	require.Len(t, accounts, 1)
	require.Equal(t, "x@y.example", accounts[0].Email)
	require.Equal(t, -1, index)
}

func TestSaveAllRoundTrip(t *testing.T) {
	store, _ := newFileStore(t)
	require.NoError(t, store.SaveAll(context.Background(), sampleAccounts))

	accounts, index := store.Load(context.Background())
	require.Equal(t, sampleAccounts, accounts)
	require.Equal(t, -1, index)
}

func TestSaveAllResetsAdvancedCursor(t *testing.T) {
	store, _ := newFileStore(t)
	require.NoError(t, store.SaveAll(context.Background(), sampleAccounts))
	store.AdvanceIndex(context.Background(), 2)

	_, index := store.Load(context.Background())
	require.Equal(t, 2, index)

	require.NoError(t, store.SaveAll(context.Background(), sampleAccounts))
	_, index = store.Load(context.Background())
	require.Equal(t, -1, index)
}

func TestAdvanceIndexPreservesAccountBytes(t *testing.T) {
	store, path := newFileStore(t)
	require.NoError(t, store.SaveAll(context.Background(), sampleAccounts))

	before := accountsSection(t, path)
	store.AdvanceIndex(context.Background(), 1)
	after := accountsSection(t, path)
	require.True(t, bytes.Equal(before, after), "accounts section changed:\n%s\n%s", before, after)

	accounts, index := store.Load(context.Background())
	require.Equal(t, sampleAccounts, accounts)
	require.Equal(t, 1, index)
}

func TestAdvanceIndexOnMissingFileIsNoOp(t *testing.T) {
	store, path := newFileStore(t)

	store.AdvanceIndex(context.Background(), 3)

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestAdvanceIndexOnMalformedFileIsNoOp(t *testing.T) {
	store, path := newFileStore(t)
	garbage := []byte("{broken")
	require.NoError(t, os.WriteFile(path, garbage, 0644))

	store.AdvanceIndex(context.Background(), 3)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, garbage, data)
}

func accountsSection(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc["accounts"]
}
