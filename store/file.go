package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/scanpool/scanpool/interfaces"
)

// FileBackend persists the rotation document as a single file on the local
// file system.
type FileBackend struct {
	path        string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a file backend for the given path. Parent
// directories are created on first write.
func NewFileBackend(path string, log *slog.Logger) (*FileBackend, error) {
	if path == "" {
		return nil, errors.New("empty rotation file path")
	}

	return &FileBackend{
		path:        path,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", path),
	}, nil
}

// Read returns the file's contents. Returns ErrStoreNotFound if the file
// does not exist yet.
func (b *FileBackend) Read(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, interfaces.ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to read rotation file: %w", err)
	}

	b.log.Debug("Read rotation file",
		slog.String("path", b.path),
		slog.Int("size", len(data)))

	return data, nil
}

// Write replaces the file's contents.
func (b *FileBackend) Write(ctx context.Context, data []byte) error {
	if dir := filepath.Dir(b.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(b.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write rotation file: %w", err)
	}

	b.log.Debug("Wrote rotation file",
		slog.String("path", b.path),
		slog.Int("size", len(data)))

	return nil
}

// Name returns a unique identifier for this storage backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.path))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}
