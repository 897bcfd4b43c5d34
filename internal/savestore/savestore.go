// Package savestore keeps named session snapshots on disk.
package savestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tatianab/keepsake/internal/models"
)

var (
	ErrNotFound       = errors.New("savestore: save not found")
	ErrInvalidName    = errors.New("savestore: invalid save name")
	ErrUnknownBackend = errors.New("savestore: unknown backend")
)

// Store persists snapshots under short names such as "current".
type Store interface {
	Save(ctx context.Context, name string, snap models.Snapshot) error
	Load(ctx context.Context, name string) (models.Snapshot, error)
	List(ctx context.Context) ([]string, error)
	Close() error
}

// Open returns the store for backend: "yaml" keeps one directory per save
// under path, "sqlite" keeps every save in the database file at path.
func Open(backend, path string) (Store, error) {
	switch strings.ToLower(backend) {
	case "yaml", "":
		return NewDir(path), nil
	case "sqlite":
		return OpenSQLite(path)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
