package savestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/tatianab/keepsake/internal/models"
	"github.com/tatianab/keepsake/internal/snapshot"
)

// DefaultDir is where YAML saves go when no directory is configured.
const DefaultDir = ".saves"

const snapshotFile = "snapshot.yaml"

// Dir stores each save as <root>/<name>/snapshot.yaml.
type Dir struct {
	root string
}

func NewDir(root string) *Dir {
	if root == "" {
		root = DefaultDir
	}
	return &Dir{root: root}
}

func (d *Dir) Save(_ context.Context, name string, snap models.Snapshot) error {
	if err := checkName(name); err != nil {
		return err
	}
	dir := filepath.Join(d.root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := snapshot.Encode(snapshot.YAML, snap)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, snapshotFile), data, 0o644)
}

func (d *Dir) Load(_ context.Context, name string) (models.Snapshot, error) {
	if err := checkName(name); err != nil {
		return models.Snapshot{}, err
	}
	data, err := os.ReadFile(filepath.Join(d.root, name, snapshotFile))
	if errors.Is(err, fs.ErrNotExist) {
		return models.Snapshot{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return models.Snapshot{}, err
	}
	return snapshot.Decode(snapshot.YAML, data)
}

// List returns the names of saves that have a snapshot file, sorted.
func (d *Dir) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(d.root, entry.Name(), snapshotFile)); err == nil {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (d *Dir) Close() error { return nil }
