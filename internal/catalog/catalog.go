// Package catalog holds the read-only registry of keepsakes and their
// restorative values.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tatianab/keepsake/internal/models"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var (
	ErrEmptyID       = errors.New("catalog: empty item id")
	ErrDuplicateID   = errors.New("catalog: duplicate item id")
	ErrNegativeValue = errors.New("catalog: negative restore value")
	ErrEmpty         = errors.New("catalog: no items")
)

// Registry maps item ids to descriptors. It is populated once and never
// mutated afterwards.
type Registry struct {
	items map[string]models.ItemDescriptor
	order []string
}

type catalogFile struct {
	Items []models.ItemDescriptor `yaml:"items"`
}

// New builds a registry from descriptors, preserving their order.
func New(items ...models.ItemDescriptor) (*Registry, error) {
	if len(items) == 0 {
		return nil, ErrEmpty
	}
	r := &Registry{
		items: make(map[string]models.ItemDescriptor, len(items)),
		order: make([]string, 0, len(items)),
	}
	for _, it := range items {
		if it.ID == "" {
			return nil, ErrEmptyID
		}
		if _, ok := r.items[it.ID]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, it.ID)
		}
		if it.RestoreValue < 0 {
			return nil, fmt.Errorf("%w: %q has %d", ErrNegativeValue, it.ID, it.RestoreValue)
		}
		if it.Name == "" {
			it.Name = it.ID
		}
		r.items[it.ID] = it
		r.order = append(r.order, it.ID)
	}
	return r, nil
}

// Parse reads a YAML catalog document.
func Parse(data []byte) (*Registry, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return New(f.Items...)
}

// Load reads a YAML catalog from path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in keepsake catalog.
func Default() *Registry {
	r, err := Parse(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Lookup(id string) (models.ItemDescriptor, bool) {
	it, ok := r.items[id]
	return it, ok
}

// MustLookup panics for ids that are not in the catalog. Use it only where an
// unknown id means a wiring bug.
func (r *Registry) MustLookup(id string) models.ItemDescriptor {
	it, ok := r.items[id]
	if !ok {
		panic(fmt.Sprintf("catalog: unknown item %q", id))
	}
	return it
}

// Resolve returns the catalog id matching id, ignoring case. Unknown ids are
// returned unchanged.
func (r *Registry) Resolve(id string) string {
	if _, ok := r.items[id]; ok {
		return id
	}
	for _, known := range r.order {
		if strings.EqualFold(known, id) {
			return known
		}
	}
	return id
}

func (r *Registry) Has(id string) bool {
	_, ok := r.items[id]
	return ok
}

// IDs returns the item ids in catalog order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Items returns all descriptors in catalog order.
func (r *Registry) Items() []models.ItemDescriptor {
	out := make([]models.ItemDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}
	return out
}

func (r *Registry) Len() int { return len(r.order) }
