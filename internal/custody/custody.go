// Package custody implements the per-keepsake AtHome -> Selected -> Solved
// state machine. At most one keepsake is Selected at any time and Solved is
// terminal.
package custody

import (
	"errors"
	"fmt"

	"github.com/tatianab/keepsake/internal/models"
)

// Precondition failures. They never change state.
var (
	ErrUnknownItem     = errors.New("custody: unknown item")
	ErrNotAtHome       = errors.New("custody: item is not at home")
	ErrAnotherSelected = errors.New("custody: another item is already selected")
	ErrNotSelected     = errors.New("custody: item is not selected")
	ErrInvalidTable    = errors.New("custody: invalid state table")
)

// Transition records one state change of one item.
type Transition struct {
	ItemID string
	From   models.CustodyState
	To     models.CustodyState
}

type Machine struct {
	states   map[string]models.CustodyState
	order    []string
	selected string
	solved   int
}

// New creates a machine with every id AtHome. It panics on empty or duplicate
// ids.
func New(ids ...string) *Machine {
	m := &Machine{
		states: make(map[string]models.CustodyState, len(ids)),
		order:  make([]string, 0, len(ids)),
	}
	for _, id := range ids {
		if id == "" {
			panic("custody: empty item id")
		}
		if _, ok := m.states[id]; ok {
			panic(fmt.Sprintf("custody: duplicate item id %q", id))
		}
		m.states[id] = models.AtHome
		m.order = append(m.order, id)
	}
	return m
}

func (m *Machine) Pickup(id string) (Transition, error) {
	st, ok := m.states[id]
	if !ok {
		return Transition{}, fmt.Errorf("pickup %q: %w", id, ErrUnknownItem)
	}
	if st != models.AtHome {
		return Transition{}, fmt.Errorf("pickup %q (%s): %w", id, st, ErrNotAtHome)
	}
	if m.selected != "" {
		return Transition{}, fmt.Errorf("pickup %q while %q held: %w", id, m.selected, ErrAnotherSelected)
	}
	m.states[id] = models.Selected
	m.selected = id
	return Transition{ItemID: id, From: models.AtHome, To: models.Selected}, nil
}

func (m *Machine) ReturnHome(id string) (Transition, error) {
	if err := m.requireSelected("return", id); err != nil {
		return Transition{}, err
	}
	m.states[id] = models.AtHome
	m.selected = ""
	return Transition{ItemID: id, From: models.Selected, To: models.AtHome}, nil
}

func (m *Machine) Surrender(id string) (Transition, error) {
	if err := m.requireSelected("surrender", id); err != nil {
		return Transition{}, err
	}
	m.states[id] = models.Solved
	m.selected = ""
	m.solved++
	return Transition{ItemID: id, From: models.Selected, To: models.Solved}, nil
}

func (m *Machine) requireSelected(op, id string) error {
	st, ok := m.states[id]
	if !ok {
		return fmt.Errorf("%s %q: %w", op, id, ErrUnknownItem)
	}
	if st != models.Selected {
		return fmt.Errorf("%s %q (%s): %w", op, id, st, ErrNotSelected)
	}
	return nil
}

// Reset forces every item back to AtHome and returns the transitions made.
func (m *Machine) Reset() []Transition {
	var out []Transition
	for _, id := range m.order {
		if st := m.states[id]; st != models.AtHome {
			out = append(out, Transition{ItemID: id, From: st, To: models.AtHome})
			m.states[id] = models.AtHome
		}
	}
	m.selected = ""
	m.solved = 0
	return out
}

// Restore replaces the whole table. The key set must equal the known ids and
// at most one entry may be Selected; otherwise nothing changes.
func (m *Machine) Restore(table map[string]models.CustodyState) error {
	if err := m.Validate(table); err != nil {
		return err
	}
	m.selected = ""
	m.solved = 0
	for _, id := range m.order {
		st := table[id]
		m.states[id] = st
		switch st {
		case models.Selected:
			m.selected = id
		case models.Solved:
			m.solved++
		}
	}
	return nil
}

// Validate checks a table against the known ids and the single-selection
// invariant without applying it.
func (m *Machine) Validate(table map[string]models.CustodyState) error {
	if len(table) != len(m.order) {
		return fmt.Errorf("%w: expected %d items, got %d", ErrInvalidTable, len(m.order), len(table))
	}
	selected := 0
	for id, st := range table {
		if _, ok := m.states[id]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownItem, id)
		}
		switch st {
		case models.AtHome, models.Solved:
		case models.Selected:
			selected++
		default:
			return fmt.Errorf("%w: %q has state %s", ErrInvalidTable, id, st)
		}
	}
	if selected > 1 {
		return fmt.Errorf("%w: %d items selected", ErrInvalidTable, selected)
	}
	return nil
}

func (m *Machine) State(id string) (models.CustodyState, bool) {
	st, ok := m.states[id]
	return st, ok
}

func (m *Machine) IsAnySelected() bool { return m.selected != "" }

func (m *Machine) SelectedItem() (string, bool) {
	return m.selected, m.selected != ""
}

func (m *Machine) AnySolved() bool { return m.solved > 0 }

// AllSolved is true only when there is at least one item and all are Solved.
func (m *Machine) AllSolved() bool {
	return len(m.order) > 0 && m.solved == len(m.order)
}

func (m *Machine) SolvedCount() int { return m.solved }

func (m *Machine) Len() int { return len(m.order) }

func (m *Machine) IDs() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Table returns a copy of the state table.
func (m *Machine) Table() map[string]models.CustodyState {
	out := make(map[string]models.CustodyState, len(m.states))
	for id, st := range m.states {
		out[id] = st
	}
	return out
}
