// Package state holds the authoritative game-state store. One Store lives for
// the whole process and survives context changes; every other component reads
// and writes session state through it.
package state

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"github.com/tatianab/keepsake/internal/catalog"
	"github.com/tatianab/keepsake/internal/custody"
	"github.com/tatianab/keepsake/internal/models"
	"github.com/tatianab/keepsake/internal/vitality"
)

// Canonical starting vitality.
const (
	DefaultVitality    = 59
	DefaultMaxVitality = 100
)

// DefaultContexts are the presentation contexts that get a hasVisited flag.
var DefaultContexts = []string{"MainMenu", "Home", "Gallery", "Shop"}

var (
	ErrSessionEnded    = errors.New("state: session has ended")
	ErrUnknownItem     = custody.ErrUnknownItem
	ErrInvalidSnapshot = errors.New("state: invalid snapshot")
)

type (
	VitalityObserver func(old, new int)
	CustodyObserver  func(itemID string, old, new models.CustodyState)
)

type Store struct {
	logger   *log.Logger
	registry *catalog.Registry
	contexts []string

	defaultCurrent int
	defaultMax     int

	vitality  *vitality.Tracker
	custody   *custody.Machine
	collected map[string]struct{}
	flags     map[string]bool
	end       models.EndReason
	playTime  time.Duration

	onVitality []VitalityObserver
	onCustody  []CustodyObserver
	onReset    []func()
}

type Option func(*Store)

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDefaults sets the vitality pair used at creation and on every reset.
func WithDefaults(current, max int) Option {
	return func(s *Store) {
		s.defaultCurrent = current
		s.defaultMax = max
	}
}

// WithContexts replaces the contexts that get a default hasVisited flag.
func WithContexts(names ...string) Option {
	return func(s *Store) {
		s.contexts = append([]string(nil), names...)
	}
}

// New builds a store for the given catalog. It panics when the configured
// default max vitality is not positive.
func New(reg *catalog.Registry, opts ...Option) *Store {
	s := &Store{
		logger:         log.New(io.Discard, "", 0),
		registry:       reg,
		contexts:       DefaultContexts,
		defaultCurrent: DefaultVitality,
		defaultMax:     DefaultMaxVitality,
		custody:        custody.New(reg.IDs()...),
	}
	for _, o := range opts {
		o(s)
	}
	s.vitality = vitality.New(s.defaultCurrent, s.defaultMax)
	s.collected = make(map[string]struct{})
	s.flags = s.defaultFlags()
	return s
}

func (s *Store) defaultFlags() map[string]bool {
	flags := make(map[string]bool, len(s.contexts)+s.registry.Len())
	for _, c := range s.contexts {
		flags[VisitedFlag(c)] = false
	}
	for _, id := range s.registry.IDs() {
		flags[CollectedFlag(id)] = false
	}
	return flags
}

// VisitedFlag names the progress flag set when a context is entered.
func VisitedFlag(context string) string { return "hasVisited" + context }

// CollectedFlag names the progress flag set when an item is first picked up.
func CollectedFlag(itemID string) string { return "hasCollected" + itemID }

// Observers run synchronously at the point of mutation.

func (s *Store) OnVitalityChanged(fn VitalityObserver) { s.onVitality = append(s.onVitality, fn) }
func (s *Store) OnCustodyChanged(fn CustodyObserver) { s.onCustody = append(s.onCustody, fn) }
func (s *Store) OnReset(fn func()) { s.onReset = append(s.onReset, fn) }

func (s *Store) notifyVitality(c vitality.Change) {
	if !c.Changed() {
		return
	}
	for _, fn := range s.onVitality {
		fn(c.Old, c.New)
	}
}

func (s *Store) notifyCustody(t custody.Transition) {
	for _, fn := range s.onCustody {
		fn(t.ItemID, t.From, t.To)
	}
}

// Read accessors.

func (s *Store) Registry() *catalog.Registry { return s.registry }
func (s *Store) Vitality() models.Vitality { return s.vitality.Snapshot() }
func (s *Store) Stage() models.Stage { return s.vitality.Stage() }
func (s *Store) EndReason() models.EndReason { return s.end }
func (s *Store) Ended() bool { return s.end != models.None }
func (s *Store) AnySolved() bool { return s.custody.AnySolved() }
func (s *Store) AllSolved() bool { return s.custody.AllSolved() }
func (s *Store) PlayTime() time.Duration { return s.playTime }

func (s *Store) CustodyTable() map[string]models.CustodyState { return s.custody.Table() }

func (s *Store) CustodyState(id string) (models.CustodyState, bool) { return s.custody.State(id) }

func (s *Store) SelectedItem() (string, bool) { return s.custody.SelectedItem() }

// Collected returns the ids ever picked up, sorted.
func (s *Store) Collected() []string {
	out := make([]string, 0, len(s.collected))
	for id := range s.collected {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *Store) HasCollected(id string) bool {
	_, ok := s.collected[id]
	return ok
}

func (s *Store) Flags() map[string]bool {
	out := make(map[string]bool, len(s.flags))
	for k, v := range s.flags {
		out[k] = v
	}
	return out
}

func (s *Store) Flag(name string) bool { return s.flags[name] }

func (s *Store) live(op string) error {
	if s.end != models.None {
		return fmt.Errorf("%s: %w (%s)", op, ErrSessionEnded, s.end)
	}
	return nil
}

// Vitality mutators.

func (s *Store) SetVitality(v int) (vitality.Change, error) {
	if err := s.live("set vitality"); err != nil {
		return vitality.Change{}, err
	}
	c := s.vitality.Set(v)
	s.afterVitality("set", c)
	return c, nil
}

func (s *Store) Heal(amount int) (int, error) {
	if err := s.live("heal"); err != nil {
		return 0, err
	}
	old := s.vitality.Current()
	healed, err := s.vitality.Heal(amount)
	if err != nil {
		return 0, err
	}
	s.afterVitality("heal", vitality.Change{Old: old, New: s.vitality.Current()})
	return healed, nil
}

func (s *Store) Decay(amount int) (vitality.Change, error) {
	if err := s.live("decay"); err != nil {
		return vitality.Change{}, err
	}
	c, err := s.vitality.Decay(amount)
	if err != nil {
		return c, err
	}
	s.afterVitality("decay", c)
	return c, nil
}

func (s *Store) SetMaxVitality(max int) error {
	if err := s.live("set max vitality"); err != nil {
		return err
	}
	c, err := s.vitality.SetMax(max)
	if err != nil {
		return err
	}
	s.afterVitality("set max", c)
	return nil
}

func (s *Store) afterVitality(op string, c vitality.Change) {
	if !c.Changed() {
		return
	}
	s.logger.Printf("[state] %s: vitality %d -> %d", op, c.Old, c.New)
	if c.ReachedZero {
		s.logger.Printf("[state] vitality reached zero")
	}
	s.notifyVitality(c)
}

// Custody mutators.

// Pickup selects an item and records it as collected.
func (s *Store) Pickup(id string) error {
	if err := s.live("pickup"); err != nil {
		return err
	}
	t, err := s.custody.Pickup(id)
	if err != nil {
		return err
	}
	s.logger.Printf("[state] picked up %s", id)
	s.notifyCustody(t)
	s.collect(id)
	return nil
}

func (s *Store) ReturnHome(id string) error {
	if err := s.live("return"); err != nil {
		return err
	}
	t, err := s.custody.ReturnHome(id)
	if err != nil {
		return err
	}
	s.logger.Printf("[state] returned %s home", id)
	s.notifyCustody(t)
	return nil
}

// Surrender pawns the selected item and restores its value in vitality. It
// returns the amount actually restored.
func (s *Store) Surrender(id string) (int, error) {
	if err := s.live("surrender"); err != nil {
		return 0, err
	}
	t, err := s.custody.Surrender(id)
	if err != nil {
		return 0, err
	}
	item := s.registry.MustLookup(id)
	old := s.vitality.Current()
	healed, err := s.vitality.Heal(item.RestoreValue)
	if err != nil {
		return 0, err
	}
	s.logger.Printf("[state] surrendered %s for %d (%d/%d solved)", id, healed, s.custody.SolvedCount(), s.custody.Len())
	s.notifyCustody(t)
	s.afterVitality("surrender", vitality.Change{Old: old, New: s.vitality.Current()})
	if s.custody.AllSolved() {
		s.logger.Printf("[state] every keepsake has been surrendered")
	}
	return healed, nil
}

// AddCollectedItem marks an item as collected. It is idempotent.
func (s *Store) AddCollectedItem(id string) error {
	if err := s.live("collect"); err != nil {
		return err
	}
	if !s.registry.Has(id) {
		return fmt.Errorf("collect %q: %w", id, ErrUnknownItem)
	}
	s.collect(id)
	return nil
}

func (s *Store) collect(id string) {
	if _, ok := s.collected[id]; ok {
		return
	}
	s.collected[id] = struct{}{}
	s.flags[CollectedFlag(id)] = true
}

func (s *Store) SetFlag(name string, v bool) error {
	if err := s.live("set flag"); err != nil {
		return err
	}
	s.flags[name] = v
	return nil
}

// AddPlayTime accumulates live session time; ignored once the session ended.
func (s *Store) AddPlayTime(d time.Duration) {
	if s.end != models.None || d <= 0 {
		return
	}
	s.playTime += d
}

// End records the terminal reason. Only the first non-None reason is kept; it
// reports whether this call ended the session.
func (s *Store) End(reason models.EndReason) bool {
	if reason == models.None || s.end != models.None {
		return false
	}
	s.end = reason
	s.logger.Printf("[state] session ended: %s", reason)
	return true
}

// ResetSession restores defaults and clears the end state.
func (s *Store) ResetSession() {
	old := s.vitality.Current()
	s.vitality = vitality.New(s.defaultCurrent, s.defaultMax)
	for _, t := range s.custody.Reset() {
		s.notifyCustody(t)
	}
	s.collected = make(map[string]struct{})
	s.flags = s.defaultFlags()
	s.end = models.None
	s.playTime = 0
	s.logger.Printf("[state] session reset")
	s.notifyVitality(vitality.Change{Old: old, New: s.vitality.Current()})
	for _, fn := range s.onReset {
		fn()
	}
}
