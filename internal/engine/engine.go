// Package engine applies player actions and elapsed time to a session. An
// Engine is not safe for concurrent use; Loop serializes access to one.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/tatianab/keepsake/internal/catalog"
	"github.com/tatianab/keepsake/internal/decay"
	"github.com/tatianab/keepsake/internal/ending"
	"github.com/tatianab/keepsake/internal/models"
	"github.com/tatianab/keepsake/internal/state"
)

var (
	ErrUnknownAction   = errors.New("engine: unknown action")
	ErrMissingArgument = errors.New("engine: missing argument")
)

// Action is a player command applied through Engine.Apply.
type Action interface {
	fmt.Stringer
	action()
}

type (
	PickupItem    struct{ ID string }
	ReturnItem    struct{ ID string }
	SurrenderItem struct{ ID string }
	SetVitality   struct{ Value int }
	GiveUp        struct{}
	ResetSession  struct{}
)

func (PickupItem) action() {}
func (ReturnItem) action() {}
func (SurrenderItem) action() {}
func (SetVitality) action() {}
func (GiveUp) action() {}
func (ResetSession) action() {}

func (a PickupItem) String() string { return "pickup " + a.ID }
func (a ReturnItem) String() string { return "return " + a.ID }
func (a SurrenderItem) String() string { return "surrender " + a.ID }
func (a SetVitality) String() string { return "vitality " + strconv.Itoa(a.Value) }
func (GiveUp) String() string { return "giveup" }
func (ResetSession) String() string { return "reset" }

// ParseAction reads a command such as "pickup necklace" or "vitality 40".
func ParseAction(input string) (Action, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrUnknownAction)
	}
	verb, args := strings.ToLower(fields[0]), fields[1:]
	arg := func() (string, error) {
		if len(args) == 0 {
			return "", fmt.Errorf("%w: %s needs an item", ErrMissingArgument, verb)
		}
		return args[0], nil
	}

	switch verb {
	case "pickup", "take", "select":
		id, err := arg()
		if err != nil {
			return nil, err
		}
		return PickupItem{ID: id}, nil
	case "return", "putback":
		id, err := arg()
		if err != nil {
			return nil, err
		}
		return ReturnItem{ID: id}, nil
	case "surrender", "pawn", "sell":
		id, err := arg()
		if err != nil {
			return nil, err
		}
		return SurrenderItem{ID: id}, nil
	case "vitality", "set":
		if len(args) == 0 {
			return nil, fmt.Errorf("%w: %s needs a value", ErrMissingArgument, verb)
		}
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("invalid vitality %q: %w", args[0], err)
		}
		return SetVitality{Value: v}, nil
	case "giveup", "quit":
		return GiveUp{}, nil
	case "give":
		if len(args) > 0 && strings.EqualFold(args[0], "up") {
			return GiveUp{}, nil
		}
	case "reset", "restart":
		return ResetSession{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, verb)
}

// Config describes how Build wires a session.
type Config struct {
	StartVitality int
	MaxVitality   int
	Contexts      []string
	HomeContext   string
	StartContext  string
	Decay         decay.Config
}

func DefaultConfig() Config {
	return Config{
		StartVitality: state.DefaultVitality,
		MaxVitality:   state.DefaultMaxVitality,
		Contexts:      state.DefaultContexts,
		HomeContext:   "Home",
		StartContext:  "MainMenu",
		Decay:         decay.DefaultConfig(),
	}
}

type Engine struct {
	store  *state.Store
	decay  *decay.Scheduler
	eval   *ending.Evaluator
	logger *log.Logger

	home  string
	start string
}

type Option func(*Engine)

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithHomeContext names the context in which a carried keepsake is put back.
func WithHomeContext(name string) Option {
	return func(e *Engine) { e.home = name }
}

// WithStartContext names the context entered by Begin.
func WithStartContext(name string) Option {
	return func(e *Engine) { e.start = name }
}

func New(store *state.Store, sched *decay.Scheduler, eval *ending.Evaluator, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		decay:  sched,
		eval:   eval,
		logger: log.New(io.Discard, "", 0),
		home:   "Home",
		start:  "MainMenu",
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Build wires a store, a decay scheduler and an end evaluator for reg. It
// panics on invalid vitality or decay settings.
func Build(reg *catalog.Registry, cfg Config, logger *log.Logger) *Engine {
	store := state.New(reg,
		state.WithLogger(logger),
		state.WithDefaults(cfg.StartVitality, cfg.MaxVitality),
		state.WithContexts(cfg.Contexts...),
	)
	sched := decay.New(store, cfg.Decay, decay.WithLogger(logger), decay.WithContext(cfg.StartContext))
	eval := ending.New(store, sched, ending.WithLogger(logger))
	return New(store, sched, eval,
		WithLogger(logger),
		WithHomeContext(cfg.HomeContext),
		WithStartContext(cfg.StartContext),
	)
}

// Begin enters the start context and starts decay.
func (e *Engine) Begin() {
	if err := e.SetContext(e.start); err != nil {
		e.logger.Printf("[engine] begin: %v", err)
	}
	if !e.store.Ended() {
		e.decay.Start()
	}
}

// Apply runs one player action against the store.
func (e *Engine) Apply(a Action) error {
	var err error
	reg := e.store.Registry()
	switch a := a.(type) {
	case PickupItem:
		err = e.store.Pickup(reg.Resolve(a.ID))
	case ReturnItem:
		err = e.store.ReturnHome(reg.Resolve(a.ID))
	case SurrenderItem:
		var healed int
		id := reg.Resolve(a.ID)
		healed, err = e.store.Surrender(id)
		if err == nil {
			e.logger.Printf("[engine] %s restored %d", id, healed)
		}
	case SetVitality:
		_, err = e.store.SetVitality(a.Value)
	case GiveUp:
		if !e.eval.GiveUp() {
			e.logger.Printf("[engine] give up ignored: session already ended")
		}
	case ResetSession:
		e.Reset()
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownAction, a)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", a, err)
	}
	return nil
}

// Reset restores the session defaults and restarts decay with its current
// interval and amount.
func (e *Engine) Reset() {
	e.store.ResetSession()
	if err := e.SetContext(e.decay.Context()); err != nil {
		e.logger.Printf("[engine] reset: %v", err)
	}
	e.decay.Restart(e.decay.Interval(), e.decay.Amount())
}

// Advance runs one tick: decay first, then the end conditions.
func (e *Engine) Advance(dt time.Duration) []decay.Report {
	if e.store.Ended() {
		return nil
	}
	reports := e.decay.Advance(dt)
	e.store.AddPlayTime(dt)
	e.eval.Tick()
	return reports
}

// SetContext records the presentation context the player is in. Entering the
// home context puts a carried keepsake back.
func (e *Engine) SetContext(name string) error {
	e.decay.SetContext(name)
	if e.store.Ended() || name == "" {
		return nil
	}
	if err := e.store.SetFlag(state.VisitedFlag(name), true); err != nil {
		return err
	}
	if name != e.home {
		return nil
	}
	if id, ok := e.store.SelectedItem(); ok {
		return e.store.ReturnHome(id)
	}
	return nil
}

func (e *Engine) Context() string { return e.decay.Context() }

func (e *Engine) Snapshot() models.Snapshot { return e.store.SyncOut() }

// Load replaces the session with snap. Decay restarts for a live session and
// stays stopped for an ended one.
func (e *Engine) Load(snap models.Snapshot) error {
	if err := e.store.SyncIn(snap); err != nil {
		return err
	}
	if e.store.Ended() {
		e.decay.Stop()
		return nil
	}
	e.decay.Restart(e.decay.Interval(), e.decay.Amount())
	return nil
}

func (e *Engine) Ended() bool { return e.store.Ended() }
func (e *Engine) EndReason() models.EndReason { return e.store.EndReason() }
func (e *Engine) Registry() *catalog.Registry { return e.store.Registry() }
func (e *Engine) DecayRunning() bool { return e.decay.Running() }

func (e *Engine) OnVitalityChanged(fn state.VitalityObserver) { e.store.OnVitalityChanged(fn) }
func (e *Engine) OnCustodyChanged(fn state.CustodyObserver) { e.store.OnCustodyChanged(fn) }
func (e *Engine) OnReset(fn func()) { e.store.OnReset(fn) }
func (e *Engine) OnSessionEnded(fn func(models.EndReason)) { e.eval.OnSessionEnded(fn) }
