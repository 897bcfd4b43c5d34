// Package decay drains vitality at a fixed interval while the player is in an
// active context and the story has moved past the first surrender.
//
// The scheduler has no goroutine of its own. The owner of the session state
// feeds it elapsed time through Advance, so a decrement can never interleave
// with another mutation.
package decay

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/tatianab/keepsake/internal/vitality"
)

const (
	DefaultInterval = 6 * time.Second
	DefaultAmount   = 8
)

// DefaultSafeContexts are the contexts in which no decay happens.
var DefaultSafeContexts = []string{"MainMenu", "Gallery", "Shop"}

type Config struct {
	Enabled      bool
	Interval     time.Duration
	Amount       int
	SafeContexts []string
}

func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		Interval:     DefaultInterval,
		Amount:       DefaultAmount,
		SafeContexts: DefaultSafeContexts,
	}
}

// Target is the state the scheduler drains.
type Target interface {
	AnySolved() bool
	Decay(amount int) (vitality.Change, error)
}

type Outcome int

const (
	Decayed Outcome = iota
	SkippedSafeContext
	SkippedNoneSolved
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Decayed:
		return "decayed"
	case SkippedSafeContext:
		return "skipped: safe context"
	case SkippedNoneSolved:
		return "skipped: nothing surrendered yet"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Report describes one elapsed interval.
type Report struct {
	Outcome  Outcome
	Context  string
	Old, New int
	Err      error
}

type Scheduler struct {
	target Target
	logger *log.Logger

	enabled  bool
	interval time.Duration
	amount   int
	safe     map[string]bool

	context    string
	running    bool
	elapsed    time.Duration
	decrements int
}

type Option func(*Scheduler)

func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithContext sets the initial presentation context.
func WithContext(name string) Option {
	return func(s *Scheduler) { s.context = name }
}

// New returns a stopped scheduler. It panics on a non-positive interval or a
// negative amount.
func New(target Target, cfg Config, opts ...Option) *Scheduler {
	mustValid(cfg.Interval, cfg.Amount)
	s := &Scheduler{
		target:   target,
		logger:   log.New(io.Discard, "", 0),
		enabled:  cfg.Enabled,
		interval: cfg.Interval,
		amount:   cfg.Amount,
		safe:     make(map[string]bool, len(cfg.SafeContexts)),
	}
	for _, c := range cfg.SafeContexts {
		s.safe[c] = true
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func mustValid(interval time.Duration, amount int) {
	if interval <= 0 {
		panic(fmt.Sprintf("decay: interval must be positive, got %s", interval))
	}
	if amount < 0 {
		panic(fmt.Sprintf("decay: amount must not be negative, got %d", amount))
	}
}

// Start begins a fresh interval. It does nothing when decay is disabled.
func (s *Scheduler) Start() {
	if !s.enabled {
		s.logger.Printf("[decay] disabled, not starting")
		return
	}
	s.running = true
	s.elapsed = 0
	s.logger.Printf("[decay] started: -%d every %s", s.amount, s.interval)
}

// Stop halts the scheduler. It is safe to call repeatedly; once it returns no
// further decrement happens until Start or Restart.
func (s *Scheduler) Stop() {
	if !s.running {
		return
	}
	s.running = false
	s.elapsed = 0
	s.logger.Printf("[decay] stopped after %d decrements", s.decrements)
}

// Restart replaces interval and amount, drops any partially elapsed wait and
// starts again.
func (s *Scheduler) Restart(interval time.Duration, amount int) {
	mustValid(interval, amount)
	s.running = false
	s.interval = interval
	s.amount = amount
	s.Start()
}

func (s *Scheduler) Running() bool { return s.running }
func (s *Scheduler) Interval() time.Duration { return s.interval }
func (s *Scheduler) Amount() int { return s.amount }
func (s *Scheduler) Decrements() int { return s.decrements }
func (s *Scheduler) Context() string { return s.context }

// SetContext records the current presentation context.
func (s *Scheduler) SetContext(name string) {
	s.context = name
}

// Remaining returns the time left until the next step, or zero when stopped.
func (s *Scheduler) Remaining() time.Duration {
	if !s.running {
		return 0
	}
	return s.interval - s.elapsed
}

// Advance moves the scheduler clock forward by dt and runs one step for every
// full interval that elapsed.
func (s *Scheduler) Advance(dt time.Duration) []Report {
	if !s.running || dt <= 0 {
		return nil
	}
	s.elapsed += dt
	var reports []Report
	for s.running && s.elapsed >= s.interval {
		s.elapsed -= s.interval
		reports = append(reports, s.step())
	}
	return reports
}

func (s *Scheduler) step() Report {
	r := Report{Context: s.context}
	if s.safe[s.context] {
		r.Outcome = SkippedSafeContext
		return r
	}
	if !s.target.AnySolved() {
		r.Outcome = SkippedNoneSolved
		return r
	}
	c, err := s.target.Decay(s.amount)
	if err != nil {
		r.Outcome = Failed
		r.Err = err
		s.logger.Printf("[decay] %v", err)
		s.Stop()
		return r
	}
	s.decrements++
	r.Outcome = Decayed
	r.Old, r.New = c.Old, c.New
	s.logger.Printf("[decay] vitality %d -> %d in %s", c.Old, c.New, s.context)
	if c.New == 0 {
		s.Stop()
	}
	return r
}
