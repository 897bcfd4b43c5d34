package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tatianab/keepsake/internal/models"
)

var ErrLoopStopped = errors.New("engine: loop stopped")

// Bridge is the request surface a presentation layer uses. Every call is
// served between ticks on the loop goroutine.
type Bridge interface {
	PushAction(ctx context.Context, a Action) error
	PullSnapshot(ctx context.Context) (models.Snapshot, error)
	SetContext(ctx context.Context, name string) error
	SyncIn(ctx context.Context, snap models.Snapshot) error
}

type applyCmd struct {
	Action Action
	Reply  chan error
}

type snapshotCmd struct {
	Reply chan models.Snapshot
}

type contextCmd struct {
	Name  string
	Reply chan error
}

type syncInCmd struct {
	Snapshot models.Snapshot
	Reply    chan error
}

// Loop owns an Engine and is the only goroutine that mutates it.
type Loop struct {
	Inbox  chan any
	engine *Engine
	tick   time.Duration

	quit     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

var _ Bridge = (*Loop)(nil)

// NewLoop panics when tick is not positive.
func NewLoop(e *Engine, tick time.Duration) *Loop {
	if tick <= 0 {
		panic("engine: loop tick must be positive")
	}
	return &Loop{
		Inbox:  make(chan any, 64),
		engine: e,
		tick:   tick,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.quit) })
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Run serves commands and advances the engine by the wall time elapsed
// between ticks. It returns nil after Stop and ctx.Err() on cancellation.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.quit:
			return nil
		case cmd := <-l.Inbox:
			l.handleCommand(cmd)
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			l.engine.Advance(dt)
		}
	}
}

func (l *Loop) handleCommand(cmd any) {
	switch c := cmd.(type) {
	case applyCmd:
		c.Reply <- l.engine.Apply(c.Action)
	case snapshotCmd:
		c.Reply <- l.engine.Snapshot()
	case contextCmd:
		c.Reply <- l.engine.SetContext(c.Name)
	case syncInCmd:
		c.Reply <- l.engine.Load(c.Snapshot)
	}
}

func (l *Loop) PushAction(ctx context.Context, a Action) error {
	reply := make(chan error, 1)
	if err := l.send(ctx, applyCmd{Action: a, Reply: reply}); err != nil {
		return err
	}
	return wait(ctx, l, reply)
}

func (l *Loop) PullSnapshot(ctx context.Context) (models.Snapshot, error) {
	reply := make(chan models.Snapshot, 1)
	if err := l.send(ctx, snapshotCmd{Reply: reply}); err != nil {
		return models.Snapshot{}, err
	}
	return waitValue(ctx, l, reply)
}

func (l *Loop) SetContext(ctx context.Context, name string) error {
	reply := make(chan error, 1)
	if err := l.send(ctx, contextCmd{Name: name, Reply: reply}); err != nil {
		return err
	}
	return wait(ctx, l, reply)
}

func (l *Loop) SyncIn(ctx context.Context, snap models.Snapshot) error {
	reply := make(chan error, 1)
	if err := l.send(ctx, syncInCmd{Snapshot: snap, Reply: reply}); err != nil {
		return err
	}
	return wait(ctx, l, reply)
}

func (l *Loop) send(ctx context.Context, cmd any) error {
	select {
	case l.Inbox <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.quit:
		return ErrLoopStopped
	case <-l.done:
		return ErrLoopStopped
	}
}

func wait(ctx context.Context, l *Loop, reply chan error) error {
	v, err := waitValue(ctx, l, reply)
	if err != nil {
		return err
	}
	return v
}

func waitValue[T any](ctx context.Context, l *Loop, reply chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-l.quit:
		return zero, ErrLoopStopped
	case <-l.done:
		return zero, ErrLoopStopped
	}
}
