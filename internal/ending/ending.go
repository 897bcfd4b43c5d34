// Package ending decides when a session is over.
package ending

import (
	"io"
	"log"

	"github.com/tatianab/keepsake/internal/models"
)

// Source is the state the evaluator polls.
type Source interface {
	Vitality() models.Vitality
	AllSolved() bool
	EndReason() models.EndReason
	End(reason models.EndReason) bool
}

// Halter is stopped once the session ends.
type Halter interface {
	Stop()
}

type Evaluator struct {
	source Source
	halter Halter
	logger *log.Logger
	ended  []func(models.EndReason)
}

type Option func(*Evaluator)

func WithLogger(l *log.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

func New(source Source, halter Halter, opts ...Option) *Evaluator {
	e := &Evaluator{
		source: source,
		halter: halter,
		logger: log.New(io.Discard, "", 0),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// OnSessionEnded registers fn to run once per session with the end reason.
func (e *Evaluator) OnSessionEnded(fn func(models.EndReason)) {
	e.ended = append(e.ended, fn)
}

func (e *Evaluator) Reason() models.EndReason { return e.source.EndReason() }

// Tick checks the state-derived end conditions in priority order. It returns
// the reason and true only on the tick that ended the session.
func (e *Evaluator) Tick() (models.EndReason, bool) {
	if e.source.EndReason() != models.None {
		return models.None, false
	}
	switch {
	case e.source.Vitality().Current <= 0:
		return e.finish(models.VitalityZero)
	case e.source.AllSolved():
		return e.finish(models.AllItemsSolved)
	}
	return models.None, false
}

// GiveUp ends the session on the player's request. It reports false when the
// session had already ended.
func (e *Evaluator) GiveUp() bool {
	_, ok := e.finish(models.PlayerGaveUp)
	return ok
}

func (e *Evaluator) finish(reason models.EndReason) (models.EndReason, bool) {
	if !e.source.End(reason) {
		return models.None, false
	}
	if e.halter != nil {
		e.halter.Stop()
	}
	e.logger.Printf("[ending] %s", reason)
	for _, fn := range e.ended {
		fn(reason)
	}
	return reason, true
}

// Describe returns the closing line shown for a reason.
func Describe(reason models.EndReason) string {
	switch reason {
	case models.VitalityZero:
		return "Your vitality has run out. Time took what was left of you."
	case models.AllItemsSolved:
		return "You pawned every keepsake. You bought more time, but lost every memory."
	case models.PlayerGaveUp:
		return "You chose to give up. Perhaps next time will be different."
	case models.None:
		return ""
	}
	return "The story is over."
}
