// Package vitality tracks the player's current and maximum vitality.
package vitality

import (
	"errors"
	"fmt"

	"github.com/tatianab/keepsake/internal/models"
)

// Stage thresholds on the current/max ratio.
const (
	Stage1Threshold = 0.67
	Stage2Threshold = 0.34
)

var (
	ErrNegativeAmount = errors.New("vitality: amount must not be negative")
	ErrInvalidMax     = errors.New("vitality: max must be positive")
)

// Change describes a single mutation of the current value.
type Change struct {
	Old, New int
	// ReachedZero is set when the mutation took a positive value to zero.
	ReachedZero bool
}

// Changed reports whether the mutation moved the current value.
func (c Change) Changed() bool { return c.Old != c.New }

// Tracker owns the current/max pair and keeps 0 <= current <= max.
type Tracker struct {
	current int
	max     int
}

// New returns a tracker with current clamped into [0, max]. It panics if max
// is not positive.
func New(current, max int) *Tracker {
	if max <= 0 {
		panic(fmt.Sprintf("vitality: max must be positive, got %d", max))
	}
	return &Tracker{current: clamp(current, 0, max), max: max}
}

func (t *Tracker) Current() int { return t.current }
func (t *Tracker) Max() int { return t.max }

func (t *Tracker) Snapshot() models.Vitality {
	return models.Vitality{Current: t.current, Max: t.max}
}

// Set clamps v into [0, max] and stores it.
func (t *Tracker) Set(v int) Change {
	old := t.current
	t.current = clamp(v, 0, t.max)
	return Change{Old: old, New: t.current, ReachedZero: t.current == 0 && old > 0}
}

// Heal raises current by amount, capped at max, and returns how much was
// actually restored.
func (t *Tracker) Heal(amount int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("heal %d: %w", amount, ErrNegativeAmount)
	}
	if amount > t.max-t.current {
		amount = t.max - t.current
	}
	c := t.Set(t.current + amount)
	return c.New - c.Old, nil
}

// Decay lowers current by amount, floored at zero.
func (t *Tracker) Decay(amount int) (Change, error) {
	if amount < 0 {
		return Change{Old: t.current, New: t.current}, fmt.Errorf("decay %d: %w", amount, ErrNegativeAmount)
	}
	return t.Set(t.current - amount), nil
}

// SetMax replaces max and clamps current down if it now exceeds it.
func (t *Tracker) SetMax(newMax int) (Change, error) {
	if newMax <= 0 {
		return Change{Old: t.current, New: t.current}, fmt.Errorf("set max %d: %w", newMax, ErrInvalidMax)
	}
	t.max = newMax
	return t.Set(t.current), nil
}

func (t *Tracker) Ratio() float64 {
	return t.Snapshot().Ratio()
}

func (t *Tracker) Stage() models.Stage {
	return Classify(t.current, t.max)
}

// Classify maps a current/max pair onto a stage.
func Classify(current, max int) models.Stage {
	ratio := models.Vitality{Current: current, Max: max}.Ratio()
	switch {
	case ratio >= Stage1Threshold:
		return models.Stage1
	case ratio >= Stage2Threshold:
		return models.Stage2
	default:
		return models.Stage3
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
