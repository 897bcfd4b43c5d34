package vitality

import (
	"errors"
	"math"
	"testing"

	"github.com/tatianab/keepsake/internal/models"
)

func TestSetClamps(t *testing.T) {
	tr := New(59, 100)
	tests := []struct {
		in, want int
		zero     bool
	}{
		{in: 150, want: 100},
		{in: 40, want: 40},
		{in: -5, want: 0, zero: true},
		{in: -1, want: 0},
		{in: 10, want: 10},
	}
	for _, tt := range tests {
		c := tr.Set(tt.in)
		if c.New != tt.want || tr.Current() != tt.want {
			t.Fatalf("Set(%d): expected %d, got %d", tt.in, tt.want, tr.Current())
		}
		if c.ReachedZero != tt.zero {
			t.Errorf("Set(%d): expected ReachedZero=%v", tt.in, tt.zero)
		}
	}
}

func TestNewClampsAndPanics(t *testing.T) {
	if got := New(250, 100).Current(); got != 100 {
		t.Errorf("expected 100, got %d", got)
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for non-positive max")
		}
	}()
	New(10, 0)
}

func TestHeal(t *testing.T) {
	tr := New(90, 100)
	healed, err := tr.Heal(20)
	if err != nil {
		t.Fatalf("heal: %v", err)
	}
	if healed != 10 || tr.Current() != 100 {
		t.Fatalf("expected healed=10 current=100, got %d %d", healed, tr.Current())
	}
	healed, _ = tr.Heal(5)
	if healed != 0 {
		t.Errorf("expected no-op heal at max, got %d", healed)
	}
	if _, err := tr.Heal(-1); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestHealSaturates(t *testing.T) {
	tr := New(59, 100)
	healed, err := tr.Heal(math.MaxInt)
	if err != nil {
		t.Fatalf("heal: %v", err)
	}
	if healed != 41 || tr.Current() != 100 {
		t.Fatalf("expected healed=41 current=100, got %d %d", healed, tr.Current())
	}
	healed, _ = tr.Heal(math.MaxInt)
	if healed != 0 || tr.Current() != 100 {
		t.Errorf("expected no-op heal at max, got %d %d", healed, tr.Current())
	}
}

func TestDecay(t *testing.T) {
	tr := New(5, 100)
	c, err := tr.Decay(8)
	if err != nil {
		t.Fatalf("decay: %v", err)
	}
	if c.New != 0 || !c.ReachedZero {
		t.Fatalf("expected decay to zero edge, got %+v", c)
	}
	c, _ = tr.Decay(8)
	if c.ReachedZero {
		t.Errorf("zero edge must only be reported once")
	}
	if _, err := tr.Decay(-3); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestSetMax(t *testing.T) {
	tr := New(80, 100)
	if _, err := tr.SetMax(50); err != nil {
		t.Fatalf("set max: %v", err)
	}
	if tr.Current() != 50 || tr.Max() != 50 {
		t.Fatalf("expected 50/50, got %d/%d", tr.Current(), tr.Max())
	}
	if _, err := tr.SetMax(0); !errors.Is(err, ErrInvalidMax) {
		t.Errorf("expected ErrInvalidMax, got %v", err)
	}
	if tr.Max() != 50 {
		t.Errorf("failed SetMax must not change max")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		current int
		want    models.Stage
	}{
		{100, models.Stage1},
		{67, models.Stage1},
		{66, models.Stage2},
		{34, models.Stage2},
		{33, models.Stage3},
		{0, models.Stage3},
	}
	for _, tt := range tests {
		if got := Classify(tt.current, 100); got != tt.want {
			t.Errorf("Classify(%d, 100) = %s, want %s", tt.current, got, tt.want)
		}
	}
}

func TestInvariantHoldsAcrossSequence(t *testing.T) {
	tr := New(59, 100)
	ops := []func(){
		func() { tr.Set(500) },
		func() { tr.Decay(30) },
		func() { tr.Heal(80) },
		func() { tr.SetMax(20) },
		func() { tr.Decay(100) },
		func() { tr.Set(-40) },
		func() { tr.Heal(3) },
	}
	for i, op := range ops {
		op()
		if tr.Current() < 0 || tr.Current() > tr.Max() {
			t.Fatalf("op %d broke invariant: %d/%d", i, tr.Current(), tr.Max())
		}
	}
}
