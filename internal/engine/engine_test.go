package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/tatianab/keepsake/internal/catalog"
	"github.com/tatianab/keepsake/internal/custody"
	"github.com/tatianab/keepsake/internal/models"
	"github.com/tatianab/keepsake/internal/state"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	reg, err := catalog.New(
		models.ItemDescriptor{ID: "necklace", RestoreValue: 20},
		models.ItemDescriptor{ID: "lamp", RestoreValue: 10},
	)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	e := Build(reg, DefaultConfig(), nil)
	e.Begin()
	return e
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in   string
		want Action
	}{
		{"pickup necklace", PickupItem{ID: "necklace"}},
		{"  Take Lamp ", PickupItem{ID: "Lamp"}},
		{"PICKUP Oscar", PickupItem{ID: "Oscar"}},
		{"Give Up", GiveUp{}},
		{"return necklace", ReturnItem{ID: "necklace"}},
		{"pawn necklace", SurrenderItem{ID: "necklace"}},
		{"vitality 40", SetVitality{Value: 40}},
		{"give up", GiveUp{}},
		{"giveup", GiveUp{}},
		{"restart", ResetSession{}},
	}
	for _, tt := range tests {
		got, err := ParseAction(tt.in)
		if err != nil {
			t.Errorf("ParseAction(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAction(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}

	for _, in := range []string{"", "dance", "give", "pickup"} {
		if _, err := ParseAction(in); err == nil {
			t.Errorf("ParseAction(%q): expected error", in)
		}
	}
	if _, err := ParseAction("surrender"); !errors.Is(err, ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}
	if _, err := ParseAction("vitality lots"); err == nil {
		t.Errorf("expected error for non-numeric vitality")
	}
}

func TestApplyResolvesItemIDCase(t *testing.T) {
	reg, err := catalog.New(models.ItemDescriptor{ID: "Oscar", RestoreValue: 30})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	e := Build(reg, DefaultConfig(), nil)
	e.Begin()

	a, err := ParseAction("pickup Oscar")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := e.Apply(a); err != nil {
		t.Fatalf("pickup: %v", err)
	}
	if err := e.Apply(SurrenderItem{ID: "oscar"}); err != nil {
		t.Fatalf("surrender: %v", err)
	}
	if st := e.Snapshot().Custody["Oscar"]; st != models.Solved {
		t.Errorf("expected Oscar solved, got %s", st)
	}
}

func TestBeginMarksStartContext(t *testing.T) {
	e := newEngine(t)
	snap := e.Snapshot()
	if !snap.Flags[state.VisitedFlag("MainMenu")] {
		t.Errorf("expected hasVisitedMainMenu after Begin")
	}
	if snap.Flags[state.VisitedFlag("Home")] {
		t.Errorf("Home not visited yet")
	}
	if !e.DecayRunning() {
		t.Errorf("expected decay running after Begin")
	}
}

func TestApplyPickupAndSurrender(t *testing.T) {
	e := newEngine(t)
	if err := e.Apply(PickupItem{ID: "necklace"}); err != nil {
		t.Fatalf("pickup: %v", err)
	}
	if err := e.Apply(PickupItem{ID: "lamp"}); !errors.Is(err, custody.ErrAnotherSelected) {
		t.Fatalf("expected ErrAnotherSelected, got %v", err)
	}
	if err := e.Apply(SurrenderItem{ID: "necklace"}); err != nil {
		t.Fatalf("surrender: %v", err)
	}
	snap := e.Snapshot()
	if snap.Vitality.Current != 79 {
		t.Errorf("expected 79, got %d", snap.Vitality.Current)
	}
	if snap.Custody["necklace"] != models.Solved {
		t.Errorf("expected necklace solved, got %s", snap.Custody["necklace"])
	}
	if err := e.Apply(PickupItem{ID: "ghost"}); !errors.Is(err, state.ErrUnknownItem) {
		t.Errorf("expected ErrUnknownItem, got %v", err)
	}
}

func TestEnteringHomeReturnsCarriedItem(t *testing.T) {
	e := newEngine(t)
	e.Apply(PickupItem{ID: "lamp"})
	if err := e.SetContext("Home"); err != nil {
		t.Fatalf("set context: %v", err)
	}
	snap := e.Snapshot()
	if snap.Custody["lamp"] != models.AtHome {
		t.Errorf("expected lamp back home, got %s", snap.Custody["lamp"])
	}
	if !snap.Flags[state.VisitedFlag("Home")] {
		t.Errorf("expected hasVisitedHome")
	}
	if !snap.Flags[state.CollectedFlag("lamp")] {
		t.Errorf("collected flag must survive returning the item")
	}
}

func TestAdvanceDecaysOnlyOutsideSafeContexts(t *testing.T) {
	e := newEngine(t)
	e.Apply(PickupItem{ID: "necklace"})
	e.Apply(SurrenderItem{ID: "necklace"})

	e.SetContext("Shop")
	e.Advance(12 * time.Second)
	if got := e.Snapshot().Vitality.Current; got != 79 {
		t.Fatalf("decay ran in a safe context: %d", got)
	}

	e.SetContext("Home")
	e.Advance(6 * time.Second)
	snap := e.Snapshot()
	if snap.Vitality.Current != 71 {
		t.Errorf("expected 71, got %d", snap.Vitality.Current)
	}
	if snap.PlayTime != 18*time.Second {
		t.Errorf("expected 18s play time, got %s", snap.PlayTime)
	}
}

func TestSessionEndsOnNextAdvance(t *testing.T) {
	e := newEngine(t)
	var ended []models.EndReason
	e.OnSessionEnded(func(r models.EndReason) { ended = append(ended, r) })

	e.Apply(SetVitality{Value: 0})
	if e.Ended() {
		t.Fatalf("session must end on the next tick, not inside the action")
	}
	e.Advance(time.Millisecond)
	if e.EndReason() != models.VitalityZero || len(ended) != 1 {
		t.Fatalf("expected VitalityZero, got %s (%v)", e.EndReason(), ended)
	}
	if err := e.Apply(SetVitality{Value: 50}); !errors.Is(err, state.ErrSessionEnded) {
		t.Errorf("expected ErrSessionEnded, got %v", err)
	}
	if e.DecayRunning() {
		t.Errorf("expected decay stopped")
	}
}

// Scenario: a terminal session is reset to a fresh one.
func TestResetAfterEnd(t *testing.T) {
	e := newEngine(t)
	var resets int
	e.OnReset(func() { resets++ })

	e.Apply(PickupItem{ID: "necklace"})
	e.Apply(SurrenderItem{ID: "necklace"})
	e.Apply(GiveUp{})
	if e.EndReason() != models.PlayerGaveUp {
		t.Fatalf("expected PlayerGaveUp, got %s", e.EndReason())
	}
	if err := e.Apply(GiveUp{}); err != nil {
		t.Errorf("second give up: %v", err)
	}

	if err := e.Apply(ResetSession{}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	snap := e.Snapshot()
	if snap.Vitality != (models.Vitality{Current: 59, Max: 100}) {
		t.Errorf("expected 59/100, got %+v", snap.Vitality)
	}
	for id, c := range snap.Custody {
		if c != models.AtHome {
			t.Errorf("%s: expected at_home, got %s", id, c)
		}
	}
	if snap.EndReason != models.None || len(snap.Collected) != 0 {
		t.Errorf("expected a fresh session, got %+v", snap)
	}
	if !e.DecayRunning() {
		t.Errorf("expected decay restarted")
	}
	if resets != 1 {
		t.Errorf("expected one reset notification, got %d", resets)
	}

	// The restarted session decays once something is surrendered again.
	e.SetContext("Home")
	e.Apply(PickupItem{ID: "lamp"})
	e.Apply(SurrenderItem{ID: "lamp"})
	e.Advance(6 * time.Second)
	if got := e.Snapshot().Vitality.Current; got != 61 {
		t.Errorf("expected 59+10-8 = 61, got %d", got)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	e := newEngine(t)
	e.Apply(PickupItem{ID: "necklace"})
	e.Apply(SurrenderItem{ID: "necklace"})
	e.Apply(PickupItem{ID: "lamp"})
	saved := e.Snapshot()

	other := newEngine(t)
	if err := other.Load(saved); err != nil {
		t.Fatalf("load: %v", err)
	}
	got := other.Snapshot()
	if got.Vitality != saved.Vitality || got.Custody["lamp"] != models.Selected {
		t.Errorf("snapshot mismatch: %+v vs %+v", got, saved)
	}
	if !other.DecayRunning() {
		t.Errorf("expected decay running for a live session")
	}

	saved.EndReason = models.AllItemsSolved
	if err := other.Load(saved); err != nil {
		t.Fatalf("load ended: %v", err)
	}
	if other.DecayRunning() {
		t.Errorf("expected decay stopped for an ended session")
	}

	bad := e.Snapshot()
	bad.Vitality.Current = 500
	if err := other.Load(bad); !errors.Is(err, state.ErrInvalidSnapshot) {
		t.Errorf("expected ErrInvalidSnapshot, got %v", err)
	}
}
