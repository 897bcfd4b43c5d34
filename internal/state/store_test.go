package state

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/tatianab/keepsake/internal/catalog"
	"github.com/tatianab/keepsake/internal/custody"
	"github.com/tatianab/keepsake/internal/models"
	"github.com/tatianab/keepsake/internal/vitality"
)

func testRegistry(t *testing.T) *catalog.Registry {
	t.Helper()
	reg, err := catalog.New(
		models.ItemDescriptor{ID: "necklace", RestoreValue: 20},
		models.ItemDescriptor{ID: "lamp", RestoreValue: 10},
		models.ItemDescriptor{ID: "diary", RestoreValue: 5},
	)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return reg
}

func TestPickupSecondItemFails(t *testing.T) {
	s := New(testRegistry(t), WithDefaults(100, 100))
	if err := s.Pickup("necklace"); err != nil {
		t.Fatalf("pickup necklace: %v", err)
	}
	err := s.Pickup("lamp")
	if !errors.Is(err, custody.ErrAnotherSelected) {
		t.Fatalf("expected ErrAnotherSelected, got %v", err)
	}
	if st, _ := s.CustodyState("necklace"); st != models.Selected {
		t.Errorf("expected necklace selected, got %s", st)
	}
	if st, _ := s.CustodyState("lamp"); st != models.AtHome {
		t.Errorf("expected lamp at home, got %s", st)
	}
	if !s.HasCollected("necklace") || s.HasCollected("lamp") {
		t.Errorf("unexpected collected set %v", s.Collected())
	}
	if !s.Flag(CollectedFlag("necklace")) {
		t.Errorf("expected hasCollected flag for necklace")
	}
}

func TestSurrenderRestoresVitality(t *testing.T) {
	s := New(testRegistry(t))
	if got := s.Vitality(); got.Current != 59 || got.Max != 100 {
		t.Fatalf("expected default 59/100, got %+v", got)
	}
	s.Pickup("necklace")
	healed, err := s.Surrender("necklace")
	if err != nil {
		t.Fatalf("surrender: %v", err)
	}
	if healed != 20 || s.Vitality().Current != 79 {
		t.Fatalf("expected 79/100 after +20, got %d (healed %d)", s.Vitality().Current, healed)
	}
	if st, _ := s.CustodyState("necklace"); st != models.Solved {
		t.Errorf("expected necklace solved, got %s", st)
	}
	if !s.AnySolved() || s.AllSolved() {
		t.Errorf("expected one solved of three")
	}
}

func TestSurrenderHugeRestoreValueCapsAtMax(t *testing.T) {
	reg, err := catalog.New(models.ItemDescriptor{ID: "necklace", RestoreValue: math.MaxInt})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	s := New(reg)
	s.Pickup("necklace")
	healed, err := s.Surrender("necklace")
	if err != nil {
		t.Fatalf("surrender: %v", err)
	}
	if healed != 41 || s.Vitality().Current != 100 {
		t.Fatalf("expected healed=41 vitality=100, got %d %+v", healed, s.Vitality())
	}

	d := New(testRegistry(t))
	if _, err := d.Heal(math.MaxInt); err != nil {
		t.Fatalf("heal: %v", err)
	}
	if d.Vitality().Current != 100 {
		t.Errorf("expected 100 after huge heal, got %d", d.Vitality().Current)
	}
}

func TestSurrenderCustodyObserverSeesRestoredVitality(t *testing.T) {
	s := New(testRegistry(t))
	var seen int
	s.OnCustodyChanged(func(id string, old, new models.CustodyState) {
		if new == models.Solved {
			seen = s.Vitality().Current
		}
	})
	s.Pickup("necklace")
	s.Surrender("necklace")
	if seen != 79 {
		t.Errorf("custody observer saw vitality %d, want 79", seen)
	}
}

func TestSetMaxVitality(t *testing.T) {
	s := New(testRegistry(t))
	var vit [][2]int
	s.OnVitalityChanged(func(old, new int) { vit = append(vit, [2]int{old, new}) })

	if err := s.SetMaxVitality(40); err != nil {
		t.Fatalf("set max: %v", err)
	}
	if got := s.Vitality(); got.Current != 40 || got.Max != 40 {
		t.Fatalf("expected 40/40, got %+v", got)
	}
	if err := s.SetMaxVitality(200); err != nil {
		t.Fatalf("set max: %v", err)
	}
	if got := s.Vitality(); got.Current != 40 || got.Max != 200 {
		t.Fatalf("expected 40/200, got %+v", got)
	}
	if err := s.SetMaxVitality(0); !errors.Is(err, vitality.ErrInvalidMax) {
		t.Errorf("expected ErrInvalidMax, got %v", err)
	}
	if want := [][2]int{{59, 40}}; !reflect.DeepEqual(vit, want) {
		t.Errorf("vitality events = %v, want %v", vit, want)
	}

	s.End(models.PlayerGaveUp)
	if err := s.SetMaxVitality(80); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("expected ErrSessionEnded, got %v", err)
	}
	if s.Vitality().Max != 200 {
		t.Errorf("max changed after end: %d", s.Vitality().Max)
	}
}

func TestSurrenderRequiresSelection(t *testing.T) {
	s := New(testRegistry(t))
	if _, err := s.Surrender("lamp"); !errors.Is(err, custody.ErrNotSelected) {
		t.Fatalf("expected ErrNotSelected, got %v", err)
	}
	if s.Vitality().Current != 59 {
		t.Errorf("failed surrender must not heal")
	}
}

func TestObserversFireAtMutation(t *testing.T) {
	s := New(testRegistry(t))
	var vit [][2]int
	var cus []string
	s.OnVitalityChanged(func(old, new int) { vit = append(vit, [2]int{old, new}) })
	s.OnCustodyChanged(func(id string, old, new models.CustodyState) {
		cus = append(cus, id+":"+old.String()+">"+new.String())
	})

	s.Pickup("lamp")
	s.Surrender("lamp")
	s.SetVitality(59 + 10) // no change, no event
	s.Decay(9)

	wantCus := []string{"lamp:at_home>selected", "lamp:selected>solved"}
	if !reflect.DeepEqual(cus, wantCus) {
		t.Errorf("custody events = %v, want %v", cus, wantCus)
	}
	wantVit := [][2]int{{59, 69}, {69, 60}}
	if !reflect.DeepEqual(vit, wantVit) {
		t.Errorf("vitality events = %v, want %v", vit, wantVit)
	}
}

func TestTerminalRejectsMutation(t *testing.T) {
	s := New(testRegistry(t))
	s.Pickup("diary")
	if !s.End(models.VitalityZero) {
		t.Fatalf("expected first End to win")
	}
	if s.End(models.PlayerGaveUp) {
		t.Fatalf("second End must be a no-op")
	}
	if s.EndReason() != models.VitalityZero {
		t.Fatalf("expected VitalityZero, got %s", s.EndReason())
	}

	if _, err := s.SetVitality(50); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("SetVitality: expected ErrSessionEnded, got %v", err)
	}
	if _, err := s.Surrender("diary"); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("Surrender: expected ErrSessionEnded, got %v", err)
	}
	if err := s.SetFlag("x", true); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("SetFlag: expected ErrSessionEnded, got %v", err)
	}
	s.AddPlayTime(time.Minute)
	if s.PlayTime() != 0 {
		t.Errorf("play time must not advance after the end")
	}
	if s.Vitality().Current != 59 {
		t.Errorf("vitality changed after end: %d", s.Vitality().Current)
	}
}

func TestResetSession(t *testing.T) {
	s := New(testRegistry(t))
	resets := 0
	s.OnReset(func() { resets++ })
	s.Pickup("necklace")
	s.Surrender("necklace")
	s.Pickup("lamp")
	s.SetFlag(VisitedFlag("Shop"), true)
	s.AddPlayTime(time.Second)
	s.End(models.PlayerGaveUp)

	s.ResetSession()

	if got := s.Vitality(); got.Current != 59 || got.Max != 100 {
		t.Errorf("expected 59/100, got %+v", got)
	}
	for id, st := range s.CustodyTable() {
		if st != models.AtHome {
			t.Errorf("%s: expected at home, got %s", id, st)
		}
	}
	if s.Ended() || len(s.Collected()) != 0 || s.PlayTime() != 0 {
		t.Errorf("expected cleared session")
	}
	if s.Flag(VisitedFlag("Shop")) {
		t.Errorf("expected flags reset")
	}
	if _, ok := s.Flags()[CollectedFlag("diary")]; !ok {
		t.Errorf("expected default collected flags after reset")
	}
	if resets != 1 {
		t.Errorf("expected one reset notification, got %d", resets)
	}
	if err := s.Pickup("lamp"); err != nil {
		t.Errorf("pickup after reset: %v", err)
	}
}

func TestAddCollectedItem(t *testing.T) {
	s := New(testRegistry(t))
	for i := 0; i < 2; i++ {
		if err := s.AddCollectedItem("lamp"); err != nil {
			t.Fatalf("collect: %v", err)
		}
	}
	if got := s.Collected(); len(got) != 1 || got[0] != "lamp" {
		t.Errorf("expected [lamp], got %v", got)
	}
	if err := s.AddCollectedItem("teapot"); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("expected ErrUnknownItem, got %v", err)
	}
}

func TestSyncRoundTrip(t *testing.T) {
	s := New(testRegistry(t))
	s.Pickup("necklace")
	s.Surrender("necklace")
	s.Pickup("lamp")
	s.AddPlayTime(42 * time.Second)
	snap := s.SyncOut()

	other := New(testRegistry(t))
	var events int
	other.OnCustodyChanged(func(string, models.CustodyState, models.CustodyState) { events++ })
	if err := other.SyncIn(snap); err != nil {
		t.Fatalf("sync in: %v", err)
	}
	if !reflect.DeepEqual(other.SyncOut(), snap) {
		t.Errorf("snapshot mismatch:\n got %+v\nwant %+v", other.SyncOut(), snap)
	}
	if id, _ := other.SelectedItem(); id != "lamp" {
		t.Errorf("expected lamp selected after sync, got %q", id)
	}
	if events != 2 {
		t.Errorf("expected 2 custody events, got %d", events)
	}
}

func TestSyncInRejectsWholeSnapshot(t *testing.T) {
	s := New(testRegistry(t))
	s.Pickup("necklace")
	before := s.SyncOut()

	valid := func() models.Snapshot {
		return models.Snapshot{
			Vitality:  models.Vitality{Current: 10, Max: 100},
			Custody:   map[string]models.CustodyState{"necklace": models.AtHome, "lamp": models.AtHome, "diary": models.Solved},
			Collected: []string{"diary"},
			Flags:     map[string]bool{},
		}
	}
	cases := map[string]func(*models.Snapshot){
		"zero max":        func(sn *models.Snapshot) { sn.Vitality.Max = 0 },
		"over max":        func(sn *models.Snapshot) { sn.Vitality.Current = 101 },
		"two selected":    func(sn *models.Snapshot) { sn.Custody["necklace"], sn.Custody["lamp"] = models.Selected, models.Selected },
		"missing item":    func(sn *models.Snapshot) { delete(sn.Custody, "lamp") },
		"unknown collect": func(sn *models.Snapshot) { sn.Collected = append(sn.Collected, "teapot") },
		"bad reason":      func(sn *models.Snapshot) { sn.EndReason = models.EndReason(17) },
		"negative time":   func(sn *models.Snapshot) { sn.PlayTime = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			snap := valid()
			mutate(&snap)
			if err := s.SyncIn(snap); !errors.Is(err, ErrInvalidSnapshot) {
				t.Fatalf("expected ErrInvalidSnapshot, got %v", err)
			}
			if !reflect.DeepEqual(s.SyncOut(), before) {
				t.Fatalf("rejected snapshot was partially applied")
			}
		})
	}
	if err := s.SyncIn(valid()); err != nil {
		t.Fatalf("valid snapshot rejected: %v", err)
	}
}

func TestSyncInRestoresEndedSession(t *testing.T) {
	s := New(testRegistry(t))
	snap := s.SyncOut()
	snap.EndReason = models.PlayerGaveUp
	if err := s.SyncIn(snap); err != nil {
		t.Fatalf("sync in: %v", err)
	}
	if _, err := s.SetVitality(80); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("expected loaded terminal session to reject mutation, got %v", err)
	}
}
