package state

import (
	"fmt"
	"sort"

	"github.com/tatianab/keepsake/internal/custody"
	"github.com/tatianab/keepsake/internal/models"
	"github.com/tatianab/keepsake/internal/vitality"
)

// SyncOut returns a full copy of the session state.
func (s *Store) SyncOut() models.Snapshot {
	return models.Snapshot{
		Vitality:  s.vitality.Snapshot(),
		Stage:     s.vitality.Stage(),
		Custody:   s.custody.Table(),
		Collected: s.Collected(),
		Flags:     s.Flags(),
		EndReason: s.end,
		PlayTime:  s.playTime,
	}
}

// SyncIn replaces the whole session state with snap. The snapshot is checked
// against the catalog and every invariant first; if any check fails the store
// is left untouched. The Stage field is derived and ignored.
func (s *Store) SyncIn(snap models.Snapshot) error {
	if err := s.validate(snap); err != nil {
		return err
	}

	before := s.custody.Table()
	oldVitality := s.vitality.Current()

	if err := s.custody.Restore(snap.Custody); err != nil {
		// validate already ran the same checks
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	s.vitality = vitality.New(snap.Vitality.Current, snap.Vitality.Max)
	s.collected = make(map[string]struct{}, len(snap.Collected))
	for _, id := range snap.Collected {
		s.collected[id] = struct{}{}
	}
	s.flags = make(map[string]bool, len(snap.Flags))
	for k, v := range snap.Flags {
		s.flags[k] = v
	}
	s.end = snap.EndReason
	s.playTime = snap.PlayTime

	s.logger.Printf("[state] snapshot loaded: vitality %d/%d, %d/%d solved, end=%s",
		snap.Vitality.Current, snap.Vitality.Max, s.custody.SolvedCount(), s.custody.Len(), s.end)

	ids := s.custody.IDs()
	sort.Strings(ids)
	for _, id := range ids {
		if after := snap.Custody[id]; after != before[id] {
			s.notifyCustody(custody.Transition{ItemID: id, From: before[id], To: after})
		}
	}
	s.notifyVitality(vitality.Change{Old: oldVitality, New: s.vitality.Current()})
	return nil
}

func (s *Store) validate(snap models.Snapshot) error {
	v := snap.Vitality
	if v.Max <= 0 {
		return fmt.Errorf("%w: max vitality %d", ErrInvalidSnapshot, v.Max)
	}
	if v.Current < 0 || v.Current > v.Max {
		return fmt.Errorf("%w: vitality %d outside [0, %d]", ErrInvalidSnapshot, v.Current, v.Max)
	}
	if err := s.custody.Validate(snap.Custody); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	seen := make(map[string]bool, len(snap.Collected))
	for _, id := range snap.Collected {
		if !s.registry.Has(id) {
			return fmt.Errorf("%w: collected unknown item %q", ErrInvalidSnapshot, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: collected item %q listed twice", ErrInvalidSnapshot, id)
		}
		seen[id] = true
	}
	switch snap.EndReason {
	case models.None, models.VitalityZero, models.AllItemsSolved, models.PlayerGaveUp:
	default:
		return fmt.Errorf("%w: end reason %s", ErrInvalidSnapshot, snap.EndReason)
	}
	if snap.PlayTime < 0 {
		return fmt.Errorf("%w: negative play time", ErrInvalidSnapshot)
	}
	return nil
}
