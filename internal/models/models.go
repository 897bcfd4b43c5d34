package models

import (
	"fmt"
	"time"
)

// Vitality is the player's single numeric resource.
type Vitality struct {
	Current int `yaml:"current" json:"current"`
	Max     int `yaml:"max" json:"max"`
}

// Ratio returns Current/Max, or 0 when Max is not positive.
func (v Vitality) Ratio() float64 {
	if v.Max <= 0 {
		return 0
	}
	return float64(v.Current) / float64(v.Max)
}

// Stage is the ordinal health classification derived from the vitality ratio.
type Stage int

const (
	Stage1 Stage = iota + 1 // healthy
	Stage2
	Stage3
)

func (s Stage) String() string {
	switch s {
	case Stage1:
		return "stage1"
	case Stage2:
		return "stage2"
	case Stage3:
		return "stage3"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// ItemDescriptor is an immutable catalog entry.
type ItemDescriptor struct {
	ID           string `yaml:"id" json:"id"`
	Name         string `yaml:"name" json:"name"`                 // display name, defaults to ID
	RestoreValue int    `yaml:"restore_value" json:"restore_value"` // vitality restored on surrender
}

// CustodyState is the lifecycle stage of a keepsake.
type CustodyState int

const (
	AtHome CustodyState = iota
	Selected
	Solved
)

var custodyNames = map[CustodyState]string{
	AtHome:   "at_home",
	Selected: "selected",
	Solved:   "solved",
}

func (c CustodyState) String() string {
	if n, ok := custodyNames[c]; ok {
		return n
	}
	return fmt.Sprintf("custody(%d)", int(c))
}

func (c CustodyState) MarshalText() ([]byte, error) {
	n, ok := custodyNames[c]
	if !ok {
		return nil, fmt.Errorf("invalid custody state %d", int(c))
	}
	return []byte(n), nil
}

func (c *CustodyState) UnmarshalText(b []byte) error {
	for k, n := range custodyNames {
		if n == string(b) {
			*c = k
			return nil
		}
	}
	return fmt.Errorf("invalid custody state %q", string(b))
}

// EndReason records why a session ended. None means the session is live.
type EndReason int

const (
	None EndReason = iota
	VitalityZero
	AllItemsSolved
	PlayerGaveUp
)

var endReasonNames = map[EndReason]string{
	None:           "none",
	VitalityZero:   "vitality_zero",
	AllItemsSolved: "all_items_solved",
	PlayerGaveUp:   "player_gave_up",
}

func (r EndReason) String() string {
	if n, ok := endReasonNames[r]; ok {
		return n
	}
	return fmt.Sprintf("end_reason(%d)", int(r))
}

func (r EndReason) MarshalText() ([]byte, error) {
	n, ok := endReasonNames[r]
	if !ok {
		return nil, fmt.Errorf("invalid end reason %d", int(r))
	}
	return []byte(n), nil
}

func (r *EndReason) UnmarshalText(b []byte) error {
	for k, n := range endReasonNames {
		if n == string(b) {
			*r = k
			return nil
		}
	}
	return fmt.Errorf("invalid end reason %q", string(b))
}

// Snapshot is the read-only projection of the whole session, also used as the
// save format.
type Snapshot struct {
	Vitality  Vitality                `yaml:"vitality" json:"vitality"`
	Stage     Stage                   `yaml:"stage" json:"stage"`
	Custody   map[string]CustodyState `yaml:"custody" json:"custody"`
	Collected []string                `yaml:"collected" json:"collected"` // sorted
	Flags     map[string]bool         `yaml:"flags" json:"flags"`
	EndReason EndReason               `yaml:"end_reason" json:"end_reason"`
	PlayTime  time.Duration           `yaml:"play_time" json:"play_time"`
}

// Ended reports whether the snapshot was taken after the session ended.
func (s Snapshot) Ended() bool {
	return s.EndReason != None
}

// SelectedItem returns the id of the keepsake currently carried, if any.
func (s Snapshot) SelectedItem() (string, bool) {
	for id, c := range s.Custody {
		if c == Selected {
			return id, true
		}
	}
	return "", false
}
