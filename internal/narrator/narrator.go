// Package narrator writes the closing text shown when a session ends.
package narrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tatianab/keepsake/internal/catalog"
	"github.com/tatianab/keepsake/internal/ending"
	"github.com/tatianab/keepsake/internal/models"
)

type Narrator interface {
	Epilogue(ctx context.Context, snap models.Snapshot) (string, error)
}

// Static narrates from fixed text and never fails.
type Static struct {
	registry *catalog.Registry
}

func NewStatic(reg *catalog.Registry) *Static {
	return &Static{registry: reg}
}

func (s *Static) Epilogue(_ context.Context, snap models.Snapshot) (string, error) {
	kept, surrendered := split(s.registry, snap)
	var b strings.Builder
	b.WriteString(ending.Describe(snap.EndReason))
	switch {
	case len(surrendered) == 0:
		b.WriteString(" You never parted with a single keepsake.")
	case len(kept) == 0:
		b.WriteString(" Nothing is left at home.")
	default:
		fmt.Fprintf(&b, " You still have the %s.", strings.Join(kept, ", "))
	}
	return b.String(), nil
}

// Tell asks n for an epilogue and falls back to fallback on error.
func Tell(ctx context.Context, n Narrator, fallback *Static, snap models.Snapshot) string {
	if n != nil {
		if text, err := n.Epilogue(ctx, snap); err == nil && text != "" {
			return text
		}
	}
	text, _ := fallback.Epilogue(ctx, snap)
	return text
}

// split returns display names of keepsakes still owned and of those
// surrendered, in catalog order.
func split(reg *catalog.Registry, snap models.Snapshot) (kept, surrendered []string) {
	for _, it := range reg.Items() {
		state, ok := snap.Custody[it.ID]
		if !ok {
			continue
		}
		if state == models.Solved {
			surrendered = append(surrendered, it.Name)
		} else {
			kept = append(kept, it.Name)
		}
	}
	return kept, surrendered
}

type promptData struct {
	Ending      string
	Current     int
	Max         int
	PlayTime    string
	Kept        []string
	Surrendered []string
}

func newPromptData(reg *catalog.Registry, snap models.Snapshot) promptData {
	kept, surrendered := split(reg, snap)
	sort.Strings(kept)
	sort.Strings(surrendered)
	return promptData{
		Ending:      ending.Describe(snap.EndReason),
		Current:     snap.Vitality.Current,
		Max:         snap.Vitality.Max,
		PlayTime:    snap.PlayTime.Round(time.Second).String(),
		Kept:        kept,
		Surrendered: surrendered,
	}
}
