package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/tatianab/keepsake/internal/catalog"
	"github.com/tatianab/keepsake/internal/config"
	"github.com/tatianab/keepsake/internal/engine"
	"github.com/tatianab/keepsake/internal/models"
	"github.com/tatianab/keepsake/internal/narrator"
	"github.com/tatianab/keepsake/internal/savestore"
	"github.com/tatianab/keepsake/internal/state"
)

const (
	maxTurns    = 60
	turnElapsed = 3 * time.Second
)

type player interface {
	next(ctx context.Context, snap models.Snapshot, where string) string
}

func main() {
	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	reg, err := cfg.Catalog()
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	logger := log.New(os.Stderr, "", 0)
	eng := engine.Build(reg, cfg.Engine(), logger)
	eng.OnSessionEnded(func(r models.EndReason) {
		fmt.Printf("Game Ended: %s\n", r)
	})
	eng.Begin()

	var p player = &scripted{ids: reg.IDs()}
	var n narrator.Narrator
	if cfg.HasGemini() {
		client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
		if err != nil {
			log.Fatalf("Failed to create player client: %v", err)
		}
		defer client.Close()
		p = &llmPlayer{model: client.GenerativeModel(cfg.GeminiModel), registry: reg, fallback: p}

		g, err := narrator.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, reg)
		if err != nil {
			log.Fatalf("Failed to create narrator: %v", err)
		}
		defer g.Close()
		n = g
	}

	for turn := 1; turn <= maxTurns && !eng.Ended(); turn++ {
		fmt.Printf("--- Turn %d ---\n", turn)
		cmd := p.next(ctx, eng.Snapshot(), eng.Context())
		fmt.Printf("Player Action: %s\n", cmd)

		if err := apply(eng, cmd); err != nil {
			fmt.Printf("Rejected: %v\n", err)
		}
		for _, r := range eng.Advance(turnElapsed) {
			fmt.Printf("Decay: %s (%d -> %d)\n", r.Outcome, r.Old, r.New)
		}

		snap := eng.Snapshot()
		fmt.Printf("Where=%s Vitality=%d/%d Stage=%s Custody=%v\n\n",
			eng.Context(), snap.Vitality.Current, snap.Vitality.Max, snap.Stage, snap.Custody)
	}

	snap := eng.Snapshot()
	fmt.Println(narrator.Tell(ctx, n, narrator.NewStatic(reg), snap))

	saves, err := savestore.Open(cfg.SaveBackend, cfg.SavePath())
	if err != nil {
		log.Fatalf("Failed to open saves: %v", err)
	}
	defer saves.Close()
	if err := saves.Save(ctx, "simulation", snap); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
}

func apply(eng *engine.Engine, cmd string) error {
	if where, ok := strings.CutPrefix(strings.ToLower(cmd), "go "); ok {
		where = strings.TrimSpace(where)
		for _, c := range state.DefaultContexts {
			if strings.EqualFold(c, where) {
				where = c
			}
		}
		return eng.SetContext(where)
	}
	a, err := engine.ParseAction(cmd)
	if err != nil {
		return err
	}
	return eng.Apply(a)
}

// scripted fetches each keepsake from home and pawns it at the shop.
type scripted struct {
	ids []string
}

func (s *scripted) next(_ context.Context, snap models.Snapshot, where string) string {
	if id, ok := snap.SelectedItem(); ok {
		if where != "Shop" {
			return "go Shop"
		}
		return "surrender " + id
	}
	for _, id := range s.ids {
		if snap.Custody[id] != models.AtHome {
			continue
		}
		if where != "Home" {
			return "go Home"
		}
		return "pickup " + id
	}
	return "giveup"
}

type llmPlayer struct {
	model    *genai.GenerativeModel
	registry *catalog.Registry
	fallback player
}

func (l *llmPlayer) next(ctx context.Context, snap models.Snapshot, where string) string {
	var items []string
	for _, it := range l.registry.Items() {
		items = append(items, fmt.Sprintf("%s (%s, restores %d)", it.ID, snap.Custody[it.ID], it.RestoreValue))
	}

	prompt := fmt.Sprintf(`You are playing a short game about a person running out of time.
Vitality drains while you are at Home once a keepsake has been pawned. Pawning a keepsake at the Shop restores vitality, but it is gone forever.
You are in: %s
Vitality: %d of %d
Keepsakes: %s

Available commands: go Home, go Shop, go Gallery, pickup <id> (only at Home), surrender <id> (only at the Shop, item must be carried), giveup.
What is your next command? Return ONLY the command.`,
		where, snap.Vitality.Current, snap.Vitality.Max, strings.Join(items, "; "))

	resp, err := l.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return l.fallback.next(ctx, snap, where)
	}
	return strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]))
}
