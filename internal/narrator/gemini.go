package narrator

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/tatianab/keepsake/internal/catalog"
	"github.com/tatianab/keepsake/internal/models"
)

//go:embed prompts/epilogue.txt
var epiloguePrompt string

var epilogueTemplate = template.Must(template.New("epilogue").Parse(epiloguePrompt))

const DefaultModel = "gemini-2.5-flash"

// Gemini writes epilogues with a Gemini model.
type Gemini struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	registry *catalog.Registry
}

func NewGemini(ctx context.Context, apiKey, model string, reg *catalog.Registry) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{
		client:   client,
		model:    client.GenerativeModel(model),
		registry: reg,
	}, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func (g *Gemini) Epilogue(ctx context.Context, snap models.Snapshot) (string, error) {
	prompt, err := renderPrompt(g.registry, snap)
	if err != nil {
		return "", err
	}
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content returned from Gemini")
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response type from Gemini")
	}
	return strings.TrimSpace(string(text)), nil
}

func renderPrompt(reg *catalog.Registry, snap models.Snapshot) (string, error) {
	var buf bytes.Buffer
	if err := epilogueTemplate.Execute(&buf, newPromptData(reg, snap)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
