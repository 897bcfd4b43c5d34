package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/tatianab/keepsake/internal/catalog"
	"github.com/tatianab/keepsake/internal/decay"
	"github.com/tatianab/keepsake/internal/engine"
	"github.com/tatianab/keepsake/internal/state"
)

var ErrInvalid = errors.New("config: invalid")

// Config holds the application configuration.
type Config struct {
	GeminiAPIKey string
	GeminiModel  string

	SaveBackend string
	SaveDir     string
	SQLitePath  string

	CatalogPath  string
	SettingsPath string
	LogFile      string
	TickRate     time.Duration

	Game Game
}

// Game holds the session tuning. Values come from the defaults, then the
// settings file, then the environment.
type Game struct {
	StartVitality int           `yaml:"start_vitality" env:"KEEPSAKE_START_VITALITY"`
	MaxVitality   int           `yaml:"max_vitality" env:"KEEPSAKE_MAX_VITALITY"`
	DecayEnabled  bool          `yaml:"decay_enabled" env:"KEEPSAKE_DECAY_ENABLED"`
	DecayInterval time.Duration `yaml:"decay_interval" env:"KEEPSAKE_DECAY_INTERVAL"`
	DecayAmount   int           `yaml:"decay_amount" env:"KEEPSAKE_DECAY_AMOUNT"`
	SafeContexts  []string      `yaml:"safe_contexts" env:"KEEPSAKE_SAFE_CONTEXTS" envSeparator:","`
	Contexts      []string      `yaml:"contexts" env:"KEEPSAKE_CONTEXTS" envSeparator:","`
	HomeContext   string        `yaml:"home_context" env:"KEEPSAKE_HOME_CONTEXT"`
	StartContext  string        `yaml:"start_context" env:"KEEPSAKE_START_CONTEXT"`
}

// processEnv holds raw env values for the process-level settings.
type processEnv struct {
	GeminiAPIKey string        `env:"GEMINI_API_KEY"`
	GeminiModel  string        `env:"KEEPSAKE_GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	SaveBackend  string        `env:"KEEPSAKE_SAVE_BACKEND" envDefault:"yaml"`
	SaveDir      string        `env:"KEEPSAKE_SAVE_DIR" envDefault:".saves"`
	SQLitePath   string        `env:"KEEPSAKE_SQLITE_PATH" envDefault:".saves/keepsake.db"`
	CatalogPath  string        `env:"KEEPSAKE_CATALOG"`
	SettingsPath string        `env:"KEEPSAKE_SETTINGS"`
	LogFile      string        `env:"KEEPSAKE_LOG_FILE"`
	TickRate     time.Duration `env:"KEEPSAKE_TICK" envDefault:"100ms"`
}

func DefaultGame() Game {
	return Game{
		StartVitality: state.DefaultVitality,
		MaxVitality:   state.DefaultMaxVitality,
		DecayEnabled:  true,
		DecayInterval: decay.DefaultInterval,
		DecayAmount:   decay.DefaultAmount,
		SafeContexts:  append([]string(nil), decay.DefaultSafeContexts...),
		Contexts:      append([]string(nil), state.DefaultContexts...),
		HomeContext:   "Home",
		StartContext:  "MainMenu",
	}
}

// LoadConfig loads the configuration from environment variables and the
// optional settings file named by KEEPSAKE_SETTINGS.
func LoadConfig() (*Config, error) {
	var raw processEnv
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	game := DefaultGame()
	if raw.SettingsPath != "" {
		data, err := os.ReadFile(raw.SettingsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read settings file: %w", err)
		}
		if err := yaml.Unmarshal(data, &game); err != nil {
			return nil, fmt.Errorf("failed to parse settings file: %w", err)
		}
	}
	if err := env.Parse(&game); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg := &Config{
		GeminiAPIKey: raw.GeminiAPIKey,
		GeminiModel:  raw.GeminiModel,
		SaveBackend:  strings.ToLower(raw.SaveBackend),
		SaveDir:      raw.SaveDir,
		SQLitePath:   raw.SQLitePath,
		CatalogPath:  raw.CatalogPath,
		SettingsPath: raw.SettingsPath,
		LogFile:      raw.LogFile,
		TickRate:     raw.TickRate,
		Game:         game,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	g := c.Game
	switch {
	case g.MaxVitality <= 0:
		return fmt.Errorf("%w: max vitality must be positive, got %d", ErrInvalid, g.MaxVitality)
	case g.StartVitality < 0 || g.StartVitality > g.MaxVitality:
		return fmt.Errorf("%w: start vitality %d outside [0, %d]", ErrInvalid, g.StartVitality, g.MaxVitality)
	case g.DecayInterval <= 0:
		return fmt.Errorf("%w: decay interval must be positive, got %s", ErrInvalid, g.DecayInterval)
	case g.DecayAmount < 0:
		return fmt.Errorf("%w: decay amount must not be negative, got %d", ErrInvalid, g.DecayAmount)
	case c.TickRate <= 0:
		return fmt.Errorf("%w: tick must be positive, got %s", ErrInvalid, c.TickRate)
	}
	switch c.SaveBackend {
	case "yaml", "sqlite":
	default:
		return fmt.Errorf("%w: save backend %q", ErrInvalid, c.SaveBackend)
	}
	return nil
}

// HasGemini reports whether an API key is configured.
func (c *Config) HasGemini() bool { return c.GeminiAPIKey != "" }

// SavePath is the location handed to the selected save backend.
func (c *Config) SavePath() string {
	if c.SaveBackend == "sqlite" {
		return c.SQLitePath
	}
	return c.SaveDir
}

// Catalog loads the configured catalog, or the built-in one.
func (c *Config) Catalog() (*catalog.Registry, error) {
	if c.CatalogPath == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(c.CatalogPath)
}

func (c *Config) Engine() engine.Config {
	g := c.Game
	return engine.Config{
		StartVitality: g.StartVitality,
		MaxVitality:   g.MaxVitality,
		Contexts:      g.Contexts,
		HomeContext:   g.HomeContext,
		StartContext:  g.StartContext,
		Decay: decay.Config{
			Enabled:      g.DecayEnabled,
			Interval:     g.DecayInterval,
			Amount:       g.DecayAmount,
			SafeContexts: g.SafeContexts,
		},
	}
}
