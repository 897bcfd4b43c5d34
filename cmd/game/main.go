package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/tatianab/keepsake/internal/config"
	"github.com/tatianab/keepsake/internal/engine"
	"github.com/tatianab/keepsake/internal/narrator"
	"github.com/tatianab/keepsake/internal/savestore"
	"github.com/tatianab/keepsake/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, closeLog, err := openLog(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	reg, err := cfg.Catalog()
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	saves, err := savestore.Open(cfg.SaveBackend, cfg.SavePath())
	if err != nil {
		return fmt.Errorf("opening saves: %w", err)
	}
	defer saves.Close()

	opts := tui.Options{Registry: reg, Saves: saves, StartContext: cfg.Game.StartContext}
	if cfg.HasGemini() {
		g, err := narrator.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, reg)
		if err != nil {
			logger.Printf("[game] narrator disabled: %v", err)
		} else {
			defer g.Close()
			opts.Narrator = g
		}
	}

	eng := engine.Build(reg, cfg.Engine(), logger)
	loop := engine.NewLoop(eng, cfg.TickRate)
	p := tui.NewProgram(loop, eng, opts)
	eng.Begin()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})
	g.Go(func() error {
		defer loop.Stop()
		_, err := p.Run()
		return err
	})
	return g.Wait()
}

func openLog(path string) (*log.Logger, func(), error) {
	if path == "" {
		return log.New(io.Discard, "", 0), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return log.New(f, "", log.LstdFlags), func() { f.Close() }, nil
}
