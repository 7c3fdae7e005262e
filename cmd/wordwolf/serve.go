package main

import (
	"context"
	"os"
	"time"

	"github.com/lox/wordwolf/cmd/wordwolf/shared"
	"github.com/lox/wordwolf/internal/server"
)

type ServeCmd struct {
	Addr    string `kong:"help='Listen address; overrides the server block of the config'"`
	Offline bool   `kong:"help='Serve canned bots without calling a model'"`
	JSON    bool   `kong:"name='json',help='Log as JSON'"`
}

func (c *ServeCmd) Run(g *Globals) error {
	logger := shared.SetupLogger(g.Debug)
	if c.JSON {
		logger = shared.SetupStructuredLogger(g.Debug)
	}

	cfg, err := shared.LoadConfig(g.Config)
	if err != nil {
		return err
	}
	addr := cfg.ServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	gameLogger := shared.SetupGameLogger(os.Stderr, g.Debug)

	model, err := shared.NewModel(cfg, c.Offline, cfg.Game.Seed)
	if err != nil {
		return err
	}
	factory, err := shared.NewFactory(cfg, model, gameLogger)
	if err != nil {
		return err
	}

	srv := server.NewServer(addr, factory, logger)

	logger.Info().
		Str("address", addr).
		Str("model", cfg.Model.Name).
		Bool("offline", c.Offline).
		Int("bots", len(cfg.Bots)).
		Int("turns_per_player", cfg.Game.TurnsPerPlayer).
		Int("max_retries", cfg.Retry.MaxRetries).
		Msg("Starting Word Wolf server")

	ctx, cancel := shared.SignalContext(logger)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
		return err
	}
	logger.Info().Msg("Server stopped")
	return nil
}
