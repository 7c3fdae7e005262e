package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lox/wordwolf/cmd/wordwolf/shared"
	"github.com/lox/wordwolf/internal/tui"
	"github.com/muesli/termenv"
)

type PlayCmd struct {
	Offline bool   `kong:"help='Play against canned bots without calling a model'"`
	NoColor bool   `kong:"name='no-color',env='NO_COLOR',help='Disable colours'"`
	LogFile string `kong:"type='path',help='Write game logs to this file'"`
	Seed    int64  `kong:"help='Override the random seed from the config'"`
}

func (c *PlayCmd) Run(g *Globals) error {
	logger := shared.SetupLogger(g.Debug)

	cfg, err := shared.LoadConfig(g.Config)
	if err != nil {
		return err
	}
	if c.Seed != 0 {
		cfg.Game.Seed = c.Seed
	}

	if c.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	// The terminal belongs to the TUI, so game logs go to a file or nowhere
	var out io.Writer = io.Discard
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	gameLogger := shared.SetupGameLogger(out, g.Debug)

	model, err := shared.NewModel(cfg, c.Offline, cfg.Game.Seed)
	if err != nil {
		return err
	}
	factory, err := shared.NewFactory(cfg, model, gameLogger)
	if err != nil {
		return err
	}
	s, err := factory.New()
	if err != nil {
		return err
	}

	ctx, cancel := shared.SignalContext(logger)
	defer cancel()

	program := tea.NewProgram(tui.NewModel(ctx, s, gameLogger), tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		program.Quit()
	}()

	_, err = program.Run()
	return err
}
