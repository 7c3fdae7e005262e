package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/lox/wordwolf/cmd/wordwolf/shared"
	"github.com/lox/wordwolf/internal/brain"
	"github.com/lox/wordwolf/internal/eval"
)

type EvalCmd struct {
	Cases   string        `kong:"arg,type='existingfile',help='YAML file of recorded conversations'"`
	Offline bool          `kong:"help='Score the canned bots instead of the model'"`
	Stagger time.Duration `kong:"default='1s',help='Delay between starting cases'"`
	Output  string        `kong:"short='o',type='path',help='Also write the report as JSON to this file'"`
}

func (c *EvalCmd) Run(g *Globals) error {
	logger := shared.SetupLogger(g.Debug)

	cfg, err := shared.LoadConfig(g.Config)
	if err != nil {
		return err
	}
	cases, err := eval.Load(c.Cases)
	if err != nil {
		return err
	}

	gameLogger := shared.SetupGameLogger(os.Stderr, g.Debug)
	model, err := shared.NewModel(cfg, c.Offline, cfg.Game.Seed)
	if err != nil {
		return err
	}
	policy, err := shared.NewPolicy(cfg, gameLogger)
	if err != nil {
		return err
	}

	ctx, cancel := shared.SignalContext(logger)
	defer cancel()

	runner := &eval.Runner{
		Brain:   brain.New(model, gameLogger),
		Policy:  policy,
		Stagger: c.Stagger,
		Logger:  gameLogger,
	}

	logger.Info().Int("cases", len(cases)).Str("file", c.Cases).Msg("Running eval")
	report, err := runner.Run(ctx, cases)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CASE\tGUESS\tSCORE")
	for _, res := range report.Results {
		guess := res.Guess
		if res.Err != nil {
			guess = "error: " + res.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%.1f\n", res.Description, guess, res.Score)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	lo, hi := report.Stats.ConfidenceInterval95()
	fmt.Printf("\nAverage: %.3f (95%% CI %.3f-%.3f, %d cases, %d failed)\n",
		report.Average, lo, hi, len(report.Results), report.Failed)
	fmt.Printf("Hits: %d  Misses: %d  Abstains: %d\n",
		report.Stats.Hits, report.Stats.Misses, report.Stats.Abstains)

	if c.Output != "" {
		if err := report.Save(c.Output); err != nil {
			return err
		}
		logger.Info().Str("file", c.Output).Msg("Report saved")
	}
	return nil
}
