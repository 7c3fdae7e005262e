package eval

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/wordwolf/internal/brain"
	"github.com/lox/wordwolf/internal/retry"
	"github.com/lox/wordwolf/internal/statistics"
	"golang.org/x/sync/errgroup"
)

// DefaultStagger spaces out case launches to stay under provider rate limits
const DefaultStagger = time.Second

// Result is the outcome of one case
type Result struct {
	Description string             `json:"description"`
	Guess       string             `json:"guess"`
	Say         string             `json:"say"`
	Score       float64            `json:"score"`
	Outcome     statistics.Outcome `json:"-"`
	Err         error              `json:"-"`
}

// Report summarises a run
type Report struct {
	Results []Result // In case order
	Average float64
	Failed  int
	Stats   statistics.Summary // Failed cases count as misses scoring zero
}

// Runner evaluates cases concurrently, starting one every Stagger
type Runner struct {
	Brain   *brain.Brain
	Policy  retry.Policy
	Stagger time.Duration
	Clock   quartz.Clock
	Logger  *log.Logger
}

// Run evaluates every case. A case whose model call fails scores zero and
// carries the error; it does not stop the other cases.
func (r *Runner) Run(ctx context.Context, cases []Case) (*Report, error) {
	clock := r.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	logger := r.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	logger = logger.WithPrefix("eval")

	results := make([]Result, len(cases))
	g, gctx := errgroup.WithContext(ctx)

	for i, c := range cases {
		if i > 0 && r.Stagger > 0 {
			timer := clock.NewTimer(r.Stagger, "eval", "stagger")
			select {
			case <-timer.C:
			case <-gctx.Done():
				timer.Stop()
				_ = g.Wait()
				return nil, ctx.Err()
			}
		}

		g.Go(func() error {
			results[i] = r.evaluate(gctx, c)
			res := results[i]
			if res.Err != nil {
				logger.Error("Case failed", "case", c.Description, "error", res.Err)
			} else {
				logger.Info("Case scored", "case", c.Description, "guess", res.Guess, "score", res.Score)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{Results: results}
	for _, res := range results {
		report.Stats.Add(res.Score, res.Outcome)
		if res.Err != nil {
			report.Failed++
		}
	}
	report.Average = report.Stats.Mean()
	return report, nil
}

func (r *Runner) evaluate(ctx context.Context, c Case) Result {
	res := Result{Description: c.Description}

	state, err := c.State()
	if err != nil {
		res.Err = err
		return res
	}

	decision, err := retry.Try(ctx, r.Policy, func(ctx context.Context) (brain.ChatDecision, error) {
		return r.Brain.Chat(ctx, state)
	})
	if err != nil {
		res.Err = fmt.Errorf("chat decision: %w", err)
		return res
	}

	res.Guess = decision.LikelyWolf
	res.Say = decision.Say
	res.Outcome = c.Outcome(decision.LikelyWolf)
	res.Score = c.Score(decision.LikelyWolf)
	return res
}
