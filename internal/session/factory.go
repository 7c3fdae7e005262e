package session

import (
	"errors"
	"math"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/lox/wordwolf/internal/brain"
	"github.com/lox/wordwolf/internal/game"
	"github.com/lox/wordwolf/internal/llm"
	"github.com/lox/wordwolf/internal/randutil"
	"github.com/lox/wordwolf/internal/retry"
	"github.com/lox/wordwolf/internal/wordpairs"
)

// Factory deals new games with the same cast. It is safe for concurrent
// use; every session gets its own random source derived from the factory's.
type Factory struct {
	Human  game.Human
	Bots   []game.Bot
	Pairs  *wordpairs.Catalogue
	Rules  game.Rules
	Model  llm.Model
	Policy retry.Policy
	Logger *log.Logger

	mu  sync.Mutex
	rng randutil.Source
}

// NewFactory creates a factory drawing its randomness from rng
func NewFactory(rng randutil.Source) *Factory {
	return &Factory{
		Pairs: wordpairs.Builtin(),
		Rules: game.DefaultRules(),
		rng:   rng,
	}
}

// New deals a game: a random word pair, a random wolf, bots seated before
// the human.
func (f *Factory) New() (*Session, error) {
	if f.Model == nil {
		return nil, errors.New("factory has no model")
	}
	if len(f.Bots) == 0 {
		return nil, errors.New("factory has no bots")
	}

	f.mu.Lock()
	if f.rng == nil {
		f.rng = randutil.NewFromConfig(0)
	}
	pairs := f.Pairs
	if pairs == nil {
		pairs = wordpairs.Builtin()
	}
	pair := pairs.Random(f.rng)
	rng := randutil.New(int64(f.rng.IntN(math.MaxInt)))
	f.mu.Unlock()

	initial, err := game.Setup(rng, game.SetupOptions{
		Human: f.Human,
		Bots:  f.Bots,
		Words: pair.Words,
		Rules: f.Rules,
	})
	if err != nil {
		return nil, err
	}

	logger := f.Logger
	if logger == nil {
		logger = log.Default()
	}

	s, err := New(initial, Options{
		Brain:  brain.New(f.Model, logger),
		Policy: f.Policy,
		Rand:   rng,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	s.factory = f

	// the wolf and the words stay out of the log until the game is over
	s.logger.Debug("Dealt game", "category", pair.Category)
	return s, nil
}
