package shared

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/lox/wordwolf/internal/config"
	"github.com/lox/wordwolf/internal/game"
	"github.com/lox/wordwolf/internal/llm"
	"github.com/lox/wordwolf/internal/randutil"
	"github.com/lox/wordwolf/internal/retry"
	"github.com/lox/wordwolf/internal/session"
	"github.com/lox/wordwolf/internal/wordpairs"
)

// EnvFiles are loaded, when present, before the API key is looked up.
// Variables already set in the environment win.
var EnvFiles = []string{".env.local", ".env"}

// LoadConfig reads and validates the game file
func LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnv loads the env files that exist
func LoadEnv(files ...string) error {
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

// NewModel builds the language model. The offline model needs no API key.
func NewModel(cfg *config.Config, offline bool, seed int64) (llm.Model, error) {
	if offline {
		return llm.NewOffline(randutil.NewFromConfig(seed)), nil
	}

	if err := LoadEnv(EnvFiles...); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	apiKey := os.Getenv(cfg.Model.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%s is not set; put it in .env.local or use --offline", cfg.Model.APIKeyEnv)
	}

	timeout, err := cfg.ModelTimeout()
	if err != nil {
		return nil, err
	}

	opts := []llm.OpenAIOption{
		llm.WithEndpoint(cfg.Model.Endpoint),
		llm.WithModel(cfg.Model.Name),
	}
	if timeout > 0 {
		opts = append(opts, llm.WithTimeout(timeout))
	}
	return llm.NewOpenAI(apiKey, opts...), nil
}

// NewPolicy builds the retry policy from the config
func NewPolicy(cfg *config.Config, logger *log.Logger) (retry.Policy, error) {
	timeout, err := cfg.AttemptTimeout()
	if err != nil {
		return retry.Policy{}, err
	}
	return retry.Policy{
		MaxRetries:     cfg.Retry.MaxRetries,
		AttemptTimeout: timeout,
		Retryable:      session.Retryable,
		Logger:         logger.WithPrefix("retry"),
	}, nil
}

// NewFactory wires a session factory from the config
func NewFactory(cfg *config.Config, model llm.Model, logger *log.Logger) (*session.Factory, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}

	pairs := wordpairs.Builtin()
	if cfg.Game.WordPairs != "" {
		var err error
		if pairs, err = wordpairs.Load(cfg.Game.WordPairs); err != nil {
			return nil, err
		}
	}

	policy, err := NewPolicy(cfg, logger)
	if err != nil {
		return nil, err
	}

	f := session.NewFactory(randutil.NewFromConfig(cfg.Game.Seed))
	f.Human = game.Human{Name: cfg.Game.HumanName}
	f.Bots = cfg.BotPlayers()
	f.Pairs = pairs
	f.Rules = cfg.Rules()
	f.Model = model
	f.Policy = policy
	f.Logger = logger
	return f, nil
}
