// Package config loads the HCL game file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/wordwolf/internal/game"
	"github.com/lox/wordwolf/internal/llm"
)

// Config represents the complete game configuration
type Config struct {
	Game   GameSettings
	Retry  RetrySettings
	Model  ModelSettings
	Server ServerSettings
	Bots   []BotConfig
}

// file is the HCL layout. Every block is optional.
type file struct {
	Game   *GameSettings   `hcl:"game,block"`
	Retry  *retryBlock     `hcl:"retry,block"`
	Model  *ModelSettings  `hcl:"model,block"`
	Server *ServerSettings `hcl:"server,block"`
	Bots   []BotConfig     `hcl:"bot,block"`
}

// retryBlock tells an explicit max_retries = 0 apart from a missing one
type retryBlock struct {
	MaxRetries     *int   `hcl:"max_retries,optional"`
	AttemptTimeout string `hcl:"attempt_timeout,optional"`
}

// GameSettings contains the rules of a game
type GameSettings struct {
	HumanName      string `hcl:"human_name,optional"`
	TurnsPerPlayer int    `hcl:"turns_per_player,optional"`
	Seed           int64  `hcl:"seed,optional"`
	WordPairs      string `hcl:"word_pairs,optional"` // Path to a TOML catalogue; empty uses the built-in one
}

// RetrySettings bounds how often a bot's model call is retried
type RetrySettings struct {
	MaxRetries     int
	AttemptTimeout string
}

// ModelSettings selects the language model
type ModelSettings struct {
	Endpoint  string `hcl:"endpoint,optional"`
	Name      string `hcl:"name,optional"`
	APIKeyEnv string `hcl:"api_key_env,optional"`
	Timeout   string `hcl:"timeout,optional"`
}

// ServerSettings configures the WebSocket server
type ServerSettings struct {
	Address string `hcl:"address,optional"`
	Port    int    `hcl:"port,optional"`
}

// BotConfig defines one bot player
type BotConfig struct {
	Name      string `hcl:"name,label"`
	Character string `hcl:"character,optional"`
}

const defaultCharacter = "A friendly, experienced Word Wolf player who speaks casually"

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Game: GameSettings{
			HumanName:      "you",
			TurnsPerPlayer: game.DefaultRules().TurnsPerPlayer,
		},
		Retry: RetrySettings{
			MaxRetries:     3,
			AttemptTimeout: "45s",
		},
		Model: ModelSettings{
			Endpoint:  llm.DefaultEndpoint,
			Name:      llm.DefaultModel,
			APIKeyEnv: "OPENAI_API_KEY",
			Timeout:   llm.DefaultTimeout.String(),
		},
		Server: ServerSettings{
			Address: "localhost",
			Port:    8080,
		},
		Bots: []BotConfig{
			{Name: "tanaka", Character: defaultCharacter},
			{Name: "sato", Character: defaultCharacter},
		},
	}
}

// Load loads configuration from an HCL file. A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var raw file
	diags = gohcl.DecodeBody(f.Body, nil, &raw)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg := raw.config()
	cfg.applyDefaults()
	return cfg, nil
}

func (f *file) config() *Config {
	def := Default()
	cfg := &Config{Bots: f.Bots, Retry: def.Retry}
	if f.Game != nil {
		cfg.Game = *f.Game
	}
	if f.Retry != nil {
		cfg.Retry.AttemptTimeout = f.Retry.AttemptTimeout
		if f.Retry.MaxRetries != nil {
			cfg.Retry.MaxRetries = *f.Retry.MaxRetries
		}
	}
	if f.Model != nil {
		cfg.Model = *f.Model
	}
	if f.Server != nil {
		cfg.Server = *f.Server
	}
	return cfg
}

func (c *Config) applyDefaults() {
	def := Default()

	if c.Game.HumanName == "" {
		c.Game.HumanName = def.Game.HumanName
	}
	if c.Game.TurnsPerPlayer == 0 {
		c.Game.TurnsPerPlayer = def.Game.TurnsPerPlayer
	}
	if c.Retry.AttemptTimeout == "" {
		c.Retry.AttemptTimeout = def.Retry.AttemptTimeout
	}
	if c.Model.Endpoint == "" {
		c.Model.Endpoint = def.Model.Endpoint
	}
	if c.Model.Name == "" {
		c.Model.Name = def.Model.Name
	}
	if c.Model.APIKeyEnv == "" {
		c.Model.APIKeyEnv = def.Model.APIKeyEnv
	}
	if c.Model.Timeout == "" {
		c.Model.Timeout = def.Model.Timeout
	}
	if c.Server.Address == "" {
		c.Server.Address = def.Server.Address
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if len(c.Bots) == 0 {
		c.Bots = def.Bots
	}
	for i := range c.Bots {
		if c.Bots[i].Character == "" {
			c.Bots[i].Character = defaultCharacter
		}
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Game.TurnsPerPlayer < 1 {
		return fmt.Errorf("turns_per_player must be at least 1, got %d", c.Game.TurnsPerPlayer)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", c.Retry.MaxRetries)
	}
	if _, err := c.AttemptTimeout(); err != nil {
		return err
	}
	if _, err := c.ModelTimeout(); err != nil {
		return err
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if len(c.Bots) == 0 {
		return fmt.Errorf("at least one bot must be configured")
	}

	players := []game.Player{game.Human{Name: c.Game.HumanName}}
	for _, b := range c.Bots {
		players = append(players, game.Bot{Name: b.Name, Character: b.Character})
	}
	if _, err := game.NewPlayers(players...); err != nil {
		return fmt.Errorf("invalid players: %w", err)
	}

	return nil
}

// AttemptTimeout parses retry.attempt_timeout
func (c *Config) AttemptTimeout() (time.Duration, error) {
	return parseDuration("retry.attempt_timeout", c.Retry.AttemptTimeout)
}

// ModelTimeout parses model.timeout
func (c *Config) ModelTimeout() (time.Duration, error) {
	return parseDuration("model.timeout", c.Model.Timeout)
}

// Rules returns the game rules
func (c *Config) Rules() game.Rules {
	return game.Rules{TurnsPerPlayer: c.Game.TurnsPerPlayer}
}

// BotPlayers returns the configured bots
func (c *Config) BotPlayers() []game.Bot {
	bots := make([]game.Bot, len(c.Bots))
	for i, b := range c.Bots {
		bots[i] = game.Bot{Name: b.Name, Character: b.Character}
	}
	return bots
}

// ServerAddress returns the full listen address
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", field, value)
	}
	return d, nil
}
