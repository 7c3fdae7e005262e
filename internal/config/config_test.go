package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lox/wordwolf/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wordwolf.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
game {
  human_name       = "alice"
  turns_per_player = 2
  seed             = 42
}

retry {
  max_retries     = 0
  attempt_timeout = "10s"
}

model {
  name = "gpt-4o"
}

server {
  port = 9090
}

bot "tom" {
  character = "Talks about food a lot"
}

bot "bob" {}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "alice", cfg.Game.HumanName)
	assert.Equal(t, int64(42), cfg.Game.Seed)
	assert.Equal(t, game.Rules{TurnsPerPlayer: 2}, cfg.Rules())

	assert.Equal(t, 0, cfg.Retry.MaxRetries)
	timeout, err := cfg.AttemptTimeout()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, timeout)

	assert.Equal(t, "gpt-4o", cfg.Model.Name)
	assert.Equal(t, Default().Model.Endpoint, cfg.Model.Endpoint)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Model.APIKeyEnv)

	assert.Equal(t, "localhost:9090", cfg.ServerAddress())

	assert.Equal(t, []game.Bot{
		{Name: "tom", Character: "Talks about food a lot"},
		{Name: "bob", Character: defaultCharacter},
	}, cfg.BotPlayers())
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `game {
  human_name = "alice"
}
`))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, "alice", cfg.Game.HumanName)
	assert.Equal(t, def.Game.TurnsPerPlayer, cfg.Game.TurnsPerPlayer)
	assert.Equal(t, def.Retry, cfg.Retry)
	assert.Equal(t, def.Bots, cfg.Bots)
}

func TestLoadRejectsBadHCL(t *testing.T) {
	_, err := Load(writeConfig(t, `game {`))
	assert.ErrorContains(t, err, "failed to parse HCL file")

	_, err = Load(writeConfig(t, `game { colour = "red" }`))
	assert.ErrorContains(t, err, "failed to decode HCL")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"no turns", func(c *Config) { c.Game.TurnsPerPlayer = 0 }, "turns_per_player"},
		{"negative retries", func(c *Config) { c.Retry.MaxRetries = -1 }, "max_retries"},
		{"bad timeout", func(c *Config) { c.Retry.AttemptTimeout = "soon" }, "retry.attempt_timeout"},
		{"negative model timeout", func(c *Config) { c.Model.Timeout = "-1s" }, "model.timeout"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "invalid port"},
		{"no bots", func(c *Config) { c.Bots = nil }, "at least one bot"},
		{"duplicate name", func(c *Config) { c.Bots[0].Name = c.Game.HumanName }, "duplicate"},
		{"empty human", func(c *Config) { c.Game.HumanName = " " }, "invalid players"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}
