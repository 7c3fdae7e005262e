package game

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyName is returned when a player is created without a name
	ErrEmptyName = errors.New("player name must not be empty")
	// ErrDuplicatePlayer is returned when two players share a name
	ErrDuplicatePlayer = errors.New("duplicate player name")
)

// Player is either a Human or a Bot. Players are identified by name alone.
type Player interface {
	PlayerName() string
	isPlayer()
}

// Human is the player sitting at the keyboard
type Human struct {
	Name string
}

// Bot is a player whose moves come from a language model
type Bot struct {
	Name      string
	Character string // Free-text persona handed to the model
}

func (h Human) PlayerName() string { return h.Name }
func (b Bot) PlayerName() string   { return b.Name }

func (Human) isPlayer() {}
func (Bot) isPlayer()   {}

func (h Human) String() string { return h.Name }
func (b Bot) String() string   { return b.Name }

// IsBot reports whether the player is driven by a language model
func IsBot(p Player) bool {
	_, ok := p.(Bot)
	return ok
}

// SamePlayer compares players by identity (their name)
func SamePlayer(a, b Player) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.PlayerName() == b.PlayerName()
}

// NewPlayers validates a player list and returns a copy of it. Order is kept
// as given since it is the turn order.
func NewPlayers(players ...Player) ([]Player, error) {
	seen := make(map[string]struct{}, len(players))
	out := make([]Player, 0, len(players))

	for i, p := range players {
		if p == nil {
			return nil, fmt.Errorf("player %d is nil", i)
		}
		name := p.PlayerName()
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("player %d: %w", i, ErrEmptyName)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePlayer, name)
		}
		seen[name] = struct{}{}
		out = append(out, p)
	}

	return out, nil
}

// PlayerNames returns the names of players in order
func PlayerNames(players []Player) []string {
	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.PlayerName()
	}
	return names
}
