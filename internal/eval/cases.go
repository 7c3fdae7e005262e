// Package eval measures how well the bots spot the wolf. Each case is a
// recorded conversation; the bot whose turn is next is asked for its chat
// decision and scored on the player it names as the likely wolf.
package eval

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/lox/wordwolf/internal/game"
	"github.com/lox/wordwolf/internal/statistics"
	"gopkg.in/yaml.v3"
)

const (
	// Character given to every player of an eval case
	Character = "A confident, experienced Word Wolf player"
	// RemainingTurns is how many turns a case pretends are left
	RemainingTurns = 5
)

var chatLineRe = regexp.MustCompile(`^\[([a-zA-Z0-9_]*)\] (.*)$`)

// Case is one recorded conversation
type Case struct {
	Description string   `yaml:"description"`
	CommonWord  string   `yaml:"commonWord"`
	WolfWord    string   `yaml:"wolfWord"`
	Wolf        string   `yaml:"wolf"`
	Next        string   `yaml:"next"`
	ChatLog     []string `yaml:"chatLog"`
}

// Line is a parsed chat log entry
type Line struct {
	Sender string
	Text   string
}

// ParseLine splits "[name] text" into its parts
func ParseLine(s string) (Line, error) {
	m := chatLineRe.FindStringSubmatch(s)
	if m == nil || m[1] == "" {
		return Line{}, fmt.Errorf("chat line %q is not of the form \"[name] text\"", s)
	}
	return Line{Sender: m[1], Text: m[2]}, nil
}

// Load reads cases from a YAML file
func Load(filename string) ([]Case, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read eval cases: %w", err)
	}
	cases, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return cases, nil
}

// Parse decodes and validates a YAML list of cases
func Parse(data []byte) ([]Case, error) {
	var cases []Case
	if err := yaml.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("failed to decode eval cases: %w", err)
	}
	if len(cases) == 0 {
		return nil, errors.New("no eval cases")
	}
	for i, c := range cases {
		if _, err := c.State(); err != nil {
			return nil, fmt.Errorf("case %d (%s): %w", i, c.Description, err)
		}
	}
	return cases, nil
}

// Players returns the distinct speakers in order of first appearance
func (c Case) Players() ([]string, error) {
	var names []string
	seen := map[string]bool{}
	for _, raw := range c.ChatLog {
		line, err := ParseLine(raw)
		if err != nil {
			return nil, err
		}
		if !seen[line.Sender] {
			seen[line.Sender] = true
			names = append(names, line.Sender)
		}
	}
	return names, nil
}

// State rebuilds the chat phase the case describes, with the next speaker
// holding the turn. Every player is a bot.
func (c Case) State() (*game.Chatting, error) {
	if c.Wolf == "" || c.Next == "" {
		return nil, errors.New("wolf and next are required")
	}

	names, err := c.Players()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, errors.New("chat log is empty")
	}

	bots := map[string]game.Bot{}
	players := make([]game.Player, 0, len(names))
	for _, name := range names {
		b := game.Bot{Name: name, Character: Character}
		bots[name] = b
		players = append(players, b)
	}

	wolf, ok := bots[c.Wolf]
	if !ok {
		return nil, fmt.Errorf("wolf %q never speaks", c.Wolf)
	}
	next, ok := bots[c.Next]
	if !ok {
		return nil, fmt.Errorf("next speaker %q never speaks", c.Next)
	}

	initial, err := game.NewGame(players, wolf, c.WolfWord, c.CommonWord, game.DefaultRules())
	if err != nil {
		return nil, err
	}

	chatLog := make([]game.ChatMessage, 0, len(c.ChatLog))
	for _, raw := range c.ChatLog {
		line, _ := ParseLine(raw)
		chatLog = append(chatLog, game.ChatMessage{Sender: bots[line.Sender], Text: line.Text})
	}

	initial.ChatLog = chatLog
	initial.Turn = next
	initial.RemainingTurns = RemainingTurns
	return initial, nil
}

// Outcome classifies a wolf guess. Naming nobody at the table, including
// no guess at all, is an abstention.
func (c Case) Outcome(guess string) statistics.Outcome {
	if guess == c.Wolf {
		return statistics.Hit
	}
	names, _ := c.Players()
	for _, n := range names {
		if n == guess {
			return statistics.Miss
		}
	}
	return statistics.Abstain
}

// Score rates a wolf guess: 1 for the wolf, 0 for another player, 0.3 for
// an abstention.
func (c Case) Score(guess string) float64 {
	switch c.Outcome(guess) {
	case statistics.Hit:
		return 1
	case statistics.Miss:
		return 0
	default:
		return 0.3
	}
}
