// Package prompt renders the messages sent to the language model for a bot's
// chat turn or vote. Output is a pure function of the game state and the
// acting bot.
package prompt

import (
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/lox/wordwolf/internal/game"
	"github.com/lox/wordwolf/internal/llm"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"join": strings.Join,
}).ParseFS(templateFiles, "templates/*.tmpl"))

// silence stands in for an empty chat line so the model sees that the
// player passed rather than an empty message
const silence = "(says nothing)"

type rulesData struct {
	Players    []string
	Name       string
	Character  string
	SecretWord string
}

type responseData struct {
	Example string
}

// Chat builds the prompt asking the bot whose turn it is what to say next
func Chat(s *game.Chatting) ([]llm.Message, error) {
	bot, ok := s.Turn.(game.Bot)
	if !ok {
		return nil, fmt.Errorf("cannot build a chat prompt for %s: not a bot", s.Turn.PlayerName())
	}

	rules, err := render("rules.tmpl", newRulesData(s, bot))
	if err != nil {
		return nil, err
	}
	instructions, err := render("chat.tmpl", responseData{Example: example(map[string]string{
		"thoughts":   "string",
		"likelyWolf": "one of the player names",
		"say":        "string",
	})})
	if err != nil {
		return nil, err
	}

	messages := []llm.Message{{Role: llm.RoleSystem, Content: rules + "\n\n" + instructions}}
	return append(messages, ChatLog(s, bot)...), nil
}

// Vote builds the prompt asking bot whom to execute
func Vote(s *game.Voting, bot game.Bot) ([]llm.Message, error) {
	if _, ok := s.Player(bot.Name); !ok {
		return nil, fmt.Errorf("cannot build a vote prompt for %s: not a player", bot.Name)
	}

	rules, err := render("rules.tmpl", newRulesData(s, bot))
	if err != nil {
		return nil, err
	}
	instructions, err := render("vote.tmpl", responseData{Example: example(map[string]string{
		"thoughts":        "string",
		"votedPlayerName": "string",
	})})
	if err != nil {
		return nil, err
	}

	messages := []llm.Message{{Role: llm.RoleSystem, Content: rules}}
	messages = append(messages, ChatLog(s, bot)...)
	return append(messages, llm.Message{Role: llm.RoleSystem, Content: instructions}), nil
}

// ChatLog converts the chat log into alternating model messages from the
// point of view of bot: its own lines are assistant turns, everyone else's
// are user turns written as "[name] text". The name field is only a hint;
// it cannot tell apart names that differ outside the API's alphabet.
func ChatLog(s game.State, bot game.Bot) []llm.Message {
	log := s.Shared().ChatLog
	messages := make([]llm.Message, 0, len(log))
	for _, m := range log {
		text := m.Text
		if strings.TrimSpace(text) == "" {
			text = silence
		}
		role := llm.RoleUser
		if game.SamePlayer(m.Sender, bot) {
			role = llm.RoleAssistant
		} else {
			text = SpeakerLine(m.Sender.PlayerName(), text)
		}
		messages = append(messages, llm.Message{
			Role:    role,
			Name:    SanitizeName(m.Sender.PlayerName()),
			Content: text,
		})
	}
	return messages
}

// SpeakerLine tags text with the real name of its speaker
func SpeakerLine(name, text string) string {
	return "[" + name + "] " + text
}

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeName maps a player name onto the character set chat-completion
// APIs accept for the message name field.
func SanitizeName(name string) string {
	clean := invalidNameChars.ReplaceAllString(name, "_")
	if len(clean) > 64 {
		clean = clean[:64]
	}
	return clean
}

func newRulesData(s game.State, bot game.Bot) rulesData {
	return rulesData{
		Players:    game.PlayerNames(s.Shared().Players),
		Name:       bot.Name,
		Character:  bot.Character,
		SecretWord: game.SecretWord(s, bot),
	}
}

func render(name string, data any) (string, error) {
	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), nil
}

// example renders the expected response shape with a stable key order
func example(fields map[string]string) string {
	order := []string{"thoughts", "likelyWolf", "say", "votedPlayerName"}
	parts := make([]string, 0, len(fields))
	for _, k := range order {
		v, ok := fields[k]
		if !ok {
			continue
		}
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(v)
		parts = append(parts, string(kb)+": "+string(vb))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
