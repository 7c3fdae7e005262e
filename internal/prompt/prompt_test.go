package prompt

import (
	"testing"

	"github.com/lox/wordwolf/internal/game"
	"github.com/lox/wordwolf/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tom   = game.Human{Name: "Tom"}
	bob   = game.Bot{Name: "Bob", Character: "A cheerful baker"}
	alice = game.Bot{Name: "Alice", Character: "A sharp-eyed detective"}
)

func newState(t *testing.T) *game.Chatting {
	t.Helper()
	s, err := game.NewGame([]game.Player{bob, alice, tom}, alice, "cat", "dog", game.DefaultRules())
	require.NoError(t, err)
	return s
}

func TestChat(t *testing.T) {
	s := newState(t)
	s = game.AdvanceChat(s, "I adore them").(*game.Chatting) // Bob
	s = game.AdvanceChat(s, "").(*game.Chatting)             // Alice
	s = game.AdvanceChat(s, "Mine barks").(*game.Chatting)   // Tom
	require.Equal(t, bob, s.Turn)

	messages, err := Chat(s)
	require.NoError(t, err)
	require.Len(t, messages, 4)

	system := messages[0]
	assert.Equal(t, llm.RoleSystem, system.Role)
	assert.Contains(t, system.Content, "Bob, Alice, Tom")
	assert.Contains(t, system.Content, "You act as Bob")
	assert.Contains(t, system.Content, "A cheerful baker")
	assert.Contains(t, system.Content, "# Your secret word\ndog")
	assert.Contains(t, system.Content, `{"thoughts": "string", "likelyWolf": "one of the player names", "say": "string"}`)

	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Name: "Bob", Content: "I adore them"}, messages[1])
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Name: "Alice", Content: "[Alice] " + silence}, messages[2])
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Name: "Tom", Content: "[Tom] Mine barks"}, messages[3])
}

func TestChatIsDeterministic(t *testing.T) {
	s := newState(t)
	a, err := Chat(s)
	require.NoError(t, err)
	b, err := Chat(s)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestChatRejectsHumanTurn(t *testing.T) {
	s, err := game.NewGame([]game.Player{tom, bob}, bob, "cat", "dog", game.DefaultRules())
	require.NoError(t, err)

	_, err = Chat(s)
	assert.Error(t, err)
}

func TestVote(t *testing.T) {
	var state game.State = newState(t)
	for state.Phase() == game.PhaseChat {
		state = game.AdvanceChat(state.(*game.Chatting), "hmm")
	}
	v := state.(*game.Voting)

	messages, err := Vote(v, alice)
	require.NoError(t, err)
	require.Len(t, messages, len(v.ChatLog)+2)

	assert.Contains(t, messages[0].Content, "# Your secret word\ncat")
	last := messages[len(messages)-1]
	assert.Equal(t, llm.RoleSystem, last.Role)
	assert.Contains(t, last.Content, `{"thoughts": "string", "votedPlayerName": "string"}`)

	_, err = Vote(v, game.Bot{Name: "Ghost"})
	assert.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "Tom", SanitizeName("Tom"))
	assert.Equal(t, "Mr__T", SanitizeName("Mr. T"))
	assert.Equal(t, "tanaka-2", SanitizeName("tanaka-2"))
}

func TestChatLogKeepsNonASCIINamesApart(t *testing.T) {
	taro := game.Bot{Name: "太郎", Character: "quiet"}
	hanako := game.Bot{Name: "花子", Character: "loud"}
	mrT := game.Human{Name: "Mr. T"}
	s, err := game.NewGame([]game.Player{taro, hanako, mrT}, taro, "cat", "dog", game.DefaultRules())
	require.NoError(t, err)
	s = game.AdvanceChat(s, "mine is small").(*game.Chatting)
	s = game.AdvanceChat(s, "mine is big").(*game.Chatting)
	s = game.AdvanceChat(s, "pity the fool").(*game.Chatting)

	messages := ChatLog(s, taro)
	require.Len(t, messages, 3)

	// the name field collapses both names, the content does not
	assert.Equal(t, messages[1].Name, SanitizeName(taro.Name))
	assert.Equal(t, "mine is small", messages[0].Content)
	assert.Equal(t, "[花子] mine is big", messages[1].Content)
	assert.Equal(t, "[Mr. T] pity the fool", messages[2].Content)

	rules, err := Chat(s)
	require.NoError(t, err)
	assert.Contains(t, rules[0].Content, "太郎, 花子, Mr. T")
}
