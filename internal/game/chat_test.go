package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceChatCountsDownToVoting(t *testing.T) {
	s := newTestGame(t)

	var state State = s
	previous := s.RemainingTurns
	calls := 0

	for state.Phase() == PhaseChat {
		c := state.(*Chatting)
		require.Greater(t, c.RemainingTurns, 0)
		state = AdvanceChat(c, "hi")
		calls++

		if next, ok := state.(*Chatting); ok {
			assert.Equal(t, previous-1, next.RemainingTurns, "remaining turns drop by exactly one")
			previous = next.RemainingTurns
		}
	}

	assert.Equal(t, 12, calls)
	v, ok := state.(*Voting)
	require.True(t, ok)
	assert.Len(t, v.ChatLog, 12)
	assert.Len(t, v.Votes, 3)
	for _, name := range []string{"Tom", "Bob", "Alice"} {
		vote, ok := v.Votes[name]
		assert.True(t, ok, "ballot has an entry for %s", name)
		assert.Nil(t, vote)
	}
}

func TestAdvanceChatRoundRobin(t *testing.T) {
	s := newTestGame(t)
	order := []Player{tom, bob, alice}

	var state State = s
	for i := 0; i < 9; i++ {
		c := state.(*Chatting)
		assert.Equal(t, order[i%3], c.Turn, "turn %d", i)
		state = AdvanceChat(c, "line")
	}

	// After a full cycle the turn is back with the first player
	assert.Equal(t, tom, state.(*Chatting).Turn)
}

func TestAdvanceChatAttributesSender(t *testing.T) {
	s := newTestGame(t)

	next := AdvanceChat(s, "I love them").(*Chatting)
	next = AdvanceChat(next, "").(*Chatting)

	require.Len(t, next.ChatLog, 2)
	assert.Equal(t, ChatMessage{Sender: tom, Text: "I love them"}, next.ChatLog[0])
	assert.Equal(t, ChatMessage{Sender: bob, Text: ""}, next.ChatLog[1], "silence is still a turn")
}

func TestAdvanceChatDoesNotMutateInput(t *testing.T) {
	s := newTestGame(t)
	first := AdvanceChat(s, "one").(*Chatting)

	a := AdvanceChat(first, "branch a").(*Chatting)
	b := AdvanceChat(first, "branch b").(*Chatting)

	assert.Empty(t, s.ChatLog)
	assert.Equal(t, 12, s.RemainingTurns)
	assert.Len(t, first.ChatLog, 1)
	assert.Equal(t, "branch a", a.ChatLog[1].Text)
	assert.Equal(t, "branch b", b.ChatLog[1].Text)
}

func TestAdvanceChatSinglePlayer(t *testing.T) {
	s, err := NewGame([]Player{tom}, tom, "cat", "dog", Rules{TurnsPerPlayer: 2})
	require.NoError(t, err)

	next := AdvanceChat(s, "talking to myself").(*Chatting)
	assert.Equal(t, tom, next.Turn)

	_, ok := AdvanceChat(next, "again").(*Voting)
	assert.True(t, ok)
}

func TestAdvanceChatPanicsOnMisuse(t *testing.T) {
	assert.PanicsWithError(t, "invalid state transition: advance chat on nil state", func() {
		AdvanceChat(nil, "hi")
	})

	exhausted := newTestGame(t)
	exhausted.RemainingTurns = 0
	assert.Panics(t, func() { AdvanceChat(exhausted, "hi") })
}
