package game

import (
	"testing"

	"github.com/lox/wordwolf/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	s := newTestGame(t)

	next, err := Apply(s, ChatEvent{Text: "hello"})
	require.NoError(t, err)
	assert.Len(t, next.Shared().ChatLog, 1)

	_, err = Apply(next, VoteEvent{Voter: tom, Result: vote(bob, "")})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	v := chatUntilVoting(t, s)

	_, err = Apply(v, ChatEvent{Text: "too late"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Apply(v, VoteEvent{Voter: Human{Name: "Ghost"}, Result: vote(bob, "")})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Apply(v, VoteEvent{Voter: tom, Result: vote(Human{Name: "Ghost"}, "")})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	after, err := Apply(v, VoteEvent{Voter: tom, Result: vote(bob, "")})
	require.NoError(t, err)
	assert.True(t, after.(*Voting).Votes.HasVoted("Tom"))
}

func TestApplyOnFinished(t *testing.T) {
	v := chatUntilVoting(t, newTestGame(t))
	var state State = v
	for _, p := range []Player{tom, bob, alice} {
		state = RecordVote(state.(*Voting), p, vote(alice, ""))
	}
	require.Equal(t, PhaseFinished, state.Phase())

	_, err := Apply(state, ChatEvent{Text: "gg"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = Apply(state, VoteEvent{Voter: tom, Result: vote(bob, "")})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSetup(t *testing.T) {
	opts := SetupOptions{
		Human: tom,
		Bots:  []Bot{bob, alice},
		Words: [2]string{"cat", "dog"},
		Rules: DefaultRules(),
	}

	s, err := Setup(randutil.New(3), opts)
	require.NoError(t, err)

	assert.Equal(t, []Player{bob, alice, tom}, s.Players, "bots sit before the human")
	assert.Equal(t, bob, s.Turn)
	assert.Equal(t, 12, s.RemainingTurns)
	assert.ElementsMatch(t, []string{"cat", "dog"}, []string{s.WolfWord, s.CommonWord})

	// Same seed, same game
	again, err := Setup(randutil.New(3), opts)
	require.NoError(t, err)
	assert.Equal(t, s.Wolf, again.Wolf)
	assert.Equal(t, s.WolfWord, again.WolfWord)

	// Every player can be drawn as the wolf
	wolves := map[string]bool{}
	for seed := int64(0); seed < 50; seed++ {
		g, err := Setup(randutil.New(seed), opts)
		require.NoError(t, err)
		wolves[g.Wolf.PlayerName()] = true
	}
	assert.Len(t, wolves, 3)
}

func TestSetupRejectsNameClash(t *testing.T) {
	_, err := Setup(randutil.New(1), SetupOptions{
		Human: Human{Name: "Bob"},
		Bots:  []Bot{bob},
		Words: [2]string{"cat", "dog"},
		Rules: DefaultRules(),
	})
	assert.ErrorIs(t, err, ErrDuplicatePlayer)
}
