package session

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/wordwolf/internal/brain"
	"github.com/lox/wordwolf/internal/game"
	"github.com/lox/wordwolf/internal/llm"
	"github.com/lox/wordwolf/internal/randutil"
	"github.com/lox/wordwolf/internal/retry"
	"github.com/lox/wordwolf/internal/wordpairs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tom   = game.Bot{Name: "tom", Character: "cheerful"}
	bob   = game.Bot{Name: "bob", Character: "grumpy"}
	alice = game.Human{Name: "alice"}
)

const waitFor = 5 * time.Second

func chatReply(say string) string {
	return `{"thoughts":"thinking","say":"` + say + `"}`
}

func voteReply(name string) string {
	return `{"thoughts":"they sounded off","votedPlayerName":"` + name + `"}`
}

func newSession(t *testing.T, initial *game.Chatting, model llm.Model, maxRetries int) *Session {
	t.Helper()
	logger := log.New(io.Discard)
	s, err := New(initial, Options{
		Brain:  brain.New(model, logger),
		Policy: retry.Policy{MaxRetries: maxRetries},
		Rand:   randutil.New(7),
		Logger: logger,
	})
	require.NoError(t, err)
	return s
}

func newGame(t *testing.T, players []game.Player, wolf game.Player, turns int) *game.Chatting {
	t.Helper()
	st, err := game.NewGame(players, wolf, "cat", "dog", game.Rules{TurnsPerPlayer: turns})
	require.NoError(t, err)
	return st
}

type countingModel struct {
	llm.Model
	calls atomic.Int64
}

func (m *countingModel) Ask(ctx context.Context, messages []llm.Message) (string, error) {
	m.calls.Add(1)
	return m.Model.Ask(ctx, messages)
}

type runResult struct {
	finished *game.Finished
	err      error
}

func runAsync(ctx context.Context, s *Session) <-chan runResult {
	done := make(chan runResult, 1)
	go func() {
		f, err := s.Run(ctx)
		done <- runResult{f, err}
	}()
	return done
}

func await(t *testing.T, done <-chan runResult) runResult {
	t.Helper()
	select {
	case r := <-done:
		return r
	case <-time.After(waitFor):
		t.Fatal("Run did not return")
		return runResult{}
	}
}

func TestRunWithHuman(t *testing.T) {
	model := llm.NewScripted(
		chatReply("I walk mine every day"),
		chatReply("Mine sleeps a lot"),
		voteReply("alice"),
		voteReply("alice"),
	)
	s := newSession(t, newGame(t, []game.Player{tom, bob, alice}, bob, 1), model, 0)

	done := runAsync(context.Background(), s)

	require.Eventually(t, func() bool {
		st, ok := s.State().(*game.Chatting)
		return ok && game.IsHumanTurn(st)
	}, waitFor, time.Millisecond)
	require.NoError(t, s.SubmitChat("  Mine purrs  "))

	require.Eventually(t, func() bool {
		return s.State().Phase() == game.PhaseVote
	}, waitFor, time.Millisecond)
	require.NoError(t, s.SubmitVote("bob"))

	r := await(t, done)
	require.NoError(t, r.err)
	require.NotNil(t, r.finished)

	chatLog := r.finished.ChatLog
	require.Len(t, chatLog, 3)
	assert.Equal(t, "tom", chatLog[0].Sender.PlayerName())
	assert.Equal(t, "I walk mine every day", chatLog[0].Text)
	assert.Equal(t, "Mine sleeps a lot", chatLog[1].Text)
	assert.Equal(t, "Mine purrs", chatLog[2].Text)

	assert.Equal(t, "alice", r.finished.Votes["tom"].Voted.PlayerName())
	assert.Equal(t, "they sounded off", r.finished.Votes["tom"].Reason)
	assert.Equal(t, "alice", r.finished.Votes["bob"].Voted.PlayerName())
	assert.Equal(t, "bob", r.finished.Votes["alice"].Voted.PlayerName())

	// alice has two votes, bob (the wolf) one
	assert.False(t, game.VillagersWin(r.finished))
	assert.Equal(t, 4, model.Calls())
}

func TestRunFallsBackWhenModelKeepsFailing(t *testing.T) {
	carol := game.Bot{Name: "carol"}
	model := llm.NewScripted() // every call fails with ErrScriptExhausted
	s := newSession(t, newGame(t, []game.Player{tom, bob, carol}, carol, 2), model, 3)

	r := await(t, runAsync(context.Background(), s))
	require.NoError(t, r.err)

	require.Len(t, r.finished.ChatLog, 6)
	for _, msg := range r.finished.ChatLog {
		assert.Empty(t, msg.Text)
	}
	for voter, v := range r.finished.Votes {
		assert.Equal(t, randomVoteReason, v.Reason)
		assert.NotEqual(t, voter, v.Voted.PlayerName())
	}

	// six chat turns and three votes, each attempted MaxRetries+1 times
	assert.Equal(t, (6+3)*4, model.Calls())
}

func TestRunRetriesInvalidReplies(t *testing.T) {
	model := llm.NewScripted(
		"not json",
		`{"say":"missing thoughts"}`,
		chatReply("finally"),
		chatReply("me too"),
		voteReply("nobody"),
		voteReply("nobody"),
		voteReply("tom"),
		voteReply("tom"),
	)
	s := newSession(t, newGame(t, []game.Player{tom, bob}, tom, 1), model, 3)

	r := await(t, runAsync(context.Background(), s))
	require.NoError(t, r.err)

	assert.Equal(t, "finally", r.finished.ChatLog[0].Text)
	assert.Equal(t, "me too", r.finished.ChatLog[1].Text)
	// votes race for the remaining replies; only the valid ones are applied
	assert.Equal(t, "tom", r.finished.Votes["tom"].Voted.PlayerName())
	assert.Equal(t, "tom", r.finished.Votes["bob"].Voted.PlayerName())
	assert.Equal(t, 8, model.Calls())
}

func TestRunSurvivesUnrecoverableErrors(t *testing.T) {
	tooLong := llm.Func(func(ctx context.Context, _ []llm.Message) (string, error) {
		return "", llm.Unrecoverable(llm.NewTooManyTokensError("This model's maximum context length is 8192 tokens."))
	})
	model := &countingModel{Model: tooLong}
	s := newSession(t, newGame(t, []game.Player{tom, bob}, tom, 2), model, 3)

	r := await(t, runAsync(context.Background(), s))
	require.NoError(t, r.err)
	require.NotNil(t, r.finished)

	require.Len(t, r.finished.ChatLog, 4)
	for _, m := range r.finished.ChatLog {
		assert.Empty(t, m.Text)
	}
	for _, voter := range []game.Bot{tom, bob} {
		v := r.finished.Votes[voter.Name]
		assert.False(t, game.SamePlayer(voter, v.Voted), "%s voted for itself", voter.Name)
		assert.Equal(t, "Random vote", v.Reason)
	}
	// one call per chat turn and one per vote, never retried
	assert.Equal(t, int64(4+2), model.calls.Load())
}

func TestRunCancelledWhileWaitingForHuman(t *testing.T) {
	s := newSession(t, newGame(t, []game.Player{alice, tom}, tom, 1), llm.NewScripted(), 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, s)
	cancel()

	r := await(t, done)
	assert.ErrorIs(t, r.err, context.Canceled)
}

func TestRunTwice(t *testing.T) {
	s := newSession(t, newGame(t, []game.Player{alice, tom}, tom, 1), llm.NewScripted(), 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, s)
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.running
	}, waitFor, time.Millisecond)

	_, err := s.Run(ctx)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	cancel()
	await(t, done)
}

func TestSubmitChat(t *testing.T) {
	s := newSession(t, newGame(t, []game.Player{alice, tom}, tom, 1), llm.NewScripted(), 0)

	require.NoError(t, s.SubmitChat("hello"))
	assert.ErrorIs(t, s.SubmitChat("again"), ErrNotYourTurn)
	assert.ErrorIs(t, s.SubmitVote("tom"), ErrWrongPhase)

	st := s.State().(*game.Chatting)
	assert.Equal(t, "tom", st.Turn.PlayerName())
	assert.Equal(t, "hello", st.ChatLog[0].Text)
}

func TestSubmitVote(t *testing.T) {
	initial := newGame(t, []game.Player{alice, tom, bob}, tom, 1)
	initial.RemainingTurns = 1
	s := newSession(t, initial, llm.NewScripted(), 0)

	require.NoError(t, s.SubmitChat("last words"))
	require.Equal(t, game.PhaseVote, s.State().Phase())

	assert.ErrorIs(t, s.SubmitChat("more"), ErrWrongPhase)
	assert.ErrorIs(t, s.SubmitVote("alice"), ErrSelfVote)
	assert.ErrorIs(t, s.SubmitVote("nobody"), ErrUnknownPlayer)

	require.NoError(t, s.SubmitVote("tom"))
	assert.ErrorIs(t, s.SubmitVote("bob"), ErrAlreadyVoted)

	v := s.State().(*game.Voting)
	assert.Equal(t, "tom", v.Votes["alice"].Voted.PlayerName())
	assert.False(t, v.Votes.HasVoted("tom"))
}

func TestSubmitWithoutHuman(t *testing.T) {
	s := newSession(t, newGame(t, []game.Player{tom, bob}, tom, 1), llm.NewScripted(), 0)
	assert.ErrorIs(t, s.SubmitChat("hi"), ErrNoHuman)
	assert.ErrorIs(t, s.SubmitVote("tom"), ErrNoHuman)
}

func TestLateBotVoteIsDiscarded(t *testing.T) {
	initial := newGame(t, []game.Player{alice, tom, bob}, tom, 1)
	initial.RemainingTurns = 1
	s := newSession(t, initial, llm.NewScripted(), 0)
	require.NoError(t, s.SubmitChat("hi"))

	s.applyBotVote(tom, game.VotedResult{Voted: alice, Reason: "first"})
	s.applyBotVote(tom, game.VotedResult{Voted: bob, Reason: "second"})

	v := s.State().(*game.Voting)
	assert.Equal(t, "first", v.Votes["tom"].Reason)
}

func TestNewRejectsTwoHumans(t *testing.T) {
	st := newGame(t, []game.Player{alice, game.Human{Name: "dave"}, tom}, tom, 1)
	_, err := New(st, Options{Brain: brain.New(llm.NewScripted(), log.New(io.Discard)), Rand: randutil.New(1)})
	assert.Error(t, err)
}

func TestEvents(t *testing.T) {
	model := llm.NewScripted(chatReply("one"), chatReply("two"), voteReply("bob"), voteReply("tom"))
	s := newSession(t, newGame(t, []game.Player{tom, bob}, tom, 1), model, 0)
	events := s.Subscribe()

	r := await(t, runAsync(context.Background(), s))
	require.NoError(t, r.err)

	var kinds []EventKind
	for ev := range events {
		kinds = append(kinds, ev.Kind)
		if ev.Kind == EventChat {
			require.NotNil(t, ev.Message)
		}
	}

	assert.Equal(t, []EventKind{EventThinking, EventChat, EventThinking, EventChat, EventPhase}, kinds[:5])
	assert.Equal(t, EventFinished, kinds[len(kinds)-1])
	assert.Equal(t, 2, countKind(kinds, EventVote))
	assert.Equal(t, 2, countKind(kinds, EventPhase))

	// subscribing after the game ended yields a closed channel
	_, open := <-s.Subscribe()
	assert.False(t, open)
}

func countKind(kinds []EventKind, kind EventKind) int {
	n := 0
	for _, k := range kinds {
		if k == kind {
			n++
		}
	}
	return n
}

func TestFactory(t *testing.T) {
	f := NewFactory(randutil.New(3))
	f.Human = alice
	f.Bots = []game.Bot{tom, bob}
	f.Model = llm.NewScripted()
	f.Logger = log.New(io.Discard)

	s1, err := f.New()
	require.NoError(t, err)
	s2, err := s1.Restart()
	require.NoError(t, err)

	assert.NotEqual(t, s1.ID(), s2.ID())

	st := s1.State().(*game.Chatting)
	assert.Equal(t, []string{"tom", "bob", "alice"}, game.PlayerNames(st.Players))
	assert.Equal(t, 3*game.DefaultRules().TurnsPerPlayer, st.RemainingTurns)
	assert.NotEqual(t, st.CommonWord, st.WolfWord)

	human, ok := s1.Human()
	require.True(t, ok)
	assert.Equal(t, "alice", human.PlayerName())
}

func TestFactoryKeepsSecretsOutOfDebugLog(t *testing.T) {
	pairs, err := wordpairs.Parse(`
[[pair]]
words = ["zebra", "okapi"]
category = "animals"
`)
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})

	f := NewFactory(randutil.New(9))
	f.Bots = []game.Bot{{Name: "wanda"}, {Name: "xavier"}, {Name: "yusuf"}}
	f.Pairs = pairs
	f.Model = llm.NewScripted()
	f.Logger = logger

	s, err := f.New()
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Dealt game")
	assert.Contains(t, out, "animals")
	assert.NotContains(t, out, "zebra")
	assert.NotContains(t, out, "okapi")
	assert.NotContains(t, out, "wolf")

	// once the game is over the log may tell all
	r := await(t, runAsync(context.Background(), s))
	require.NoError(t, r.err)
	assert.Contains(t, buf.String(), r.finished.Wolf.PlayerName())
	assert.Contains(t, buf.String(), "zebra")
}

func TestFactoryIsDeterministic(t *testing.T) {
	deal := func() *game.Chatting {
		f := NewFactory(randutil.New(42))
		f.Human = alice
		f.Bots = []game.Bot{tom, bob}
		f.Model = llm.NewScripted()
		f.Logger = log.New(io.Discard)
		s, err := f.New()
		require.NoError(t, err)
		return s.State().(*game.Chatting)
	}

	a, b := deal(), deal()
	assert.Equal(t, a.Wolf.PlayerName(), b.Wolf.PlayerName())
	assert.Equal(t, a.WolfWord, b.WolfWord)
	assert.Equal(t, a.CommonWord, b.CommonWord)
}

func TestRestartWithoutFactory(t *testing.T) {
	s := newSession(t, newGame(t, []game.Player{tom, bob}, tom, 1), llm.NewScripted(), 0)
	_, err := s.Restart()
	assert.ErrorIs(t, err, ErrNoFactory)
}
