// Package session drives a single game: it asks the bots for their turns
// and votes, waits for the human, and publishes every change to
// subscribers.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/lox/wordwolf/internal/brain"
	"github.com/lox/wordwolf/internal/game"
	"github.com/lox/wordwolf/internal/llm"
	"github.com/lox/wordwolf/internal/randutil"
	"github.com/lox/wordwolf/internal/retry"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotYourTurn    = errors.New("it is not your turn to speak")
	ErrWrongPhase     = errors.New("not allowed in the current phase")
	ErrAlreadyVoted   = errors.New("you have already voted")
	ErrSelfVote       = errors.New("you cannot vote for yourself")
	ErrUnknownPlayer  = errors.New("no such player")
	ErrNoHuman        = errors.New("the game has no human player")
	ErrAlreadyRunning = errors.New("session is already running")
	ErrNoFactory      = errors.New("session was not created by a factory")
)

const randomVoteReason = "Random vote"

// Options configures a Session
type Options struct {
	Brain  *brain.Brain
	Policy retry.Policy
	Rand   randutil.Source
	Logger *log.Logger
	ID     string // Generated when empty
}

// Session owns the current game state. Every state change happens under mu
// and replaces the state value; states themselves are never mutated.
type Session struct {
	id      string
	brain   *brain.Brain
	policy  retry.Policy
	logger  *log.Logger
	human   game.Player
	factory *Factory

	mu      sync.Mutex
	state   game.State
	rng     randutil.Source
	running bool

	// input is signalled whenever the human acts
	input chan struct{}

	subsMu sync.Mutex
	subs   []chan Event
	closed bool
}

// New creates a session starting at initial. At most one human may be
// seated; a game without a human plays itself.
func New(initial *game.Chatting, opts Options) (*Session, error) {
	if initial == nil {
		return nil, errors.New("initial state is required")
	}
	if opts.Brain == nil {
		return nil, errors.New("brain is required")
	}
	if opts.Rand == nil {
		return nil, errors.New("random source is required")
	}

	humans := initial.Humans()
	if len(humans) > 1 {
		return nil, fmt.Errorf("at most one human player is supported, got %d", len(humans))
	}

	id := opts.ID
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	logger = logger.WithPrefix("session").With("session", id)

	policy := opts.Policy
	if policy.Retryable == nil {
		policy.Retryable = Retryable
	}
	if policy.Logger == nil {
		policy.Logger = logger
	}

	s := &Session{
		id:     id,
		brain:  opts.Brain,
		policy: policy,
		logger: logger,
		state:  initial,
		rng:    opts.Rand,
		input:  make(chan struct{}, 1),
	}
	if len(humans) == 1 {
		s.human = humans[0]
	}
	return s, nil
}

// Retryable reports whether a failed model call is worth another attempt
func Retryable(err error) bool {
	return !llm.IsUnrecoverable(err)
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// State returns the current state
func (s *Session) State() game.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Human returns the seated human, if any
func (s *Session) Human() (game.Player, bool) {
	return s.human, s.human != nil
}

// Run plays the game to the end. It blocks while the human holds the turn
// or has not voted, and returns the finished state. Only cancellation of ctx
// stops it early; a model that fails for good leaves a bot silent or voting
// at random.
func (s *Session) Run(ctx context.Context) (*game.Finished, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	defer s.closeSubscribers()

	s.logger.Info("Game started",
		"players", strings.Join(game.PlayerNames(s.State().Shared().Players), ", "))

	for {
		switch st := s.State().(type) {
		case *game.Chatting:
			if game.IsHumanTurn(st) {
				if err := s.waitForHuman(ctx); err != nil {
					return nil, err
				}
				continue
			}
			if err := s.botChat(ctx, st); err != nil {
				return nil, err
			}

		case *game.Voting:
			if len(game.PendingVoters(st, true)) == 0 {
				if err := s.waitForHuman(ctx); err != nil {
					return nil, err
				}
				continue
			}
			if err := s.botVotes(ctx, st); err != nil {
				return nil, err
			}

		case *game.Finished:
			s.logger.Info("Game finished",
				"wolf", st.Wolf.PlayerName(),
				"wolfWord", st.WolfWord,
				"commonWord", st.CommonWord,
				"executed", strings.Join(game.PlayerNames(game.ExecutedPlayers(st)), ", "),
				"villagersWin", game.VillagersWin(st))
			return st, nil

		default:
			return nil, fmt.Errorf("unexpected state %T", st)
		}
	}
}

func (s *Session) waitForHuman(ctx context.Context) error {
	select {
	case <-s.input:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// botChat takes the turn of the bot that currently holds it. A bot that
// never produces a valid reply stays silent.
func (s *Session) botChat(ctx context.Context, st *game.Chatting) error {
	speaker := st.Turn
	s.publish(Event{Kind: EventThinking, State: st, Player: speaker})

	say, err := retry.Do(ctx, s.policy, func(ctx context.Context) (string, error) {
		decision, err := s.brain.Chat(ctx, st)
		return decision.Say, err
	}, func() string { return "" })
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("chat turn of %s: %w", speaker.PlayerName(), err)
		}
		s.logger.Error("Model failed, bot stays silent", "player", speaker.PlayerName(), "error", err)
		say = ""
	}

	s.mu.Lock()
	if s.state != game.State(st) {
		s.mu.Unlock()
		return fmt.Errorf("%w: state changed during %s's turn", game.ErrInvalidTransition, speaker.PlayerName())
	}
	next := game.AdvanceChat(st, say)
	s.state = next
	s.mu.Unlock()

	s.logger.Debug("Bot spoke", "player", speaker.PlayerName(), "text", say)
	s.publishTransition(game.PhaseChat, Event{
		Kind:    EventChat,
		State:   next,
		Message: &game.ChatMessage{Sender: speaker, Text: say},
	})
	return nil
}

// botVotes asks every bot that has not voted yet, concurrently. Each vote is
// applied as soon as it resolves, so the human may vote at any point.
func (s *Session) botVotes(ctx context.Context, st *game.Voting) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, voter := range game.PendingVoters(st, true) {
		bot := voter.(game.Bot)
		g.Go(func() error {
			s.publish(Event{Kind: EventThinking, State: st, Player: bot})

			result, err := retry.Do(ctx, s.policy, func(ctx context.Context) (game.VotedResult, error) {
				return s.brain.Vote(ctx, st, bot)
			}, func() game.VotedResult {
				return s.randomVote(st, bot)
			})
			if err != nil {
				if ctx.Err() != nil {
					return fmt.Errorf("vote of %s: %w", bot.Name, err)
				}
				s.logger.Error("Model failed, voting at random", "player", bot.Name, "error", err)
				result = s.randomVote(st, bot)
			}

			s.applyBotVote(bot, result)
			return nil
		})
	}

	return g.Wait()
}

func (s *Session) randomVote(st *game.Voting, bot game.Bot) game.VotedResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return game.VotedResult{
		Voted:  game.RandomOtherPlayer(s.rng, st.Players, bot),
		Reason: randomVoteReason,
	}
}

func (s *Session) applyBotVote(bot game.Bot, result game.VotedResult) {
	s.mu.Lock()
	cur, ok := s.state.(*game.Voting)
	if !ok || cur.Votes.HasVoted(bot.Name) {
		s.mu.Unlock()
		s.logger.Warn("Discarding late vote", "player", bot.Name)
		return
	}
	next := game.RecordVote(cur, bot, result)
	s.state = next
	s.mu.Unlock()

	s.logger.Debug("Bot voted", "player", bot.Name, "vote", result.Voted.PlayerName(), "reason", result.Reason)
	s.publishTransition(game.PhaseVote, Event{Kind: EventVote, State: next, Player: bot})
}

// SubmitChat says text on behalf of the human. It is only accepted while the
// human holds the turn.
func (s *Session) SubmitChat(text string) error {
	if s.human == nil {
		return ErrNoHuman
	}

	s.mu.Lock()
	cur, ok := s.state.(*game.Chatting)
	if !ok {
		s.mu.Unlock()
		return ErrWrongPhase
	}
	if !game.SamePlayer(cur.Turn, s.human) {
		s.mu.Unlock()
		return ErrNotYourTurn
	}
	text = strings.TrimSpace(text)
	next, err := game.Apply(cur, game.ChatEvent{Text: text})
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.mu.Unlock()

	s.logger.Debug("Human spoke", "player", s.human.PlayerName(), "text", text)
	s.publishTransition(game.PhaseChat, Event{
		Kind:    EventChat,
		State:   next,
		Message: &game.ChatMessage{Sender: s.human, Text: text},
	})
	s.wake()
	return nil
}

// SubmitVote records the human's vote for the named player
func (s *Session) SubmitVote(target string) error {
	if s.human == nil {
		return ErrNoHuman
	}

	s.mu.Lock()
	cur, ok := s.state.(*game.Voting)
	if !ok {
		s.mu.Unlock()
		return ErrWrongPhase
	}
	voted, ok := cur.Player(strings.TrimSpace(target))
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownPlayer, target)
	}
	if game.SamePlayer(voted, s.human) {
		s.mu.Unlock()
		return ErrSelfVote
	}
	if cur.Votes.HasVoted(s.human.PlayerName()) {
		s.mu.Unlock()
		return ErrAlreadyVoted
	}
	next, err := game.Apply(cur, game.VoteEvent{Voter: s.human, Result: game.VotedResult{Voted: voted}})
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.mu.Unlock()

	s.logger.Debug("Human voted", "player", s.human.PlayerName(), "vote", voted.PlayerName())
	s.publishTransition(game.PhaseVote, Event{Kind: EventVote, State: next, Player: s.human})
	s.wake()
	return nil
}

func (s *Session) wake() {
	select {
	case s.input <- struct{}{}:
	default:
	}
}

// Restart returns a fresh session built by the factory that created s
func (s *Session) Restart() (*Session, error) {
	if s.factory == nil {
		return nil, ErrNoFactory
	}
	return s.factory.New()
}
