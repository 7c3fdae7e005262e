// Package brain turns language model replies into game decisions. It owns
// the response schemas and the error taxonomy for unreliable model output.
package brain

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/lox/wordwolf/internal/game"
	"github.com/lox/wordwolf/internal/llm"
	"github.com/lox/wordwolf/internal/prompt"
)

// Brain asks the model for a decision and parses the reply. A single call
// is one attempt; retries are the caller's concern.
type Brain struct {
	model  llm.Model
	parser *Parser
	logger *log.Logger
}

// New creates a Brain backed by model
func New(model llm.Model, logger *log.Logger) *Brain {
	return &Brain{
		model:  model,
		parser: DefaultParser(),
		logger: logger.WithPrefix("brain"),
	}
}

// Chat asks the bot whose turn it is what to say
func (b *Brain) Chat(ctx context.Context, s *game.Chatting) (ChatDecision, error) {
	messages, err := prompt.Chat(s)
	if err != nil {
		return ChatDecision{}, llm.Unrecoverable(err)
	}

	raw, err := b.ask(ctx, messages)
	if err != nil {
		return ChatDecision{}, err
	}

	decision, err := b.parser.ParseChat(raw)
	if err != nil {
		return ChatDecision{}, err
	}

	b.logger.Debug("Chat decision",
		"player", s.Turn.PlayerName(),
		"thoughts", decision.Thoughts,
		"likelyWolf", decision.LikelyWolf,
		"say", decision.Say)

	return decision, nil
}

// Vote asks bot whom to execute. The model's reasoning becomes the vote's
// reason; it is never added to the chat log.
func (b *Brain) Vote(ctx context.Context, s *game.Voting, bot game.Bot) (game.VotedResult, error) {
	messages, err := prompt.Vote(s, bot)
	if err != nil {
		return game.VotedResult{}, llm.Unrecoverable(err)
	}

	raw, err := b.ask(ctx, messages)
	if err != nil {
		return game.VotedResult{}, err
	}

	decision, voted, err := b.parser.ParseVote(raw, s.Players)
	if err != nil {
		return game.VotedResult{}, err
	}

	b.logger.Debug("Vote decision",
		"player", bot.Name,
		"thoughts", decision.Thoughts,
		"vote", voted.PlayerName())

	return game.VotedResult{Voted: voted, Reason: decision.Thoughts}, nil
}

func (b *Brain) ask(ctx context.Context, messages []llm.Message) (string, error) {
	raw, err := b.model.Ask(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransportFailure, err)
	}
	return raw, nil
}
