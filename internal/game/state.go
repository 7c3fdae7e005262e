package game

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition signals a caller bug: an event was applied to a state
// that cannot accept it. The pure transition functions panic with it.
var ErrInvalidTransition = errors.New("invalid state transition")

// Phase identifies which State variant is current
type Phase int

const (
	PhaseChat Phase = iota
	PhaseVote
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseChat:
		return "chat"
	case PhaseVote:
		return "vote"
	case PhaseFinished:
		return "finished"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is one of *Chatting, *Voting or *Finished. The set of variants is
// closed; consumers switch on the concrete type.
type State interface {
	Phase() Phase
	Shared() *Table
	isState()
}

// Rules holds the tunable constants of a game
type Rules struct {
	// TurnsPerPlayer multiplied by the number of players gives the length of the chat phase
	TurnsPerPlayer int
}

// DefaultRules returns the standard rules: four chat turns per player
func DefaultRules() Rules {
	return Rules{TurnsPerPlayer: 4}
}

// ChatMessage is one line of the chat log
type ChatMessage struct {
	Sender Player
	Text   string
}

// VotedResult is a single player's vote and the reason they gave for it
type VotedResult struct {
	Voted  Player
	Reason string
}

// Table is the data every phase carries
type Table struct {
	Players    []Player // Turn order
	CommonWord string
	WolfWord   string
	Wolf       Player
	ChatLog    []ChatMessage
}

// Shared returns the phase-independent part of a state
func (t *Table) Shared() *Table { return t }

// Player looks a player up by name
func (t *Table) Player(name string) (Player, bool) {
	for _, p := range t.Players {
		if p.PlayerName() == name {
			return p, true
		}
	}
	return nil, false
}

// Bots returns the bot players in turn order
func (t *Table) Bots() []Bot {
	var bots []Bot
	for _, p := range t.Players {
		if b, ok := p.(Bot); ok {
			bots = append(bots, b)
		}
	}
	return bots
}

// Humans returns the human players in turn order
func (t *Table) Humans() []Human {
	var humans []Human
	for _, p := range t.Players {
		if h, ok := p.(Human); ok {
			humans = append(humans, h)
		}
	}
	return humans
}

// IsWolf reports whether p holds the wolf word
func (t *Table) IsWolf(p Player) bool {
	return SamePlayer(t.Wolf, p)
}

func (t *Table) indexOf(p Player) int {
	for i, q := range t.Players {
		if SamePlayer(p, q) {
			return i
		}
	}
	return -1
}

// Chatting is the conversation phase
type Chatting struct {
	Table
	Turn           Player
	RemainingTurns int
}

// Ballot maps every player name to their vote; nil means not yet voted
type Ballot map[string]*VotedResult

// Voting is the phase in which every player casts a vote
type Voting struct {
	Table
	Votes Ballot
}

// Finished holds the completed ballot
type Finished struct {
	Table
	Votes map[string]VotedResult
}

func (*Chatting) Phase() Phase { return PhaseChat }
func (*Voting) Phase() Phase   { return PhaseVote }
func (*Finished) Phase() Phase { return PhaseFinished }

func (*Chatting) isState() {}
func (*Voting) isState()   {}
func (*Finished) isState() {}

// NewGame validates the setup and returns the opening Chatting state
func NewGame(players []Player, wolf Player, wolfWord, commonWord string, rules Rules) (*Chatting, error) {
	if len(players) == 0 {
		return nil, errors.New("a game needs at least one player")
	}
	if rules.TurnsPerPlayer < 1 {
		return nil, fmt.Errorf("turns per player must be positive, got %d", rules.TurnsPerPlayer)
	}

	validated, err := NewPlayers(players...)
	if err != nil {
		return nil, err
	}

	table := Table{
		Players:    validated,
		CommonWord: commonWord,
		WolfWord:   wolfWord,
		Wolf:       wolf,
	}
	if wolf == nil || table.indexOf(wolf) < 0 {
		return nil, fmt.Errorf("wolf %v is not one of the players", wolf)
	}
	// Normalise to the instance held in the player list
	table.Wolf = validated[table.indexOf(wolf)]

	return &Chatting{
		Table:          table,
		Turn:           validated[0],
		RemainingTurns: len(validated) * rules.TurnsPerPlayer,
	}, nil
}

// newBallot seeds a ballot with every player unset
func newBallot(players []Player) Ballot {
	b := make(Ballot, len(players))
	for _, p := range players {
		b[p.PlayerName()] = nil
	}
	return b
}

// Complete reports whether every player has voted
func (b Ballot) Complete() bool {
	for _, v := range b {
		if v == nil {
			return false
		}
	}
	return true
}

// HasVoted reports whether the named player has a vote recorded
func (b Ballot) HasVoted(name string) bool {
	v, ok := b[name]
	return ok && v != nil
}

func (b Ballot) clone() Ballot {
	out := make(Ballot, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, fmt.Sprintf(format, args...))
}

func phaseName(s State) string {
	if s == nil {
		return "nil"
	}
	return s.Phase().String()
}
