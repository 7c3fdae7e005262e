package game

import "fmt"

// Event is an input to the state machine coming from outside the process,
// for example a network client. Apply validates it instead of panicking.
type Event interface {
	isEvent()
}

// ChatEvent is a line of chat from whoever holds the turn
type ChatEvent struct {
	Text string
}

// VoteEvent is a vote from Voter
type VoteEvent struct {
	Voter  Player
	Result VotedResult
}

func (ChatEvent) isEvent() {}
func (VoteEvent) isEvent() {}

// Apply runs the transition matching ev against s and returns an error
// wrapping ErrInvalidTransition when the event does not fit the state.
func Apply(s State, ev Event) (State, error) {
	switch ev := ev.(type) {
	case ChatEvent:
		c, ok := s.(*Chatting)
		if !ok {
			return s, invalid("chat message during %s phase", phaseName(s))
		}
		return AdvanceChat(c, ev.Text), nil

	case VoteEvent:
		v, ok := s.(*Voting)
		if !ok {
			return s, invalid("vote during %s phase", phaseName(s))
		}
		if ev.Voter == nil || v.indexOf(ev.Voter) < 0 {
			return s, invalid("voter %v is not a player", ev.Voter)
		}
		if ev.Result.Voted == nil || v.indexOf(ev.Result.Voted) < 0 {
			return s, invalid("vote target %v is not a player", ev.Result.Voted)
		}
		return RecordVote(v, ev.Voter, ev.Result), nil

	default:
		return s, fmt.Errorf("%w: unknown event %T", ErrInvalidTransition, ev)
	}
}
