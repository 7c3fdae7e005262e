package session

import (
	"github.com/lox/wordwolf/internal/game"
)

// EventKind identifies what happened
type EventKind int

const (
	EventChat     EventKind = iota // A line was added to the chat log
	EventPhase                     // The game moved to a new phase
	EventVote                      // A vote was recorded
	EventFinished                  // The ballot is complete
	EventThinking                  // A bot is waiting on the model
)

func (k EventKind) String() string {
	switch k {
	case EventChat:
		return "chat"
	case EventPhase:
		return "phase"
	case EventVote:
		return "vote"
	case EventFinished:
		return "finished"
	case EventThinking:
		return "thinking"
	default:
		return "unknown"
	}
}

// Event is published to subscribers after every state change. State is the
// state after the change.
type Event struct {
	Kind    EventKind
	State   game.State
	Message *game.ChatMessage // EventChat
	Player  game.Player       // Voter for EventVote, speaker for EventThinking
}

const subscriberBuffer = 64

// Subscribe returns a channel receiving every subsequent event. The channel
// is closed when Run returns. A subscriber that falls behind by more than
// the buffer loses events but can always read State.
func (s *Session) Subscribe() <-chan Event {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch
	}
	s.subs = append(s.subs, ch)
	return ch
}

func (s *Session) publish(ev Event) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.logger.Warn("Subscriber is not keeping up, dropping event", "kind", ev.Kind)
		}
	}
}

// publishTransition emits ev followed by a phase or finished event when the
// transition left the previous phase.
func (s *Session) publishTransition(prev game.Phase, ev Event) {
	s.publish(ev)
	if ev.State.Phase() == prev {
		return
	}
	s.publish(Event{Kind: EventPhase, State: ev.State})
	if ev.State.Phase() == game.PhaseFinished {
		s.publish(Event{Kind: EventFinished, State: ev.State})
	}
}

func (s *Session) closeSubscribers() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
}
