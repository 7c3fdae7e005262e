package game

import "slices"

// AdvanceChat appends text from the current speaker and moves the game on.
// Once the turn budget is spent the game moves to voting with an empty
// ballot, otherwise the turn passes to the next player in seat order.
//
// The caller is responsible for only submitting text on behalf of s.Turn.
func AdvanceChat(s *Chatting, text string) State {
	if s == nil {
		panic(invalid("advance chat on %s state", "nil"))
	}
	if s.RemainingTurns <= 0 {
		panic(invalid("chat state has no remaining turns"))
	}

	table := s.Table
	table.ChatLog = append(slices.Clip(s.ChatLog), ChatMessage{Sender: s.Turn, Text: text})
	remaining := s.RemainingTurns - 1

	if remaining <= 0 {
		return &Voting{
			Table: table,
			Votes: newBallot(table.Players),
		}
	}

	return &Chatting{
		Table:          table,
		Turn:           s.nextPlayer(),
		RemainingTurns: remaining,
	}
}

func (s *Chatting) nextPlayer() Player {
	i := s.indexOf(s.Turn)
	if i < 0 {
		panic(invalid("current turn %v is not seated", s.Turn))
	}
	return s.Players[(i+1)%len(s.Players)]
}
