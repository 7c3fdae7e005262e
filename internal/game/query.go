package game

// SecretWord returns the word dealt to p: the wolf word for the wolf, the
// common word for everyone else.
func SecretWord(s State, p Player) string {
	t := s.Shared()
	if t.IsWolf(p) {
		return t.WolfWord
	}
	return t.CommonWord
}

// IsHumanTurn reports whether the current speaker is a human
func IsHumanTurn(s *Chatting) bool {
	return !IsBot(s.Turn)
}

// BotVotesComplete reports whether every bot has voted
func BotVotesComplete(s *Voting) bool {
	return len(PendingVoters(s, true)) == 0
}

// HumanVotesComplete reports whether every human has voted
func HumanVotesComplete(s *Voting) bool {
	return len(PendingVoters(s, false)) == 0
}

// PendingVoters returns the bots (bots == true) or humans that have not yet
// voted, in seat order.
func PendingVoters(s *Voting, bots bool) []Player {
	var pending []Player
	for _, p := range s.Players {
		if IsBot(p) != bots {
			continue
		}
		if !s.Votes.HasVoted(p.PlayerName()) {
			pending = append(pending, p)
		}
	}
	return pending
}
