package game

import (
	"github.com/lox/wordwolf/internal/randutil"
)

// Vote pairs a voter with the vote they cast
type Vote struct {
	Voter  Player
	Result VotedResult
}

// VoteCount is the number of votes a player received
type VoteCount struct {
	Player Player
	Count  int
}

// RecordVote stores voter's vote. When it completes the ballot the game is
// finished, otherwise the updated Voting state is returned.
//
// A second vote from the same voter replaces the first; preventing re-votes
// is left to the caller. Voters and targets must be seated players.
func RecordVote(s *Voting, voter Player, result VotedResult) State {
	if s == nil {
		panic(invalid("record vote on %s state", "nil"))
	}
	if voter == nil || s.indexOf(voter) < 0 {
		panic(invalid("voter %v is not a player", voter))
	}
	if result.Voted == nil || s.indexOf(result.Voted) < 0 {
		panic(invalid("vote target %v is not a player", result.Voted))
	}

	votes := s.Votes.clone()
	r := result
	r.Voted = s.Players[s.indexOf(result.Voted)]
	votes[voter.PlayerName()] = &r

	if !votes.Complete() {
		return &Voting{Table: s.Table, Votes: votes}
	}

	final := make(map[string]VotedResult, len(votes))
	for name, v := range votes {
		final[name] = *v
	}
	return &Finished{Table: s.Table, Votes: final}
}

// Tally counts the votes received by each player, keyed by player name.
// Players nobody voted for are absent.
func Tally(s State) map[string]int {
	counts := make(map[string]int)
	for _, v := range Votes(s) {
		counts[v.Result.Voted.PlayerName()]++
	}
	return counts
}

// VoteCounts returns the tally as a list in seat order, including players
// with zero votes.
func VoteCounts(s State) []VoteCount {
	counts := Tally(s)
	out := make([]VoteCount, 0, len(s.Shared().Players))
	for _, p := range s.Shared().Players {
		out = append(out, VoteCount{Player: p, Count: counts[p.PlayerName()]})
	}
	return out
}

// Votes returns every vote cast so far, in voter seat order
func Votes(s State) []Vote {
	var out []Vote
	switch s := s.(type) {
	case *Voting:
		for _, p := range s.Players {
			if v := s.Votes[p.PlayerName()]; v != nil {
				out = append(out, Vote{Voter: p, Result: *v})
			}
		}
	case *Finished:
		for _, p := range s.Players {
			if v, ok := s.Votes[p.PlayerName()]; ok {
				out = append(out, Vote{Voter: p, Result: v})
			}
		}
	default:
		panic(invalid("no votes in %s state", phaseName(s)))
	}
	return out
}

// ExecutedPlayers returns the players with the most votes. A tie returns
// every tied player, in seat order.
func ExecutedPlayers(s *Finished) []Player {
	if s == nil {
		panic(invalid("executed players of %s state", "nil"))
	}

	counts := Tally(s)
	maxCount := 0
	for _, c := range counts {
		maxCount = max(maxCount, c)
	}
	if maxCount == 0 {
		return nil
	}

	var executed []Player
	for _, p := range s.Players {
		if counts[p.PlayerName()] == maxCount {
			executed = append(executed, p)
		}
	}
	return executed
}

// VillagersWin reports whether the wolf is among the executed players. A
// tie that includes the wolf counts as the wolf being executed.
func VillagersWin(s *Finished) bool {
	for _, p := range ExecutedPlayers(s) {
		if s.IsWolf(p) {
			return true
		}
	}
	return false
}

// HasPlayerWon reports whether p is on the winning side
func HasPlayerWon(s *Finished, p Player) bool {
	villagersWin := VillagersWin(s)
	if s.IsWolf(p) {
		return !villagersWin
	}
	return villagersWin
}

// RandomOtherPlayer picks a player other than voter uniformly at random. It
// panics when voter is the only player.
func RandomOtherPlayer(src randutil.Source, players []Player, voter Player) Player {
	others := make([]Player, 0, len(players))
	for _, p := range players {
		if !SamePlayer(p, voter) {
			others = append(others, p)
		}
	}
	return randutil.Pick(src, others)
}
