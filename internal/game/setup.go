package game

import (
	"github.com/lox/wordwolf/internal/randutil"
)

// SetupOptions describes a single-player game before the wolf is drawn
type SetupOptions struct {
	Human Human
	Bots  []Bot
	Words [2]string // Either word may end up as the wolf word
	Rules Rules
}

// Setup seats the bots followed by the human, draws the wolf uniformly from
// all players and decides which word of the pair the wolf receives.
func Setup(src randutil.Source, opts SetupOptions) (*Chatting, error) {
	players := make([]Player, 0, len(opts.Bots)+1)
	for _, b := range opts.Bots {
		players = append(players, b)
	}
	players = append(players, opts.Human)

	wolf := randutil.Pick(src, players)

	wolfWord, commonWord := opts.Words[0], opts.Words[1]
	if src.IntN(2) == 1 {
		wolfWord, commonWord = commonWord, wolfWord
	}

	return NewGame(players, wolf, wolfWord, commonWord, opts.Rules)
}
