// Package game implements the Word Wolf state machine.
//
// A game moves through three phases, each represented by its own State
// type: *Chatting, *Voting and *Finished. Transitions are pure functions that
// take a state and an input and return a new state; the input state is never
// modified, so a state value can be handed to a renderer or a prompt builder
// while the next move is being computed.
//
// # Basic Usage
//
//	players, _ := game.NewPlayers(game.Human{Name: "Tom"}, game.Bot{Name: "Bob"}, game.Bot{Name: "Alice"})
//	s, _ := game.NewGame(players, players[2], "cat", "dog", game.DefaultRules())
//
//	var state game.State = s
//	for {
//	    switch st := state.(type) {
//	    case *game.Chatting:
//	        state = game.AdvanceChat(st, nextLine(st.Turn))
//	    case *game.Voting:
//	        voter := game.PendingVoters(st, true)[0]
//	        state = game.RecordVote(st, voter, game.VotedResult{Voted: players[0]})
//	    case *game.Finished:
//	        fmt.Println(game.ExecutedPlayers(st), game.VillagersWin(st))
//	        return
//	    }
//	}
//
// # Deterministic Testing
//
// Everything random (wolf draw, word order, fallback votes) takes a
// randutil.Source, so a fixed seed reproduces a whole game:
//
//	s, err := game.Setup(randutil.New(42), game.SetupOptions{...})
//
// Transitions panic with ErrInvalidTransition when called on a state that
// cannot accept the input. Apply offers the same transitions with an error
// return for input arriving from outside the process.
package game
