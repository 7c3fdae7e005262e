package server

import (
	"encoding/json"
	"time"

	"github.com/lox/wordwolf/internal/game"
	"github.com/lox/wordwolf/internal/session"
)

// MessageType represents a WebSocket message type
type MessageType string

const (
	// Client → Server
	MessageTypeChat    MessageType = "chat"
	MessageTypeVote    MessageType = "vote"
	MessageTypeRestart MessageType = "restart"

	// Server → Client
	MessageTypeState MessageType = "state"
	MessageTypeError MessageType = "error"
)

func (mt MessageType) String() string {
	return string(mt)
}

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type ChatData struct {
	Text string `json:"text"`
}

type VoteData struct {
	Target string `json:"target"`
}

// Server → Client Messages

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PlayerData struct {
	Name  string `json:"name"`
	Bot   bool   `json:"bot"`
	Voted bool   `json:"voted,omitempty"`
}

type ChatLineData struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

type VoteResultData struct {
	Voter  string `json:"voter"`
	Voted  string `json:"voted"`
	Reason string `json:"reason,omitempty"`
}

type ResultData struct {
	Wolf         string           `json:"wolf"`
	WolfWord     string           `json:"wolfWord"`
	CommonWord   string           `json:"commonWord"`
	Votes        []VoteResultData `json:"votes"`
	Executed     []string         `json:"executed"`
	VillagersWin bool             `json:"villagersWin"`
	YouWon       bool             `json:"youWon"`
}

// StateData is the game as the connected human sees it. The other
// players' words and votes stay hidden until the game is finished.
type StateData struct {
	SessionID      string         `json:"sessionId"`
	Event          string         `json:"event,omitempty"`
	Phase          string         `json:"phase"`
	You            string         `json:"you"`
	Word           string         `json:"word"`
	Players        []PlayerData   `json:"players"`
	Turn           string         `json:"turn,omitempty"`
	RemainingTurns int            `json:"remainingTurns,omitempty"`
	Thinking       string         `json:"thinking,omitempty"`
	ChatLog        []ChatLineData `json:"chatLog"`
	Result         *ResultData    `json:"result,omitempty"`
}

// NewStateData renders s for human. ev may be nil for the initial snapshot.
func NewStateData(sessionID string, s game.State, human game.Player, ev *session.Event) StateData {
	t := s.Shared()
	data := StateData{
		SessionID: sessionID,
		Phase:     s.Phase().String(),
		ChatLog:   make([]ChatLineData, 0, len(t.ChatLog)),
	}
	if human != nil {
		data.You = human.PlayerName()
		data.Word = game.SecretWord(s, human)
	}
	if ev != nil {
		data.Event = ev.Kind.String()
		if ev.Kind == session.EventThinking && ev.Player != nil {
			data.Thinking = ev.Player.PlayerName()
		}
	}

	voting, _ := s.(*game.Voting)
	for _, p := range t.Players {
		pd := PlayerData{Name: p.PlayerName(), Bot: game.IsBot(p)}
		if voting != nil {
			pd.Voted = voting.Votes.HasVoted(p.PlayerName())
		}
		data.Players = append(data.Players, pd)
	}
	for _, m := range t.ChatLog {
		data.ChatLog = append(data.ChatLog, ChatLineData{Sender: m.Sender.PlayerName(), Text: m.Text})
	}

	switch st := s.(type) {
	case *game.Chatting:
		data.Turn = st.Turn.PlayerName()
		data.RemainingTurns = st.RemainingTurns
	case *game.Finished:
		data.Result = newResultData(st, human)
	}
	return data
}

func newResultData(s *game.Finished, human game.Player) *ResultData {
	r := &ResultData{
		Wolf:         s.Wolf.PlayerName(),
		WolfWord:     s.WolfWord,
		CommonWord:   s.CommonWord,
		Executed:     game.PlayerNames(game.ExecutedPlayers(s)),
		VillagersWin: game.VillagersWin(s),
	}
	for _, v := range game.Votes(s) {
		r.Votes = append(r.Votes, VoteResultData{
			Voter:  v.Voter.PlayerName(),
			Voted:  v.Result.Voted.PlayerName(),
			Reason: v.Result.Reason,
		})
	}
	if human != nil {
		r.YouWon = game.HasPlayerWon(s, human)
	}
	return r
}
