package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lox/wordwolf/internal/game"
	"github.com/lox/wordwolf/internal/session"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	sendBuffer = 256
)

var ErrConnectionClosed = errors.New("connection closed")

// Connection is one player's WebSocket. Each connection plays its own game.
type Connection struct {
	conn    *websocket.Conn
	send    chan *Message
	factory *session.Factory
	logger  zerolog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu          sync.Mutex
	session     *session.Session
	stopSession context.CancelFunc
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, factory *session.Factory, logger zerolog.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:    conn,
		send:    make(chan *Message, sendBuffer),
		factory: factory,
		logger:  logger.With().Str("component", "conn").Str("remote", conn.RemoteAddr().String()).Logger(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start deals the first game and begins handling the connection
func (c *Connection) Start() error {
	s, err := c.factory.New()
	if err != nil {
		return err
	}

	go c.writePump()
	c.play(s)
	go c.readPump()
	return nil
}

// Done is closed once the connection has been closed
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close stops the current game and closes the socket
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		if c.stopSession != nil {
			c.stopSession()
		}
		c.mu.Unlock()

		c.cancel()
		err = c.conn.Close()
	})
	return err
}

// Session returns the game currently being played
func (c *Connection) Session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// play makes s the connection's game, stopping the previous one
func (c *Connection) play(s *session.Session) {
	ctx, cancel := context.WithCancel(c.ctx)
	events := s.Subscribe()

	c.mu.Lock()
	if c.stopSession != nil {
		c.stopSession()
	}
	c.session = s
	c.stopSession = cancel
	c.mu.Unlock()

	logger := c.logger.With().Str("session", s.ID()).Logger()
	logger.Info().Msg("Game started")

	c.sendState(s, nil)

	go func() {
		for ev := range events {
			if c.Session() != s {
				continue
			}
			c.sendState(s, &ev)
		}
	}()

	go func() {
		finished, err := s.Run(ctx)
		switch {
		case err == nil:
			logger.Info().
				Str("wolf", finished.Wolf.PlayerName()).
				Bool("villagers_win", game.VillagersWin(finished)).
				Msg("Game finished")
		case errors.Is(err, context.Canceled):
			logger.Debug().Msg("Game stopped")
		default:
			logger.Error().Err(err).Msg("Game failed")
			if c.Session() == s {
				c.sendError("game_failed", "The game stopped unexpectedly. Send restart to play again.")
			}
		}
	}()
}

// SendMessage queues a message for the client
func (c *Connection) SendMessage(msg *Message) error {
	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		c.logger.Warn().Msg("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

func (c *Connection) sendState(s *session.Session, ev *session.Event) {
	state := s.State()
	if ev != nil {
		state = ev.State
	}
	human, _ := s.Human()

	msg, err := NewMessage(MessageTypeState, NewStateData(s.ID(), state, human, ev))
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to create state message")
		return
	}
	_ = c.SendMessage(msg)
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	msg, err := NewMessage(MessageTypeError, ErrorData{Code: code, Message: message})
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to create error message")
		return
	}
	_ = c.SendMessage(msg)
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("WebSocket error")
			}
			return
		}
		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error().Err(err).Msg("Failed to write message")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug().Str("type", msg.Type.String()).Msg("Received message")

	switch msg.Type {
	case MessageTypeChat:
		var data ChatData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse chat data")
			return
		}
		c.reportError(c.Session().SubmitChat(data.Text))

	case MessageTypeVote:
		var data VoteData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse vote data")
			return
		}
		c.reportError(c.Session().SubmitVote(data.Target))

	case MessageTypeRestart:
		next, err := c.Session().Restart()
		if err != nil {
			c.logger.Error().Err(err).Msg("Failed to restart")
			c.sendError("restart_failed", err.Error())
			return
		}
		c.play(next)

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

func (c *Connection) reportError(err error) {
	if err == nil {
		return
	}
	c.sendError(errorCode(err), err.Error())
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, session.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, session.ErrWrongPhase):
		return "wrong_phase"
	case errors.Is(err, session.ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, session.ErrSelfVote):
		return "self_vote"
	case errors.Is(err, session.ErrUnknownPlayer):
		return "unknown_player"
	case errors.Is(err, session.ErrNoHuman):
		return "no_human"
	default:
		return "invalid_action"
	}
}
