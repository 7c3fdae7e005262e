// Package tui is the terminal client for a single-player game. It renders
// session events and forwards the human's chat lines and vote.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/lox/wordwolf/internal/game"
	"github.com/lox/wordwolf/internal/session"
)

const (
	paneLog = iota
	paneInput
)

// Model is the Bubble Tea model for a game
type Model struct {
	ctx     context.Context
	session *session.Session
	events  <-chan session.Event
	logger  *log.Logger

	// UI components
	logViewport viewport.Model
	input       textinput.Model

	gameLog     []string
	status      string
	thinking    string
	stopped     bool // Run returned without finishing
	quitting    bool
	focusedPane int

	// Dimensions
	width       int
	height      int
	initialized bool
}

type eventMsg struct {
	sessionID string
	event     session.Event
}

type eventsClosedMsg struct {
	sessionID string
}

type runDoneMsg struct {
	sessionID string
	finished  *game.Finished
	err       error
}

// NewModel creates a model driving s. The session must not be running yet;
// the model starts it from Init.
func NewModel(ctx context.Context, s *session.Session, logger *log.Logger) *Model {
	// Sized properly when the first WindowSizeMsg arrives
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 280
	ti.Width = 100
	ti.PromptStyle = lipgloss.NewStyle().Foreground(colorFocused).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	ti.Prompt = "> "

	m := &Model{
		ctx:         ctx,
		logger:      logger.WithPrefix("tui"),
		logViewport: vp,
		input:       ti,
		focusedPane: paneInput,
	}
	m.attach(s)
	return m
}

func (m *Model) attach(s *session.Session) {
	m.session = s
	m.events = s.Subscribe()
	m.gameLog = nil
	m.status = ""
	m.thinking = ""
	m.stopped = false
	m.logViewport.SetContent("")

	t := s.State().Shared()
	m.AddLogEntry(InfoStyle.Render(fmt.Sprintf("New game with %s. One of you has a different word.",
		strings.Join(game.PlayerNames(t.Players), ", "))))
}

// Init starts the session and begins listening for its events
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.listen(), m.run())
}

func (m *Model) listen() tea.Cmd {
	id, events := m.session.ID(), m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{sessionID: id}
		}
		return eventMsg{sessionID: id, event: ev}
	}
}

func (m *Model) run() tea.Cmd {
	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		finished, err := s.Run(ctx)
		return runDoneMsg{sessionID: s.ID(), finished: finished, err: err}
	}
}

// Update handles messages in the TUI
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logger.Debug("Updated dimensions", "width", m.width, "height", m.height)

	case eventMsg:
		if msg.sessionID != m.session.ID() {
			return m, nil
		}
		m.handleEvent(msg.event)
		cmds = append(cmds, m.listen())

	case eventsClosedMsg:
		return m, nil

	case runDoneMsg:
		if msg.sessionID != m.session.ID() {
			return m, nil
		}
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.stopped = true
			m.thinking = ""
			m.status = ErrorStyle.Render("Game stopped: " + msg.err.Error())
			m.logger.Error("Game stopped", "error", msg.err)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		case "tab":
			if m.focusedPane == paneLog {
				m.focusedPane = paneInput
				m.input.Focus()
			} else {
				m.focusedPane = paneLog
				m.input.Blur()
			}
		case "enter":
			if m.focusedPane == paneInput {
				text := m.input.Value()
				m.input.SetValue("")
				if cmd := m.submit(text); cmd != nil {
					return m, cmd
				}
			}
		case "up", "k":
			if m.focusedPane == paneLog {
				m.logViewport.ScrollUp(1)
			}
		case "down", "j":
			if m.focusedPane == paneLog {
				m.logViewport.ScrollDown(1)
			}
		case "pgup", "b":
			if m.focusedPane == paneLog {
				m.logViewport.HalfPageUp()
			}
		case "pgdown", "f":
			if m.focusedPane == paneLog {
				m.logViewport.HalfPageDown()
			}
		case "home", "g":
			if m.focusedPane == paneLog {
				m.logViewport.GotoTop()
			}
		case "end", "G":
			if m.focusedPane == paneLog {
				m.logViewport.GotoBottom()
			}
		}
	}

	var cmd tea.Cmd
	if m.focusedPane == paneInput {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) handleEvent(ev session.Event) {
	human, _ := m.session.Human()

	switch ev.Kind {
	case session.EventThinking:
		m.thinking = ev.Player.PlayerName() + " is thinking..."

	case session.EventChat:
		m.thinking = ""
		m.AddLogEntry(FormatMessage(*ev.Message))

	case session.EventPhase:
		if ev.State.Phase() == game.PhaseVote {
			m.AddLogEntry("")
			m.AddLogEntry(WarningStyle.Render("*** VOTE *** Who is the wolf?"))
		}

	case session.EventVote:
		if human != nil && game.SamePlayer(ev.Player, human) {
			if v := voteOf(ev.State, human); v != nil {
				m.AddLogEntry(InfoStyle.Render("You voted for " + v.Voted.PlayerName()))
			}
		} else {
			m.AddLogEntry(InfoStyle.Render(ev.Player.PlayerName() + " has voted"))
		}

	case session.EventFinished:
		m.thinking = ""
		if f, ok := ev.State.(*game.Finished); ok {
			for _, line := range FormatResult(f, human) {
				m.AddLogEntry(line)
			}
		}
	}
}

func voteOf(s game.State, p game.Player) *game.VotedResult {
	for _, v := range game.Votes(s) {
		if game.SamePlayer(v.Voter, p) {
			r := v.Result
			return &r
		}
	}
	return nil
}

// submit acts on a line of input according to the current phase
func (m *Model) submit(raw string) tea.Cmd {
	text := strings.TrimSpace(raw)
	if text == "/quit" {
		m.quitting = true
		return tea.Sequence(tea.ClearScreen, tea.Quit)
	}

	state := m.session.State()
	if m.stopped || state.Phase() == game.PhaseFinished {
		switch strings.ToLower(text) {
		case "", "r", "restart", "/restart":
			return m.restart()
		case "q", "quit":
			m.quitting = true
			return tea.Sequence(tea.ClearScreen, tea.Quit)
		}
		return nil
	}

	var err error
	switch state.Phase() {
	case game.PhaseChat:
		err = m.session.SubmitChat(text)
	case game.PhaseVote:
		err = m.session.SubmitVote(resolveTarget(state, text))
	}

	if err != nil {
		m.status = ErrorStyle.Render(err.Error())
	} else {
		m.status = ""
	}
	return nil
}

func (m *Model) restart() tea.Cmd {
	next, err := m.session.Restart()
	if err != nil {
		m.status = ErrorStyle.Render("Could not start a new game: " + err.Error())
		return nil
	}
	m.logger.Info("Restarting", "session", next.ID())
	m.attach(next)
	return tea.Batch(m.listen(), m.run())
}

// View renders the TUI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	// Input pane (bottom, full width)
	inputContent := m.renderInputPane()
	inputHeight := lipgloss.Height(inputContent)

	inputStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorMuted).
		Width(max(m.width-2, 1)).
		Height(max(inputHeight, 1))
	if m.focusedPane == paneInput {
		inputStyle = inputStyle.BorderForeground(colorFocused)
	}
	inputPane := inputStyle.Render(inputContent)

	// Sidebar (right of the log, same height)
	human, _ := m.session.Human()
	sidebarContent := FormatSidebar(m.session.State(), human)
	sidebarWidth := max(lipgloss.Width(sidebarContent), 25)
	paneHeight := max(m.height-inputHeight-4, 1)

	sidebarPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorMuted).
		Width(sidebarWidth).
		Height(paneHeight).
		Render(sidebarContent)

	// Log pane (top left)
	logWidth := max(m.width-sidebarWidth-4, 1)
	m.logViewport.Width = logWidth
	m.logViewport.Height = paneHeight
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	if !m.initialized && logWidth > 1 && paneHeight > 1 {
		m.logViewport.GotoBottom()
		m.initialized = true
	}

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorMuted).
		Width(logWidth).
		Height(paneHeight)
	if m.focusedPane == paneLog {
		logStyle = logStyle.BorderForeground(colorFocused)
	}
	logPane := logStyle.Render(m.logViewport.View())

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebarPane)
	return lipgloss.JoinVertical(lipgloss.Top, topRow, inputPane)
}

func (m *Model) renderInputPane() string {
	var content strings.Builder

	content.WriteString(m.prompt())
	content.WriteString("\n")

	m.input.Placeholder = m.placeholder()
	content.WriteString(m.input.View())
	content.WriteString("\n")

	help := "Tab to scroll log • Enter to submit • Ctrl+C to quit"
	if m.focusedPane == paneLog {
		help = "Log focused: ↑↓ scroll, PgUp/PgDn half page, Home/End, Tab to input"
	}
	content.WriteString(InfoStyle.Render(help))
	return content.String()
}

// prompt is the line above the input describing what is expected
func (m *Model) prompt() string {
	if m.status != "" {
		return m.status
	}
	if m.stopped {
		return WarningStyle.Render("Press Enter to start a new game")
	}

	human, _ := m.session.Human()
	switch st := m.session.State().(type) {
	case *game.Chatting:
		if human != nil && game.SamePlayer(st.Turn, human) {
			return SuccessStyle.Render("Your turn to speak")
		}
		if m.thinking != "" {
			return InfoStyle.Render(m.thinking)
		}
		return InfoStyle.Render("Waiting for " + st.Turn.PlayerName())
	case *game.Voting:
		if human != nil && !st.Votes.HasVoted(human.PlayerName()) {
			return SuccessStyle.Render("Vote for the player you think is the wolf")
		}
		return InfoStyle.Render("Waiting for the other votes")
	default:
		return WarningStyle.Render("Game over")
	}
}

func (m *Model) placeholder() string {
	if m.stopped {
		return "Enter to restart, q to quit"
	}
	switch m.session.State().Phase() {
	case game.PhaseChat:
		return "Describe your word without giving it away"
	case game.PhaseVote:
		return "Player name or number"
	default:
		return "Enter to play again, q to quit"
	}
}

// AddLogEntry adds an entry to the game log and scrolls to it
func (m *Model) AddLogEntry(entry string) {
	m.gameLog = append(m.gameLog, entry)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))

	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

// Log returns a copy of the game log
func (m *Model) Log() []string {
	out := make([]string, len(m.gameLog))
	copy(out, m.gameLog)
	return out
}

// Status returns the current status line
func (m *Model) Status() string {
	return m.status
}

// Session returns the session being displayed
func (m *Model) Session() *session.Session {
	return m.session
}
