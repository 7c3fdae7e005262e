package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lox/wordwolf/internal/game"
)

const silence = "(says nothing)"

func styleName(p game.Player) string {
	if game.IsBot(p) {
		return BotStyle.Render(p.PlayerName())
	}
	return HumanStyle.Render(p.PlayerName())
}

// FormatMessage renders one chat log line
func FormatMessage(m game.ChatMessage) string {
	text := m.Text
	if text == "" {
		text = SilenceStyle.Render(silence)
	}
	return fmt.Sprintf("%s: %s", styleName(m.Sender), text)
}

// FormatSidebar lists the players with the turn marker or voting status,
// followed by the human's secret word.
func FormatSidebar(s game.State, human game.Player) string {
	var b strings.Builder
	t := s.Shared()

	b.WriteString(HeaderStyle.Render(" Word Wolf "))
	b.WriteString("\n\n")

	if human != nil {
		fmt.Fprintf(&b, "Your word: %s\n\n", WordStyle.Render(game.SecretWord(s, human)))
	}

	b.WriteString(InfoStyle.Render("Players:"))
	b.WriteString("\n")
	for i, p := range t.Players {
		marker := " "
		switch st := s.(type) {
		case *game.Chatting:
			if game.SamePlayer(st.Turn, p) {
				marker = "▶"
			}
		case *game.Voting:
			if st.Votes.HasVoted(p.PlayerName()) {
				marker = "✓"
			}
		case *game.Finished:
			if st.IsWolf(p) {
				marker = "🐺"
			}
		}
		label := styleName(p)
		if human != nil && game.SamePlayer(p, human) {
			label += InfoStyle.Render(" (you)")
		}
		fmt.Fprintf(&b, "%s %d. %s\n", marker, i+1, label)
	}
	b.WriteString("\n")

	switch st := s.(type) {
	case *game.Chatting:
		fmt.Fprintf(&b, "Turns left: %d\n", st.RemainingTurns)
	case *game.Voting:
		b.WriteString(WarningStyle.Render("Voting"))
		b.WriteString("\n")
	case *game.Finished:
		b.WriteString(WarningStyle.Render("Game over"))
		b.WriteString("\n")
	}

	return b.String()
}

// FormatResult describes the outcome of a finished game from the point of
// view of human, which may be nil.
func FormatResult(s *game.Finished, human game.Player) []string {
	lines := []string{"", WarningStyle.Render("*** RESULT ***")}

	for _, v := range game.Votes(s) {
		line := fmt.Sprintf("%s voted for %s", styleName(v.Voter), styleName(v.Result.Voted))
		if v.Result.Reason != "" {
			line += InfoStyle.Render(" (" + v.Result.Reason + ")")
		}
		lines = append(lines, line)
	}

	counts := make([]string, 0, len(s.Players))
	for _, c := range game.VoteCounts(s) {
		counts = append(counts, fmt.Sprintf("%s %d", c.Player.PlayerName(), c.Count))
	}
	lines = append(lines, InfoStyle.Render("Tally: "+strings.Join(counts, ", ")))

	executed := game.PlayerNames(game.ExecutedPlayers(s))
	lines = append(lines,
		fmt.Sprintf("Executed: %s", strings.Join(executed, ", ")),
		fmt.Sprintf("The wolf was %s with %s; everyone else had %s",
			styleName(s.Wolf), WordStyle.Render(s.WolfWord), WordStyle.Render(s.CommonWord)),
	)

	if game.VillagersWin(s) {
		lines = append(lines, SuccessStyle.Render("The villagers win!"))
	} else {
		lines = append(lines, ErrorStyle.Render("The wolf wins!"))
	}

	if human != nil {
		if game.HasPlayerWon(s, human) {
			lines = append(lines, SuccessStyle.Render("You won."))
		} else {
			lines = append(lines, ErrorStyle.Render("You lost."))
		}
	}
	return lines
}

// resolveTarget accepts a player name or a 1-based seat number
func resolveTarget(s game.State, input string) string {
	players := s.Shared().Players
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(players) {
		return players[n-1].PlayerName()
	}
	return input
}
