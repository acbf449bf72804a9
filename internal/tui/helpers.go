package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var tuiCommandAliases = map[string]string{
	"quit":    "/quit",
	"/quit":   "/quit",
	"exit":    "/quit",
	"/exit":   "/quit",
	"bye":     "/quit",
	"help":    "/help",
	"/help":   "/help",
	"clear":   "/clear",
	"/clear":  "/clear",
	"follow":  "/follow",
	"/follow": "/follow",
	"last":    "/last",
	"/last":   "/last",
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// styleBoxWidth returns the width to pass into Style.Width so that the
// rendered block fits the requested outer width.
func styleBoxWidth(style lipgloss.Style, outerWidth int) int {
	return maxInt(1, outerWidth-style.GetHorizontalMargins()-style.GetHorizontalBorderSize())
}

// styleTextWidth returns the visible text area width inside a styled block.
func styleTextWidth(style lipgloss.Style, outerWidth int) int {
	return maxInt(1, outerWidth-style.GetHorizontalFrameSize())
}

// styleBoxHeight returns the height to pass into Style.Height so that the
// rendered block fits the requested outer height.
func styleBoxHeight(style lipgloss.Style, outerHeight int) int {
	return maxInt(1, outerHeight-style.GetVerticalMargins()-style.GetVerticalBorderSize())
}

// styleTextHeight returns the visible text area height inside a styled block.
func styleTextHeight(style lipgloss.Style, outerHeight int) int {
	return maxInt(1, outerHeight-style.GetVerticalFrameSize())
}

func wrapLogLines(lines []string, width int) []string {
	if len(lines) == 0 {
		return nil
	}
	if width <= 0 {
		out := make([]string, 0, len(lines))
		out = append(out, lines...)
		return out
	}

	wrapped := make([]string, 0, len(lines)*2)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			wrapped = append(wrapped, "")
			continue
		}
		if strings.Contains(line, "\x1b[") {
			// Keep ANSI-styled lines intact; content lines are wrapped below.
			wrapped = append(wrapped, line)
			continue
		}
		if runewidth.StringWidth(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}
		wrappedText := runewidth.Wrap(line, width)
		wrapped = append(wrapped, strings.Split(wrappedText, "\n")...)
	}
	return wrapped
}

func truncateText(text string, width int) string {
	text = strings.TrimSpace(text)
	if width <= 0 || runewidth.StringWidth(text) <= width {
		return text
	}
	if width == 1 {
		return "…"
	}
	return runewidth.Truncate(text, width, "…")
}

// formatAssistantLines renders an assistant reply as log lines with a
// styled speaker header.
func formatAssistantLines(text string) []string {
	header := lipgloss.JoinHorizontal(
		lipgloss.Left,
		assistantBadgeStyle.Render("[C]"),
		" ",
		assistantNameStyle.Render("coach"),
	)

	lines := []string{"", header}
	lines = append(lines, splitOutputLines(text)...)
	return lines
}

// splitOutputLines breaks a block of text into individual log lines,
// dropping a single trailing newline but keeping interior blanks.
func splitOutputLines(text string) []string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

var (
	assistantBadgeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("31")).Padding(0, 1)
	assistantNameStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
)
