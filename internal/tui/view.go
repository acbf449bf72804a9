package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	viewChromeStyle     = lipgloss.NewStyle().Padding(0, 1)
	viewHeroStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("74")).Background(lipgloss.Color("236")).Padding(0, 1)
	viewTitleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("30")).Padding(0, 1)
	viewSubtitleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("151")).Italic(true)
	viewMetaStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("223")).Bold(true)
	viewChipStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("254")).Background(lipgloss.Color("238")).Padding(0, 1)
	viewChipHotStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("31")).Padding(0, 1).Bold(true)
	viewPracticeBadge   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("166")).Bold(true).Padding(0, 1)
	viewThinkingBadge   = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("31")).Bold(true).Padding(0, 1)
	viewIdleBadge       = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("60")).Bold(true).Padding(0, 1)
	viewPanelStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("67")).Background(lipgloss.Color("235")).Padding(0, 1)
	viewPanelTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("222"))
	viewPanelMetaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("151"))
	viewCmdRibbonStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("117")).Background(lipgloss.Color("236")).Padding(0, 1)
	viewHintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("151"))
	viewInputLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("31")).Bold(true).Padding(0, 1)
	viewInputBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("74")).Background(lipgloss.Color("236")).Padding(0, 1)
)

func (m model) View() string {
	if m.width < 76 || m.height < 18 {
		return m.renderCompactView()
	}

	contentWidth := maxInt(54, m.width-2)
	leftW := minInt(48, maxInt(32, contentWidth/3))
	rightW := maxInt(36, contentWidth-leftW-1)
	panelH := maxInt(10, m.height-14)

	hero := m.renderHero(contentWidth)
	commands := m.renderCommandRibbon(contentWidth)

	castHeader := viewPanelTitleStyle.Render(fmt.Sprintf("CAST (%d)", len(m.ros.Characters)))
	castBody := m.buildCastPanel(maxInt(20, leftW-4), maxInt(4, panelH-3))
	castPanel := viewPanelStyle.
		Width(leftW).
		Height(panelH).
		Render(lipgloss.JoinVertical(lipgloss.Left, castHeader, castBody))

	logMeta := viewPanelMetaStyle.Render(fmt.Sprintf("lines=%d follow=%s sessions=%d", len(m.logs), onOff(m.autoFollow), m.sessionCount))
	logHeader := viewPanelTitleStyle.Render("CONVERSATION")
	logPanel := viewPanelStyle.
		Width(rightW).
		Height(panelH).
		Render(lipgloss.JoinVertical(lipgloss.Left, logHeader, logMeta, m.logViewport.View()))

	body := lipgloss.JoinHorizontal(lipgloss.Top, castPanel, " ", logPanel)
	footer := m.renderFooter(contentWidth)

	return viewChromeStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		hero,
		commands,
		body,
		footer,
	))
}

func (m model) renderCompactView() string {
	status := m.statusBadge()
	title := lipgloss.JoinHorizontal(lipgloss.Left, viewTitleStyle.Render("Line Coach"), " ", status)
	meta := viewMetaStyle.Render(fmt.Sprintf("sessions=%d cast=%d follow=%s", m.sessionCount, len(m.ros.Characters), onOff(m.autoFollow)))
	commands := viewCmdRibbonStyle.Render("help | clear | follow | last | quit")
	hint := viewHintStyle.Render("hint: " + m.inputHint())
	prompt := viewInputBoxStyle.Render(viewInputLabelStyle.Render("YOU") + " " + m.input.View())

	return viewChromeStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		meta,
		commands,
		m.logViewport.View(),
		hint,
		prompt,
	))
}

func (m model) renderHero(width int) string {
	titleLine := lipgloss.JoinHorizontal(
		lipgloss.Left,
		viewTitleStyle.Render("Line Coach Studio"),
		" ",
		viewSubtitleStyle.Render("rehearse Friends scenes line by line"),
	)

	runtime := "idle"
	if m.practicing {
		runtime = time.Since(m.practiceSince).Round(time.Second).String()
	}

	chips := []string{
		m.renderChip(fmt.Sprintf("cast %d", len(m.ros.Characters)), false),
		m.renderChip(fmt.Sprintf("sessions %d", m.sessionCount), m.practicing),
		m.renderChip(fmt.Sprintf("follow %s", onOff(m.autoFollow)), m.autoFollow),
		m.renderChip(fmt.Sprintf("runtime %s", runtime), m.practicing),
	}

	accuracy := viewMetaStyle.Render(m.accuracyLine(maxInt(38, width-8)))

	resultLine := ""
	if m.lastSessionPath != "" {
		resultLine = viewPanelMetaStyle.Render("latest session  " + truncateText(m.lastSessionPath, maxInt(20, width-18)))
	}

	return viewHeroStyle.Width(width).Render(lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Left, titleLine, "  ", m.statusBadge()),
		lipgloss.JoinHorizontal(lipgloss.Left, chips...),
		accuracy,
		resultLine,
	))
}

func (m model) renderCommandRibbon(width int) string {
	line := "Enter send · Ctrl+P/N history · Ctrl+F follow · PgUp/PgDn/Home/End scroll · Ctrl+L clear"
	return viewCmdRibbonStyle.Width(width).Render(truncateText(line, width))
}

func (m model) renderFooter(width int) string {
	hint := viewHintStyle.Render("hint: " + m.inputHint())
	inputBox := viewInputBoxStyle.Width(width).Render(
		lipgloss.JoinHorizontal(lipgloss.Left, viewInputLabelStyle.Render("YOU"), " ", m.input.View()),
	)
	return lipgloss.JoinVertical(lipgloss.Left, hint, inputBox)
}

func (m model) statusBadge() string {
	switch {
	case m.practicing:
		return viewPracticeBadge.Render("PRACTICE " + m.spin.View())
	case m.thinking:
		return viewThinkingBadge.Render("THINKING " + m.spin.View())
	default:
		return viewIdleBadge.Render("IDLE")
	}
}

func (m model) renderChip(text string, hot bool) string {
	if hot {
		return viewChipHotStyle.Render(text + " ")
	}
	return viewChipStyle.Render(text + " ")
}

func (m model) inputHint() string {
	if m.practicing {
		return "say the line as your character, or skip / quit"
	}

	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return "chat about the show, or \"practice S01E01 as Joey\""
	}

	lower := strings.ToLower(line)
	switch {
	case strings.HasPrefix(lower, "practice"):
		return "start rehearsing: practice <episode> as <character>"
	case strings.HasPrefix(lower, "follow"), strings.HasPrefix(lower, "/follow"):
		return "toggle auto-follow of the conversation log"
	case strings.HasPrefix(lower, "clear"), strings.HasPrefix(lower, "/clear"):
		return "clear the conversation log"
	case strings.HasPrefix(lower, "last"), strings.HasPrefix(lower, "/last"):
		return "show the last saved session path"
	case strings.HasPrefix(lower, "help"), strings.HasPrefix(lower, "/help"):
		return "show the menu"
	case strings.HasPrefix(lower, "quit"), strings.HasPrefix(lower, "exit"), strings.HasPrefix(lower, "bye"):
		return "leave the studio"
	default:
		return "sent to the coach as conversation"
	}
}
