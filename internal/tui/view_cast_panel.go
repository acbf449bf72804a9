package tui

import (
	"fmt"
	"strings"
)

func (m *model) buildCastPanel(width int, maxLines int) string {
	if maxLines <= 0 {
		maxLines = 1
	}
	if len(m.ros.Characters) == 0 {
		return truncateText("(no characters loaded)", maxInt(12, width))
	}
	if m.shouldUseCompactCastPanel(width, maxLines) {
		return m.buildCompactCastPanel(width, maxLines)
	}

	lines := make([]string, 0, maxLines)
	nameWidth := maxInt(10, width-15)
	metaWidth := maxInt(10, width-6)
	rendered := 0
	maxRuns := maxCharacterRuns(m.characterRuns)

	for i, c := range m.ros.Characters {
		marker := " "
		if m.practicing && c.Name == m.practiceChar {
			marker = ">"
		}

		runs := m.characterRuns[c.Name]
		block := []string{
			fmt.Sprintf("%s %2d) %s [%dS] %s", marker, i+1, truncateText(c.Name, nameWidth), runs, miniMeter(runs, maxRuns, 4)),
			fmt.Sprintf("    %s", truncateText(c.Personality, metaWidth)),
			"    " + truncateText("focus: "+c.PracticeFocus, metaWidth),
			"",
		}

		if len(lines)+len(block) > maxLines {
			break
		}
		lines = append(lines, block...)
		rendered = i + 1
	}

	if m.practicing && strings.TrimSpace(m.practiceChar) != "" {
		lines = appendOverflowLine(lines, "rehearsing: "+truncateText(m.practiceChar+" in "+m.practiceScene, width), maxLines, width)
	}
	if rendered < len(m.ros.Characters) {
		lines = appendOverflowLine(lines, fmt.Sprintf("... +%d more characters", len(m.ros.Characters)-rendered), maxLines, width)
	}
	return strings.Join(lines, "\n")
}

func (m model) shouldUseCompactCastPanel(width int, maxLines int) bool {
	if width < 34 {
		return true
	}
	return len(m.ros.Characters)*4 > maxLines
}

func (m model) buildCompactCastPanel(width int, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := make([]string, 0, maxLines)
	nameWidth := maxInt(10, width-15)
	overflow := len(m.ros.Characters) > maxLines
	visible := maxLines
	maxRuns := maxCharacterRuns(m.characterRuns)
	if overflow {
		visible = maxLines - 1
	}
	if visible < 0 {
		visible = 0
	}

	for i := 0; i < len(m.ros.Characters) && i < visible; i++ {
		c := m.ros.Characters[i]
		marker := " "
		if m.practicing && c.Name == m.practiceChar {
			marker = ">"
		}
		runs := m.characterRuns[c.Name]
		lines = append(lines, fmt.Sprintf("%s %2d) %s [%dS] %s", marker, i+1, truncateText(c.Name, nameWidth), runs, miniMeter(runs, maxRuns, 3)))
	}
	if overflow {
		lines = appendOverflowLine(lines, fmt.Sprintf("... +%d more characters", len(m.ros.Characters)-visible), maxLines, width)
	}
	return strings.Join(lines, "\n")
}

func appendOverflowLine(lines []string, line string, maxLines int, width int) []string {
	line = truncateText(line, maxInt(12, width))
	if maxLines <= 0 {
		return lines
	}
	if len(lines) < maxLines {
		return append(lines, line)
	}
	if len(lines) == 0 {
		return lines
	}
	lines[maxLines-1] = line
	return lines
}

func maxCharacterRuns(runs map[string]int) int {
	maxRuns := 0
	for _, r := range runs {
		if r > maxRuns {
			maxRuns = r
		}
	}
	if maxRuns <= 0 {
		return 1
	}
	return maxRuns
}
