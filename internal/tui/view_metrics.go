package tui

import (
	"fmt"
	"strings"
)

func (m model) accuracyLine(width int) string {
	if !m.hasAccuracy {
		if m.practicing {
			return "last accuracy  (session in progress)"
		}
		return "last accuracy  no sessions yet"
	}

	barWidth := minInt(30, maxInt(12, width-34))
	bar := renderAccuracyBar(barWidth, m.lastAccuracy)
	return fmt.Sprintf("last accuracy  %s  %.0f%%", bar, m.lastAccuracy*100)
}

func renderAccuracyBar(width int, ratio float64) string {
	if width <= 0 {
		return "[]"
	}
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio * float64(width))
	if ratio > 0 && filled == 0 {
		filled = 1
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

func miniMeter(value int, maxValue int, width int) string {
	if width <= 0 {
		return ""
	}
	if maxValue <= 0 {
		return strings.Repeat("·", width)
	}
	filled := int((float64(value) / float64(maxValue)) * float64(width))
	if value > 0 && filled == 0 {
		filled = 1
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("▮", filled) + strings.Repeat("▯", width-filled)
}
