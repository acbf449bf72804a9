// Package script models episode scenes and parses raw transcript text into
// typed dialogue lines.
package script

import (
	"fmt"
	"strings"
)

type LineType string

const (
	LineDialogue  LineType = "dialogue"
	LineAction    LineType = "action"
	LineNarration LineType = "narration"
)

// Line is one non-blank transcript line. Number is 1-based and follows
// source order; blank lines are dropped and not counted.
type Line struct {
	Number  int      `json:"number"`
	Type    LineType `json:"type"`
	Speaker string   `json:"speaker,omitempty"`
	Text    string   `json:"text"`
}

// Scene is one contiguous transcript block bounded by location headers.
type Scene struct {
	EpisodeID   string   `json:"episode_id"`
	SceneNumber int      `json:"scene_number"`
	SceneID     string   `json:"scene_id"`
	Location    string   `json:"location"`
	Description string   `json:"description,omitempty"`
	Characters  []string `json:"characters"`
	Lines       []Line   `json:"lines,omitempty"`
	Text        string   `json:"text"`
}

// SceneID formats the canonical scene identifier, e.g. "S01E01_002".
func SceneID(episodeID string, sceneNumber int) string {
	return fmt.Sprintf("%s_%03d", episodeID, sceneNumber)
}

// ParseDialogue converts raw scene text into typed lines. Classification per
// line: "(...)" is an action, "[...]" is narration, "Speaker: text" with a
// letters-and-spaces speaker is dialogue, anything else is narration.
// The function is total: it never fails, whatever the input.
func ParseDialogue(raw string) []Line {
	var lines []Line
	number := 0
	for _, source := range strings.Split(raw, "\n") {
		source = strings.TrimSpace(source)
		if source == "" {
			continue
		}
		number++
		lines = append(lines, classifyLine(number, source))
	}
	return lines
}

func classifyLine(number int, source string) Line {
	switch {
	case strings.HasPrefix(source, "(") && strings.HasSuffix(source, ")"):
		return Line{Number: number, Type: LineAction, Text: source}
	case strings.HasPrefix(source, "[") && strings.HasSuffix(source, "]"):
		return Line{Number: number, Type: LineNarration, Text: source}
	}

	if colon := strings.Index(source, ":"); colon >= 0 {
		speaker := strings.TrimSpace(source[:colon])
		text := strings.TrimSpace(source[colon+1:])
		if isSpeakerName(speaker) {
			return Line{Number: number, Type: LineDialogue, Speaker: speaker, Text: text}
		}
	}
	return Line{Number: number, Type: LineNarration, Text: source}
}

func isSpeakerName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !isLetter && r != ' ' {
			return false
		}
	}
	return true
}

// ParsedLines returns the scene's typed lines, parsing Text on demand when
// the stored document carries only raw text.
func (s Scene) ParsedLines() []Line {
	if len(s.Lines) > 0 {
		return s.Lines
	}
	return ParseDialogue(s.Text)
}

// DialogueText joins the scene's dialogue lines as "Speaker: text" rows,
// reconstructing raw text for documents stored as structured lines.
func (s Scene) DialogueText() string {
	if strings.TrimSpace(s.Text) != "" {
		return s.Text
	}
	var b strings.Builder
	for _, line := range s.Lines {
		if line.Type != LineDialogue {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line.Speaker)
		b.WriteString(": ")
		b.WriteString(line.Text)
	}
	return b.String()
}

// HasCharacter reports whether the named character appears in the scene's
// character list, case-insensitively.
func (s Scene) HasCharacter(name string) bool {
	for _, c := range s.Characters {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}
