// Package intent classifies user messages into a closed set of request
// kinds and condenses multi-turn context into a standalone request.
package intent

import (
	"regexp"
	"strings"
)

// Kind is one of the closed set of request categories. Anything the model
// returns outside this set collapses to KindGeneralChat.
type Kind string

const (
	KindEpisodeRecommendation Kind = "episode_recommendation"
	KindCharacterInfo         Kind = "character_info"
	KindPlotSummary           Kind = "plot_summary"
	KindSceneScript           Kind = "scene_script"
	KindCulturalContext       Kind = "cultural_context"
	KindPracticeSession       Kind = "practice_session"
	KindGeneralChat           Kind = "general_chat"
)

// Kinds lists every valid kind, in the order the classifier prompt
// enumerates them.
func Kinds() []Kind {
	return []Kind{
		KindEpisodeRecommendation,
		KindCharacterInfo,
		KindPlotSummary,
		KindSceneScript,
		KindCulturalContext,
		KindPracticeSession,
		KindGeneralChat,
	}
}

// ParseKind maps a raw label to a Kind, defaulting to general_chat for
// anything unrecognized.
func ParseKind(raw string) Kind {
	label := Kind(strings.ToLower(strings.TrimSpace(raw)))
	for _, k := range Kinds() {
		if label == k {
			return k
		}
	}
	return KindGeneralChat
}

// Condensed is a standalone restatement of the user's request, carrying
// enough of the conversation that a handler needs no further history.
type Condensed struct {
	Kind            Kind
	Topic           string
	Details         string
	OriginalMessage string
}

var (
	intentField  = regexp.MustCompile(`(?i)Intent:\s*(\w+)`)
	topicField   = regexp.MustCompile(`(?is)Topic:\s*(.+?)(?:\n|Details:|$)`)
	detailsField = regexp.MustCompile(`(?is)Details:\s*(.+?)(?:\n\n|$)`)
)

// ParseCondensed extracts the labeled fields from a classifier completion.
// Missing fields degrade: an unlabeled intent becomes general_chat and an
// absent topic falls back to the original message.
func ParseCondensed(completion, originalMessage string) Condensed {
	c := Condensed{
		Kind:            KindGeneralChat,
		Topic:           originalMessage,
		OriginalMessage: originalMessage,
	}
	if m := intentField.FindStringSubmatch(completion); m != nil {
		c.Kind = ParseKind(m[1])
	}
	if m := topicField.FindStringSubmatch(completion); m != nil {
		if topic := strings.TrimSpace(m[1]); topic != "" {
			c.Topic = topic
		}
	}
	if m := detailsField.FindStringSubmatch(completion); m != nil {
		c.Details = strings.TrimSpace(m[1])
	}
	return c
}
