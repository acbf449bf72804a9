// Package request extracts structured practice-session fields from
// free-form user text and recent conversation history. Extraction is
// regex-based and total: missing fields default instead of failing.
package request

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"linecoach/internal/roster"
)

// historyLookback is how many recent user messages are searched for an
// episode mentioned earlier in the conversation.
const historyLookback = 5

var (
	episodePattern = regexp.MustCompile(`(?i)S(\d{2})E(\d{2})|Season\s+(\d+)\s+Episode\s+(\d+)`)
	sceneIDPattern = regexp.MustCompile(`S\d{2}E\d{2}_(\d{3})`)
	scenePattern   = regexp.MustCompile(`(?i)scene\s+(\d+)`)

	practiceKeywords = []string{"practice", "start practice", "practice as", "practice session"}
)

// PracticeRequest is what the practice engine needs to start. SceneNumber 0
// means "unspecified", not scene zero.
type PracticeRequest struct {
	EpisodeID   string
	Character   string
	SceneNumber int
}

// Complete reports whether the request can start a session: both the
// episode and the character must be known. The scene stays optional.
func (r PracticeRequest) Complete() bool {
	return r.EpisodeID != "" && r.Character != ""
}

// IsPracticeUtterance reports whether the message asks for a practice
// session by keyword.
func IsPracticeUtterance(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range practiceKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Extract pulls episode id, character, and scene number out of the message.
// When the message itself names no episode, the most recent user messages
// are searched (newest first); an episode adopted from history also adopts a
// scene number embedded in the same historical message (e.g. "S09E19_002").
func Extract(message string, recentUserMessages []string, ros roster.Roster) PracticeRequest {
	var req PracticeRequest

	req.EpisodeID = matchEpisodeID(message)
	if req.EpisodeID == "" {
		limit := len(recentUserMessages)
		if limit > historyLookback {
			limit = historyLookback
		}
		for i := 0; i < limit; i++ {
			past := recentUserMessages[i]
			episodeID := matchEpisodeID(past)
			if episodeID == "" {
				continue
			}
			req.EpisodeID = episodeID
			if m := sceneIDPattern.FindStringSubmatch(past); m != nil {
				req.SceneNumber, _ = strconv.Atoi(m[1])
			}
			break
		}
	}

	if name, ok := ros.MatchCharacter(message); ok {
		req.Character = name
	}

	if req.SceneNumber == 0 {
		req.SceneNumber = matchSceneNumber(message)
	}
	return req
}

// matchEpisodeID finds either the compact "S01E01" form or the long
// "Season 1 Episode 1" form and canonicalizes to S%02dE%02d.
func matchEpisodeID(text string) string {
	m := episodePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return FormatEpisodeID(mustAtoi(m[1]), mustAtoi(m[2]))
	}
	return FormatEpisodeID(mustAtoi(m[3]), mustAtoi(m[4]))
}

func matchSceneNumber(text string) int {
	if m := sceneIDPattern.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if m := scenePattern.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

// FormatEpisodeID renders the canonical episode identifier, e.g. "S01E01".
func FormatEpisodeID(season, episode int) string {
	return fmt.Sprintf("S%02dE%02d", season, episode)
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s) // the pattern only captures digit runs
	return n
}
