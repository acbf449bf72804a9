package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"linecoach/internal/practice"
)

func TestSaveSummaryWritesJSONAndMarkdown(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "session.json")
	summary := practice.Summary{
		EpisodeID:  "S01E01",
		SceneID:    "S01E01_002",
		Character:  "Joey",
		TotalLines: 3,
		Attempted:  2,
		Correct:    1,
		Accuracy:   0.5,
		Status:     practice.StatusCompleted,
		StartedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		EndedAt:    time.Date(2026, 3, 1, 10, 0, 5, 0, time.UTC),
		Attempts: []practice.Attempt{
			{LineNumber: 3, Expected: "How you doin'?", Input: "how you doing", Score: 0.95, Tier: "near_exact", Correct: true},
			{LineNumber: 5, Expected: "Want some pizza?", Input: "something else", Score: 0.3, Tier: "word_overlap"},
			{LineNumber: 6, Expected: "I'm tellin' you, it's great.", Skipped: true},
		},
	}

	if err := SaveSummary(path, summary); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var decoded practice.Summary
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode saved json: %v", err)
	}
	if decoded.SceneID != "S01E01_002" || len(decoded.Attempts) != 3 {
		t.Fatalf("unexpected decoded summary: %+v", decoded)
	}

	mdPath := MarkdownPath(path)
	md, err := os.ReadFile(mdPath)
	if err != nil {
		t.Fatalf("read markdown failed: %v", err)
	}
	mdText := string(md)
	if !strings.Contains(mdText, "# Practice Session") {
		t.Fatalf("expected markdown title, got %q", mdText)
	}
	if !strings.Contains(mdText, "- scene: S01E01_002") {
		t.Fatalf("expected scene line, got %q", mdText)
	}
	if !strings.Contains(mdText, "- accuracy: 50%") {
		t.Fatalf("expected accuracy line, got %q", mdText)
	}
	if !strings.Contains(mdText, "### Line 3 (correct)") {
		t.Fatalf("expected correct attempt header, got %q", mdText)
	}
	if !strings.Contains(mdText, "### Line 5 (missed)") {
		t.Fatalf("expected missed attempt header, got %q", mdText)
	}
	if !strings.Contains(mdText, "### Line 6 (skipped)") {
		t.Fatalf("expected skipped attempt header, got %q", mdText)
	}
	if !strings.Contains(mdText, "- duration: 5s") {
		t.Fatalf("expected duration line, got %q", mdText)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected no temp file left, got err=%v", err)
	}
	if _, err := os.Stat(mdPath + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected no markdown temp file left, got err=%v", err)
	}
}

func TestSaveSummaryEmptyAttempts(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "empty.json")
	if err := SaveSummary(path, practice.Summary{Status: practice.StatusQuit}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	md, err := os.ReadFile(MarkdownPath(path))
	if err != nil {
		t.Fatalf("read markdown failed: %v", err)
	}
	if !strings.Contains(string(md), "- none") {
		t.Fatalf("expected empty attempts marker, got %q", string(md))
	}
}

func TestNewTimestampPath(t *testing.T) {
	now := time.Date(2026, 2, 28, 10, 30, 20, 123456789, time.UTC)
	path := NewTimestampPath("./outputs", now)
	if filepath.Base(path) != "20260228-103020.123456789-session.json" {
		t.Fatalf("unexpected path: %s", path)
	}
}

func TestMarkdownPath(t *testing.T) {
	if got := MarkdownPath("./outputs/a-session.json"); got != "./outputs/a-session.md" {
		t.Fatalf("unexpected markdown path: %s", got)
	}
	if got := MarkdownPath("./outputs/result"); got != "./outputs/result.md" {
		t.Fatalf("unexpected markdown path without extension: %s", got)
	}
}
