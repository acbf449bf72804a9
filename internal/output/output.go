// Package output persists practice session transcripts as JSON plus a
// human-readable markdown rendering.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"linecoach/internal/practice"
)

// SaveSummary writes the session as JSON at path and as markdown next to it.
func SaveSummary(path string, summary practice.Summary) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	jsonData, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := writeAtomic(path, jsonData, 0o644); err != nil {
		return fmt.Errorf("write json summary file: %w", err)
	}

	mdPath := MarkdownPath(path)
	mdData := []byte(formatSummaryMarkdown(summary))
	if err := writeAtomic(mdPath, mdData, 0o644); err != nil {
		return fmt.Errorf("write markdown summary file: %w", err)
	}
	return nil
}

func MarkdownPath(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return path + ".md"
	}
	return strings.TrimSuffix(path, ext) + ".md"
}

func writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	tempFile, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	cleanup := func() {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
	}

	if err := tempFile.Chmod(perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tempFile.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("move temp file: %w", err)
	}
	return nil
}

func formatSummaryMarkdown(summary practice.Summary) string {
	var b strings.Builder

	b.WriteString("# Practice Session\n\n")
	b.WriteString("- scene: " + safeText(summary.SceneID) + "\n")
	b.WriteString("- character: " + safeText(summary.Character) + "\n")
	b.WriteString("- status: " + safeText(summary.Status) + "\n")
	if !summary.StartedAt.IsZero() {
		b.WriteString("- started_at: " + summary.StartedAt.UTC().Format(time.RFC3339) + "\n")
	}
	if !summary.EndedAt.IsZero() {
		b.WriteString("- ended_at: " + summary.EndedAt.UTC().Format(time.RFC3339) + "\n")
	}
	if !summary.StartedAt.IsZero() && !summary.EndedAt.IsZero() {
		b.WriteString("- duration: " + summary.EndedAt.Sub(summary.StartedAt).Round(time.Millisecond).String() + "\n")
	}
	b.WriteString(fmt.Sprintf("- lines: %d attempted of %d, %d correct\n", summary.Attempted, summary.TotalLines, summary.Correct))
	if summary.Attempted > 0 {
		b.WriteString(fmt.Sprintf("- accuracy: %.0f%%\n", summary.Accuracy*100))
	}

	b.WriteString("\n## Attempts\n\n")
	if len(summary.Attempts) == 0 {
		b.WriteString("- none\n")
		return b.String()
	}
	for _, attempt := range summary.Attempts {
		if attempt.Skipped {
			b.WriteString(fmt.Sprintf("### Line %d (skipped)\n\n", attempt.LineNumber))
			b.WriteString("- expected: " + safeText(attempt.Expected) + "\n\n")
			continue
		}
		verdict := "missed"
		if attempt.Correct {
			verdict = "correct"
		}
		b.WriteString(fmt.Sprintf("### Line %d (%s)\n\n", attempt.LineNumber, verdict))
		b.WriteString("- expected: " + safeText(attempt.Expected) + "\n")
		b.WriteString("- said: " + safeText(attempt.Input) + "\n")
		b.WriteString(fmt.Sprintf("- score: %.2f (%s)\n\n", attempt.Score, safeText(attempt.Tier)))
	}
	return b.String()
}

func safeText(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "-"
	}
	return strings.ReplaceAll(v, "\n", " ")
}

// NewTimestampPath builds a collision-resistant output path for one session.
func NewTimestampPath(dir string, now time.Time) string {
	name := now.UTC().Format("20060102-150405.000000000") + "-session.json"
	return filepath.Join(dir, name)
}
