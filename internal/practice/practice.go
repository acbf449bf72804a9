// Package practice runs turn-taking line rehearsal sessions: the engine
// replays a scene, the learner speaks their character's lines, and each
// attempt is scored against the script.
package practice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"linecoach/internal/request"
	"linecoach/internal/script"
	"linecoach/internal/similarity"
)

const (
	StatusCompleted = "completed"
	StatusQuit      = "quit"
	StatusError     = "error"

	CommandSkip = "skip"
	CommandQuit = "quit"
)

const (
	defaultCorrectThreshold = 0.6
	// The scripted line is revealed only when the attempt misses this badly.
	revealBelowScore = 0.4
	// A scene this long usually has enough back-and-forth to practice with.
	preferredSceneTextLen = 200
)

// ErrSceneNotFound reports that no scene matched the request.
var ErrSceneNotFound = errors.New("no scene matches the practice request")

// SceneSource resolves practice requests to scenes. *store.FileStore
// satisfies it.
type SceneSource interface {
	SceneByNumber(episodeID string, sceneNumber int) (script.Scene, error)
	ScenesByEpisodeAndCharacter(episodeID, character string) ([]script.Scene, error)
}

// Scorer grades one attempt against the scripted line.
type Scorer interface {
	Score(ctx context.Context, userInput, expectedLine string) similarity.Score
}

// TurnSource supplies the learner's next input. The REPL backs it with a
// scanner; the TUI backs it with a channel. io.EOF ends the session the same
// way the quit command does.
type TurnSource interface {
	NextLine(ctx context.Context) (string, error)
}

// Attempt is one scored (or skipped) line of the learner's character.
type Attempt struct {
	LineNumber int     `json:"line_number"`
	Expected   string  `json:"expected"`
	Input      string  `json:"input,omitempty"`
	Score      float64 `json:"score"`
	Tier       string  `json:"tier,omitempty"`
	Correct    bool    `json:"correct"`
	Skipped    bool    `json:"skipped"`
}

// Summary is the session result. Accuracy is correct/attempted; skipped
// lines never enter the denominator.
type Summary struct {
	EpisodeID  string    `json:"episode_id"`
	SceneID    string    `json:"scene_id"`
	Character  string    `json:"character"`
	TotalLines int       `json:"total_lines"`
	Attempted  int       `json:"attempted"`
	Correct    int       `json:"correct"`
	Accuracy   float64   `json:"accuracy"`
	Status     string    `json:"status"`
	Attempts   []Attempt `json:"attempts"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

type Config struct {
	CorrectThreshold float64
	Now              func() time.Time
}

type Engine struct {
	scenes SceneSource
	scorer Scorer
	cfg    Config
}

func New(scenes SceneSource, scorer Scorer, cfg Config) (*Engine, error) {
	if scenes == nil {
		return nil, errors.New("scene source is required")
	}
	if scorer == nil {
		return nil, errors.New("scorer is required")
	}
	if cfg.CorrectThreshold <= 0 || cfg.CorrectThreshold >= 1 {
		cfg.CorrectThreshold = defaultCorrectThreshold
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{scenes: scenes, scorer: scorer, cfg: cfg}, nil
}

// ResolveScene picks the scene for a request. An explicit scene number is
// honored exactly, even when the character has no lines in it; the session
// then plays through with nothing to attempt. Otherwise the character's
// scenes are searched, preferring the first one with enough dialogue to be
// worth rehearsing.
func (e *Engine) ResolveScene(req request.PracticeRequest) (script.Scene, error) {
	if !req.Complete() {
		return script.Scene{}, fmt.Errorf("%w: episode and character are required", ErrSceneNotFound)
	}

	if req.SceneNumber > 0 {
		scene, err := e.scenes.SceneByNumber(req.EpisodeID, req.SceneNumber)
		if err != nil {
			return script.Scene{}, fmt.Errorf("%w: %s scene %d", ErrSceneNotFound, req.EpisodeID, req.SceneNumber)
		}
		return scene, nil
	}

	scenes, err := e.scenes.ScenesByEpisodeAndCharacter(req.EpisodeID, req.Character)
	if err != nil || len(scenes) == 0 {
		return script.Scene{}, fmt.Errorf("%w: no %s scenes in %s", ErrSceneNotFound, req.Character, req.EpisodeID)
	}
	for _, scene := range scenes {
		if len(scene.DialogueText()) > preferredSceneTextLen {
			return scene, nil
		}
	}
	return scenes[0], nil
}

// Run rehearses the resolved scene. Other characters' lines are printed to
// w; the learner's lines are requested from src and scored. The returned
// Summary is valid even when the learner quits mid-scene.
func (e *Engine) Run(ctx context.Context, req request.PracticeRequest, src TurnSource, w io.Writer) (Summary, error) {
	started := e.cfg.Now().UTC()

	scene, err := e.ResolveScene(req)
	if err != nil {
		return Summary{Status: StatusError, StartedAt: started, EndedAt: e.cfg.Now().UTC()}, err
	}

	summary := Summary{
		EpisodeID: scene.EpisodeID,
		SceneID:   scene.SceneID,
		Character: req.Character,
		Status:    StatusCompleted,
		StartedAt: started,
	}

	fmt.Fprintf(w, "Practice session: %s\n", scene.SceneID)
	if scene.Location != "" {
		fmt.Fprintf(w, "Location: %s\n", scene.Location)
	}
	fmt.Fprintf(w, "You are playing %s. Type %q to skip a line or %q to end early.\n", req.Character, CommandSkip, CommandQuit)

	lines := scene.ParsedLines()
	for _, line := range lines {
		if line.Type == script.LineDialogue && strings.EqualFold(line.Speaker, req.Character) {
			summary.TotalLines++
		}
	}

	fmt.Fprintf(w, "Press Enter to start.\n\n")
	quit, ackErr := awaitAck(ctx, src)
	if ackErr != nil {
		summary.Status = StatusError
		summary.EndedAt = e.cfg.Now().UTC()
		return summary, fmt.Errorf("read line: %w", ackErr)
	}
	if quit {
		summary.Status = StatusQuit
		lines = nil
	}

	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			summary.Status = StatusError
			summary.EndedAt = e.cfg.Now().UTC()
			return summary, fmt.Errorf("practice canceled: %w", err)
		}

		if line.Type != script.LineDialogue || !strings.EqualFold(line.Speaker, req.Character) {
			printContextLine(w, line)
			// Dialogue from the other characters pauses for an
			// acknowledgement; stage directions roll straight through.
			if line.Type == script.LineDialogue {
				fmt.Fprintln(w, "(press Enter to continue)")
				quit, ackErr := awaitAck(ctx, src)
				if ackErr != nil {
					summary.Status = StatusError
					summary.EndedAt = e.cfg.Now().UTC()
					return summary, fmt.Errorf("read line: %w", ackErr)
				}
				if quit {
					summary.Status = StatusQuit
					break
				}
			}
			continue
		}

		fmt.Fprintf(w, "Expected: %s\n", line.Text)
		fmt.Fprintf(w, "Your line (%s):\n", req.Character)
		input, err := src.NextLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				summary.Status = StatusQuit
				break
			}
			summary.Status = StatusError
			summary.EndedAt = e.cfg.Now().UTC()
			return summary, fmt.Errorf("read line: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(input)) {
		case CommandQuit:
			summary.Status = StatusQuit
		case CommandSkip:
			fmt.Fprintf(w, "The line was: %s\n\n", line.Text)
			summary.Attempts = append(summary.Attempts, Attempt{
				LineNumber: line.Number,
				Expected:   line.Text,
				Skipped:    true,
			})
			continue
		default:
			score := e.scorer.Score(ctx, input, line.Text)
			attempt := Attempt{
				LineNumber: line.Number,
				Expected:   line.Text,
				Input:      input,
				Score:      score.Value,
				Tier:       string(score.Tier),
				Correct:    score.Value > e.cfg.CorrectThreshold,
			}
			summary.Attempts = append(summary.Attempts, attempt)
			summary.Attempted++
			if attempt.Correct {
				summary.Correct++
			}
			fmt.Fprintf(w, "%s\n", attemptFeedback(score.Value))
			if score.Value <= revealBelowScore {
				fmt.Fprintf(w, "The line was: %s\n", line.Text)
			}
			fmt.Fprintln(w)
			continue
		}
		if summary.Status == StatusQuit {
			break
		}
	}

	if summary.Attempted > 0 {
		summary.Accuracy = float64(summary.Correct) / float64(summary.Attempted)
	}
	summary.EndedAt = e.cfg.Now().UTC()

	fmt.Fprint(w, renderSummary(summary))
	return summary, nil
}

func printContextLine(w io.Writer, line script.Line) {
	switch line.Type {
	case script.LineDialogue:
		fmt.Fprintf(w, "%s: %s\n", line.Speaker, line.Text)
	default:
		fmt.Fprintf(w, "%s\n", line.Text)
	}
}

// awaitAck blocks until the learner sends anything at all, discarding the
// content. An exhausted source ends the session the same way quit does.
func awaitAck(ctx context.Context, src TurnSource) (quit bool, err error) {
	if _, err := src.NextLine(ctx); err != nil {
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

func attemptFeedback(score float64) string {
	switch {
	case score > 0.8:
		return "Excellent! That was almost word-perfect."
	case score > 0.6:
		return "Good job! Close enough to the script."
	case score > revealBelowScore:
		return "Not bad, but some words were off."
	default:
		return "Keep practicing, that one was quite different from the script."
	}
}

func renderSummary(s Summary) string {
	var b strings.Builder
	b.WriteString("Session summary\n")
	fmt.Fprintf(&b, "Scene: %s (as %s)\n", s.SceneID, s.Character)
	fmt.Fprintf(&b, "Lines attempted: %d of %d, correct: %d\n", s.Attempted, s.TotalLines, s.Correct)
	if s.Attempted > 0 {
		fmt.Fprintf(&b, "Accuracy: %.0f%% - %s\n", s.Accuracy*100, accuracyVerdict(s.Accuracy))
	} else {
		b.WriteString("No lines attempted this time.\n")
	}
	return b.String()
}

func accuracyVerdict(accuracy float64) string {
	switch {
	case accuracy >= 0.9:
		return "excellent, you know this scene by heart"
	case accuracy >= 0.7:
		return "great job"
	case accuracy >= 0.5:
		return "good effort"
	default:
		return "keep practicing"
	}
}
