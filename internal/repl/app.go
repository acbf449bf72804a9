// Package repl is the plain-terminal front end: a line-based conversation
// loop that hands off to the practice engine when the assistant starts a
// session.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"linecoach/internal/chat"
	"linecoach/internal/commandutil"
	"linecoach/internal/output"
	"linecoach/internal/practice"
	"linecoach/internal/request"
)

// Assistant handles conversational messages. *chat.Assistant satisfies it.
type Assistant interface {
	Respond(ctx context.Context, message string) chat.Reply
	RecordPracticeOutcome(text string)
}

// Sessions runs practice sessions. *practice.Engine satisfies it.
type Sessions interface {
	Run(ctx context.Context, req request.PracticeRequest, src practice.TurnSource, w io.Writer) (practice.Summary, error)
}

// SaverFunc persists a finished session. Defaults to output.SaveSummary.
type SaverFunc func(path string, summary practice.Summary) error

type Config struct {
	Assistant Assistant
	Sessions  Sessions
	OutputDir string
	Writer    io.Writer
	Now       func() time.Time
	Saver     SaverFunc
}

type App struct {
	assistant Assistant
	sessions  Sessions
	outputDir string
	writer    io.Writer
	now       func() time.Time
	saver     SaverFunc

	lastSessionPath string
}

const maxREPLInputBytes = 1024 * 1024

var replCommandAliases = map[string]string{
	"quit":  "/quit",
	"/quit": "/quit",
	"exit":  "/quit",
	"/exit": "/quit",
	"bye":   "/quit",
	"help":  "/help",
	"/help": "/help",
}

func NewApp(cfg Config) *App {
	if cfg.Writer == nil {
		cfg.Writer = io.Discard
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Saver == nil {
		cfg.Saver = output.SaveSummary
	}
	return &App{
		assistant: cfg.Assistant,
		sessions:  cfg.Sessions,
		outputDir: cfg.OutputDir,
		writer:    cfg.Writer,
		now:       cfg.Now,
		saver:     cfg.Saver,
	}
}

func (a *App) Start(ctx context.Context, in io.Reader) error {
	if a.assistant == nil {
		return errors.New("assistant is required")
	}
	if a.sessions == nil {
		return errors.New("session runner is required")
	}
	if in == nil {
		return errors.New("input reader is required")
	}

	a.printLine("Friends Line Coach")
	a.printLine("Chat about the show, or say \"practice S01E01 as Joey\" to rehearse a scene.")
	a.printLine("Type help for the menu, or quit to leave.")

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxREPLInputBytes)
	for {
		if _, err := fmt.Fprint(a.writer, "you> "); err != nil {
			return err
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			a.printLine("")
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		quit := a.handleLine(ctx, line, scanner)
		if quit {
			return nil
		}
	}
}

func (a *App) handleLine(ctx context.Context, line string, scanner *bufio.Scanner) bool {
	command, arg := commandutil.Parse(line, replCommandAliases)
	switch {
	case command == "/quit" && arg == "":
		a.printLine("Bye! Keep practicing those lines.")
		return true
	case command == "/help" && arg == "":
		a.printHelp()
		return false
	}

	reply := a.assistant.Respond(ctx, line)
	a.printLine(reply.Text)

	if reply.StartPractice {
		a.runPractice(ctx, reply.Request, scanner)
	}
	return false
}

func (a *App) runPractice(ctx context.Context, req request.PracticeRequest, scanner *bufio.Scanner) {
	src := &scannerSource{scanner: scanner, writer: a.writer}
	summary, err := a.sessions.Run(ctx, req, src, a.writer)
	if err != nil {
		a.printLine(fmt.Sprintf("practice failed: %v", err))
		return
	}

	path := output.NewTimestampPath(a.outputDir, a.now())
	if err := a.saver(path, summary); err != nil {
		a.printLine(fmt.Sprintf("save failed: %v", err))
	} else {
		a.lastSessionPath = path
		a.printLine("saved session: " + path)
		a.printLine("saved markdown: " + output.MarkdownPath(path))
	}

	a.assistant.RecordPracticeOutcome(fmt.Sprintf(
		"Practice session %s as %s: %d/%d correct.",
		summary.SceneID, summary.Character, summary.Correct, summary.Attempted,
	))
}

// scannerSource feeds the practice engine from the same scanner the REPL
// loop reads, so the session shares the terminal seamlessly.
type scannerSource struct {
	scanner *bufio.Scanner
	writer  io.Writer
}

func (s *scannerSource) NextLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := fmt.Fprint(s.writer, "> "); err != nil {
		return "", err
	}
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

func (a *App) printLine(msg string) {
	_, _ = fmt.Fprintln(a.writer, msg)
}

func (a *App) printHelp() {
	a.printLine("I can help you with:")
	a.printLine("  - episode recommendations (\"recommend a funny episode\")")
	a.printLine("  - character info (\"tell me about Chandler\")")
	a.printLine("  - plot summaries (\"what happens in S01E01?\")")
	a.printLine("  - scene scripts (\"show me S01E01 scene 2\")")
	a.printLine("  - cultural context (\"what does 'we were on a break' mean?\")")
	a.printLine("  - practice sessions (\"practice S01E01 as Joey\")")
	a.printLine("Type quit, exit, or bye to leave.")
}
