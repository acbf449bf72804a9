package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"linecoach/internal/commandutil"
	"linecoach/internal/output"
	"linecoach/internal/request"
)

func (m *model) handleCommand(line string) tea.Cmd {
	command, arg := commandutil.Parse(line, tuiCommandAliases)

	// Bare command words only; anything with a tail is conversation.
	if arg != "" {
		command = ""
	}

	switch command {
	case "/quit":
		if m.practiceCancel != nil {
			m.practiceCancel()
			m.practiceCancel = nil
		}
		return tea.Quit

	case "/help":
		m.appendLogs(helpLines()...)
		return nil

	case "/clear":
		m.logs = nil
		m.refreshLogViewport()
		return nil

	case "/follow":
		m.autoFollow = !m.autoFollow
		if m.autoFollow {
			m.logViewport.GotoBottom()
		}
		m.appendLog(fmt.Sprintf("auto-follow: %s", onOff(m.autoFollow)))
		return nil

	case "/last":
		if m.lastSessionPath == "" {
			m.appendLog("no saved session yet")
		} else {
			m.appendLog("last session: " + m.lastSessionPath)
		}
		return nil
	}

	// Anything else is conversation for the assistant.
	m.appendLog("you> " + line)
	m.thinking = true
	return tea.Batch(m.spin.Tick, respondCmd(m.ctx, m.assistant, line))
}

func respondCmd(ctx context.Context, assistant Assistant, message string) tea.Cmd {
	return func() tea.Msg {
		return chatRepliedMsg{reply: assistant.Respond(ctx, message)}
	}
}

// startPractice launches the session in a goroutine and streams its output
// back through an event channel, one message per listen command.
func (m *model) startPractice(req request.PracticeRequest) tea.Cmd {
	runCtx, cancel := context.WithCancel(m.ctx)
	m.practiceCancel = cancel
	m.appendLogs(
		"==== practice start ====",
		"type your line when prompted, or skip / quit",
	)
	return tea.Batch(
		m.spin.Tick,
		runPracticeCmd(runCtx, m.sessions, m.saver, m.outputDir, m.now, req),
	)
}

func runPracticeCmd(
	ctx context.Context,
	sessions Sessions,
	saver SaverFunc,
	outputDir string,
	now func() time.Time,
	req request.PracticeRequest,
) tea.Cmd {
	return func() tea.Msg {
		inputs := make(chan string, practiceInputBuffer)
		events := make(chan tea.Msg, practiceEventBuffer)

		send := func(msg tea.Msg) bool {
			select {
			case events <- msg:
				return true
			case <-ctx.Done():
				return false
			}
		}

		go func() {
			defer close(events)

			src := &channelSource{inputs: inputs}
			w := &eventWriter{send: send}
			summary, err := sessions.Run(ctx, req, src, w)
			if err != nil {
				send(practiceCompletedMsg{err: err})
				return
			}

			path := output.NewTimestampPath(outputDir, now())
			saveErr := saver(path, summary)
			send(practiceCompletedMsg{summary: &summary, path: path, saveErr: saveErr})
		}()

		return practiceStreamStartedMsg{events: events, inputs: inputs, req: req}
	}
}

func listenPracticeEventsCmd(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		payload, ok := <-events
		if !ok {
			return practiceStreamMsg{events: events, closed: true}
		}
		return practiceStreamMsg{events: events, payload: payload}
	}
}

const (
	practiceInputBuffer = 16
	practiceEventBuffer = 64
)

// channelSource feeds the practice engine lines typed into the TUI input.
// A closed channel reads as io.EOF, which the engine treats as quit.
type channelSource struct {
	inputs <-chan string
}

func (s *channelSource) NextLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.inputs:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}

// eventWriter forwards engine output into the event stream.
type eventWriter struct {
	send func(tea.Msg) bool
}

func (w *eventWriter) Write(p []byte) (int, error) {
	if !w.send(practiceOutputMsg{text: string(p)}) {
		return 0, context.Canceled
	}
	return len(p), nil
}

func (m *model) pushHistory(line string) {
	if line == "" {
		return
	}
	if n := len(m.commandHistory); n > 0 && m.commandHistory[n-1] == line {
		m.historyCursor = len(m.commandHistory)
		return
	}
	m.commandHistory = append(m.commandHistory, line)
	m.historyCursor = len(m.commandHistory)
}

func (m *model) historyPrev() string {
	if len(m.commandHistory) == 0 {
		return m.input.Value()
	}
	if m.historyCursor > 0 {
		m.historyCursor--
	}
	return m.commandHistory[m.historyCursor]
}

func (m *model) historyNext() string {
	if len(m.commandHistory) == 0 {
		return m.input.Value()
	}
	if m.historyCursor < len(m.commandHistory)-1 {
		m.historyCursor++
		return m.commandHistory[m.historyCursor]
	}
	m.historyCursor = len(m.commandHistory)
	return ""
}

func (m *model) appendLog(line string) {
	m.appendLogs(line)
}

func (m *model) appendLogs(lines ...string) {
	if len(lines) == 0 {
		return
	}
	m.logs = append(m.logs, lines...)
	if len(m.logs) > logBufferMax {
		m.logs = m.logs[len(m.logs)-logBufferMax:]
		m.refreshLogViewport()
		return
	}

	// Fast path: wrap only the new tail instead of re-wrapping everything.
	width := m.logViewport.Width
	if width <= 0 {
		width = defaultWidth - 4
	}
	if m.wrappedWidth != width {
		m.refreshLogViewport()
		return
	}
	m.wrappedLogs = append(m.wrappedLogs, wrapLogLines(lines, width)...)
	m.logViewport.SetContent(strings.Join(m.wrappedLogs, "\n"))
	if m.autoFollow {
		m.logViewport.GotoBottom()
	}
}

func helpLines() []string {
	return []string{
		"I can help you with:",
		"  - episode recommendations (\"recommend a funny episode\")",
		"  - character info (\"tell me about Chandler\")",
		"  - plot summaries (\"what happens in S01E01?\")",
		"  - scene scripts (\"show me S01E01 scene 2\")",
		"  - cultural context (\"what does 'we were on a break' mean?\")",
		"  - practice sessions (\"practice S01E01 as Joey\")",
		"Commands: help, clear, follow, last, quit.",
	}
}
