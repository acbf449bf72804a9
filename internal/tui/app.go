// Package tui is the full-screen front end: a chat studio with a scrolling
// conversation log that switches into line-rehearsal mode when the assistant
// starts a practice session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"linecoach/internal/chat"
	"linecoach/internal/output"
	"linecoach/internal/practice"
	"linecoach/internal/request"
	"linecoach/internal/roster"
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
	Roster    roster.Roster
	OutputDir string
	Now       func() time.Time
	Saver     SaverFunc
}

type App struct {
	assistant Assistant
	sessions  Sessions
	ros       roster.Roster
	outputDir string
	now       func() time.Time
	saver     SaverFunc
}

func NewApp(cfg Config) *App {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Saver == nil {
		cfg.Saver = output.SaveSummary
	}
	if len(cfg.Roster.Characters) == 0 {
		cfg.Roster = roster.Default()
	}
	return &App{
		assistant: cfg.Assistant,
		sessions:  cfg.Sessions,
		ros:       cfg.Roster,
		outputDir: cfg.OutputDir,
		now:       cfg.Now,
		saver:     cfg.Saver,
	}
}

func (a *App) Start(ctx context.Context) error {
	if a.assistant == nil {
		return errors.New("assistant is required")
	}
	if a.sessions == nil {
		return errors.New("session runner is required")
	}

	m := newModel(ctx, modelConfig{
		Assistant: a.assistant,
		Sessions:  a.sessions,
		Roster:    a.ros,
		OutputDir: a.outputDir,
		Now:       a.now,
		Saver:     a.saver,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

type modelConfig struct {
	Assistant Assistant
	Sessions  Sessions
	Roster    roster.Roster
	OutputDir string
	Now       func() time.Time
	Saver     SaverFunc
}

type model struct {
	ctx context.Context

	assistant Assistant
	sessions  Sessions
	ros       roster.Roster
	outputDir string
	now       func() time.Time
	saver     SaverFunc

	input          textinput.Model
	logViewport    viewport.Model
	spin           spinner.Model
	logs           []string
	wrappedLogs    []string
	wrappedWidth   int
	width          int
	height         int
	thinking       bool
	practicing     bool
	practiceSince  time.Time
	practiceChar   string
	practiceScene  string
	practiceInputs chan<- string
	practiceCancel context.CancelFunc
	sessionCount   int
	characterRuns  map[string]int
	lastAccuracy   float64
	hasAccuracy    bool
	autoFollow     bool

	commandHistory []string
	historyCursor  int

	lastSessionPath string
}

const (
	defaultWidth  = 100
	defaultHeight = 32
	logBufferMax  = 4000
	scrollStep    = 5
)

type chatRepliedMsg struct {
	reply chat.Reply
}

type practiceStreamStartedMsg struct {
	events <-chan tea.Msg
	inputs chan<- string
	req    request.PracticeRequest
}

type practiceStreamMsg struct {
	events  <-chan tea.Msg
	payload tea.Msg
	closed  bool
}

type practiceOutputMsg struct {
	text string
}

type practiceCompletedMsg struct {
	summary *practice.Summary
	path    string
	err     error
	saveErr error
}

func newModel(ctx context.Context, cfg modelConfig) model {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Saver == nil {
		cfg.Saver = output.SaveSummary
	}

	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "Chat about Friends, or: practice S01E01 as Joey"
	ti.Focus()
	ti.CharLimit = 1024 * 32
	ti.Width = defaultWidth - 4

	vp := viewport.New(defaultWidth-4, defaultHeight-12)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))

	m := model{
		ctx:           ctx,
		assistant:     cfg.Assistant,
		sessions:      cfg.Sessions,
		ros:           cfg.Roster,
		outputDir:     cfg.OutputDir,
		now:           cfg.Now,
		saver:         cfg.Saver,
		input:         ti,
		logViewport:   vp,
		spin:          sp,
		logs:          []string{"Line Coach ready. Type help for the menu."},
		characterRuns: map[string]int{},
		width:         defaultWidth,
		height:        defaultHeight,
		autoFollow:    true,
		historyCursor: 0,
	}
	m.resizeLayout()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.resizeLayout()
		return m, nil

	case spinner.TickMsg:
		return m, m.updateSpinner(typed)

	case tea.KeyMsg:
		if cmd, handled := m.handleKeyMessage(typed); handled {
			return m, cmd
		}

	case chatRepliedMsg:
		return m.handleChatReplied(typed)

	case practiceStreamStartedMsg:
		m.practicing = true
		m.practiceSince = m.now()
		m.practiceChar = typed.req.Character
		m.practiceScene = typed.req.EpisodeID
		m.practiceInputs = typed.inputs
		return m, listenPracticeEventsCmd(typed.events)

	case practiceStreamMsg:
		return m.handlePracticeStreamMessage(typed)
	}

	return m, m.updateInteractiveInputs(msg)
}

func (m *model) updateSpinner(msg spinner.TickMsg) tea.Cmd {
	var cmd tea.Cmd
	m.spin, cmd = m.spin.Update(msg)
	if m.thinking || m.practicing {
		return cmd
	}
	return nil
}

func (m *model) handleKeyMessage(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.practiceCancel != nil {
			m.practiceCancel()
			m.practiceCancel = nil
		}
		return tea.Quit, true
	case tea.KeyCtrlF:
		m.autoFollow = !m.autoFollow
		if m.autoFollow {
			m.logViewport.GotoBottom()
		}
		m.appendLog(fmt.Sprintf("auto-follow: %s", onOff(m.autoFollow)))
		return nil, true
	case tea.KeyCtrlL:
		m.logs = nil
		m.refreshLogViewport()
		return nil, true
	case tea.KeyCtrlP:
		m.input.SetValue(m.historyPrev())
		m.input.CursorEnd()
		return nil, true
	case tea.KeyCtrlN:
		m.input.SetValue(m.historyNext())
		m.input.CursorEnd()
		return nil, true
	case tea.KeyPgUp:
		m.autoFollow = false
		m.logViewport.LineUp(scrollStep)
		return nil, true
	case tea.KeyPgDown:
		m.autoFollow = false
		m.logViewport.LineDown(scrollStep)
		return nil, true
	case tea.KeyHome:
		m.autoFollow = false
		m.logViewport.GotoTop()
		return nil, true
	case tea.KeyEnd:
		m.autoFollow = true
		m.logViewport.GotoBottom()
		return nil, true
	case tea.KeyEnter:
		line := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		if m.practicing {
			// A bare Enter acknowledges the line on screen.
			if line != "" {
				m.pushHistory(line)
			}
			m.forwardPracticeInput(line)
			return nil, true
		}
		if line == "" {
			return nil, true
		}
		m.pushHistory(line)
		return m.handleCommand(line), true
	default:
		return nil, false
	}
}

func (m *model) handleChatReplied(msg chatRepliedMsg) (tea.Model, tea.Cmd) {
	m.thinking = false
	m.appendLogs(formatAssistantLines(msg.reply.Text)...)
	if msg.reply.StartPractice {
		return *m, m.startPractice(msg.reply.Request)
	}
	return *m, nil
}

func (m *model) handlePracticeStreamMessage(msg practiceStreamMsg) (tea.Model, tea.Cmd) {
	if msg.closed {
		if m.practicing {
			m.practicing = false
			m.practiceCancel = nil
			m.practiceInputs = nil
			m.appendLogs("practice stream closed", "==== practice end ====")
		}
		return *m, nil
	}

	switch payload := msg.payload.(type) {
	case practiceOutputMsg:
		m.appendLogs(splitOutputLines(payload.text)...)
		return *m, listenPracticeEventsCmd(msg.events)
	case practiceCompletedMsg:
		m.applyPracticeCompleted(payload)
		return *m, listenPracticeEventsCmd(msg.events)
	default:
		return *m, listenPracticeEventsCmd(msg.events)
	}
}

func (m *model) applyPracticeCompleted(msg practiceCompletedMsg) {
	m.practicing = false
	m.practiceCancel = nil
	m.practiceInputs = nil
	if msg.err != nil {
		m.appendLog(fmt.Sprintf("practice failed: %v", msg.err))
		m.appendLog("==== practice end ====")
		return
	}
	if msg.saveErr != nil {
		m.appendLog(fmt.Sprintf("save failed: %v", msg.saveErr))
	} else {
		m.lastSessionPath = msg.path
		m.appendLog("saved session: " + msg.path)
		m.appendLog("saved markdown: " + output.MarkdownPath(msg.path))
	}
	if msg.summary != nil {
		m.sessionCount++
		m.characterRuns[msg.summary.Character]++
		if msg.summary.Attempted > 0 {
			m.lastAccuracy = msg.summary.Accuracy
			m.hasAccuracy = true
		}
		m.assistant.RecordPracticeOutcome(fmt.Sprintf(
			"Practice session %s as %s: %d/%d correct.",
			msg.summary.SceneID, msg.summary.Character, msg.summary.Correct, msg.summary.Attempted,
		))
	}
	m.appendLog("==== practice end ====")
}

func (m *model) forwardPracticeInput(line string) {
	if line != "" {
		m.appendLog("you> " + line)
	}
	if m.practiceInputs == nil {
		return
	}
	select {
	case m.practiceInputs <- line:
	default:
		m.appendLog("(still working on the previous line, try again)")
	}
}

func (m *model) updateInteractiveInputs(msg tea.Msg) tea.Cmd {
	mouseWheelUp, mouseWheelDown := isMouseWheelScroll(msg)
	var viewportCmd tea.Cmd
	var inputCmd tea.Cmd
	m.logViewport, viewportCmd = m.logViewport.Update(msg)
	m.input, inputCmd = m.input.Update(msg)
	if mouseWheelUp {
		m.autoFollow = false
	}
	if mouseWheelDown && m.logViewport.AtBottom() {
		m.autoFollow = true
	}
	return tea.Batch(viewportCmd, inputCmd)
}

func isMouseWheelScroll(msg tea.Msg) (up bool, down bool) {
	mm, ok := msg.(tea.MouseMsg)
	if !ok || mm.Action != tea.MouseActionPress {
		return false, false
	}
	switch mm.Button { //nolint:exhaustive
	case tea.MouseButtonWheelUp:
		return true, false
	case tea.MouseButtonWheelDown:
		return false, true
	default:
		return false, false
	}
}
