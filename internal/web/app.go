// Package web exposes the assistant over HTTP: a chat endpoint, a batch
// practice endpoint that scores a full set of lines in one request, and an
// SSE variant that streams the session transcript while it runs.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"linecoach/internal/chat"
	"linecoach/internal/output"
	"linecoach/internal/practice"
	"linecoach/internal/request"
)

const (
	defaultAddr       = ":8080"
	maxRequestBytes   = 2 * 1024 * 1024
	serverStopTimeout = 5 * time.Second
)

type Assistant interface {
	Respond(ctx context.Context, message string) chat.Reply
	RecordPracticeOutcome(text string)
}

type Sessions interface {
	Run(ctx context.Context, req request.PracticeRequest, src practice.TurnSource, w io.Writer) (practice.Summary, error)
}

// Catalog lists what the store holds, for discovery endpoints.
type Catalog interface {
	Episodes() []string
}

type SaverFunc func(path string, summary practice.Summary) error

type Config struct {
	Assistant Assistant
	Sessions  Sessions
	Catalog   Catalog
	OutputDir string
	Now       func() time.Time
	Saver     SaverFunc
}

type App struct {
	assistant Assistant
	sessions  Sessions
	catalog   Catalog
	outputDir string
	now       func() time.Time
	saver     SaverFunc

	// The assistant carries conversation history, so chat requests are
	// serialized.
	chatMu sync.Mutex
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply           string                   `json:"reply"`
	StartPractice   bool                     `json:"start_practice"`
	PracticeRequest *practiceRequestResponse `json:"practice_request,omitempty"`
}

type practiceRequestResponse struct {
	EpisodeID   string `json:"episode_id"`
	Character   string `json:"character"`
	SceneNumber int    `json:"scene_number,omitempty"`
}

type practiceRequest struct {
	EpisodeID   string   `json:"episode_id"`
	Character   string   `json:"character"`
	SceneNumber int      `json:"scene_number,omitempty"`
	Inputs      []string `json:"inputs"`
}

type practiceResponse struct {
	Summary           practice.Summary `json:"summary"`
	Transcript        string           `json:"transcript"`
	SavedJSONPath     string           `json:"saved_json_path"`
	SavedMarkdownPath string           `json:"saved_markdown_path"`
}

type episodesResponse struct {
	Episodes []string `json:"episodes"`
}

type streamStartEvent struct {
	EpisodeID   string `json:"episode_id"`
	Character   string `json:"character"`
	SceneNumber int    `json:"scene_number,omitempty"`
	InputCount  int    `json:"input_count"`
}

type streamOutputEvent struct {
	Text string `json:"text"`
}

func NewApp(cfg Config) *App {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Saver == nil {
		cfg.Saver = output.SaveSummary
	}
	return &App{
		assistant: cfg.Assistant,
		sessions:  cfg.Sessions,
		catalog:   cfg.Catalog,
		outputDir: cfg.OutputDir,
		now:       cfg.Now,
		saver:     cfg.Saver,
	}
}

func (a *App) Start(ctx context.Context, addr string) error {
	if a.assistant == nil {
		return errors.New("assistant is required")
	}
	if a.sessions == nil {
		return errors.New("session runner is required")
	}
	if strings.TrimSpace(addr) == "" {
		addr = defaultAddr
	}

	server := &http.Server{
		Addr:    addr,
		Handler: a.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverStopTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", a.handleIndex)
	mux.HandleFunc("/api/chat", a.handleChat)
	mux.HandleFunc("/api/episodes", a.handleEpisodes)
	mux.HandleFunc("/api/practice", a.handlePractice)
	mux.HandleFunc("/api/practice/stream", a.handlePracticeStream)
	return mux
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, indexHTML)
}

func (a *App) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer body.Close()

	var req chatRequest
	if err := decodeStrictJSON(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	a.chatMu.Lock()
	reply := a.assistant.Respond(r.Context(), req.Message)
	a.chatMu.Unlock()

	resp := chatResponse{Reply: reply.Text, StartPractice: reply.StartPractice}
	if reply.StartPractice {
		resp.PracticeRequest = &practiceRequestResponse{
			EpisodeID:   reply.Request.EpisodeID,
			Character:   reply.Request.Character,
			SceneNumber: reply.Request.SceneNumber,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if a.catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "no scene catalog configured")
		return
	}
	writeJSON(w, http.StatusOK, episodesResponse{Episodes: a.catalog.Episodes()})
}

func (a *App) handlePractice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer body.Close()

	var req practiceRequest
	if err := decodeStrictJSON(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := validatePracticeRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var transcript bytes.Buffer
	resp, err := a.runAndSavePractice(r.Context(), req, &transcript)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, practice.ErrSceneNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	resp.Transcript = transcript.String()

	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handlePracticeStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming is not supported by this server")
		return
	}

	req, err := practiceRequestFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	if err := writeSSE(w, flusher, "start", streamStartEvent{
		EpisodeID:   req.EpisodeID,
		Character:   req.Character,
		SceneNumber: req.SceneNumber,
		InputCount:  len(req.Inputs),
	}); err != nil {
		return
	}

	streamCtx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var streamWriteErr error
	sink := &sseWriter{
		write: func(text string) {
			if streamWriteErr != nil {
				return
			}
			if writeErr := writeSSE(w, flusher, "output", streamOutputEvent{Text: text}); writeErr != nil {
				streamWriteErr = writeErr
				cancel()
			}
		},
	}

	resp, err := a.runAndSavePractice(streamCtx, req, sink)
	if streamWriteErr != nil {
		return
	}
	if err != nil {
		_ = writeSSE(w, flusher, "practice_error", map[string]string{
			"error": err.Error(),
		})
		return
	}
	_ = writeSSE(w, flusher, "complete", resp)
}

func (a *App) runAndSavePractice(ctx context.Context, req practiceRequest, w io.Writer) (practiceResponse, error) {
	src := &sliceSource{lines: req.Inputs}
	summary, err := a.sessions.Run(ctx, request.PracticeRequest{
		EpisodeID:   req.EpisodeID,
		Character:   req.Character,
		SceneNumber: req.SceneNumber,
	}, src, w)
	if err != nil {
		return practiceResponse{}, fmt.Errorf("run practice: %w", err)
	}

	savePath := output.NewTimestampPath(a.outputDir, a.now())
	if err := a.saver(savePath, summary); err != nil {
		return practiceResponse{}, fmt.Errorf("save session: %w", err)
	}

	a.assistant.RecordPracticeOutcome(fmt.Sprintf(
		"Practice session %s as %s: %d/%d correct.",
		summary.SceneID, summary.Character, summary.Correct, summary.Attempted,
	))

	return practiceResponse{
		Summary:           summary,
		SavedJSONPath:     savePath,
		SavedMarkdownPath: output.MarkdownPath(savePath),
	}, nil
}

func validatePracticeRequest(req practiceRequest) error {
	if strings.TrimSpace(req.EpisodeID) == "" {
		return errors.New("episode_id is required")
	}
	if strings.TrimSpace(req.Character) == "" {
		return errors.New("character is required")
	}
	if req.SceneNumber < 0 {
		return errors.New("scene_number must not be negative")
	}
	return nil
}

func practiceRequestFromQuery(r *http.Request) (practiceRequest, error) {
	q := r.URL.Query()
	req := practiceRequest{
		EpisodeID: strings.TrimSpace(q.Get("episode_id")),
		Character: strings.TrimSpace(q.Get("character")),
		Inputs:    q["input"],
	}
	if raw := strings.TrimSpace(q.Get("scene_number")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return practiceRequest{}, fmt.Errorf("scene_number must be an integer: %w", err)
		}
		req.SceneNumber = n
	}
	if err := validatePracticeRequest(req); err != nil {
		return practiceRequest{}, err
	}
	return req, nil
}

// sliceSource replays a fixed set of lines in engine reading order, so
// acknowledgement pauses consume one entry each. Running out of lines ends
// the session the same way quitting does.
type sliceSource struct {
	lines []string
	next  int
}

func (s *sliceSource) NextLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.next >= len(s.lines) {
		return "", io.EOF
	}
	line := s.lines[s.next]
	s.next++
	return line, nil
}

// sseWriter turns engine writes into SSE output events.
type sseWriter struct {
	write func(text string)
}

func (w *sseWriter) Write(p []byte) (int, error) {
	w.write(string(p))
	return len(p), nil
}

func writeSSE(w io.Writer, flusher http.Flusher, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

const indexHTML = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Friends Line Coach</title></head>
<body>
<h1>Friends Line Coach</h1>
<p>API endpoints:</p>
<ul>
<li><code>POST /api/chat</code> {"message": "..."} </li>
<li><code>GET /api/episodes</code></li>
<li><code>POST /api/practice</code> {"episode_id": "S01E01", "character": "Joey", "inputs": ["..."]}</li>
<li><code>GET /api/practice/stream?episode_id=S01E01&amp;character=Joey&amp;input=...</code></li>
</ul>
</body>
</html>
`
