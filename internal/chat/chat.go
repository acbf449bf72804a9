// Package chat is the conversational layer: it classifies each user message,
// routes it to an intent handler, and keeps the running conversation history.
// Replies never fail; provider errors degrade to an apology.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"linecoach/internal/intent"
	"linecoach/internal/request"
	"linecoach/internal/roster"
	"linecoach/internal/script"
	"linecoach/internal/store"
	"linecoach/internal/vecindex"
)

const fallbackReply = "Sorry, I'm having a technical issue right now. Please try again in a moment."

const (
	replyMaxTokens   = 600
	replyTemperature = 0.7
)

// Index query widths. Recommendations pull five plot chunks and show the
// best three; character info pulls three scene examples.
const (
	recommendQueryTopK  = 5
	recommendShownCount = 3
	characterScenesTopK = 3
	plotSearchTopK      = 3
)

// Completer produces chat completions. The OpenAI client satisfies it.
type Completer interface {
	Complete(ctx context.Context, system, user string, maxTokens int, temperature float64) (string, error)
}

// Classifier condenses a message into a routed intent.
type Classifier interface {
	Classify(ctx context.Context, message string, history []intent.Turn) intent.Condensed
}

// SceneSource is the catalog subset the handlers read. *store.FileStore
// satisfies it.
type SceneSource interface {
	SceneByNumber(episodeID string, sceneNumber int) (script.Scene, error)
	SceneByID(id string) (script.Scene, error)
	Episodes() []string
}

// SceneIndex finds scenes semantically close to a text. Optional; a nil
// index skips semantic lookups.
type SceneIndex interface {
	Query(ctx context.Context, vector []float64, topK int, filter map[string]any) ([]vecindex.Match, error)
}

// Embedder turns text into a vector for index queries.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Reply is one assistant response. StartPractice tells the front end to hand
// control to the practice engine with Request.
type Reply struct {
	Text          string
	StartPractice bool
	Request       request.PracticeRequest
}

type Config struct {
	Client     Completer
	Classifier Classifier
	Roster     roster.Roster
	Scenes     SceneSource
	Index      SceneIndex
	Embedder   Embedder
}

type Assistant struct {
	client     Completer
	classifier Classifier
	ros        roster.Roster
	scenes     SceneSource
	index      SceneIndex
	embedder   Embedder
	history    []intent.Turn
}

func New(cfg Config) (*Assistant, error) {
	if cfg.Client == nil {
		return nil, errors.New("completion client is required")
	}
	if cfg.Classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if cfg.Scenes == nil {
		return nil, errors.New("scene source is required")
	}
	if len(cfg.Roster.Characters) == 0 {
		cfg.Roster = roster.Default()
	}
	return &Assistant{
		client:     cfg.Client,
		classifier: cfg.Classifier,
		ros:        cfg.Roster,
		scenes:     cfg.Scenes,
		index:      cfg.Index,
		embedder:   cfg.Embedder,
	}, nil
}

// History returns the conversation so far, oldest first.
func (a *Assistant) History() []intent.Turn {
	return a.history
}

// RecentUserMessages returns the user's messages, newest first, for
// practice-request lookback.
func (a *Assistant) RecentUserMessages() []string {
	var out []string
	for i := len(a.history) - 1; i >= 0; i-- {
		if a.history[i].Role == "user" {
			out = append(out, a.history[i].Content)
		}
	}
	return out
}

// Respond handles one user message. It never returns an error: handler
// failures degrade to a fallback reply so the conversation keeps going.
func (a *Assistant) Respond(ctx context.Context, message string) Reply {
	reply := a.respond(ctx, message)
	a.history = append(a.history,
		intent.Turn{Role: "user", Content: message},
		intent.Turn{Role: "assistant", Content: reply.Text},
	)
	return reply
}

// RecordPracticeOutcome appends a practice summary to the history so later
// classification sees what the learner just rehearsed.
func (a *Assistant) RecordPracticeOutcome(text string) {
	a.history = append(a.history, intent.Turn{Role: "assistant", Content: text})
}

func (a *Assistant) respond(ctx context.Context, message string) Reply {
	// Practice phrasing short-circuits classification: the trigger words are
	// unambiguous and the session must not depend on model availability.
	if request.IsPracticeUtterance(message) {
		return a.handlePractice(intent.Condensed{
			Kind:            intent.KindPracticeSession,
			Topic:           message,
			OriginalMessage: message,
		})
	}

	condensed := a.classifier.Classify(ctx, message, a.history)
	return a.route(condensed.Kind)(ctx, condensed)
}

type handlerFunc func(ctx context.Context, c intent.Condensed) Reply

// route is total over intent kinds; unknown kinds cannot reach it because
// intent.ParseKind collapses them to general chat.
func (a *Assistant) route(kind intent.Kind) handlerFunc {
	switch kind {
	case intent.KindEpisodeRecommendation:
		return a.handleEpisodeRecommendation
	case intent.KindCharacterInfo:
		return a.handleCharacterInfo
	case intent.KindPlotSummary:
		return a.handlePlotSummary
	case intent.KindSceneScript:
		return a.handleSceneScript
	case intent.KindCulturalContext:
		return a.handleCulturalContext
	case intent.KindPracticeSession:
		return func(_ context.Context, c intent.Condensed) Reply {
			return a.handlePractice(c)
		}
	default:
		return a.handleGeneralChat
	}
}

func (a *Assistant) handlePractice(c intent.Condensed) Reply {
	req := request.Extract(c.OriginalMessage, a.RecentUserMessages(), a.ros)
	if req.Complete() {
		text := fmt.Sprintf("Let's rehearse %s as %s.", req.EpisodeID, req.Character)
		if req.SceneNumber > 0 {
			text = fmt.Sprintf("Let's rehearse %s scene %d as %s.", req.EpisodeID, req.SceneNumber, req.Character)
		}
		return Reply{Text: text, StartPractice: true, Request: req}
	}

	var missing []string
	if req.EpisodeID == "" {
		missing = append(missing, "which episode (for example S01E01)")
	}
	if req.Character == "" {
		missing = append(missing, "which character you want to play")
	}
	return Reply{
		Text:    fmt.Sprintf("Happy to practice with you! Just tell me %s.", strings.Join(missing, " and ")),
		Request: req,
	}
}

// handleEpisodeRecommendation ranks plot chunks from the index against the
// learner's topic. With no index (or no hits) the model recommends from the
// catalog list instead.
func (a *Assistant) handleEpisodeRecommendation(ctx context.Context, c intent.Condensed) Reply {
	query := fmt.Sprintf("episodes about %s situations conversations", c.Topic)
	matches := a.queryIndex(ctx, query, recommendQueryTopK, map[string]any{"chunk_type": "plot"})
	if len(matches) > 0 {
		return Reply{Text: renderRecommendations(c.Topic, matches)}
	}

	known := a.scenes.Episodes()
	user := fmt.Sprintf("Recommend Friends episodes for this request: %s", c.Topic)
	if c.Details != "" {
		user += "\nExtra constraints: " + c.Details
	}
	if len(known) > 0 {
		user += "\nEpisodes available for script practice afterwards: " + strings.Join(known, ", ") + ". Prefer these when they fit."
	}
	return a.complete(ctx, recommendSystemPrompt, user)
}

func (a *Assistant) handleCharacterInfo(ctx context.Context, c intent.Condensed) Reply {
	user := fmt.Sprintf("The learner asks about: %s", c.Topic)
	if name, ok := a.ros.MatchCharacter(c.Topic + " " + c.OriginalMessage); ok {
		if ch, found := a.ros.CharacterByName(name); found {
			user += fmt.Sprintf("\n\nCharacter sheet for %s:\nPersonality: %s\nTraits: %s\nSpeech patterns: %s\nGood for practicing: %s",
				ch.Name, ch.Personality, ch.Traits, ch.SpeechPatterns, ch.PracticeFocus)
		}
		scenes := a.queryIndex(ctx, fmt.Sprintf("%s funny scenes dialogue", name), characterScenesTopK, map[string]any{
			"chunk_type": "scene",
			"characters": map[string]any{"$in": []string{name}},
		})
		if len(scenes) > 0 {
			user += fmt.Sprintf("\n\nPopular %s scenes in the catalog:", name)
			for _, m := range scenes {
				user += fmt.Sprintf("\n- %s at %s: %s", metaString(m, "episode_id"), metaString(m, "location"), clip(metaString(m, "text"), 100))
			}
			user += "\nSuggest one or two of these for practice."
		}
	}
	return a.complete(ctx, characterSystemPrompt, user)
}

// handlePlotSummary answers from plot chunks in the index: an explicit
// episode id filters to that episode, anything else searches by topic.
// Without index hits the model summarizes on its own.
func (a *Assistant) handlePlotSummary(ctx context.Context, c intent.Condensed) Reply {
	mention := c.Topic + " " + c.Details + " " + c.OriginalMessage
	if episodeID := request.Extract(mention, nil, a.ros).EpisodeID; episodeID != "" {
		matches := a.queryIndex(ctx, fmt.Sprintf("episode %s plot summary", episodeID), 1, map[string]any{
			"chunk_type": "plot",
			"episode_id": episodeID,
		})
		if len(matches) > 0 {
			return Reply{Text: renderPlot(matches[0])}
		}
	} else if matches := a.queryIndex(ctx, fmt.Sprintf("%s episode plot", c.Topic), plotSearchTopK, map[string]any{"chunk_type": "plot"}); len(matches) > 0 {
		return Reply{Text: renderPlotCandidates(c.Topic, matches)}
	}

	user := fmt.Sprintf("Summarize the plot for: %s", c.Topic)
	if c.Details != "" {
		user += "\nFocus on: " + c.Details
	}
	return a.complete(ctx, plotSystemPrompt, user)
}

func (a *Assistant) handleSceneScript(ctx context.Context, c intent.Condensed) Reply {
	req := request.Extract(c.OriginalMessage+" "+c.Topic, a.RecentUserMessages(), a.ros)
	if req.EpisodeID != "" && req.SceneNumber > 0 {
		scene, err := a.scenes.SceneByNumber(req.EpisodeID, req.SceneNumber)
		if err == nil {
			return Reply{Text: renderScene(scene)}
		}
		if !errors.Is(err, store.ErrNotFound) {
			return Reply{Text: fallbackReply}
		}
	}

	user := fmt.Sprintf("The learner wants a scene script: %s", c.Topic)
	user += "\nI could not find it in the local catalog. Explain what is available and ask them to name an episode like S01E01 and a scene number."
	if known := a.scenes.Episodes(); len(known) > 0 {
		user += "\nEpisodes in the catalog: " + strings.Join(known, ", ")
	}
	return a.complete(ctx, sceneSystemPrompt, user)
}

// handleCulturalContext tries the curated expression table first, then the
// vector index, then a plain completion.
func (a *Assistant) handleCulturalContext(ctx context.Context, c intent.Condensed) Reply {
	probe := c.Topic + " " + c.OriginalMessage
	if expr, ok := a.ros.MatchExpression(probe); ok {
		return Reply{Text: renderExpression(expr)}
	}

	user := fmt.Sprintf("Explain the cultural or language context of: %s", c.Topic)
	if scene, ok := a.nearestScene(ctx, c.Topic); ok {
		user += "\n\nA scene where something similar comes up:\n" + clip(scene.DialogueText(), 800)
	}
	return a.complete(ctx, culturalSystemPrompt, user)
}

func (a *Assistant) handleGeneralChat(ctx context.Context, c intent.Condensed) Reply {
	return a.complete(ctx, generalSystemPrompt, c.OriginalMessage)
}

// nearestScene asks the index for the scene closest to the text.
func (a *Assistant) nearestScene(ctx context.Context, text string) (script.Scene, bool) {
	matches := a.queryIndex(ctx, text, 1, nil)
	if len(matches) == 0 {
		return script.Scene{}, false
	}
	scene, err := a.scenes.SceneByID(matches[0].ID)
	if err != nil {
		return script.Scene{}, false
	}
	return scene, true
}

// queryIndex embeds the text and runs a filtered index query. Every failure
// is silent: semantic lookup only ever enriches a reply.
func (a *Assistant) queryIndex(ctx context.Context, text string, topK int, filter map[string]any) []vecindex.Match {
	if a.index == nil || a.embedder == nil {
		return nil
	}
	vec, err := a.embedder.Embed(ctx, text)
	if err != nil {
		return nil
	}
	matches, err := a.index.Query(ctx, vec, topK, filter)
	if err != nil {
		return nil
	}
	return matches
}

func (a *Assistant) complete(ctx context.Context, system, user string) Reply {
	text, err := a.client.Complete(ctx, system, user, replyMaxTokens, replyTemperature)
	if err != nil {
		return Reply{Text: fallbackReply}
	}
	return Reply{Text: text}
}

func renderScene(scene script.Scene) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scene %s", scene.SceneID)
	if scene.Location != "" {
		fmt.Fprintf(&b, " - %s", scene.Location)
	}
	b.WriteString("\n\n")
	b.WriteString(scene.DialogueText())
	if len(scene.Characters) > 0 {
		fmt.Fprintf(&b, "\n\nCharacters in this scene: %s", strings.Join(scene.Characters, ", "))
		b.WriteString("\nSay \"practice\" with an episode and character to rehearse it.")
	}
	return b.String()
}

func renderRecommendations(topic string, matches []vecindex.Match) string {
	if len(matches) > recommendShownCount {
		matches = matches[:recommendShownCount]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Great choice! Here are Friends episodes perfect for practicing %q:\n", topic)
	for i, m := range matches {
		fmt.Fprintf(&b, "\n%d. %s: %s\n", i+1, metaString(m, "episode_id"), metaString(m, "episode_title"))
		fmt.Fprintf(&b, "   Plot: %s\n", clip(metaString(m, "plot_text"), 200))
		fmt.Fprintf(&b, "   Match: %.2f\n", m.Score)
	}
	b.WriteString("\nSay \"practice\" with an episode and character to rehearse one of these.")
	return b.String()
}

func renderPlot(m vecindex.Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n\n", metaString(m, "episode_id"), metaString(m, "episode_title"))
	b.WriteString("Plot summary:\n")
	b.WriteString(metaString(m, "plot_text"))
	b.WriteString("\n\nSay \"practice\" with this episode and a character to rehearse a scene from it.")
	return b.String()
}

func renderPlotCandidates(topic string, matches []vecindex.Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d episodes matching %q:\n", len(matches), topic)
	for i, m := range matches {
		fmt.Fprintf(&b, "\n%d. %s: %s\n   %s\n", i+1, metaString(m, "episode_id"), metaString(m, "episode_title"), clip(metaString(m, "plot_text"), 150))
	}
	b.WriteString("\nWhich one would you like to hear more about?")
	return b.String()
}

func metaString(m vecindex.Match, key string) string {
	s, _ := m.Metadata[key].(string)
	return s
}

func renderExpression(expr roster.Expression) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%q - %s's signature expression.\n\n", expr.Phrase, expr.Character)
	fmt.Fprintf(&b, "Meaning: %s\n", expr.Meaning)
	fmt.Fprintf(&b, "Usage: %s\n", expr.Usage)
	fmt.Fprintf(&b, "Context: %s", expr.Context)
	return b.String()
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
