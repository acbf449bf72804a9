package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"linecoach/internal/intent"
	"linecoach/internal/script"
	"linecoach/internal/store"
	"linecoach/internal/vecindex"
)

type fakeCompleter struct {
	reply    string
	err      error
	calls    int
	lastUser string
}

func (f *fakeCompleter) Complete(_ context.Context, _, user string, _ int, _ float64) (string, error) {
	f.calls++
	f.lastUser = user
	return f.reply, f.err
}

type fakeClassifier struct {
	result intent.Condensed
	calls  int
}

func (f *fakeClassifier) Classify(_ context.Context, message string, _ []intent.Turn) intent.Condensed {
	f.calls++
	c := f.result
	if c.OriginalMessage == "" {
		c.OriginalMessage = message
	}
	if c.Topic == "" {
		c.Topic = message
	}
	return c
}

type fakeScenes struct {
	scenes map[string]script.Scene
}

func (f *fakeScenes) SceneByID(id string) (script.Scene, error) {
	if s, ok := f.scenes[id]; ok {
		return s, nil
	}
	return script.Scene{}, store.ErrNotFound
}

func (f *fakeScenes) SceneByNumber(episodeID string, n int) (script.Scene, error) {
	return f.SceneByID(script.SceneID(episodeID, n))
}

func (f *fakeScenes) Episodes() []string {
	return []string{"S01E01", "S09E19"}
}

type fakeIndex struct {
	matches    []vecindex.Match
	err        error
	lastTopK   int
	lastFilter map[string]any
}

func (f *fakeIndex) Query(_ context.Context, _ []float64, topK int, filter map[string]any) ([]vecindex.Match, error) {
	f.lastTopK = topK
	f.lastFilter = filter
	return f.matches, f.err
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float64, error) {
	return []float64{0.1, 0.2}, f.err
}

func testScenes() *fakeScenes {
	return &fakeScenes{scenes: map[string]script.Scene{
		"S01E01_001": {
			EpisodeID: "S01E01", SceneNumber: 1, SceneID: "S01E01_001",
			Location:   "Central Perk",
			Characters: []string{"Joey", "Chandler"},
			Text:       "Joey: How you doin'?\nChandler: Could I BE any more tired?",
		},
	}}
}

func newTestAssistant(t *testing.T, cfg Config) *Assistant {
	t.Helper()
	if cfg.Client == nil {
		cfg.Client = &fakeCompleter{reply: "sure thing"}
	}
	if cfg.Classifier == nil {
		cfg.Classifier = &fakeClassifier{}
	}
	if cfg.Scenes == nil {
		cfg.Scenes = testScenes()
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new assistant: %v", err)
	}
	return a
}

func TestRespondPracticeShortCircuitsClassifier(t *testing.T) {
	classifier := &fakeClassifier{}
	a := newTestAssistant(t, Config{Classifier: classifier})

	reply := a.Respond(context.Background(), "I want to practice S01E01 as Joey")
	if !reply.StartPractice {
		t.Fatalf("expected practice start, got %+v", reply)
	}
	if reply.Request.EpisodeID != "S01E01" || reply.Request.Character != "Joey" {
		t.Fatalf("unexpected request: %+v", reply.Request)
	}
	if classifier.calls != 0 {
		t.Fatalf("classifier called %d times, want 0", classifier.calls)
	}
}

func TestRespondPracticeAsksForMissingFields(t *testing.T) {
	a := newTestAssistant(t, Config{})

	reply := a.Respond(context.Background(), "let's practice!")
	if reply.StartPractice {
		t.Fatal("incomplete request must not start practice")
	}
	if !strings.Contains(reply.Text, "which episode") || !strings.Contains(reply.Text, "which character") {
		t.Fatalf("missing-field prompt wrong: %q", reply.Text)
	}
}

func TestRespondPracticeUsesHistoryLookback(t *testing.T) {
	a := newTestAssistant(t, Config{})

	a.Respond(context.Background(), "what happens in S01E01?")
	reply := a.Respond(context.Background(), "ok let's practice as joey")
	if !reply.StartPractice {
		t.Fatalf("expected practice start, got %+v", reply)
	}
	if reply.Request.EpisodeID != "S01E01" {
		t.Fatalf("episode=%q, want S01E01 from history", reply.Request.EpisodeID)
	}
}

func TestRouteCoversAllKinds(t *testing.T) {
	a := newTestAssistant(t, Config{})
	for _, kind := range intent.Kinds() {
		if a.route(kind) == nil {
			t.Fatalf("no handler for kind %s", kind)
		}
	}
}

func TestSceneScriptFromCatalog(t *testing.T) {
	client := &fakeCompleter{reply: "unused"}
	a := newTestAssistant(t, Config{
		Client:     client,
		Classifier: &fakeClassifier{result: intent.Condensed{Kind: intent.KindSceneScript}},
	})

	reply := a.Respond(context.Background(), "show me S01E01 scene 1")
	if !strings.Contains(reply.Text, "How you doin'?") {
		t.Fatalf("scene text missing: %q", reply.Text)
	}
	if client.calls != 0 {
		t.Fatalf("completion called %d times for a catalog hit, want 0", client.calls)
	}
}

func TestSceneScriptMissFallsBackToModel(t *testing.T) {
	client := &fakeCompleter{reply: "That scene is not in my catalog."}
	a := newTestAssistant(t, Config{
		Client:     client,
		Classifier: &fakeClassifier{result: intent.Condensed{Kind: intent.KindSceneScript}},
	})

	reply := a.Respond(context.Background(), "show me S05E05 scene 9")
	if reply.Text != "That scene is not in my catalog." {
		t.Fatalf("unexpected reply: %q", reply.Text)
	}
	if !strings.Contains(client.lastUser, "S01E01") {
		t.Fatalf("catalog episodes missing from prompt: %q", client.lastUser)
	}
}

func TestCulturalContextExpressionTableWins(t *testing.T) {
	client := &fakeCompleter{reply: "unused"}
	a := newTestAssistant(t, Config{
		Client:     client,
		Classifier: &fakeClassifier{result: intent.Condensed{Kind: intent.KindCulturalContext}},
	})

	reply := a.Respond(context.Background(), "what does we were on a break! mean?")
	if !strings.Contains(reply.Text, "Ross") {
		t.Fatalf("expected curated expression reply, got %q", reply.Text)
	}
	if client.calls != 0 {
		t.Fatalf("completion called %d times for a table hit, want 0", client.calls)
	}
}

func TestCulturalContextSemanticEnrichment(t *testing.T) {
	client := &fakeCompleter{reply: "here is the context"}
	a := newTestAssistant(t, Config{
		Client:     client,
		Classifier: &fakeClassifier{result: intent.Condensed{Kind: intent.KindCulturalContext, Topic: "thanksgiving traditions"}},
		Index:      &fakeIndex{matches: []vecindex.Match{{ID: "S01E01_001", Score: 0.9}}},
		Embedder:   &fakeEmbedder{},
	})

	reply := a.Respond(context.Background(), "why is thanksgiving such a big deal?")
	if reply.Text != "here is the context" {
		t.Fatalf("unexpected reply: %q", reply.Text)
	}
	if !strings.Contains(client.lastUser, "How you doin'?") {
		t.Fatalf("matched scene text missing from prompt: %q", client.lastUser)
	}
}

func TestCulturalContextIndexFailureIsSilent(t *testing.T) {
	client := &fakeCompleter{reply: "plain answer"}
	a := newTestAssistant(t, Config{
		Client:     client,
		Classifier: &fakeClassifier{result: intent.Condensed{Kind: intent.KindCulturalContext, Topic: "thanksgiving"}},
		Index:      &fakeIndex{err: errors.New("index down")},
		Embedder:   &fakeEmbedder{},
	})

	reply := a.Respond(context.Background(), "why is thanksgiving such a big deal?")
	if reply.Text != "plain answer" {
		t.Fatalf("unexpected reply: %q", reply.Text)
	}
}

func TestEpisodeRecommendationRanksPlotChunks(t *testing.T) {
	client := &fakeCompleter{reply: "unused"}
	index := &fakeIndex{matches: []vecindex.Match{
		{ID: "S01E01_plot", Score: 0.91, Metadata: map[string]any{
			"episode_id": "S01E01", "episode_title": "The Pilot", "plot_text": "Rachel leaves Barry at the altar.",
		}},
		{ID: "S09E19_plot", Score: 0.84, Metadata: map[string]any{
			"episode_id": "S09E19", "episode_title": "The One With Rachel's Dream", "plot_text": "Joey invites Rachel to the set.",
		}},
		{ID: "S02E02_plot", Score: 0.72, Metadata: map[string]any{
			"episode_id": "S02E02", "episode_title": "TOW the Breast Milk", "plot_text": "Monica shops with Julia.",
		}},
		{ID: "S03E03_plot", Score: 0.61, Metadata: map[string]any{
			"episode_id": "S03E03", "episode_title": "TOW the Jam", "plot_text": "Monica makes jam.",
		}},
	}}
	a := newTestAssistant(t, Config{
		Client:     client,
		Classifier: &fakeClassifier{result: intent.Condensed{Kind: intent.KindEpisodeRecommendation, Topic: "dating"}},
		Index:      index,
		Embedder:   &fakeEmbedder{},
	})

	reply := a.Respond(context.Background(), "recommend an episode about dating")
	if client.calls != 0 {
		t.Fatalf("completion called %d times for an index hit, want 0", client.calls)
	}
	if index.lastTopK != 5 || index.lastFilter["chunk_type"] != "plot" {
		t.Fatalf("unexpected query: topK=%d filter=%v", index.lastTopK, index.lastFilter)
	}
	if !strings.Contains(reply.Text, "S01E01: The Pilot") {
		t.Fatalf("best match missing: %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "Match: 0.91") {
		t.Fatalf("match score missing: %q", reply.Text)
	}
	// Only the best three are shown.
	if strings.Contains(reply.Text, "S03E03") {
		t.Fatalf("fourth match should not be shown: %q", reply.Text)
	}
}

func TestEpisodeRecommendationFallsBackOnIndexFailure(t *testing.T) {
	client := &fakeCompleter{reply: "try the pilot"}
	a := newTestAssistant(t, Config{
		Client:     client,
		Classifier: &fakeClassifier{result: intent.Condensed{Kind: intent.KindEpisodeRecommendation, Topic: "dating"}},
		Index:      &fakeIndex{err: errors.New("index down")},
		Embedder:   &fakeEmbedder{},
	})

	reply := a.Respond(context.Background(), "recommend an episode about dating")
	if reply.Text != "try the pilot" {
		t.Fatalf("unexpected reply: %q", reply.Text)
	}
	if !strings.Contains(client.lastUser, "S01E01") {
		t.Fatalf("catalog episodes missing from prompt: %q", client.lastUser)
	}
}

func TestCharacterInfoQueriesScenesForCharacter(t *testing.T) {
	client := &fakeCompleter{reply: "about joey"}
	index := &fakeIndex{matches: []vecindex.Match{
		{ID: "S01E01_001", Score: 0.88, Metadata: map[string]any{
			"episode_id": "S01E01", "location": "Central Perk", "text": "Joey: How you doin'?",
		}},
	}}
	a := newTestAssistant(t, Config{
		Client:     client,
		Classifier: &fakeClassifier{result: intent.Condensed{Kind: intent.KindCharacterInfo, Topic: "tell me about Joey"}},
		Index:      index,
		Embedder:   &fakeEmbedder{},
	})

	a.Respond(context.Background(), "tell me about Joey")
	in, ok := index.lastFilter["characters"].(map[string]any)
	if !ok {
		t.Fatalf("characters filter missing: %v", index.lastFilter)
	}
	names, ok := in["$in"].([]string)
	if !ok || len(names) != 1 || names[0] != "Joey" {
		t.Fatalf("unexpected $in filter: %v", in)
	}
	if index.lastFilter["chunk_type"] != "scene" {
		t.Fatalf("unexpected chunk filter: %v", index.lastFilter)
	}
	if !strings.Contains(client.lastUser, "Popular Joey scenes") {
		t.Fatalf("scene examples missing from prompt: %q", client.lastUser)
	}
	if !strings.Contains(client.lastUser, "Central Perk") {
		t.Fatalf("scene location missing from prompt: %q", client.lastUser)
	}
}

func TestPlotSummaryFiltersByEpisodeID(t *testing.T) {
	client := &fakeCompleter{reply: "unused"}
	index := &fakeIndex{matches: []vecindex.Match{
		{ID: "S01E01_plot", Score: 0.97, Metadata: map[string]any{
			"episode_id": "S01E01", "episode_title": "The Pilot", "plot_text": "Rachel leaves Barry at the altar.",
		}},
	}}
	a := newTestAssistant(t, Config{
		Client:     client,
		Classifier: &fakeClassifier{result: intent.Condensed{Kind: intent.KindPlotSummary, Topic: "what happens in S01E01?"}},
		Index:      index,
		Embedder:   &fakeEmbedder{},
	})

	reply := a.Respond(context.Background(), "what happens in S01E01?")
	if client.calls != 0 {
		t.Fatalf("completion called %d times for an index hit, want 0", client.calls)
	}
	if index.lastFilter["episode_id"] != "S01E01" || index.lastFilter["chunk_type"] != "plot" {
		t.Fatalf("unexpected filter: %v", index.lastFilter)
	}
	if index.lastTopK != 1 {
		t.Fatalf("topK=%d, want 1 for an explicit episode", index.lastTopK)
	}
	if !strings.Contains(reply.Text, "Rachel leaves Barry at the altar.") {
		t.Fatalf("plot text missing: %q", reply.Text)
	}
}

func TestPlotSummaryTopicSearchListsCandidates(t *testing.T) {
	client := &fakeCompleter{reply: "unused"}
	index := &fakeIndex{matches: []vecindex.Match{
		{ID: "S01E01_plot", Score: 0.8, Metadata: map[string]any{
			"episode_id": "S01E01", "episode_title": "The Pilot", "plot_text": "Rachel leaves Barry.",
		}},
		{ID: "S09E19_plot", Score: 0.7, Metadata: map[string]any{
			"episode_id": "S09E19", "episode_title": "The One With Rachel's Dream", "plot_text": "Joey invites Rachel.",
		}},
	}}
	a := newTestAssistant(t, Config{
		Client:     client,
		Classifier: &fakeClassifier{result: intent.Condensed{Kind: intent.KindPlotSummary, Topic: "the wedding one"}},
		Index:      index,
		Embedder:   &fakeEmbedder{},
	})

	reply := a.Respond(context.Background(), "what happens in the wedding one?")
	if index.lastFilter["chunk_type"] != "plot" {
		t.Fatalf("unexpected filter: %v", index.lastFilter)
	}
	if _, hasEpisode := index.lastFilter["episode_id"]; hasEpisode {
		t.Fatalf("topic search must not filter by episode: %v", index.lastFilter)
	}
	if !strings.Contains(reply.Text, "S01E01") || !strings.Contains(reply.Text, "S09E19") {
		t.Fatalf("candidate episodes missing: %q", reply.Text)
	}
}

func TestCharacterInfoIncludesCharacterSheet(t *testing.T) {
	client := &fakeCompleter{reply: "about joey"}
	a := newTestAssistant(t, Config{
		Client:     client,
		Classifier: &fakeClassifier{result: intent.Condensed{Kind: intent.KindCharacterInfo, Topic: "tell me about Joey"}},
	})

	a.Respond(context.Background(), "tell me about Joey")
	if !strings.Contains(client.lastUser, "Struggling actor") {
		t.Fatalf("character sheet missing from prompt: %q", client.lastUser)
	}
}

func TestRespondNeverErrors(t *testing.T) {
	a := newTestAssistant(t, Config{
		Client:     &fakeCompleter{err: errors.New("provider down")},
		Classifier: &fakeClassifier{result: intent.Condensed{Kind: intent.KindGeneralChat}},
	})

	reply := a.Respond(context.Background(), "hello!")
	if reply.Text != fallbackReply {
		t.Fatalf("unexpected reply: %q", reply.Text)
	}
}

func TestHistoryAccumulates(t *testing.T) {
	a := newTestAssistant(t, Config{})

	a.Respond(context.Background(), "first message")
	a.Respond(context.Background(), "second message")

	history := a.History()
	if len(history) != 4 {
		t.Fatalf("history len=%d, want 4", len(history))
	}
	recent := a.RecentUserMessages()
	if len(recent) != 2 || recent[0] != "second message" || recent[1] != "first message" {
		t.Fatalf("unexpected recent messages: %v", recent)
	}
}
