package similarity

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

type fakeEmbedder struct {
	vectors map[string][]float64
	err     error
	calls   int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[text], nil
}

func newEngine(t *testing.T, embedder Embedder) *Engine {
	t.Helper()
	return New(embedder, Config{})
}

func TestScoreExactAfterNormalization(t *testing.T) {
	engine := newEngine(t, nil)

	got := engine.Score(context.Background(), "im fine thanks", "I'm fine, thanks!")
	if got.Value != 1.0 {
		t.Fatalf("expected 1.0, got %v", got.Value)
	}
	if got.Tier != TierExact {
		t.Fatalf("expected exact tier, got %s", got.Tier)
	}
}

func TestScoreSelfIsOne(t *testing.T) {
	engine := newEngine(t, nil)
	inputs := []string{"How you doin'?", "We were on a break!", "OH. MY. GOD."}
	for _, s := range inputs {
		if got := engine.Score(context.Background(), s, s); got.Value != 1.0 {
			t.Fatalf("Score(%q, same)=%v, want 1.0", s, got.Value)
		}
	}
}

func TestScoreIgnoresAsidesInExpected(t *testing.T) {
	engine := newEngine(t, nil)
	got := engine.Score(context.Background(), "I do!", "(mortified) I do!")
	if got.Value != 1.0 || got.Tier != TierExact {
		t.Fatalf("expected exact 1.0, got %v (%s)", got.Value, got.Tier)
	}
}

func TestScoreNearExactSingleDeletion(t *testing.T) {
	engine := newEngine(t, nil)
	got := engine.Score(context.Background(), "How you doin", "How you doin?")
	// The trailing "?" is stripped by normalization, so force a real
	// one-character gap instead.
	if got.Tier != TierExact {
		t.Fatalf("sanity: normalization should make these exact, got %s", got.Tier)
	}

	got = engine.Score(context.Background(), "how you doi", "how you doin")
	if got.Value != 0.95 {
		t.Fatalf("expected 0.95, got %v", got.Value)
	}
	if got.Tier != TierNearExact {
		t.Fatalf("expected near-exact tier, got %s", got.Tier)
	}
}

func TestScoreNearExactSingleSubstitution(t *testing.T) {
	engine := newEngine(t, nil)
	got := engine.Score(context.Background(), "how you dozn", "how you doin")
	if got.Value != 0.95 || got.Tier != TierNearExact {
		t.Fatalf("expected near-exact 0.95, got %v (%s)", got.Value, got.Tier)
	}
}

func TestScoreWordOverlapShortCircuit(t *testing.T) {
	engine := newEngine(t, nil)
	// {we,were,on,a,break} vs {we,were,on,break}: 4/5 = 0.8, no bonus
	// because the word counts differ.
	got := engine.Score(context.Background(), "we were on break", "we were on a break")
	if math.Abs(got.Value-0.8) > 1e-9 {
		t.Fatalf("expected 0.8, got %v", got.Value)
	}
	if got.Tier != TierWordOverlap {
		t.Fatalf("expected word-overlap tier, got %s", got.Tier)
	}
}

func TestScoreEqualWordCountBonus(t *testing.T) {
	engine := newEngine(t, nil)
	// {joey, loves, big, sandwiches} vs {joey, likes, big, sandwiches}:
	// 3/5 = 0.6 + 0.1 bonus = 0.7 word score; expected text is longer than
	// the short-phrase cutoff so the word score stands.
	got := engine.Score(context.Background(), "joey loves big sandwiches", "joey likes big sandwiches")
	if math.Abs(got.Value-0.7) > 1e-9 {
		t.Fatalf("expected 0.7, got %v", got.Value)
	}
}

func TestScoreCharacterTierForShortPhrases(t *testing.T) {
	engine := newEngine(t, nil)
	// No shared tokens, so word score is 0; the expected text is short
	// enough for the edit-distance tier to take over.
	got := engine.Score(context.Background(), "pivot", "pivots now")
	if got.Tier != TierCharacter {
		t.Fatalf("expected character tier, got %s", got.Tier)
	}
	if got.Value <= 0 || got.Value >= 1 {
		t.Fatalf("expected partial credit in (0,1), got %v", got.Value)
	}
}

func TestScoreSemanticTierForLongDissimilarText(t *testing.T) {
	user := "something else entirely different words here"
	expected := "could i be wearing any more clothes right now honestly"

	embedder := &fakeEmbedder{vectors: map[string][]float64{
		"something else entirely different words here":           {1, 0, 0},
		"could i be wearing any more clothes right now honestly": {0.8, 0.6, 0},
	}}
	engine := newEngine(t, embedder)

	got := engine.Score(context.Background(), user, expected)
	if got.Tier != TierSemantic {
		t.Fatalf("expected semantic tier, got %s", got.Tier)
	}
	if math.Abs(got.Value-0.8) > 1e-9 {
		t.Fatalf("expected cosine 0.8, got %v", got.Value)
	}
	if embedder.calls != 2 {
		t.Fatalf("expected 2 embed calls, got %d", embedder.calls)
	}
}

func TestScoreSemanticFailureFallsBackToWordScore(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("provider down")}
	engine := newEngine(t, embedder)

	got := engine.Score(context.Background(),
		"completely unrelated utterance tokens",
		"could i be wearing any more clothes right now honestly")
	if got.Tier != TierWordOverlap {
		t.Fatalf("expected fallback to word-overlap, got %s", got.Tier)
	}
	if got.Value != 0 {
		t.Fatalf("expected 0 word score, got %v", got.Value)
	}
}

func TestScoreAlwaysInRange(t *testing.T) {
	engine := newEngine(t, nil)
	pairs := [][2]string{
		{"", ""},
		{"", "hello"},
		{"hello", ""},
		{"a", strings.Repeat("wordy ", 30)},
		{"café", "cafe"},
	}
	for _, p := range pairs {
		got := engine.Score(context.Background(), p[0], p[1])
		if got.Value < 0 || got.Value > 1 {
			t.Fatalf("Score(%q,%q)=%v out of range", p[0], p[1], got.Value)
		}
	}
}

func TestLevenshteinRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"kitten", "sitting", (7.0 - 3.0) / 7.0},
		{"abc", "abc", 1.0},
		{"", "abc", 0.0},
		{"abc", "", 0.0},
	}
	for _, tc := range tests {
		if got := levenshteinRatio(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("levenshteinRatio(%q,%q)=%v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestCosine(t *testing.T) {
	if _, ok := cosine([]float64{1, 2}, []float64{1}); ok {
		t.Fatal("length mismatch should not be comparable")
	}
	if _, ok := cosine([]float64{0, 0}, []float64{1, 1}); ok {
		t.Fatal("zero vector should not be comparable")
	}
	got, ok := cosine([]float64{1, 0}, []float64{1, 0})
	if !ok || math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("expected identical vectors to score 1.0, got %v ok=%t", got, ok)
	}
}

func TestWordOverlapEmptySets(t *testing.T) {
	if got := wordOverlap("", ""); got != 1.0 {
		t.Fatalf("both empty should be 1.0, got %v", got)
	}
	if got := wordOverlap("", "hi"); got != 0.0 {
		t.Fatalf("one empty should be 0.0, got %v", got)
	}
}
