// Package similarity scores a spoken practice attempt against the reference
// dialogue line. The comparison cascades through tiers of increasing cost,
// from exact string equality to an embedding lookup, and stops at the first
// tier that settles the answer.
package similarity

import (
	"context"

	"linecoach/internal/textnorm"
)

type Tier string

const (
	TierExact       Tier = "exact"
	TierNearExact   Tier = "near_exact"
	TierWordOverlap Tier = "word_overlap"
	TierCharacter   Tier = "character"
	TierSemantic    Tier = "semantic"
)

const (
	defaultWordScoreShortCircuit = 0.8
	defaultSemanticCutoff        = 0.4
	defaultShortPhraseMaxLen     = 20

	nearExactScore      = 0.95
	equalWordCountBonus = 0.1
)

// Score carries the similarity value in [0,1] together with the tier that
// produced it.
type Score struct {
	Value float64
	Tier  Tier
}

// Embedder encodes text into a vector for semantic comparison. Implemented
// by the openai client; failures degrade to the lexical score.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

type Config struct {
	// WordScoreShortCircuit is the word-overlap score at or above which no
	// more expensive tier runs.
	WordScoreShortCircuit float64
	// SemanticCutoff is the word-overlap score below which long text is
	// escalated to the embedding tier.
	SemanticCutoff float64
	// ShortPhraseMaxLen is the normalized expected-text length at or below
	// which the character tier applies instead of the semantic tier.
	ShortPhraseMaxLen int
}

type Engine struct {
	embedder Embedder
	cfg      Config
}

// New builds an engine. The embedder may be nil, in which case the semantic
// tier is skipped and long dissimilar text keeps its word-overlap score.
func New(embedder Embedder, cfg Config) *Engine {
	if cfg.WordScoreShortCircuit <= 0 || cfg.WordScoreShortCircuit > 1 {
		cfg.WordScoreShortCircuit = defaultWordScoreShortCircuit
	}
	if cfg.SemanticCutoff <= 0 || cfg.SemanticCutoff > 1 {
		cfg.SemanticCutoff = defaultSemanticCutoff
	}
	if cfg.ShortPhraseMaxLen <= 0 {
		cfg.ShortPhraseMaxLen = defaultShortPhraseMaxLen
	}
	return &Engine{embedder: embedder, cfg: cfg}
}

// Score compares a user attempt against the expected dialogue line. It
// always returns a value in [0,1] and never fails: embedding errors fall
// back to the already-computed word-overlap score.
func (e *Engine) Score(ctx context.Context, userInput, expectedLine string) Score {
	user := textnorm.Clean(userInput)
	expected := textnorm.Clean(textnorm.StripAsides(expectedLine))

	if user == expected {
		return Score{Value: 1.0, Tier: TierExact}
	}
	if isNearExact(user, expected) {
		return Score{Value: nearExactScore, Tier: TierNearExact}
	}

	wordScore := wordOverlap(user, expected)
	if wordScore >= e.cfg.WordScoreShortCircuit {
		return Score{Value: wordScore, Tier: TierWordOverlap}
	}

	if len(expected) <= e.cfg.ShortPhraseMaxLen {
		charScore := levenshteinRatio(user, expected)
		if charScore > wordScore {
			return Score{Value: charScore, Tier: TierCharacter}
		}
		return Score{Value: wordScore, Tier: TierWordOverlap}
	}

	if wordScore < e.cfg.SemanticCutoff && e.embedder != nil {
		if semantic, ok := e.semanticScore(ctx, user, expected); ok {
			return Score{Value: semantic, Tier: TierSemantic}
		}
	}
	return Score{Value: wordScore, Tier: TierWordOverlap}
}

func (e *Engine) semanticScore(ctx context.Context, user, expected string) (float64, bool) {
	userVec, err := e.embedder.Embed(ctx, user)
	if err != nil || len(userVec) == 0 {
		return 0, false
	}
	expectedVec, err := e.embedder.Embed(ctx, expected)
	if err != nil || len(expectedVec) == 0 {
		return 0, false
	}
	sim, ok := cosine(userVec, expectedVec)
	if !ok {
		return 0, false
	}
	if sim < 0 {
		sim = 0
	}
	if sim > 1 {
		sim = 1
	}
	return sim, true
}

// isNearExact reports whether the strings differ by at most one character
// substitution at equal length, or by a single character inserted anywhere.
func isNearExact(a, b string) bool {
	if a == "" && b == "" {
		return false // equal strings are the exact tier's business
	}
	if len(a) == len(b) {
		diffs := 0
		for i := 0; i < len(a); i++ {
			if a[i] != b[i] {
				diffs++
				if diffs > 1 {
					return false
				}
			}
		}
		return diffs <= 1
	}

	shorter, longer := a, b
	if len(a) > len(b) {
		shorter, longer = b, a
	}
	if len(longer)-len(shorter) != 1 {
		return false
	}
	for i := 0; i < len(longer); i++ {
		if longer[:i]+longer[i+1:] == shorter {
			return true
		}
	}
	return false
}

// wordOverlap computes Jaccard similarity over whitespace-split token sets,
// with a small bonus when both sides carry the same number of distinct
// tokens, clamped to 1.
func wordOverlap(a, b string) float64 {
	wordsA := tokenSet(a)
	wordsB := tokenSet(b)

	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 1.0
	}
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range wordsA {
		if _, ok := wordsB[w]; ok {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection

	score := float64(intersection) / float64(union)
	if len(wordsA) == len(wordsB) {
		score += equalWordCountBonus
	}
	if score > 1 {
		score = 1
	}
	return score
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range splitFields(s) {
		set[w] = struct{}{}
	}
	return set
}
