// Package roster holds the fixed cast a learner can practice as, plus the
// show's signature expressions. The tables are immutable configuration data:
// built once at startup and passed by reference, never mutated.
package roster

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type Character struct {
	Name           string `json:"name"`
	Personality    string `json:"personality"`
	Traits         string `json:"traits"`
	SpeechPatterns string `json:"speech_patterns"`
	PracticeFocus  string `json:"practice_focus"`
}

type Expression struct {
	Phrase    string `json:"phrase"`
	Character string `json:"character"`
	Meaning   string `json:"meaning"`
	Usage     string `json:"usage"`
	Context   string `json:"context"`
}

// Roster is the ordered cast list. Match iteration follows this order, so
// the order is part of the extraction contract.
type Roster struct {
	Characters  []Character
	Expressions []Expression
}

// Default returns the built-in six-character cast and expression table.
func Default() Roster {
	return Roster{Characters: defaultCharacters(), Expressions: defaultExpressions()}
}

// LoadFromFile reads a roster override from JSON and validates it the same
// way the defaults are shaped.
func LoadFromFile(path string) (Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("read roster file: %w", err)
	}

	var decoded struct {
		Characters  []Character  `json:"characters"`
		Expressions []Expression `json:"expressions"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return Roster{}, fmt.Errorf("parse roster json: %w", err)
	}

	ros := Roster{Characters: decoded.Characters, Expressions: decoded.Expressions}
	if err := validate(ros); err != nil {
		return Roster{}, err
	}
	return ros, nil
}

func validate(ros Roster) error {
	if len(ros.Characters) == 0 {
		return fmt.Errorf("at least one character is required")
	}
	seen := make(map[string]struct{}, len(ros.Characters))
	for i, c := range ros.Characters {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return fmt.Errorf("character[%d].name is required", i)
		}
		key := strings.ToLower(name)
		if _, exists := seen[key]; exists {
			return fmt.Errorf("duplicate character name: %s", name)
		}
		seen[key] = struct{}{}
	}
	for i, e := range ros.Expressions {
		if strings.TrimSpace(e.Phrase) == "" {
			return fmt.Errorf("expression[%d].phrase is required", i)
		}
	}
	return nil
}

// MatchCharacter returns the canonical name of the first roster character
// whose name appears as a case-insensitive substring of the text. The first
// hit in roster order wins; there is no scoring.
func (r Roster) MatchCharacter(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, c := range r.Characters {
		if strings.Contains(lower, strings.ToLower(c.Name)) {
			return c.Name, true
		}
	}
	return "", false
}

// CharacterByName returns the roster entry for a canonical or
// differently-cased name.
func (r Roster) CharacterByName(name string) (Character, bool) {
	for _, c := range r.Characters {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Character{}, false
}

// MatchExpression returns the first known expression whose phrase appears,
// case-insensitively, in the text.
func (r Roster) MatchExpression(text string) (Expression, bool) {
	lower := strings.ToLower(text)
	for _, e := range r.Expressions {
		if strings.Contains(lower, strings.ToLower(e.Phrase)) {
			return e, true
		}
	}
	return Expression{}, false
}

func defaultCharacters() []Character {
	return []Character{
		{
			Name:           "Monica",
			Personality:    "Perfectionist chef, obsessed with cleanliness",
			Traits:         "Competitive, caring, neurotic about organization",
			SpeechPatterns: "Fast-talking, expressive, uses food metaphors",
			PracticeFocus:  "Giving advice, organizing events, cooking vocabulary",
		},
		{
			Name:           "Rachel",
			Personality:    "Fashion-focused, wealthy background turned independent",
			Traits:         "Shopping enthusiast, romantic, growing confident",
			SpeechPatterns: "Valley girl accent initially, sophisticated later",
			PracticeFocus:  "Fashion vocabulary, workplace conversations, relationship talks",
		},
		{
			Name:           "Ross",
			Personality:    "Paleontologist, intellectual, awkward in relationships",
			Traits:         "Nerdy, passionate about dinosaurs, jealous tendencies",
			SpeechPatterns: "Academic vocabulary, explains things in detail",
			PracticeFocus:  "Academic discussions, explaining concepts, awkward situations",
		},
		{
			Name:           "Chandler",
			Personality:    "Sarcastic office worker, commitment issues",
			Traits:         "Witty, defensive through humor, loyal friend",
			SpeechPatterns: "Heavy use of sarcasm, rhetorical questions, catchphrases",
			PracticeFocus:  "Sarcasm, office humor, witty comebacks",
		},
		{
			Name:           "Joey",
			Personality:    "Struggling actor, simple but loyal",
			Traits:         "Food-loving, ladies' man, childlike innocence",
			SpeechPatterns: "Simple vocabulary, catchphrase 'How you doin'?'",
			PracticeFocus:  "Casual conversations, expressing confusion, food-related talks",
		},
		{
			Name:           "Phoebe",
			Personality:    "Eccentric musician with unconventional past",
			Traits:         "Free-spirited, honest to a fault, believes in alternative medicine",
			SpeechPatterns: "Unique worldview, blunt honesty, spiritual references",
			PracticeFocus:  "Creative expressions, giving unconventional advice, music vocabulary",
		},
	}
}

func defaultExpressions() []Expression {
	return []Expression{
		{
			Phrase:    "How you doin'?",
			Character: "Joey",
			Meaning:   "Flirtatious greeting, Joey's pickup line",
			Usage:     "Casual, humorous way to greet someone you find attractive",
			Context:   "Informal, mostly used by Joey as his signature line",
		},
		{
			Phrase:    "Could I BE any more",
			Character: "Chandler",
			Meaning:   "Sarcastic emphasis pattern",
			Usage:     "To sarcastically emphasize something obvious or extreme",
			Context:   "Chandler's signature sarcastic speech pattern",
		},
		{
			Phrase:    "We were on a break!",
			Character: "Ross",
			Meaning:   "Excuse for dating someone else during a relationship pause",
			Usage:     "Defensive justification, became a running gag",
			Context:   "Ross's defense for his actions during the break with Rachel",
		},
	}
}
