package intent

import (
	"context"
	"fmt"
	"strings"
)

// Completer produces a single chat completion. Implemented by the OpenAI
// client; tests supply fakes.
type Completer interface {
	Complete(ctx context.Context, system, user string, maxTokens int, temperature float64) (string, error)
}

// Turn is one prior conversation exchange fed to the classifier for context.
type Turn struct {
	Role    string
	Content string
}

// historyWindow caps how much conversation the classifier sees.
const historyWindow = 10

const classifierSystemPrompt = `You are an intent classifier for a Friends-themed English learning assistant.
Given the conversation history and the latest user message, restate the user's request as a standalone request and classify it.

Respond in exactly this format:
Intent: <one of: episode_recommendation, character_info, plot_summary, scene_script, cultural_context, practice_session, general_chat>
Topic: <the subject of the request, standalone, resolving any references to earlier turns>
Details: <any constraints or specifics the user mentioned>`

// Classifier condenses the latest message plus recent history into a
// standalone classified request.
type Classifier struct {
	client      Completer
	maxTokens   int
	temperature float64
}

func NewClassifier(client Completer) *Classifier {
	return &Classifier{client: client, maxTokens: 200, temperature: 0.0}
}

// Classify never fails: when the completion call errors, the message is
// treated as general chat about itself.
func (c *Classifier) Classify(ctx context.Context, message string, history []Turn) Condensed {
	completion, err := c.client.Complete(ctx, classifierSystemPrompt, classifierUserPrompt(message, history), c.maxTokens, c.temperature)
	if err != nil {
		return Condensed{Kind: KindGeneralChat, Topic: message, OriginalMessage: message}
	}
	return ParseCondensed(completion, message)
}

func classifierUserPrompt(message string, history []Turn) string {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	var b strings.Builder
	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Latest user message: %s", message)
	return b.String()
}
