package commandutil

import "testing"

func TestParse(t *testing.T) {
	aliases := map[string]string{
		"quit": "/quit",
		"exit": "/quit",
		"bye":  "/quit",
		"help": "/help",
	}

	cmd, arg := Parse("help\tpractice", aliases)
	if cmd != "/help" || arg != "practice" {
		t.Fatalf("unexpected parse result: cmd=%q arg=%q", cmd, arg)
	}

	cmd, arg = Parse("exit", aliases)
	if cmd != "/quit" || arg != "" {
		t.Fatalf("unexpected parse result: cmd=%q arg=%q", cmd, arg)
	}

	// Alias lookup ignores case.
	cmd, _ = Parse("Bye", aliases)
	if cmd != "/quit" {
		t.Fatalf("expected case-insensitive alias, got cmd=%q", cmd)
	}

	cmd, arg = Parse("tell me about Joey", aliases)
	if cmd != "tell" || arg != "me about Joey" {
		t.Fatalf("unexpected parse result: cmd=%q arg=%q", cmd, arg)
	}

	cmd, arg = Parse("   ", aliases)
	if cmd != "" || arg != "" {
		t.Fatalf("expected empty parse for blank input, got cmd=%q arg=%q", cmd, arg)
	}
}
