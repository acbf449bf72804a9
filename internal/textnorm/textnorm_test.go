package textnorm

import "testing"

func TestCleanPunctuationAndCase(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "punctuation", in: "I'm fine, thanks!", want: "im fine thanks"},
		{name: "hyphen becomes space", in: "well-known", want: "well known"},
		{name: "quotes", in: `she said "hi"`, want: "she said hi"},
		{name: "whitespace collapse", in: "  oh   my    god  ", want: "oh my god"},
		{name: "empty", in: "", want: ""},
		{name: "non-ascii", in: "Café, s'il vous plaît!", want: "café sil vous plaît"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Clean(tc.in); got != tc.want {
				t.Fatalf("Clean(%q)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"How you doin'?",
		"We were on a BREAK!",
		"",
		"  multi -- hyphen -- text  ",
		"Could I BE any more sarcastic?",
	}
	for _, in := range inputs {
		once := Clean(in)
		if twice := Clean(once); twice != once {
			t.Fatalf("Clean not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestStripAsides(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "parenthesized action", in: "(mortified) I do!", want: "I do!"},
		{name: "bracketed direction", in: "[Scene: Central Perk] Hey everybody!", want: "Hey everybody!"},
		{name: "both", in: "(pause) So [beat] no.", want: "So no."},
		{name: "unterminated span kept", in: "I said (almost", want: "I said (almost"},
		{name: "plain text untouched", in: "We were on a break!", want: "We were on a break!"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripAsides(tc.in); got != tc.want {
				t.Fatalf("StripAsides(%q)=%q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
