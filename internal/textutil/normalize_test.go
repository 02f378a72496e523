package textutil

import "testing"

func TestNormalizeStripsNoise(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"punctuation", "Foo: Bar!", "foo bar"},
		{"season marker", "Show Title S01", "show title"},
		{"dotted season marker", "Show.S2", "show"},
		{"alt name", "Main Title ~Alternate Name~", "main title"},
		{"native suffix", "Title (ネイティブ)", "title"},
		{"ampersand", "Tom & Jerry", "tom and jerry"},
		{"hash", "Anime#12", "anime12"},
		{"spaced hash", "Anime #12", "anime 12"},
		{"folder suffix", "Some Film (2019) [abc-123]", "some film"},
		{"already clean", "plain title", "plain title"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.input); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Foo: Bar!",
		"Show Title S01 ~Alt~ (ネイティブ)",
		"Nested (alpha) (beta)",
		"A & B #1 (2020) [tvdb-55]",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizeCaseInsensitive(t *testing.T) {
	if Normalize("Foo: Bar!") != Normalize("foo bar") {
		t.Fatalf("expected punctuation/case variants to normalize identically")
	}
}

func TestTrimParenthetical(t *testing.T) {
	if got := TrimParenthetical("special (part one)"); got != "special" {
		t.Fatalf("unexpected trim result %q", got)
	}
	if got := TrimParenthetical("no parens here"); got != "no parens here" {
		t.Fatalf("expected untouched title, got %q", got)
	}
}

func TestSubtitle(t *testing.T) {
	if got := Subtitle("Film: The Reckoning!"); got != "the reckoning" {
		t.Fatalf("unexpected subtitle %q", got)
	}
	if got := Subtitle("No Subtitle"); got != "" {
		t.Fatalf("expected empty subtitle, got %q", got)
	}
}
