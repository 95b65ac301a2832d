package ai

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{
			name:   "short string unchanged",
			input:  "Hamburg",
			maxLen: 20,
			want:   "Hamburg",
		},
		{
			name:   "exact length unchanged",
			input:  "Rome",
			maxLen: 4,
			want:   "Rome",
		},
		{
			name:   "ascii truncated with ellipsis",
			input:  "A week exploring the Amalfi coast",
			maxLen: 6,
			want:   "A week...",
		},
		{
			name:   "umlaut not split mid-rune",
			input:  "Ausflug nach Lübeck", // ü starts at byte 14
			maxLen: 15,
			want:   "Ausflug nach L...",
		},
		{
			name:   "euro sign not split mid-rune",
			input:  "Budget: 1500€ pro Person", // € spans bytes 12-14
			maxLen: 13,
			want:   "Budget: 1500...",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := TruncateString(tc.input, tc.maxLen)
			if got != tc.want {
				t.Errorf("TruncateString(%q, %d) = %q, want %q", tc.input, tc.maxLen, got, tc.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("TruncateString produced invalid UTF-8: %q", got)
			}
		})
	}
}

func TestTruncateStringEveryCutStaysValid(t *testing.T) {
	t.Parallel()

	s := "München €99 – Köln"
	for maxLen := 1; maxLen <= len(s); maxLen++ {
		got := TruncateString(s, maxLen)
		if !utf8.ValidString(got) {
			t.Fatalf("maxLen %d produced invalid UTF-8: %q", maxLen, got)
		}
		if len(got) > maxLen+len("...") {
			t.Fatalf("maxLen %d produced %d bytes: %q", maxLen, len(got), got)
		}
		trimmed := strings.TrimSuffix(got, "...")
		if !strings.HasPrefix(s, trimmed) {
			t.Fatalf("maxLen %d produced non-prefix %q", maxLen, trimmed)
		}
	}
}
