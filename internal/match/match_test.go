package match_test

import (
	"testing"

	"voicetag/internal/match"
	"voicetag/internal/segments"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"punctuation", "Hello, there! Friend?", "hello there friend"},
		{"diacritics", "café naïve", "cafe naive"},
		{"whitespace", "  spaced   out  ", "spaced out"},
		{"empty", "!!!", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := match.Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSimilarityPartialContainment(t *testing.T) {
	utterance := "let us begin"
	containing := "okay everyone, let us begin the meeting now"
	unrelated := "the quarterly numbers look fine"

	if a, b := match.Similarity(utterance, containing), match.Similarity(utterance, unrelated); a <= b {
		t.Fatalf("containing text scored %v, unrelated scored %v", a, b)
	}
	if score := match.Similarity(utterance, "Let us BEGIN!"); score < 0.99 {
		t.Fatalf("case and punctuation should not matter, got %v", score)
	}
}

func TestBestSegmentEmptyList(t *testing.T) {
	id, ok := match.BestSegment(nil, "hello")
	if ok || id != match.NoMatch {
		t.Fatalf("expected no match sentinel, got id=%d ok=%v", id, ok)
	}
}

func TestBestSegmentPicksContainingSegment(t *testing.T) {
	candidates := []segments.SegmentRecord{
		{ID: 0, Text: "hello there everyone"},
		{ID: 1, Text: "hi hello"},
		{ID: 2, Text: "let us begin with the agenda"},
	}

	id, ok := match.BestSegment(candidates, "let us begin")
	if !ok || id != 2 {
		t.Fatalf("expected segment 2, got id=%d ok=%v", id, ok)
	}

	id, ok = match.BestSegment(candidates, "hello there")
	if !ok || id != 0 {
		t.Fatalf("expected segment 0, got id=%d ok=%v", id, ok)
	}
}

func TestBestSegmentTieBreaksEarliest(t *testing.T) {
	candidates := []segments.SegmentRecord{
		{ID: 3, Text: "good morning"},
		{ID: 4, Text: "good morning"},
	}
	id, ok := match.BestSegment(candidates, "good morning")
	if !ok || id != 3 {
		t.Fatalf("expected earliest segment 3, got id=%d ok=%v", id, ok)
	}
}

func TestBestSegmentDeterministic(t *testing.T) {
	candidates := []segments.SegmentRecord{
		{ID: 0, Text: "alpha beta gamma"},
		{ID: 1, Text: "delta epsilon zeta"},
		{ID: 2, Text: "beta gamma delta"},
	}
	first, _ := match.BestSegment(candidates, "beta gamma")
	for i := 0; i < 20; i++ {
		if id, _ := match.BestSegment(candidates, "beta gamma"); id != first {
			t.Fatalf("match result changed between runs: %d vs %d", id, first)
		}
	}
}
