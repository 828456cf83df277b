package match

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"voicetag/internal/segments"
)

// NoMatch is returned by BestSegment when no candidate exists.
const NoMatch int64 = -1

// Similarity scores how well utterance appears within text, in [0, 1].
// The score is the best of a partial Levenshtein ratio over token windows
// and a token fingerprint cosine, so short quotes and paraphrased longer
// passages both score high against the segment containing them.
func Similarity(utterance, text string) float64 {
	normUtterance := Normalize(utterance)
	normText := Normalize(text)
	if normUtterance == "" || normText == "" {
		return 0
	}

	score := partialRatio(normUtterance, normText)
	if cosine := cosineSimilarity(newFingerprint(normUtterance), newFingerprint(normText)); cosine > score {
		score = cosine
	}
	return score
}

// BestSegment returns the id of the candidate whose text best matches the
// utterance. Ties break toward the earliest candidate. Returns (NoMatch,
// false) only when the candidate list is empty.
func BestSegment(candidates []segments.SegmentRecord, utterance string) (int64, bool) {
	if len(candidates) == 0 {
		return NoMatch, false
	}

	bestID := candidates[0].ID
	bestScore := -1.0
	for _, candidate := range candidates {
		score := Similarity(utterance, candidate.Text)
		if score > bestScore {
			bestScore = score
			bestID = candidate.ID
		}
	}
	return bestID, true
}

// partialRatio slides a token window the size of the needle across the
// haystack and keeps the best Levenshtein ratio. The whole haystack is also
// compared so a needle longer than the haystack still scores.
func partialRatio(needle, haystack string) float64 {
	needleTokens := strings.Fields(needle)
	haystackTokens := strings.Fields(haystack)

	best := levenshteinRatio(needle, haystack)
	window := len(needleTokens)
	if window == 0 || window >= len(haystackTokens) {
		return best
	}
	for start := 0; start+window <= len(haystackTokens); start++ {
		candidate := strings.Join(haystackTokens[start:start+window], " ")
		if ratio := levenshteinRatio(needle, candidate); ratio > best {
			best = ratio
		}
	}
	return best
}

func levenshteinRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	distance := fuzzy.LevenshteinDistance(a, b)
	return 1 - float64(distance)/float64(longest)
}
