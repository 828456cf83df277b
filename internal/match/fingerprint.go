package match

import "math"

// fingerprint is a term-frequency vector over normalized tokens.
type fingerprint struct {
	tokens map[string]float64
	norm   float64
}

func newFingerprint(text string) *fingerprint {
	tokens := Tokens(text)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var norm float64
	for _, count := range counts {
		norm += count * count
	}
	return &fingerprint{tokens: counts, norm: math.Sqrt(norm)}
}

func cosineSimilarity(a, b *fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}
