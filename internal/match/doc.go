// Package match locates the transcript segment whose text best matches a
// reference utterance. Matching is case- and punctuation-tolerant and
// combines partial Levenshtein similarity with a token fingerprint cosine
// so both short phrases and long sentences resolve sensibly.
package match
