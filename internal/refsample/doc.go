// Package refsample assembles one representative audio sample per speaker
// by matching reference utterances to transcript segments and
// concatenating the matched segment clips.
package refsample
