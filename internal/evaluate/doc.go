// Package evaluate compares pipeline output against human-labeled ground
// truth: a time-weighted diarization error rate over speaker labels and a
// word error rate over the transcript text.
package evaluate
