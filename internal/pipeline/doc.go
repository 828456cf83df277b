// Package pipeline sequences the stages that turn a source recording into
// per-speaker segment assignments: transcription, reference matching,
// scoring, aggregation, and optional rendering. Completed stages are
// marked in the state store so interrupted runs resume where they stopped.
package pipeline
