// Package services defines shared error classification and context helpers
// for external collaborator clients (transcriber, verifier, media tools).
//
// Stage errors are wrapped with a sentinel marker so callers can classify
// failures without string matching: validation and configuration problems
// abort the run, transient per-pair scoring failures are absorbed by the
// scorer, and persisted-state errors always surface loudly.
package services
