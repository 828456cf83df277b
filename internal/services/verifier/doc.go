// Package verifier invokes the external speaker verification tool that
// compares two audio files and reports a similarity score.
package verifier
