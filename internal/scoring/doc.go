// Package scoring compares every transcript segment against every speaker
// reference sample and records a ranked score list per segment.
package scoring
