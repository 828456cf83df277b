// Package segments persists transcript segments, scoring results, and
// per-stage completion markers in SQLite so interrupted runs resume
// without recomputing finished work.
package segments
