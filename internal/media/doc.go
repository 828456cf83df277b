// Package media wraps the ffmpeg operations the pipeline needs: full audio
// extraction, time-range clip extraction, audio concatenation, and cutting
// merged per-speaker videos. Codec work is a black-box collaborator; this
// package only builds argument lists and reports tool failures.
package media
