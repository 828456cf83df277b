// Package review serves the manual labeling API. A session holds the
// recording and segment list being reviewed; handlers read and write the
// session explicitly so concurrent sessions stay isolated and tests can
// drive the server without global state.
package review
