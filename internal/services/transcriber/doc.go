// Package transcriber wraps the speech-to-text CLI. The engine is a black
// box that writes word-timestamped JSON; this package builds the invocation,
// parses the output, and normalizes segment identity to emission order.
package transcriber
