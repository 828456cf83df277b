// Package logging builds the application slog logger and provides shared
// attribute helpers and standardized field names.
//
// Two output formats are supported: a compact console format for terminals
// and JSON for log files and non-interactive runs. Format "auto" picks
// console when stdout is a TTY.
package logging
