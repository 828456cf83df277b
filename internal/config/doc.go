// Package config loads, validates, and normalizes voicetag configuration.
//
// Configuration lives in a TOML file; Load resolves it from an explicit
// path, ~/.config/voicetag/config.toml, or ./voicetag.toml in that order.
// All filesystem paths are tilde-expanded and made absolute before use.
// Speaker declarations are ordered; that order is part of the assignment
// contract (equal scores resolve to the first-declared speaker).
package config
