// Package assign applies the acceptance threshold to ranked scores and
// rebuilds per-speaker segment aggregates from persisted state.
package assign
