// Package logging provides structured logging helpers built on log/slog.
//
// It defines the canonical attribute keys used across the codebase so that
// log entries from the token store, the calendar client and the export
// pipeline can be correlated, plus small helpers for logging sensitive
// values (tokens, email addresses) safely.
package logging
