// Package logging assembles the structured slog loggers used across mdexport.
//
// It owns the console and JSON handlers, level and output plumbing, standard
// field keys, and helpers that tag records with a component or a download
// session ID. A no-op logger is provided for tests and wiring code that cannot
// fail.
package logging
