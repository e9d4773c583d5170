// Package history persists one row per Chromium download session in SQLite so
// `mdexport chromium history` can show past attempts and why they ended.
package history
