// Package config loads, normalizes, and validates mdexport configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MDEXPORT_CHROMIUM_PATH. The Config type centralizes the knobs the CLI and
// the Chromium supervisor need, so state directories, the bundled browser
// location, and the auto-acquire decision are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
