// Package preflight checks that a Chromium download can succeed before one
// is attempted: the configured directories must be usable and at least one
// download host must publish the configured revision.
//
// The CLI "mdexport chromium check" renders every result. Each check returns
// a Result instead of an error so one failure never hides the others.
package preflight
