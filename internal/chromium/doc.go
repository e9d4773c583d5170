// Package chromium keeps the headless browser used for PDF export present on
// disk and under control.
//
// The Supervisor is the long-lived entry point owned by the command-line
// composition root. It checks whether the bundled build is installed, adapts
// the on-disk install plan so the acquisition process reports structured
// progress, runs that process, and turns its event stream into smoothed
// speed and ETA messages through the Aggregator. Downloads can be stopped at
// any point, and RemoveChromium tears the bundled tree down after stopping
// any download in flight.
//
// Acquisition runs out of process (`mdexport chromium acquire`). The two sides
// share only the install plan file and the protocol 1 event stream defined in
// events.go.
package chromium
