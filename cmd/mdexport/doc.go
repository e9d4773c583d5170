// Command mdexport manages the headless Chromium build used for PDF export:
// it reports whether a browser is available, downloads the bundled build on
// demand with live progress, and removes it again.
package main
