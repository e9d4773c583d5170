// Package acquire is the acquisition process started by the chromium
// supervisor. It reads an install plan, downloads the Chromium snapshot
// archive from the first host that serves it, reports progress on stdout in
// the format the plan asks for, and unpacks the archive into the revision
// directory.
//
// Progress output is either human text lines or the structured event
// protocol defined in package chromium. Diagnostics go to stderr.
package acquire
