package chromium

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAlreadyDownloading is returned when a download session is already
	// active in this process or another mdexport process holds the lock.
	ErrAlreadyDownloading = errors.New("chromium download already in progress")
	// ErrDownloadCanceled reports a download stopped on request. It is a
	// normal terminal state rather than a failure.
	ErrDownloadCanceled = errors.New("chromium download canceled")
	// ErrCleanupInProgress is returned when a download is requested while the
	// bundled browser is being removed.
	ErrCleanupInProgress = errors.New("chromium removal in progress")
	// ErrBinaryInUse means a running process still executes the bundled browser.
	ErrBinaryInUse = errors.New("chromium binary in use")
	// ErrProgressHookMissing means the install plan has no [progress] reporter.
	ErrProgressHookMissing = errors.New("install plan has no [progress] reporter")
	// ErrNotFound means no usable browser executable was found.
	ErrNotFound = errors.New("no chromium executable found")
)

// AdaptationError describes why the install plan could not be adapted. The
// source plan is left untouched and acquisition falls back to text progress.
type AdaptationError struct {
	Path string
	Err  error
}

func (e *AdaptationError) Error() string {
	return fmt.Sprintf("adapt install plan %s: %v", e.Path, e.Err)
}

func (e *AdaptationError) Unwrap() error { return e.Err }

// DownloadFailedError reports an acquisition process that exited unsuccessfully
// without being asked to stop.
type DownloadFailedError struct {
	// Code is the exit code, or -1 when the process was killed by a signal.
	Code   int
	Signal string
	Output string
}

func (e *DownloadFailedError) Error() string {
	var b strings.Builder
	b.WriteString("chromium download failed")
	switch {
	case e.Signal != "":
		fmt.Fprintf(&b, " (signal %s)", e.Signal)
	default:
		fmt.Fprintf(&b, " (exit code %d)", e.Code)
	}
	if line := lastLine(e.Output); line != "" {
		b.WriteString(": ")
		b.WriteString(line)
	}
	return b.String()
}

// CleanupError reports a failure to remove the bundled browser.
type CleanupError struct {
	Path string
	Err  error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("remove chromium at %s: %v", e.Path, e.Err)
}

func (e *CleanupError) Unwrap() error { return e.Err }

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
