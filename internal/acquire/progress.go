package acquire

import (
	"fmt"
	"io"
	"sync"
	"time"

	"mdexport/internal/chromium"
	"mdexport/internal/logging"
)

// reporter writes download progress in the format the plan asks for.
type reporter interface {
	Progress(downloaded, total int64)
	Finished()
}

func newReporter(plan *chromium.Plan, w io.Writer, now func() time.Time) reporter {
	if plan.EmitsEvents() {
		interval := time.Duration(plan.Progress.IntervalMS) * time.Millisecond
		if interval <= 0 {
			interval = chromium.EventInterval
		}
		return &eventReporter{w: w, interval: interval, now: now, finishedEvent: plan.Progress.FinishedEvent}
	}
	return &textReporter{w: w, revision: plan.Browser.Revision, sampler: logging.NewProgressSampler(10)}
}

// eventReporter writes protocol events no more often than interval. The
// sample that completes the download is always written.
type eventReporter struct {
	mu            sync.Mutex
	w             io.Writer
	interval      time.Duration
	now           func() time.Time
	finishedEvent bool
	last          time.Time
	wroteComplete bool
}

func (r *eventReporter) Progress(downloaded, total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	complete := total > 0 && downloaded >= total
	now := r.now()
	switch {
	case complete && !r.wroteComplete:
		r.wroteComplete = true
	case complete:
		return
	case !r.last.IsZero() && now.Sub(r.last) < r.interval:
		return
	}
	r.last = now
	_, _ = r.w.Write(chromium.ProgressEvent(downloaded, total).MarshalLine())
}

func (r *eventReporter) Finished() {
	if !r.finishedEvent {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = r.w.Write(chromium.FinishedEvent().MarshalLine())
}

// textReporter prints a human progress line at every 10% step.
type textReporter struct {
	w        io.Writer
	revision int
	sampler  *logging.ProgressSampler
}

func (r *textReporter) Progress(downloaded, total int64) {
	percent := -1.0
	if total > 0 {
		percent = float64(downloaded) * 100 / float64(total)
	}
	if !r.sampler.ShouldLog(percent, "downloading") {
		return
	}
	if percent < 0 {
		fmt.Fprintf(r.w, "Downloading Chromium r%d\n", r.revision)
		return
	}
	fmt.Fprintf(r.w, "Downloading Chromium r%d: %d%%\n", r.revision, int(percent))
}

func (r *textReporter) Finished() {
	fmt.Fprintf(r.w, "Extracting Chromium r%d\n", r.revision)
}
