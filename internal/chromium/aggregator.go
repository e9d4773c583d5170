package chromium

import (
	"fmt"
	"sync"
	"time"
)

const (
	// TickInterval is the UI refresh cadence.
	TickInterval = 250 * time.Millisecond
	// messageEvery is how many ticks pass between speed/ETA messages.
	messageEvery = 6
	// speedWindow bounds the samples used for the speed estimate.
	speedWindow = 2 * time.Second
)

// Indeterminate phase messages.
const (
	MessageDownloading = "Downloading…"
	MessageExtracting  = "Extracting…"
)

// Sample is one progress observation from the acquisition process.
type Sample struct {
	Time            time.Time
	DownloadedBytes int64
	TotalBytes      int64
}

// Report is what one tick forwards to the progress sink. Message is empty
// on ticks that only advance the percentage.
type Report struct {
	IncrementPercent float64
	Message          string
}

// Aggregator turns bursty samples into steady progress reports. Ingest is
// called as events arrive and Tick on a fixed cadence; both are safe for
// concurrent use.
type Aggregator struct {
	mu          sync.Mutex
	samples     []Sample // newest first
	lastPercent float64
	ticks       int
	finished    bool
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Ingest records a sample and drops samples that fell out of the window.
func (a *Aggregator) Ingest(sample Sample) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.samples = append([]Sample{sample}, a.samples...)
	a.prune()
}

// Tick advances the reported percentage and, on every sixth tick with data,
// renders a speed and ETA message. ok is false when there is nothing to
// report: no samples yet, nothing changed, or the extraction phase started.
func (a *Aggregator) Tick() (Report, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finished || len(a.samples) == 0 {
		return Report{}, false
	}
	a.ticks++
	report := Report{IncrementPercent: a.advance()}
	if a.ticks%messageEvery == 0 {
		report.Message = a.message()
	}
	return report, report.IncrementPercent > 0 || report.Message != ""
}

// Flush reports any percentage not yet forwarded without counting a tick.
func (a *Aggregator) Flush() (Report, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finished {
		return Report{}, false
	}
	inc := a.advance()
	return Report{IncrementPercent: inc}, inc > 0
}

// Finish flushes the outstanding percentage and enters the extraction phase,
// after which Tick and Flush report nothing.
func (a *Aggregator) Finish() (Report, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finished {
		return Report{}, false
	}
	inc := a.advance()
	a.finished = true
	return Report{IncrementPercent: inc}, inc > 0
}

// Finished reports whether Finish was called.
func (a *Aggregator) Finished() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.finished
}

// Latest returns the newest sample.
func (a *Aggregator) Latest() (Sample, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.samples) == 0 {
		return Sample{}, false
	}
	return a.samples[0], true
}

// ReportedPercent returns the cumulative percentage forwarded so far.
func (a *Aggregator) ReportedPercent() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastPercent
}

// advance returns the percentage gained since the last report. Malformed
// samples and regressions yield zero so reports never go backwards.
//
// lastPercent is accumulated the same way a sink sums increments. The final
// increment is then 100 minus that running sum, which lands a sink on exactly
// 100.
func (a *Aggregator) advance() float64 {
	if len(a.samples) == 0 {
		return 0
	}
	newest := a.samples[0]
	if newest.TotalBytes <= 0 || newest.DownloadedBytes < 0 {
		return 0
	}
	done := 100.0
	if newest.DownloadedBytes < newest.TotalBytes {
		done = float64(newest.DownloadedBytes) * 100 / float64(newest.TotalBytes)
	}
	if done <= a.lastPercent {
		return 0
	}
	inc := done - a.lastPercent
	a.lastPercent += inc
	return inc
}

// message renders "<speed>, <eta>" from the oldest sample inside the window.
func (a *Aggregator) message() string {
	a.prune()
	if len(a.samples) < 2 {
		return MessageDownloading
	}
	newest := a.samples[0]
	oldest := a.samples[len(a.samples)-1]
	elapsed := newest.Time.Sub(oldest.Time).Seconds()
	delta := newest.DownloadedBytes - oldest.DownloadedBytes
	if elapsed <= 0 || delta <= 0 || newest.TotalBytes <= 0 {
		return MessageDownloading
	}
	bytesPerSecond := float64(delta) / elapsed
	remaining := max(newest.TotalBytes-newest.DownloadedBytes, 0)
	left := int(float64(remaining) / bytesPerSecond)
	return FormatSpeed(bytesPerSecond) + ", " + FormatETA(left)
}

// prune keeps the newest sample plus every sample within speedWindow of it.
func (a *Aggregator) prune() {
	if len(a.samples) < 2 {
		return
	}
	newest := a.samples[0].Time
	keep := 1
	for keep < len(a.samples) && newest.Sub(a.samples[keep].Time) <= speedWindow {
		keep++
	}
	clear(a.samples[keep:])
	a.samples = a.samples[:keep]
}

// FormatSpeed renders a transfer rate in KB/s, switching to MB/s above
// 1000 KB/s. Units are decimal.
func FormatSpeed(bytesPerSecond float64) string {
	kb := bytesPerSecond / 1000
	if kb > 1000 {
		return fmt.Sprintf("%.2f MB/s", kb/1000)
	}
	return fmt.Sprintf("%.2f KB/s", kb)
}

// FormatETA renders remaining seconds as a coarse human estimate.
func FormatETA(seconds int) string {
	switch {
	case seconds < 0:
		return MessageDownloading
	case seconds < 60:
		return plural(seconds, "second") + " left"
	case seconds <= 600:
		return plural(seconds/60, "minute") + " left"
	default:
		return "more than 10 minutes left"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
