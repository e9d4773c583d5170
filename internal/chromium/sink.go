package chromium

import "sync"

// ProgressSink receives progress from a download session. Calls for one
// session never overlap.
type ProgressSink interface {
	// Report advances the bar by incrementPercent and, when message is not
	// empty, replaces the status text.
	Report(incrementPercent float64, message string)
	// ReportIndeterminate switches to a phase without measurable progress.
	ReportIndeterminate(message string)
}

type nopSink struct{}

func (nopSink) Report(float64, string)     {}
func (nopSink) ReportIndeterminate(string) {}

// reporter serializes aggregator output onto the sink so tick and event
// goroutines never interleave reports.
type reporter struct {
	mu         sync.Mutex
	sink       ProgressSink
	aggregator *Aggregator
}

func (r *reporter) tick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if report, ok := r.aggregator.Tick(); ok {
		r.sink.Report(report.IncrementPercent, report.Message)
	}
}

func (r *reporter) flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if report, ok := r.aggregator.Flush(); ok {
		r.sink.Report(report.IncrementPercent, report.Message)
	}
}

func (r *reporter) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if report, ok := r.aggregator.Finish(); ok {
		r.sink.Report(report.IncrementPercent, report.Message)
	}
	r.sink.ReportIndeterminate(MessageExtracting)
}

func (r *reporter) indeterminate(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink.ReportIndeterminate(message)
}
