package main

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"mdexport/internal/chromium"
	"mdexport/internal/logging"
)

// newProgressSink draws a progress bar when w is a terminal and writes
// sampled log lines otherwise.
func newProgressSink(w io.Writer, logger *slog.Logger) progressSink {
	if isTerminal(w) {
		return newBarSink(w)
	}
	return newLogSink(logger)
}

type progressSink interface {
	chromium.ProgressSink
	Done()
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// barSink renders reports on a terminal progress bar scaled to 0..1000 so
// fractional increments are not lost.
type barSink struct {
	mu      sync.Mutex
	bar     *progressbar.ProgressBar
	percent float64
}

const barScale = 10

func newBarSink(w io.Writer) *barSink {
	bar := progressbar.NewOptions(100*barScale,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(chromium.MessageDownloading),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return &barSink{bar: bar}
}

func (s *barSink) Report(inc float64, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.percent = min(s.percent+inc, 100)
	if message != "" {
		s.bar.Describe(message)
	}
	_ = s.bar.Set(int(s.percent * barScale))
}

func (s *barSink) ReportIndeterminate(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bar.Describe(message)
}

func (s *barSink) Done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.bar.Finish()
}

// logSink writes a log line at every 10% step and on phase changes.
type logSink struct {
	mu      sync.Mutex
	logger  *slog.Logger
	sampler *logging.ProgressSampler
	percent float64
	message string
}

func newLogSink(logger *slog.Logger) *logSink {
	return &logSink{
		logger:  logging.NewComponentLogger(logger, "progress"),
		sampler: logging.NewProgressSampler(10),
		message: chromium.MessageDownloading,
	}
}

func (s *logSink) Report(inc float64, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.percent = min(s.percent+inc, 100)
	if message != "" {
		s.message = message
	}
	if s.sampler.ShouldLog(s.percent, "download") {
		s.logger.Info("chromium download progress",
			logging.Int("percent", int(s.percent)),
			logging.String("status", s.message),
		)
	}
}

func (s *logSink) ReportIndeterminate(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
	if s.sampler.ShouldLog(-1, message) {
		s.logger.Info(message)
	}
}

func (s *logSink) Done() {}
