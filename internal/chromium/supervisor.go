package chromium

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"mdexport/internal/config"
	"mdexport/internal/history"
	"mdexport/internal/logging"
)

// State is the supervisor lifecycle position. Terminal states behave like
// Idle: a new download may start from any of them.
type State int

const (
	StateIdle State = iota
	StateDownloading
	StateSucceeded
	StateCanceled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDownloading:
		return "downloading"
	case StateSucceeded:
		return "succeeded"
	case StateCanceled:
		return "canceled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const defaultStopGrace = 5 * time.Second

// CommandFunc builds the acquisition process for an install plan.
type CommandFunc func(planPath string) (*exec.Cmd, error)

// Recorder persists finished sessions.
type Recorder interface {
	Record(ctx context.Context, session history.Session) error
}

// Option configures the supervisor.
type Option func(*Supervisor)

// WithCommand replaces the acquisition command (primarily for tests).
func WithCommand(fn CommandFunc) Option {
	return func(s *Supervisor) {
		if fn != nil {
			s.command = fn
		}
	}
}

// WithProgressSink routes progress reports to sink.
func WithProgressSink(sink ProgressSink) Option {
	return func(s *Supervisor) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithRecorder stores every finished session.
func WithRecorder(rec Recorder) Option {
	return func(s *Supervisor) {
		s.recorder = rec
	}
}

// WithTickInterval overrides the progress refresh cadence.
func WithTickInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithStopGrace sets how long a stopped acquisition may take to exit before
// it is killed.
func WithStopGrace(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.stopGrace = d
		}
	}
}

// WithInUseCheck replaces the running-process check used before removal.
// nil disables the check.
func WithInUseCheck(fn InUseFunc) Option {
	return func(s *Supervisor) {
		s.inUse = fn
	}
}

// WithClock injects the time source used to stamp samples and sessions.
func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) {
		if now != nil {
			s.now = now
		}
	}
}

// Supervisor owns the bundled browser: it downloads, stops, and removes it.
// At most one download session is active per supervisor, and the install
// directory lock extends that to other mdexport processes.
type Supervisor struct {
	location     Location
	hosts        []string
	timeout      time.Duration
	checker      *Checker
	command      CommandFunc
	sink         ProgressSink
	recorder     Recorder
	logger       *slog.Logger
	tickInterval time.Duration
	stopGrace    time.Duration
	inUse        InUseFunc
	now          func() time.Time

	mu       sync.Mutex
	session  *session
	state    State
	removing bool
}

type session struct {
	id         string
	startedAt  time.Time
	lock       *flock.Flock
	done       chan struct{}
	output     *outputBuffer
	aggregator *Aggregator

	// guarded by Supervisor.mu
	canceled bool
	process  *os.Process
}

type outcome struct {
	state    State
	err      error
	exitCode *int
	signal   string
}

// New constructs a supervisor for the configured browser.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Supervisor {
	location := NewLocation(cfg.Chromium.InstallDir, cfg.Chromium.Revision)
	s := &Supervisor{
		location:     location,
		hosts:        slices.Clone(cfg.Chromium.Hosts),
		timeout:      cfg.Chromium.DownloadTimeoutDuration(),
		checker:      NewChecker(location),
		command:      selfCommand,
		sink:         nopSink{},
		logger:       logging.NewComponentLogger(logger, "chromium"),
		tickInterval: TickInterval,
		stopGrace:    defaultStopGrace,
		inUse:        ProcessUsingDir,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func selfCommand(planPath string) (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate mdexport executable: %w", err)
	}
	return exec.Command(exe, "chromium", "acquire", "--plan", planPath), nil //nolint:gosec
}

// Location returns the bundled browser layout.
func (s *Supervisor) Location() Location { return s.location }

// CheckAvailability reports whether the bundled browser is installed.
func (s *Supervisor) CheckAvailability() bool {
	return s.checker.IsAvailable()
}

// Resolve picks the browser executable to launch. See Checker.Resolve.
func (s *Supervisor) Resolve(override string) (Resolution, error) {
	return s.checker.Resolve(override)
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DownloadChromium runs one acquisition session and blocks until it ends.
// It returns nil on success, ErrAlreadyDownloading when a session is active,
// ErrDownloadCanceled after StopDownload or cancellation of ctx, and a
// *DownloadFailedError when the acquisition process fails on its own.
func (s *Supervisor) DownloadChromium(ctx context.Context) error {
	sess, err := s.begin()
	if err != nil {
		return err
	}
	ctx = logging.ContextWithSessionID(ctx, sess.id)
	logger := logging.WithContext(ctx, s.logger)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result := s.run(ctx, sess, logger)
	s.finish(ctx, sess, result, logger)
	return result.err
}

func (s *Supervisor) begin() (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removing {
		return nil, ErrCleanupInProgress
	}
	if s.session != nil {
		return nil, ErrAlreadyDownloading
	}
	if err := os.MkdirAll(s.location.InstallDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create install directory: %w", err)
	}
	lock := flock.New(s.location.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire download lock: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyDownloading
	}
	sess := &session{
		id:         uuid.NewString(),
		startedAt:  s.now(),
		lock:       lock,
		done:       make(chan struct{}),
		output:     newOutputBuffer(outputLineLimit),
		aggregator: NewAggregator(),
	}
	s.session = sess
	s.state = StateDownloading
	return sess, nil
}

func (s *Supervisor) run(ctx context.Context, sess *session, logger *slog.Logger) outcome {
	planPath, err := EnsurePlan(s.location, s.hosts)
	if err != nil {
		return outcome{state: StateFailed, err: fmt.Errorf("prepare install plan: %w", err)}
	}
	adapted := true
	if path, err := NewAdapter(planPath, s.location.AdaptedPlanPath()).Adapt(); err != nil {
		adapted = false
		logging.WarnWithContext(logger, "install plan adaptation failed", "plan_adapt_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete "+planPath+" to regenerate it"),
			logging.String(logging.FieldImpact, "download progress shown without percentage"),
		)
	} else {
		planPath = path
	}

	cmd, err := s.command(planPath)
	if err != nil {
		return outcome{state: StateFailed, err: err}
	}
	prepareCommand(cmd)

	s.mu.Lock()
	stdout, stderr, err := s.start(ctx, sess, cmd)
	s.mu.Unlock()
	if errors.Is(err, ErrDownloadCanceled) {
		return s.canceledOutcome(ctx)
	}
	if err != nil {
		return outcome{state: StateFailed, err: err}
	}

	logger.Info("chromium download started",
		logging.Int("revision", s.location.Revision()),
		logging.Int("pid", cmd.Process.Pid),
		logging.String("plan", planPath),
		logging.Bool("structured_progress", adapted),
	)

	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			s.StopDownload()
		case <-watchDone:
		}
	}()

	rep := &reporter{sink: s.sink, aggregator: sess.aggregator}
	if !adapted {
		rep.indeterminate(MessageDownloading)
	}

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		scanLines(stdout, func(line string) { s.handleLine(sess, rep, line) })
	}()
	go func() {
		defer readers.Done()
		scanLines(stderr, sess.output.Add)
	}()

	stopTicker := make(chan struct{})
	tickerDone := make(chan struct{})
	go func() {
		defer close(tickerDone)
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stopTicker:
				return
			case <-ticker.C:
				rep.tick()
			}
		}
	}()

	readers.Wait()
	waitErr := cmd.Wait()
	close(stopTicker)
	<-tickerDone
	rep.flush()

	s.mu.Lock()
	sess.process = nil
	canceled := sess.canceled
	s.mu.Unlock()

	return s.interpret(ctx, sess, waitErr, canceled)
}

// start spawns cmd unless the session was canceled first. Callers hold s.mu
// so a concurrent StopDownload either prevents the spawn or sees the process.
func (s *Supervisor) start(ctx context.Context, sess *session, cmd *exec.Cmd) (io.ReadCloser, io.ReadCloser, error) {
	if sess.canceled || ctx.Err() != nil {
		sess.canceled = true
		return nil, nil, ErrDownloadCanceled
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("start acquisition: %w", err)
	}
	sess.process = cmd.Process
	return stdout, stderr, nil
}

func (s *Supervisor) handleLine(sess *session, rep *reporter, line string) {
	evt, ok := ParseEvent(line)
	if !ok {
		sess.output.Add(line)
		return
	}
	switch evt.Event {
	case EventProgress:
		sess.aggregator.Ingest(Sample{
			Time:            s.now(),
			DownloadedBytes: evt.DownloadedBytes,
			TotalBytes:      evt.TotalBytes,
		})
	case EventFinished:
		rep.finish()
	}
}

func (s *Supervisor) interpret(ctx context.Context, sess *session, waitErr error, canceled bool) outcome {
	if waitErr == nil {
		code := 0
		return outcome{state: StateSucceeded, exitCode: &code}
	}
	var exitErr *exec.ExitError
	if !errors.As(waitErr, &exitErr) {
		return outcome{state: StateFailed, err: fmt.Errorf("wait for acquisition: %w", waitErr)}
	}
	code := exitErr.ExitCode()
	signal := exitSignal(exitErr.ProcessState)
	if canceled && stoppedByRequest(exitErr.ProcessState) {
		out := s.canceledOutcome(ctx)
		out.exitCode = &code
		out.signal = signal
		return out
	}
	return outcome{
		state:    StateFailed,
		err:      &DownloadFailedError{Code: code, Signal: signal, Output: sess.output.String()},
		exitCode: &code,
		signal:   signal,
	}
}

// canceledOutcome distinguishes a stop requested by the caller from the
// download timeout expiring.
func (s *Supervisor) canceledOutcome(ctx context.Context) outcome {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return outcome{
			state: StateFailed,
			err:   fmt.Errorf("chromium download timed out after %s: %w", s.timeout, context.DeadlineExceeded),
		}
	}
	return outcome{state: StateCanceled, err: ErrDownloadCanceled}
}

func (s *Supervisor) finish(ctx context.Context, sess *session, out outcome, logger *slog.Logger) {
	if out.state != StateSucceeded {
		s.discardPartial(logger)
	}

	latest, _ := sess.aggregator.Latest()
	finishedAt := s.now()
	if s.recorder != nil {
		record := history.Session{
			ID:              sess.id,
			Revision:        s.location.Revision(),
			StartedAt:       sess.startedAt,
			FinishedAt:      finishedAt,
			Outcome:         historyOutcome(out.state),
			DownloadedBytes: latest.DownloadedBytes,
			TotalBytes:      latest.TotalBytes,
			ExitCode:        out.exitCode,
			Signal:          out.signal,
		}
		if out.err != nil {
			record.Detail = out.err.Error()
		}
		if err := s.recorder.Record(context.WithoutCancel(ctx), record); err != nil {
			logging.WarnWithContext(logger, "failed to record download session", "history_record_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "session missing from chromium history"),
			)
		}
	}

	if err := sess.lock.Unlock(); err != nil {
		logger.Warn("failed to release download lock", logging.Error(err))
	}

	s.mu.Lock()
	s.session = nil
	s.state = out.state
	s.mu.Unlock()
	close(sess.done)

	attrs := []logging.Attr{
		logging.String("outcome", out.state.String()),
		logging.Duration("elapsed", finishedAt.Sub(sess.startedAt)),
		logging.Int64("downloaded_bytes", latest.DownloadedBytes),
	}
	switch out.state {
	case StateSucceeded:
		logger.Info("chromium download finished", logging.Args(attrs...)...)
	case StateCanceled:
		logger.Info("chromium download canceled", logging.Args(attrs...)...)
	default:
		attrs = append(attrs, logging.Error(out.err))
		logging.ErrorWithContext(logger, "chromium download failed", "chromium_download_failed", attrs...)
	}
}

// discardPartial removes a revision directory left without a usable binary.
func (s *Supervisor) discardPartial(logger *slog.Logger) {
	if s.checker.IsAvailable() {
		return
	}
	dir := s.location.Dir()
	if _, err := os.Stat(dir); err != nil {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		logger.Warn("failed to discard partial chromium download", logging.String("dir", dir), logging.Error(err))
		return
	}
	logger.Debug("discarded partial chromium download", logging.String("dir", dir))
}

// StopDownload asks the active acquisition to stop. The cancel flag is set
// before the signal is sent so the exit is classified as a cancellation. It
// is a no-op when nothing is running or a stop is already pending.
func (s *Supervisor) StopDownload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session
	if sess == nil || sess.canceled {
		return
	}
	sess.canceled = true
	if sess.process == nil {
		return
	}
	s.logger.Info("stopping chromium download", logging.String(logging.FieldSessionID, sess.id))
	if err := terminateProcess(sess.process); err != nil {
		s.logger.Warn("failed to signal chromium download", logging.Error(err))
	}
	go s.escalate(sess)
}

// escalate kills an acquisition that ignores the stop signal.
func (s *Supervisor) escalate(sess *session) {
	timer := time.NewTimer(s.stopGrace)
	defer timer.Stop()
	select {
	case <-sess.done:
		return
	case <-timer.C:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.process != nil {
		s.logger.Warn("chromium download ignored stop, killing", logging.String(logging.FieldSessionID, sess.id))
		_ = killProcess(sess.process)
	}
}

// RemoveChromium stops any download, waits for it to end, and deletes the
// bundled browser. Removing an absent browser succeeds. I/O failures are
// *CleanupError, as is a download lock held by another process, which wraps
// ErrAlreadyDownloading.
func (s *Supervisor) RemoveChromium(ctx context.Context) error {
	s.mu.Lock()
	if s.removing {
		s.mu.Unlock()
		return ErrCleanupInProgress
	}
	s.removing = true
	var done chan struct{}
	if s.session != nil {
		done = s.session.done
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.removing = false
		s.mu.Unlock()
	}()

	s.StopDownload()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return fmt.Errorf("wait for download to stop: %w", ctx.Err())
		}
	}

	unlock, err := s.lockForRemoval()
	if err != nil {
		return err
	}
	defer unlock()

	c := &cleaner{location: s.location, inUse: s.inUse, logger: s.logger}
	if err := c.remove(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.state = StateIdle
	s.mu.Unlock()
	return nil
}

// lockForRemoval takes the acquisition lock so another mdexport process
// cannot be downloading into the tree being deleted. A missing install
// directory has nothing to protect.
func (s *Supervisor) lockForRemoval() (func(), error) {
	if _, err := os.Stat(s.location.InstallDir()); errors.Is(err, fs.ErrNotExist) {
		return func() {}, nil
	}
	lock := flock.New(s.location.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, &CleanupError{Path: s.location.Dir(), Err: fmt.Errorf("acquire download lock: %w", err)}
	}
	if !ok {
		return nil, &CleanupError{Path: s.location.Dir(), Err: ErrAlreadyDownloading}
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("failed to release download lock", logging.Error(err))
		}
	}, nil
}

func historyOutcome(state State) history.Outcome {
	switch state {
	case StateSucceeded:
		return history.OutcomeSucceeded
	case StateCanceled:
		return history.OutcomeCanceled
	default:
		return history.OutcomeFailed
	}
}
