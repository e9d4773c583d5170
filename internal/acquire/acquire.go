package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"mdexport/internal/chromium"
)

// Acquirer downloads and unpacks the browser an install plan describes.
type Acquirer struct {
	downloader *Downloader
	hostURL    HostURL
	stdout     io.Writer
	stderr     io.Writer
	now        func() time.Time
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithDownloader replaces the HTTP downloader.
func WithDownloader(d *Downloader) Option {
	return func(a *Acquirer) {
		if d != nil {
			a.downloader = d
		}
	}
}

// WithHostURL replaces the host to URL mapping (primarily for tests).
func WithHostURL(fn HostURL) Option {
	return func(a *Acquirer) {
		if fn != nil {
			a.hostURL = fn
		}
	}
}

// WithOutput sets where progress and diagnostics are written.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *Acquirer) {
		if stdout != nil {
			a.stdout = stdout
		}
		if stderr != nil {
			a.stderr = stderr
		}
	}
}

// WithClock injects the time source used to throttle progress events.
func WithClock(now func() time.Time) Option {
	return func(a *Acquirer) {
		if now != nil {
			a.now = now
		}
	}
}

// New constructs an Acquirer writing to the process stdout and stderr.
func New(opts ...Option) *Acquirer {
	a := &Acquirer{
		downloader: NewDownloader(),
		hostURL:    LauncherHostURL,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes the plan at planPath. Hosts are tried in plan order until one
// serves the archive. The archive is always removed afterwards, and a
// revision directory left without a binary is removed too.
func (a *Acquirer) Run(ctx context.Context, planPath string) error {
	plan, err := chromium.ReadPlan(planPath)
	if err != nil {
		return err
	}
	location := plan.Location()
	revision := location.Revision()
	rep := newReporter(plan, a.stdout, a.now)

	archive := filepath.Join(location.InstallDir(), fmt.Sprintf("chromium-%d.zip", revision))
	defer os.Remove(archive)

	if err := a.download(ctx, plan.Browser.Hosts, revision, archive, rep); err != nil {
		return err
	}
	rep.Finished()

	if err := a.install(ctx, location, archive); err != nil {
		_ = os.RemoveAll(location.Dir())
		return err
	}
	fmt.Fprintf(a.stderr, "installed chromium r%d at %s\n", revision, location.BinaryPath())
	return nil
}

func (a *Acquirer) download(ctx context.Context, hosts []string, revision int, archive string, rep reporter) error {
	var errs []error
	for _, host := range hosts {
		url, err := a.hostURL(host, revision)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(a.stderr, "downloading %s\n", url)
		err = a.downloader.Download(ctx, url, archive, rep.Progress)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		fmt.Fprintf(a.stderr, "host %s failed: %v\n", host, err)
		errs = append(errs, fmt.Errorf("%s: %w", host, err))
	}
	if len(errs) == 0 {
		return errors.New("no download hosts configured")
	}
	return fmt.Errorf("all hosts failed: %w", errors.Join(errs...))
}

func (a *Acquirer) install(ctx context.Context, location chromium.Location, archive string) error {
	if err := os.RemoveAll(location.Dir()); err != nil {
		return fmt.Errorf("clear revision directory: %w", err)
	}
	if err := ExtractZip(ctx, archive, location.Dir()); err != nil {
		return fmt.Errorf("extract archive: %w", err)
	}
	binary := location.BinaryPath()
	info, err := os.Stat(binary)
	if err != nil {
		return fmt.Errorf("archive did not contain %s: %w", filepath.Base(binary), err)
	}
	if err := os.Chmod(binary, info.Mode().Perm()|0o755); err != nil {
		return fmt.Errorf("mark binary executable: %w", err)
	}
	return nil
}
