package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultRetries is how many times a failed attempt is repeated per host.
	DefaultRetries = 2
	// DefaultBackoff is the delay before the first retry; it doubles after each.
	DefaultBackoff = time.Second
	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "mdexport"
)

// ProgressFunc receives the bytes written so far and the expected total. The
// total is zero when the server does not announce a length.
type ProgressFunc func(downloaded, total int64)

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// retryable reports whether a later attempt could succeed.
func (e *StatusError) retryable() bool {
	return e.Code >= 500 || e.Code == http.StatusRequestTimeout || e.Code == http.StatusTooManyRequests
}

// Downloader fetches archives over HTTP with retry and exponential backoff.
type Downloader struct {
	client    *http.Client
	userAgent string
	retries   int
	backoff   time.Duration
}

// DownloaderOption customizes a Downloader.
type DownloaderOption func(*Downloader)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) DownloaderOption {
	return func(d *Downloader) {
		if client != nil {
			d.client = client
		}
	}
}

// WithRetries sets how many times a failed attempt is repeated.
func WithRetries(n int) DownloaderOption {
	return func(d *Downloader) {
		if n >= 0 {
			d.retries = n
		}
	}
}

// WithBackoff sets the delay before the first retry.
func WithBackoff(delay time.Duration) DownloaderOption {
	return func(d *Downloader) {
		if delay >= 0 {
			d.backoff = delay
		}
	}
}

// NewDownloader constructs a downloader. The client has no overall timeout;
// callers bound a download with their context.
func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 30 * time.Second,
				TLSHandshakeTimeout:   15 * time.Second,
			},
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
		userAgent: DefaultUserAgent,
		retries:   DefaultRetries,
		backoff:   DefaultBackoff,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download writes url to dest through a temporary file that is renamed into
// place only after the whole body arrived.
func (d *Downloader) Download(ctx context.Context, url, dest string, progress ProgressFunc) error {
	var lastErr error
	for attempt := 0; attempt <= d.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if attempt > 0 {
			delay := d.backoff << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := d.downloadOnce(ctx, url, dest, progress)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.retryable() {
			return err
		}
	}
	return fmt.Errorf("download failed after %d attempts: %w", d.retries+1, lastErr)
}

func (d *Downloader) downloadOnce(ctx context.Context, url, dest string, progress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{URL: url, Code: resp.StatusCode}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	keep := false
	defer func() {
		tmp.Close()
		if !keep {
			os.Remove(tmpPath)
		}
	}()

	total := max(resp.ContentLength, 0)
	counter := &countingWriter{total: total, progress: progress}
	counter.report()
	written, err := io.Copy(io.MultiWriter(tmp, counter), resp.Body)
	if err != nil {
		return fmt.Errorf("copy response body: %w", err)
	}
	if total > 0 && written != total {
		return fmt.Errorf("short body: got %d of %d bytes", written, total)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	keep = true
	return nil
}

type countingWriter struct {
	written  int64
	total    int64
	progress ProgressFunc
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	w.report()
	return len(p), nil
}

func (w *countingWriter) report() {
	if w.progress != nil {
		w.progress(w.written, w.total)
	}
}
