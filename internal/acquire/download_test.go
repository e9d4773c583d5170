package acquire_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"mdexport/internal/acquire"
)

func TestDownloaderWritesFileAndReportsProgress(t *testing.T) {
	body := strings.Repeat("chromium", 4096)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != acquire.DefaultUserAgent {
			t.Errorf("unexpected User-Agent: %s", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "nested", "archive.zip")
	var last, lastTotal int64
	err := acquire.NewDownloader().Download(context.Background(), server.URL, dest, func(done, total int64) {
		if done < last {
			t.Errorf("progress went backwards: %d after %d", done, last)
		}
		last, lastTotal = done, total
	})
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(data) != body {
		t.Fatal("downloaded content mismatch")
	}
	if last != int64(len(body)) || lastTotal != int64(len(body)) {
		t.Fatalf("expected final progress %d/%d, got %d/%d", len(body), len(body), last, lastTotal)
	}
	assertNoPartials(t, filepath.Dir(dest))
}

func TestDownloaderRetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{name: "server error retried", status: http.StatusInternalServerError, wantCalls: 3},
		{name: "rate limit retried", status: http.StatusTooManyRequests, wantCalls: 3},
		{name: "not found is final", status: http.StatusNotFound, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			dest := filepath.Join(t.TempDir(), "archive.zip")
			d := acquire.NewDownloader(acquire.WithRetries(2), acquire.WithBackoff(0))
			err := d.Download(context.Background(), server.URL, dest, nil)

			var statusErr *acquire.StatusError
			if !errors.As(err, &statusErr) || statusErr.Code != tt.status {
				t.Fatalf("expected status error %d, got %v", tt.status, err)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Fatalf("expected %d calls, got %d", tt.wantCalls, got)
			}
			if _, err := os.Stat(dest); !os.IsNotExist(err) {
				t.Fatalf("dest must not exist after failure (stat err %v)", err)
			}
			assertNoPartials(t, filepath.Dir(dest))
		})
	}
}

func TestDownloaderRecoversAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "archive.zip")
	if err := acquire.NewDownloader(acquire.WithBackoff(0)).Download(context.Background(), server.URL, dest, nil); err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestDownloaderHonorsCanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := acquire.NewDownloader().Download(ctx, server.URL, filepath.Join(t.TempDir(), "a.zip"), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func assertNoPartials(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".part") {
			t.Fatalf("temporary file left behind: %s", entry.Name())
		}
	}
}
