package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"mdexport/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed || !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("expected missing dir failure, got %+v", result)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		if strings.HasSuffix(r.URL.Path, "/1000") {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	hostURL := func(host string, revision int) (string, error) {
		if host == "bogus" {
			return "", errors.New("unknown download host \"bogus\"")
		}
		return srv.URL + "/" + host + "/" + strconv.Itoa(revision), nil
	}

	ok := CheckHost(context.Background(), srv.Client(), hostURL, "npm", 1000)
	if !ok.Passed || ok.Name != "Host npm" {
		t.Fatalf("expected pass, got %+v", ok)
	}
	missing := CheckHost(context.Background(), srv.Client(), hostURL, "npm", 999)
	if missing.Passed || !strings.Contains(missing.Detail, "not published") {
		t.Fatalf("expected not published, got %+v", missing)
	}
	bogus := CheckHost(context.Background(), srv.Client(), hostURL, "bogus", 1000)
	if bogus.Passed || !strings.Contains(bogus.Detail, "unknown download host") {
		t.Fatalf("expected unknown host, got %+v", bogus)
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	cfg.Chromium.Hosts = []string{"google", "npm"}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/npm") {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	hostURL := func(host string, _ int) (string, error) { return srv.URL + "/" + host, nil }

	results := RunAll(context.Background(), cfg, srv.Client(), hostURL)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for _, r := range results[:3] {
		if !r.Passed {
			t.Fatalf("expected directory check to pass: %+v", r)
		}
	}
	if results[3].Passed || !strings.Contains(results[3].Detail, "503") {
		t.Fatalf("expected google to fail with 503, got %+v", results[3])
	}
	if !AnyHostReachable(results) {
		t.Fatal("expected npm to be reachable")
	}
	if AnyHostReachable(results[:4]) {
		t.Fatal("no host passed in the first four results")
	}
}
