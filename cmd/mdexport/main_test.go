package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"mdexport/internal/chromium"
	"mdexport/internal/config"
	"mdexport/internal/history"
	"mdexport/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	home := filepath.Join(testsupport.BaseDir(cfg), "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	for _, key := range []string{"MDEXPORT_CHROMIUM_PATH", "MDEXPORT_AUTO_ACQUIRE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	configPath := filepath.Join(home, ".config", "mdexport", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitValidateShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, env.cfg.Chromium.InstallDir)
	requireContains(t, out, "[chromium]")
}

func TestConfigValidateReportsDefaults(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(filepath.Dir(env.configPath), "absent.toml")

	out, _, err := runCLI(t, []string{"config", "validate"}, missing)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "defaults were used")
}

func TestInvalidConfigFails(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("[logging]\nformat = 'xml'\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, err := runCLI(t, []string{"chromium", "status"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "format") {
		t.Fatalf("expected log format error, got %v", err)
	}
}

func TestChromiumStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"chromium", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("chromium status: %v", err)
	}
	requireContains(t, out, "Bundled")
	requireContains(t, out, "1000")
	requireContains(t, out, env.cfg.Chromium.InstallDir)
	requireContains(t, out, "Install dir writable")
}

func TestChromiumPathPrefersOverride(t *testing.T) {
	override := filepath.Join(t.TempDir(), "chrome")
	testsupport.WriteFile(t, override, 8)
	env := setupCLITestEnv(t, testsupport.WithExecutablePath(override), testsupport.WithAutoAcquire(false))

	out, _, err := runCLI(t, []string{"chromium", "path"}, env.configPath)
	if err != nil {
		t.Fatalf("chromium path: %v", err)
	}
	if strings.TrimSpace(out) != override {
		t.Fatalf("expected %s, got %q", override, out)
	}
}

func TestChromiumInstallSkipsWhenPresent(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, chromiumLocation(env), 8)

	out, _, err := runCLI(t, []string{"chromium", "install"}, env.configPath)
	if err != nil {
		t.Fatalf("chromium install: %v", err)
	}
	requireContains(t, out, "already installed")
}

func TestChromiumRemove(t *testing.T) {
	env := setupCLITestEnv(t)
	binary := chromiumLocation(env)
	testsupport.WriteFile(t, binary, 8)

	for range 2 {
		out, _, err := runCLI(t, []string{"chromium", "remove"}, env.configPath)
		if err != nil {
			t.Fatalf("chromium remove: %v", err)
		}
		requireContains(t, out, "Removed Chromium r1000")
	}
	if _, err := os.Stat(binary); !os.IsNotExist(err) {
		t.Fatalf("expected binary removed (stat err %v)", err)
	}
}

func TestChromiumHistory(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"chromium", "history"}, env.configPath)
	if err != nil {
		t.Fatalf("chromium history: %v", err)
	}
	requireContains(t, out, "No download sessions recorded")

	store := testsupport.MustOpenHistory(t, env.cfg)
	started := time.Now().Add(-time.Minute)
	code := 3
	sessions := []history.Session{
		{ID: "11111111-aaaa", Revision: 1000, StartedAt: started, FinishedAt: started.Add(20 * time.Second),
			Outcome: history.OutcomeSucceeded, DownloadedBytes: 2_000_000, TotalBytes: 2_000_000},
		{ID: "22222222-bbbb", Revision: 1000, StartedAt: started.Add(30 * time.Second), FinishedAt: started.Add(40 * time.Second),
			Outcome: history.OutcomeFailed, ExitCode: &code, Detail: "all hosts failed"},
	}
	for _, s := range sessions {
		if err := store.Record(context.Background(), s); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	out, _, err = runCLI(t, []string{"chromium", "history"}, env.configPath)
	if err != nil {
		t.Fatalf("chromium history: %v", err)
	}
	requireContains(t, out, "11111111")
	requireContains(t, out, "Succeeded")
	requireContains(t, out, "Failed")
	requireContains(t, out, "all hosts failed")
	requireContains(t, out, "2.0 MB")
}

func TestChromiumAcquireRequiresValidPlan(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "install-plan.toml")
	_, _, err := runCLI(t, []string{"chromium", "acquire", "--plan", missing}, "")
	if err == nil || !strings.Contains(err.Error(), "read install plan") {
		t.Fatalf("expected plan read error, got %v", err)
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		t.Fatal("plan errors are ordinary failures")
	}
}

func TestLogSinkSamplesProgress(t *testing.T) {
	var buf bytes.Buffer
	sink := newLogSink(slog.New(slog.NewTextHandler(&buf, nil)))

	for range 20 {
		sink.Report(5, "")
	}
	sink.ReportIndeterminate("Extracting…")
	sink.ReportIndeterminate("Extracting…")

	if got := strings.Count(buf.String(), "chromium download progress"); got != 11 {
		t.Fatalf("expected 11 progress lines, got %d:\n%s", got, buf.String())
	}
	if got := strings.Count(buf.String(), "Extracting"); got != 1 {
		t.Fatalf("expected one extracting line, got %d", got)
	}
}

func TestNewProgressSinkWithoutTerminal(t *testing.T) {
	if _, ok := newProgressSink(&bytes.Buffer{}, slog.Default()).(*logSink); !ok {
		t.Fatal("expected log sink for non-terminal output")
	}
}

func chromiumLocation(env *cliTestEnv) string {
	return chromium.NewLocation(env.cfg.Chromium.InstallDir, env.cfg.Chromium.Revision).BinaryPath()
}
