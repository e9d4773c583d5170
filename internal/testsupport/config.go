package testsupport

import (
	"path/filepath"
	"testing"

	"mdexport/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Chromium.InstallDir = filepath.Join(base, "chromium")
	cfgVal.Chromium.Revision = 1000

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithAutoAcquire toggles chromium.auto_acquire on the test config.
func WithAutoAcquire(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Chromium.AutoAcquire = enabled
	}
}

// WithExecutablePath sets the browser override on the test config.
func WithExecutablePath(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Chromium.ExecutablePath = path
	}
}

// WithRevision overrides the Chromium revision on the test config.
func WithRevision(revision int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Chromium.Revision = revision
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
