package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"mdexport/internal/chromium"
	"mdexport/internal/config"
	"mdexport/internal/history"
	"mdexport/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configFile bool
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	store *history.Store
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configFile = exists
	})
	return c.config, c.configErr
}

// loggerFor returns the configured logger. Log construction failures fall
// back to a console logger on stderr.
func (c *commandContext) loggerFor(stderr io.Writer) *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.config)
		if err != nil {
			fmt.Fprintf(stderr, "warning: %v; logging to stderr only\n", err)
			logger, _ = logging.New(logging.Options{Level: "info", Format: "console"})
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) historyStore() (*history.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	store, err := history.Open(c.config.HistoryPath())
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	c.store = store
	return store, nil
}

// supervisor builds the browser supervisor for a command. Sessions are
// recorded when the history store opens; otherwise they are only logged.
func (c *commandContext) supervisor(cmd *cobra.Command, sink chromium.ProgressSink) *chromium.Supervisor {
	logger := c.loggerFor(cmd.ErrOrStderr())
	opts := []chromium.Option{chromium.WithProgressSink(sink)}
	if store, err := c.historyStore(); err != nil {
		logging.WarnWithContext(logger, "download history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "sessions will not be recorded"),
		)
	} else {
		opts = append(opts, chromium.WithRecorder(store))
	}
	return chromium.New(c.config, logger, opts...)
}

func (c *commandContext) close() {
	if c.store != nil {
		_ = c.store.Close()
		c.store = nil
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
