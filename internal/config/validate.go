package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateChromium(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateChromium() error {
	if strings.TrimSpace(c.Chromium.InstallDir) == "" {
		return errors.New("chromium.install_dir must be set")
	}
	if c.Chromium.Revision <= 0 {
		return errors.New("chromium.revision must be positive")
	}
	if c.Chromium.DownloadTimeout < 0 {
		return errors.New("chromium.download_timeout must be non-negative")
	}
	if len(c.Chromium.Hosts) == 0 {
		return errors.New("chromium.hosts must list at least one host")
	}
	for _, host := range c.Chromium.Hosts {
		switch host {
		case HostGoogle, HostNPM, HostPlaywright:
		default:
			return fmt.Errorf("chromium.hosts: unsupported host %q (expected google, npm, or playwright)", host)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
