package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeChromium(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeChromium() error {
	if value, ok := os.LookupEnv("MDEXPORT_CHROMIUM_PATH"); ok && strings.TrimSpace(c.Chromium.ExecutablePath) == "" {
		c.Chromium.ExecutablePath = value
	}
	if value, ok := os.LookupEnv("MDEXPORT_AUTO_ACQUIRE"); ok {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("MDEXPORT_AUTO_ACQUIRE: %w", err)
		}
		c.Chromium.AutoAcquire = parsed
	}

	var err error
	c.Chromium.ExecutablePath = strings.TrimSpace(c.Chromium.ExecutablePath)
	if c.Chromium.ExecutablePath != "" {
		if c.Chromium.ExecutablePath, err = expandPath(c.Chromium.ExecutablePath); err != nil {
			return fmt.Errorf("chromium.executable_path: %w", err)
		}
	}
	if strings.TrimSpace(c.Chromium.InstallDir) == "" {
		c.Chromium.InstallDir = defaultChromiumInstallDir
	}
	if c.Chromium.InstallDir, err = expandPath(c.Chromium.InstallDir); err != nil {
		return fmt.Errorf("chromium.install_dir: %w", err)
	}
	if c.Chromium.Revision <= 0 {
		c.Chromium.Revision = launcher.RevisionDefault
	}

	hosts := make([]string, 0, len(c.Chromium.Hosts))
	seen := make(map[string]struct{}, len(c.Chromium.Hosts))
	for _, host := range c.Chromium.Hosts {
		host = strings.ToLower(strings.TrimSpace(host))
		if host == "" {
			continue
		}
		if _, dup := seen[host]; dup {
			continue
		}
		seen[host] = struct{}{}
		hosts = append(hosts, host)
	}
	if len(hosts) == 0 {
		hosts = append(hosts, defaultChromiumHosts...)
	}
	c.Chromium.Hosts = hosts

	if c.Chromium.DownloadTimeout == 0 {
		c.Chromium.DownloadTimeout = defaultChromiumDownloadTimeout
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
