package config

import "github.com/go-rod/rod/lib/launcher"

const (
	defaultStateDir                = "~/.local/share/mdexport"
	defaultLogDir                  = "~/.local/share/mdexport/logs"
	defaultChromiumInstallDir      = "~/.cache/mdexport/chromium"
	defaultChromiumAutoAcquire     = true
	defaultChromiumDownloadTimeout = 900
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

var defaultChromiumHosts = []string{HostGoogle, HostNPM, HostPlaywright}

// Default returns a Config populated with repository defaults.
func Default() Config {
	hosts := make([]string, len(defaultChromiumHosts))
	copy(hosts, defaultChromiumHosts)
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Chromium: Chromium{
			AutoAcquire:     defaultChromiumAutoAcquire,
			InstallDir:      defaultChromiumInstallDir,
			Revision:        launcher.RevisionDefault,
			Hosts:           hosts,
			DownloadTimeout: defaultChromiumDownloadTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
