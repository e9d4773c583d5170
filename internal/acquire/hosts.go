package acquire

import (
	"fmt"

	"github.com/go-rod/rod/lib/launcher"

	"mdexport/internal/config"
)

// HostURL returns the archive URL for revision on the named host.
type HostURL func(host string, revision int) (string, error)

var launcherHosts = map[string]launcher.Host{
	config.HostGoogle:     launcher.HostGoogle,
	config.HostNPM:        launcher.HostNPM,
	config.HostPlaywright: launcher.HostPlaywright,
}

// LauncherHostURL resolves host names with the go-rod launcher URL builders,
// which pick the archive for the running platform.
func LauncherHostURL(host string, revision int) (string, error) {
	build, ok := launcherHosts[host]
	if !ok {
		return "", fmt.Errorf("unknown download host %q", host)
	}
	return build(revision), nil
}
