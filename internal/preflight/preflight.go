package preflight

import (
	"context"
	"net/http"

	"mdexport/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// HostURL maps a download host name to the archive URL for a revision.
type HostURL func(host string, revision int) (string, error)

// RunAll checks the state, log and install directories, then every
// configured download host.
func RunAll(ctx context.Context, cfg *config.Config, client *http.Client, hostURL HostURL) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Install directory", cfg.Chromium.InstallDir),
	}
	for _, host := range cfg.Chromium.Hosts {
		results = append(results, CheckHost(ctx, client, hostURL, host, cfg.Chromium.Revision))
	}
	return results
}

// AnyHostReachable reports whether at least one host check passed.
func AnyHostReachable(results []Result) bool {
	for _, r := range results {
		if r.Passed && isHostCheck(r.Name) {
			return true
		}
	}
	return false
}
