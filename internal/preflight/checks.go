package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

const hostCheckPrefix = "Host "

func isHostCheck(name string) bool {
	return strings.HasPrefix(name, hostCheckPrefix)
}

// CheckDirectoryAccess verifies that the directory exists and is readable and
// writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := accessReadWrite(path); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckHost sends a HEAD request for the revision archive on host. A single
// attempt with a 10 second timeout is made.
func CheckHost(ctx context.Context, client *http.Client, hostURL HostURL, host string, revision int) Result {
	name := hostCheckPrefix + host
	url, err := hostURL(host, revision)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if client == nil {
		client = http.DefaultClient
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, url, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("r%d available", revision)}
	case resp.StatusCode == http.StatusNotFound:
		return Result{Name: name, Detail: fmt.Sprintf("r%d not published for this platform", revision)}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
}
