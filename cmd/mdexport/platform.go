package main

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// platformSummary describes the host the browser build is chosen for.
func platformSummary(ctx context.Context) string {
	info, err := host.InfoWithContext(ctx)
	if err != nil || info == nil {
		return runtime.GOOS + "/" + runtime.GOARCH
	}
	name := strings.TrimSpace(strings.Join([]string{info.Platform, info.PlatformVersion}, " "))
	if name == "" {
		name = info.OS
	}
	return fmt.Sprintf("%s (%s/%s)", name, runtime.GOOS, runtime.GOARCH)
}
