package chromium

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/process"

	"mdexport/internal/logging"
)

// InUseFunc reports a process executing a binary inside dir.
type InUseFunc func(ctx context.Context, dir string) (pid int32, inUse bool, err error)

// ProcessUsingDir scans running processes for one whose executable lives
// under dir. Processes whose executable cannot be read are skipped.
func ProcessUsingDir(ctx context.Context, dir string) (int32, bool, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("list processes: %w", err)
	}
	for _, proc := range procs {
		exe, err := proc.ExeWithContext(ctx)
		if err != nil || exe == "" {
			continue
		}
		if within(dir, exe) {
			return proc.Pid, true, nil
		}
	}
	return 0, false, nil
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// cleaner removes a bundled browser revision and its adapted plan.
type cleaner struct {
	location Location
	inUse    InUseFunc
	logger   *slog.Logger
}

func (c *cleaner) remove(ctx context.Context) error {
	dir := c.location.Dir()
	if _, err := os.Stat(dir); err == nil {
		if c.inUse != nil {
			pid, used, err := c.inUse(ctx, dir)
			switch {
			case err != nil:
				logging.WarnWithContext(c.logger, "could not check whether chromium is running", "chromium_in_use_check_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "removing without in-use check"),
				)
			case used:
				return &CleanupError{Path: dir, Err: fmt.Errorf("%w by pid %d", ErrBinaryInUse, pid)}
			}
		}
		if err := os.RemoveAll(dir); err != nil {
			return &CleanupError{Path: dir, Err: err}
		}
		c.logger.Info("removed bundled chromium", logging.String("dir", dir))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return &CleanupError{Path: dir, Err: err}
	}

	adapted := c.location.AdaptedPlanPath()
	if err := os.Remove(adapted); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &CleanupError{Path: adapted, Err: err}
	}
	return nil
}
