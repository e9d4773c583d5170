package chromium

import (
	"os"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
)

// Source names where a resolved browser executable came from.
type Source string

const (
	SourceOverride Source = "override"
	SourceBundled  Source = "bundled"
	SourceSystem   Source = "system"
)

// Resolution is the executable the renderer should launch.
type Resolution struct {
	Path   string
	Source Source
}

// Checker answers whether the bundled browser is installed.
type Checker struct {
	location Location
	lookPath func() (string, bool)
}

// NewChecker returns a checker for the given layout.
func NewChecker(location Location) *Checker {
	return &Checker{location: location, lookPath: launcher.LookPath}
}

// IsAvailable reports whether the bundled executable exists. A missing path
// is a plain false.
func (c *Checker) IsAvailable() bool {
	info, err := os.Stat(c.location.BinaryPath())
	return err == nil && !info.IsDir()
}

// Resolve picks the browser to launch: the override when it exists, then the
// bundled build, then a system browser. It returns ErrNotFound otherwise.
func (c *Checker) Resolve(override string) (Resolution, error) {
	if override = strings.TrimSpace(override); override != "" {
		if info, err := os.Stat(override); err == nil && !info.IsDir() {
			return Resolution{Path: override, Source: SourceOverride}, nil
		}
	}
	if c.IsAvailable() {
		return Resolution{Path: c.location.BinaryPath(), Source: SourceBundled}, nil
	}
	if c.lookPath != nil {
		if path, ok := c.lookPath(); ok {
			return Resolution{Path: path, Source: SourceSystem}, nil
		}
	}
	return Resolution{}, ErrNotFound
}
