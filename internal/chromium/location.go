package chromium

import (
	"path/filepath"

	"github.com/go-rod/rod/lib/launcher"
)

const (
	planFileName        = "install-plan.toml"
	adaptedPlanFileName = "install-plan.adapted.toml"
	lockFileName        = ".acquire.lock"
)

// Location derives every on-disk path of a bundled browser revision. It uses
// the go-rod launcher layout so browsers fetched by rod itself are recognized.
type Location struct {
	installDir string
	revision   int
}

// NewLocation returns the layout for revision under installDir. A
// non-positive revision selects the launcher default.
func NewLocation(installDir string, revision int) Location {
	if revision <= 0 {
		revision = launcher.RevisionDefault
	}
	return Location{installDir: filepath.Clean(installDir), revision: revision}
}

func (l Location) browser() *launcher.Browser {
	return &launcher.Browser{RootDir: l.installDir, Revision: l.revision}
}

// InstallDir returns the root that holds every revision and the plan files.
func (l Location) InstallDir() string { return l.installDir }

// Revision returns the Chromium snapshot revision.
func (l Location) Revision() int { return l.revision }

// Dir returns the revision directory, e.g. <install_dir>/chromium-1321438.
func (l Location) Dir() string { return l.browser().Dir() }

// BinaryPath returns the platform specific executable path.
func (l Location) BinaryPath() string { return l.browser().BinPath() }

// PlanPath returns the install plan written from configuration.
func (l Location) PlanPath() string { return filepath.Join(l.installDir, planFileName) }

// AdaptedPlanPath returns the plan instrumented for structured progress.
func (l Location) AdaptedPlanPath() string {
	return filepath.Join(l.installDir, adaptedPlanFileName)
}

// LockPath returns the cross-process acquisition lock file.
func (l Location) LockPath() string { return filepath.Join(l.installDir, lockFileName) }
