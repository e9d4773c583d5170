package chromium

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Progress reporters understood by the acquisition process.
const (
	ReporterText   = "text"
	ReporterEvents = "events"
)

const planHeader = "# Chromium install plan, generated by mdexport from its configuration.\n" +
	"# Read by `mdexport chromium acquire`. Changes to [browser] and [target]\n" +
	"# are overwritten when the configuration changes.\n\n"

// Plan is the install plan consumed by the acquisition process.
type Plan struct {
	Browser  PlanBrowser  `toml:"browser"`
	Target   PlanTarget   `toml:"target"`
	Progress PlanProgress `toml:"progress"`
}

// PlanBrowser names what to download.
type PlanBrowser struct {
	Revision int      `toml:"revision"`
	Hosts    []string `toml:"hosts"`
}

// PlanTarget names where the browser is unpacked.
type PlanTarget struct {
	InstallDir string `toml:"install_dir"`
}

// PlanProgress is the progress reporting hook rewritten by the Adapter.
type PlanProgress struct {
	Reporter      string `toml:"reporter"`
	Protocol      int    `toml:"protocol,omitempty"`
	IntervalMS    int    `toml:"interval_ms,omitempty"`
	FinishedEvent bool   `toml:"finished_event,omitempty"`
	AdaptedFrom   string `toml:"adapted_from,omitempty"`
}

// ReadPlan loads and validates a plan file.
func ReadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read install plan: %w", err)
	}
	var plan Plan
	if err := toml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse install plan %s: %w", path, err)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("install plan %s: %w", path, err)
	}
	return &plan, nil
}

// Validate checks the fields the acquisition process depends on.
func (p *Plan) Validate() error {
	if p.Browser.Revision <= 0 {
		return errors.New("browser.revision must be positive")
	}
	if len(p.Browser.Hosts) == 0 {
		return errors.New("browser.hosts must list at least one host")
	}
	if strings.TrimSpace(p.Target.InstallDir) == "" {
		return errors.New("target.install_dir must be set")
	}
	switch p.Progress.Reporter {
	case "", ReporterText, ReporterEvents:
	default:
		return fmt.Errorf("progress.reporter: unsupported value %q", p.Progress.Reporter)
	}
	return nil
}

// EmitsEvents reports whether the plan speaks the structured event protocol.
func (p *Plan) EmitsEvents() bool {
	return p.Progress.Reporter == ReporterEvents && p.Progress.Protocol == ProtocolVersion
}

// Location returns the browser layout the plan installs into.
func (p *Plan) Location() Location {
	return NewLocation(p.Target.InstallDir, p.Browser.Revision)
}

// EnsurePlan writes the install plan for location and hosts when it is
// absent, unreadable, or describes a different browser or target. An existing
// plan with matching [browser] and [target] is left as is.
func EnsurePlan(location Location, hosts []string) (string, error) {
	path := location.PlanPath()
	want := Plan{
		Browser:  PlanBrowser{Revision: location.Revision(), Hosts: slices.Clone(hosts)},
		Target:   PlanTarget{InstallDir: location.InstallDir()},
		Progress: PlanProgress{Reporter: ReporterText},
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var existing Plan
		if toml.Unmarshal(data, &existing) == nil &&
			existing.Browser.Revision == want.Browser.Revision &&
			slices.Equal(existing.Browser.Hosts, want.Browser.Hosts) &&
			filepath.Clean(existing.Target.InstallDir) == want.Target.InstallDir {
			return path, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("read install plan: %w", err)
	}

	body, err := toml.Marshal(want)
	if err != nil {
		return "", fmt.Errorf("encode install plan: %w", err)
	}
	if err := writeFileAtomic(path, append([]byte(planHeader), body...)); err != nil {
		return "", fmt.Errorf("write install plan: %w", err)
	}
	return path, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
