package chromium

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const adaptedHeader = "# Adapted from install-plan.toml by mdexport to report structured progress.\n" +
	"# Regenerated whenever the source plan changes. Do not edit.\n\n"

// Adapter derives the event-reporting install plan from the source plan. Only
// the [progress] table is rewritten, so what is downloaded and where it is
// unpacked never changes.
type Adapter struct {
	source string
	target string
}

// NewAdapter returns an adapter reading source and writing target.
func NewAdapter(source, target string) *Adapter {
	return &Adapter{source: source, target: target}
}

// Adapt writes the adapted plan and returns its path. It is idempotent: an
// adapted plan already derived from the current source is left alone, and
// regeneration is deterministic. Failures are *AdaptationError and never
// touch the source.
func (a *Adapter) Adapt() (string, error) {
	data, err := os.ReadFile(a.source)
	if err != nil {
		return "", &AdaptationError{Path: a.source, Err: err}
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return "", &AdaptationError{Path: a.source, Err: fmt.Errorf("parse: %w", err)}
	}
	progress, ok := doc["progress"].(map[string]any)
	if !ok {
		return "", &AdaptationError{Path: a.source, Err: ErrProgressHookMissing}
	}
	if _, ok := progress["reporter"]; !ok {
		return "", &AdaptationError{Path: a.source, Err: ErrProgressHookMissing}
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	if a.current(digest) {
		return a.target, nil
	}

	progress["reporter"] = ReporterEvents
	progress["protocol"] = int64(ProtocolVersion)
	progress["interval_ms"] = EventInterval.Milliseconds()
	progress["finished_event"] = true
	progress["adapted_from"] = digest
	doc["progress"] = progress

	body, err := toml.Marshal(doc)
	if err != nil {
		return "", &AdaptationError{Path: a.source, Err: fmt.Errorf("encode: %w", err)}
	}
	if err := writeFileAtomic(a.target, append([]byte(adaptedHeader), body...)); err != nil {
		return "", &AdaptationError{Path: a.target, Err: fmt.Errorf("write: %w", err)}
	}
	return a.target, nil
}

// current reports whether the target was adapted from a source with digest.
func (a *Adapter) current(digest string) bool {
	data, err := os.ReadFile(a.target)
	if err != nil {
		return false
	}
	var plan Plan
	if err := toml.Unmarshal(data, &plan); err != nil {
		return false
	}
	return plan.EmitsEvents() && plan.Progress.AdaptedFrom == digest
}
