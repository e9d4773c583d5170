package acquire

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"mdexport/internal/chromium"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func eventLines(t *testing.T, out string) []chromium.Event {
	t.Helper()
	var events []chromium.Event
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		evt, ok := chromium.ParseEvent(line)
		if !ok {
			t.Fatalf("unexpected line %q", line)
		}
		events = append(events, evt)
	}
	return events
}

func TestEventReporterThrottles(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	var buf bytes.Buffer
	rep := &eventReporter{w: &buf, interval: 200 * time.Millisecond, now: clock.Now, finishedEvent: true}

	rep.Progress(0, 1000)
	clock.advance(50 * time.Millisecond)
	rep.Progress(100, 1000)
	clock.advance(150 * time.Millisecond)
	rep.Progress(300, 1000)
	clock.advance(10 * time.Millisecond)
	rep.Progress(1000, 1000)
	rep.Progress(1000, 1000)
	rep.Finished()

	events := eventLines(t, buf.String())
	want := []chromium.Event{
		chromium.ProgressEvent(0, 1000),
		chromium.ProgressEvent(300, 1000),
		chromium.ProgressEvent(1000, 1000),
		chromium.FinishedEvent(),
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d: %v", len(want), len(events), events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event %d = %+v, want %+v", i, events[i], want[i])
		}
	}
}

func TestEventReporterWithoutFinishedEvent(t *testing.T) {
	var buf bytes.Buffer
	rep := &eventReporter{w: &buf, interval: time.Second, now: time.Now}
	rep.Finished()
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestTextReporterPrintsSteps(t *testing.T) {
	plan := &chromium.Plan{Browser: chromium.PlanBrowser{Revision: 42}}
	var buf bytes.Buffer
	rep := newReporter(plan, &buf, time.Now)

	for done := int64(0); done <= 100; done += 5 {
		rep.Progress(done, 100)
	}
	rep.Finished()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 12 {
		t.Fatalf("expected 12 lines, got %d:\n%s", len(lines), buf.String())
	}
	if lines[0] != "Downloading Chromium r42: 0%" || lines[10] != "Downloading Chromium r42: 100%" {
		t.Fatalf("unexpected progress lines %q ... %q", lines[0], lines[10])
	}
	if lines[11] != "Extracting Chromium r42" {
		t.Fatalf("unexpected last line %q", lines[11])
	}
}

func TestTextReporterUnknownLength(t *testing.T) {
	plan := &chromium.Plan{Browser: chromium.PlanBrowser{Revision: 7}}
	var buf bytes.Buffer
	rep := newReporter(plan, &buf, time.Now)
	rep.Progress(10, 0)
	rep.Progress(20, 0)
	if got := buf.String(); got != "Downloading Chromium r7\n" {
		t.Fatalf("unexpected output %q", got)
	}
}
