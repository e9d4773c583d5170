package chromium_test

import (
	"strings"
	"testing"

	"mdexport/internal/chromium"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		line string
		ok   bool
		want chromium.Event
	}{
		{`{"event":"progress","downloadedBytes":5,"totalBytes":10}`, true, chromium.ProgressEvent(5, 10)},
		{`  {"event":"finished"}  `, true, chromium.FinishedEvent()},
		{`{"event":"unknown"}`, false, chromium.Event{}},
		{`Downloading Chromium r1000: 42%`, false, chromium.Event{}},
		{`{broken`, false, chromium.Event{}},
	}
	for _, tt := range tests {
		got, ok := chromium.ParseEvent(tt.line)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseEvent(%q) = %+v, %v", tt.line, got, ok)
		}
	}
}

func TestEventMarshalLineRoundTrips(t *testing.T) {
	line := string(chromium.ProgressEvent(100, 100).MarshalLine())
	if !strings.HasSuffix(line, "\n") {
		t.Fatalf("expected newline terminated line, got %q", line)
	}
	if line != `{"event":"progress","downloadedBytes":100,"totalBytes":100}`+"\n" {
		t.Fatalf("unexpected encoding %q", line)
	}
	if got := string(chromium.FinishedEvent().MarshalLine()); got != `{"event":"finished"}`+"\n" {
		t.Fatalf("unexpected finished encoding %q", got)
	}
}
