package chromium

import (
	"encoding/json"
	"strings"
	"time"
)

// ProtocolVersion is the event contract spoken by adapted install plans.
//
// Protocol 1 writes one JSON object per stdout line:
//
//	{"event":"progress","downloadedBytes":N,"totalBytes":M}
//	{"event":"finished"}
//
// progress is written at most once per EventInterval, and the sample where
// downloadedBytes equals totalBytes is always written. finished is written
// once, after the last byte and before extraction. Other lines are plain
// output.
const ProtocolVersion = 1

// EventInterval is the minimum spacing between progress events.
const EventInterval = 200 * time.Millisecond

// ExitCodeTerminated is the acquisition exit code after a graceful stop.
const ExitCodeTerminated = 128 + 15

const (
	EventProgress = "progress"
	EventFinished = "finished"
)

// Event is one protocol message.
type Event struct {
	Event           string `json:"event"`
	DownloadedBytes int64  `json:"downloadedBytes,omitempty"`
	TotalBytes      int64  `json:"totalBytes,omitempty"`
}

// ProgressEvent builds a progress message.
func ProgressEvent(downloaded, total int64) Event {
	return Event{Event: EventProgress, DownloadedBytes: downloaded, TotalBytes: total}
}

// FinishedEvent builds the finished message.
func FinishedEvent() Event {
	return Event{Event: EventFinished}
}

// MarshalLine encodes the event as a newline terminated JSON line.
func (e Event) MarshalLine() []byte {
	data, _ := json.Marshal(e)
	return append(data, '\n')
}

// ParseEvent decodes a stdout line. ok is false for anything that is not a
// known protocol message.
func ParseEvent(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return Event{}, false
	}
	var evt Event
	if err := json.Unmarshal([]byte(line), &evt); err != nil {
		return Event{}, false
	}
	switch evt.Event {
	case EventProgress, EventFinished:
		return evt, true
	default:
		return Event{}, false
	}
}
