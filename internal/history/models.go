package history

import "time"

// Outcome is the terminal state of a download session.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeCanceled  Outcome = "canceled"
	OutcomeFailed    Outcome = "failed"
)

// Session is one recorded download attempt.
type Session struct {
	ID              string
	Revision        int
	StartedAt       time.Time
	FinishedAt      time.Time
	Outcome         Outcome
	DownloadedBytes int64
	TotalBytes      int64
	// ExitCode is nil when the child never started.
	ExitCode *int
	Signal   string
	Detail   string
}

// Duration returns how long the session ran.
func (s Session) Duration() time.Duration {
	if s.FinishedAt.Before(s.StartedAt) {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
