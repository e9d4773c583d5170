package chromium_test

import (
	"testing"
	"time"

	"mdexport/internal/chromium"
)

func tickN(a *chromium.Aggregator, n int) []chromium.Report {
	var reports []chromium.Report
	for range n {
		if r, ok := a.Tick(); ok {
			reports = append(reports, r)
		}
	}
	return reports
}

func lastMessage(reports []chromium.Report) string {
	for i := len(reports) - 1; i >= 0; i-- {
		if reports[i].Message != "" {
			return reports[i].Message
		}
	}
	return ""
}

func TestAggregatorSpeedMessages(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		oldest int64
		newest int64
		total  int64
		want   string
	}{
		{
			name:   "exactly 1000 KB/s stays in KB/s",
			oldest: 1_000_000,
			newest: 2_000_000,
			total:  10_000_000,
			want:   "1000.00 KB/s, 8 seconds left",
		},
		{
			name:   "above 1000 KB/s switches to MB/s",
			oldest: 1_000_000,
			newest: 2_500_000,
			total:  92_500_000,
			want:   "1.50 MB/s, 1 minute left",
		},
		{
			name:   "slow transfer",
			oldest: 0,
			newest: 10_000,
			total:  100_000_000,
			want:   "10.00 KB/s, more than 10 minutes left",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := chromium.NewAggregator()
			a.Ingest(chromium.Sample{Time: base, DownloadedBytes: tt.oldest, TotalBytes: tt.total})
			a.Ingest(chromium.Sample{Time: base.Add(time.Second), DownloadedBytes: tt.newest, TotalBytes: tt.total})

			reports := tickN(a, 6)
			if got := lastMessage(reports); got != tt.want {
				t.Fatalf("message = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAggregatorMessageOnlyEverySixthTick(t *testing.T) {
	base := time.Now()
	a := chromium.NewAggregator()
	a.Ingest(chromium.Sample{Time: base, DownloadedBytes: 0, TotalBytes: 1000})
	a.Ingest(chromium.Sample{Time: base.Add(time.Second), DownloadedBytes: 100, TotalBytes: 1000})

	for i := 1; i <= 5; i++ {
		r, _ := a.Tick()
		if r.Message != "" {
			t.Fatalf("tick %d carried message %q", i, r.Message)
		}
	}
	r, ok := a.Tick()
	if !ok || r.Message == "" {
		t.Fatalf("expected message on sixth tick, got %+v ok=%v", r, ok)
	}
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{1, "1 second left"},
		{45, "45 seconds left"},
		{59, "59 seconds left"},
		{60, "1 minute left"},
		{90, "1 minute left"},
		{600, "10 minutes left"},
		{700, "more than 10 minutes left"},
	}
	for _, tt := range tests {
		if got := chromium.FormatETA(tt.seconds); got != tt.want {
			t.Errorf("FormatETA(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatSpeedBoundary(t *testing.T) {
	if got := chromium.FormatSpeed(1_000_000); got != "1000.00 KB/s" {
		t.Fatalf("FormatSpeed(1e6) = %q", got)
	}
	if got := chromium.FormatSpeed(1_500_000); got != "1.50 MB/s" {
		t.Fatalf("FormatSpeed(1.5e6) = %q", got)
	}
}

func TestAggregatorTickWithoutSamplesIsNoop(t *testing.T) {
	a := chromium.NewAggregator()
	if r, ok := a.Tick(); ok {
		t.Fatalf("expected no report, got %+v", r)
	}
	if _, ok := a.Latest(); ok {
		t.Fatal("expected no latest sample")
	}
	if _, ok := a.Flush(); ok {
		t.Fatal("expected empty flush")
	}
	if _, ok := a.Finish(); ok {
		t.Fatal("expected empty finish")
	}
	if !a.Finished() {
		t.Fatal("expected extraction phase after Finish")
	}
}

func TestAggregatorIncrementsNeverDecrease(t *testing.T) {
	now := time.Now()
	a := chromium.NewAggregator()

	steps := []struct {
		bytes int64
		want  float64
		ok    bool
	}{
		{25, 25, true},
		{60, 35, true},
		{40, 0, false},
		{100, 40, true},
	}
	for i, step := range steps {
		a.Ingest(chromium.Sample{Time: now.Add(time.Duration(i) * 100 * time.Millisecond), DownloadedBytes: step.bytes, TotalBytes: 100})
		r, ok := a.Tick()
		if ok != step.ok || r.IncrementPercent != step.want {
			t.Fatalf("step %d: got %+v ok=%v, want increment %v ok=%v", i, r, ok, step.want, step.ok)
		}
	}
	if got := a.ReportedPercent(); got != 100 {
		t.Fatalf("ReportedPercent = %v, want 100", got)
	}
}

func TestAggregatorMalformedSamplesDegrade(t *testing.T) {
	now := time.Now()
	a := chromium.NewAggregator()
	a.Ingest(chromium.Sample{Time: now, DownloadedBytes: 10, TotalBytes: 0})

	reports := tickN(a, 6)
	if len(reports) != 1 {
		t.Fatalf("expected only the message report, got %+v", reports)
	}
	if reports[0].IncrementPercent != 0 || reports[0].Message != chromium.MessageDownloading {
		t.Fatalf("unexpected report %+v", reports[0])
	}
}

func TestAggregatorUsesTwoSecondWindow(t *testing.T) {
	base := time.Now()
	a := chromium.NewAggregator()
	a.Ingest(chromium.Sample{Time: base, DownloadedBytes: 0, TotalBytes: 100_000_000})
	a.Ingest(chromium.Sample{Time: base.Add(3 * time.Second), DownloadedBytes: 3_000_000, TotalBytes: 100_000_000})
	a.Ingest(chromium.Sample{Time: base.Add(4 * time.Second), DownloadedBytes: 5_000_000, TotalBytes: 100_000_000})

	msg := lastMessage(tickN(a, 6))
	if msg != "2.00 MB/s, 47 seconds left" {
		t.Fatalf("expected speed from samples inside the window, got %q", msg)
	}
}

func TestAggregatorFinishFlushesAndSuppresses(t *testing.T) {
	now := time.Now()
	a := chromium.NewAggregator()
	a.Ingest(chromium.Sample{Time: now, DownloadedBytes: 100, TotalBytes: 100})

	r, ok := a.Finish()
	if !ok || r.IncrementPercent != 100 {
		t.Fatalf("expected flush of 100%%, got %+v ok=%v", r, ok)
	}
	if !a.Finished() {
		t.Fatal("expected finished state")
	}
	a.Ingest(chromium.Sample{Time: now.Add(time.Second), DownloadedBytes: 100, TotalBytes: 100})
	if r, ok := a.Tick(); ok {
		t.Fatalf("expected no reports after finish, got %+v", r)
	}
	if r, ok := a.Flush(); ok {
		t.Fatalf("expected no flush after finish, got %+v", r)
	}
	if _, ok := a.Finish(); ok {
		t.Fatal("second Finish should report nothing")
	}
}

func TestAggregatorCompleteDownloadSumsToExactlyHundred(t *testing.T) {
	base := time.Now()
	totals := []int64{230583, 1000, 3, 7_777_777, 160_000_001}
	for i := int64(1); i <= 400; i++ {
		totals = append(totals, 100_000+i*977)
	}

	for _, total := range totals {
		a := chromium.NewAggregator()
		var sum float64
		step := total/13 + 1
		at := base
		for downloaded := int64(0); ; downloaded = min(downloaded+step, total) {
			at = at.Add(100 * time.Millisecond)
			a.Ingest(chromium.Sample{Time: at, DownloadedBytes: downloaded, TotalBytes: total})
			if r, ok := a.Tick(); ok {
				sum += r.IncrementPercent
			}
			if downloaded == total {
				break
			}
		}
		if r, ok := a.Finish(); ok {
			sum += r.IncrementPercent
		}
		if sum != 100 {
			t.Fatalf("total=%d: increments sum to %.17g, want exactly 100", total, sum)
		}
	}
}
