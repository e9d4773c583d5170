package chromium

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

const (
	outputLineLimit = 200
	maxLineBytes    = 1 << 20
)

// outputBuffer keeps the most recent plain output lines of a session.
type outputBuffer struct {
	mu      sync.Mutex
	lines   []string
	limit   int
	dropped int
}

func newOutputBuffer(limit int) *outputBuffer {
	return &outputBuffer{limit: limit}
}

func (b *outputBuffer) Add(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.lines) == b.limit {
		copy(b.lines, b.lines[1:])
		b.lines = b.lines[:len(b.lines)-1]
		b.dropped++
	}
	b.lines = append(b.lines, line)
}

func (b *outputBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var sb strings.Builder
	if b.dropped > 0 {
		fmt.Fprintf(&sb, "(%d earlier lines omitted)\n", b.dropped)
	}
	sb.WriteString(strings.Join(b.lines, "\n"))
	return sb.String()
}

// scanLines feeds each line of r to fn and drains r after an oversized line
// so the writer never blocks on a full pipe.
func scanLines(r io.Reader, fn func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		fn(scanner.Text())
	}
	if scanner.Err() != nil {
		_, _ = io.Copy(io.Discard, r)
	}
}
