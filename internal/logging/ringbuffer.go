package logging

import (
	"bytes"
	"os"
	"strings"
	"sync"
)

// RingBuffer keeps the most recent complete log lines in memory.
// It implements io.Writer; partial lines are held until their newline arrives.
type RingBuffer struct {
	mu      sync.Mutex
	lines   []string
	next    int
	full    bool
	partial []byte
}

// NewRingBuffer creates a ring holding up to capacity lines.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 500
	}
	return &RingBuffer{lines: make([]string, capacity)}
}

// Write implements io.Writer.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	data := p
	if len(rb.partial) > 0 {
		data = append(rb.partial, p...)
		rb.partial = nil
	}
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		rb.push(string(data[:idx]))
		data = data[idx+1:]
	}
	if len(data) > 0 {
		rb.partial = append([]byte(nil), data...)
	}
	return len(p), nil
}

func (rb *RingBuffer) push(line string) {
	rb.lines[rb.next] = line
	rb.next++
	if rb.next == len(rb.lines) {
		rb.next = 0
		rb.full = true
	}
}

// Lines returns every retained line in chronological order.
func (rb *RingBuffer) Lines() []string {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.ordered()
}

func (rb *RingBuffer) ordered() []string {
	if !rb.full {
		out := make([]string, rb.next)
		copy(out, rb.lines[:rb.next])
		return out
	}
	out := make([]string, 0, len(rb.lines))
	out = append(out, rb.lines[rb.next:]...)
	return append(out, rb.lines[:rb.next]...)
}

// Tail returns the last n lines, oldest first.
func (rb *RingBuffer) Tail(n int) []string {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	all := rb.ordered()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// DumpToFile writes the retained lines to path, one per line.
func (rb *RingBuffer) DumpToFile(path string) error {
	lines := rb.Lines()
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}
