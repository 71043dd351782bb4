// Package logmux fans in output lines from a subprocess's piped streams
// and delivers them via a single bounded channel.
package logmux

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
	StreamSystem = "system"
)

// Entry is one line of subprocess output.
type Entry struct {
	Time   time.Time
	Stream string
	Line   string
}

// Mux fans in entries from multiple stream sources and delivers them via a
// bounded channel. When downstream consumers cannot keep up and the output
// buffer would overflow, the mux drops entries and emits a synthesized
// notice to surface the number of discarded lines.
type Mux struct {
	out chan Entry

	mu     sync.Mutex
	drops  map[string]int
	inputs sync.WaitGroup
}

// New constructs a mux backed by a channel of the provided size. A size of
// zero results in a minimally buffered channel.
func New(size int) *Mux {
	if size <= 0 {
		size = 1
	}
	return &Mux{
		out:   make(chan Entry, size),
		drops: make(map[string]int),
	}
}

// Output exposes the muxed entry channel.
func (m *Mux) Output() <-chan Entry {
	return m.out
}

// Add registers a new source channel. The mux consumes entries until the
// source channel is closed.
func (m *Mux) Add(source <-chan Entry) {
	if source == nil {
		return
	}
	m.inputs.Add(1)
	go func() {
		defer m.inputs.Done()
		for entry := range source {
			m.deliver(normalize(entry))
		}
	}()
}

// maxLineBytes bounds a single tailed line. Longer lines abort the tail
// rather than being split silently.
const maxLineBytes = 1 << 20

// Tail scans r line by line and feeds the lines into the mux attributed to
// the named stream, until r reaches EOF. A read failure or an over-long
// line ends the tail with a notice on the system stream.
func (m *Mux) Tail(r io.Reader, stream string) {
	source := make(chan Entry)
	m.Add(source)
	go func() {
		defer close(source)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			source <- Entry{Stream: stream, Line: strings.TrimRight(scanner.Text(), "\n")}
		}
		if err := scanner.Err(); err != nil {
			source <- Entry{Stream: StreamSystem, Line: fmt.Sprintf("%s: tail aborted: %v", stream, err)}
		}
	}()
}

// Close waits for all sources to be drained, emits any pending drop
// notices, and closes the output channel.
func (m *Mux) Close() {
	m.inputs.Wait()
	m.flushDrops()
	close(m.out)
}

func (m *Mux) deliver(entry Entry) {
	if !m.flushPending(entry.Stream) {
		m.recordDrops(entry.Stream, 1)
		return
	}
	if m.trySend(entry) {
		return
	}
	m.recordDrops(entry.Stream, 1)
}

func (m *Mux) flushPending(stream string) bool {
	for {
		count := m.takeDrops(stream)
		if count == 0 {
			return true
		}
		if m.trySend(dropNotice(stream, count)) {
			continue
		}
		m.recordDrops(stream, count)
		return false
	}
}

func (m *Mux) takeDrops(stream string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := m.drops[stream]
	if count != 0 {
		delete(m.drops, stream)
	}
	return count
}

func (m *Mux) recordDrops(stream string, count int) {
	if count <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drops[stream] += count
}

func (m *Mux) flushDrops() {
	m.mu.Lock()
	pending := m.drops
	m.drops = make(map[string]int)
	m.mu.Unlock()
	for stream, count := range pending {
		if count > 0 {
			m.out <- dropNotice(stream, count)
		}
	}
}

func (m *Mux) trySend(entry Entry) bool {
	select {
	case m.out <- entry:
		return true
	default:
		return false
	}
}

func normalize(entry Entry) Entry {
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}
	if entry.Stream == "" {
		entry.Stream = StreamStdout
	}
	return entry
}

func dropNotice(stream string, count int) Entry {
	return Entry{
		Time:   time.Now(),
		Stream: StreamSystem,
		Line:   fmt.Sprintf("%s: dropped=%d", stream, count),
	}
}
