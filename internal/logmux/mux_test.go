package logmux

import (
	"strings"
	"testing"
	"time"
)

func TestMuxFansInMultipleSources(t *testing.T) {
	mux := New(4)
	src1 := make(chan Entry)
	src2 := make(chan Entry)

	mux.Add(src1)
	mux.Add(src2)

	go func() {
		src1 <- Entry{Stream: StreamStdout, Line: "out ready"}
		src1 <- Entry{Stream: StreamStdout, Line: "out ok"}
		close(src1)
	}()

	go func() {
		src2 <- Entry{Stream: StreamStderr, Line: "err ready"}
		close(src2)
	}()

	go mux.Close()

	var streams []string
	var lines []string
	for entry := range mux.Output() {
		streams = append(streams, entry.Stream)
		lines = append(lines, entry.Line)
		if entry.Time.IsZero() {
			t.Fatal("entry missing normalized timestamp")
		}
	}

	if len(lines) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(lines))
	}

	expectedStreams := []string{StreamStdout, StreamStdout, StreamStderr}
	expectedLines := []string{"out ready", "out ok", "err ready"}
	for i := range expectedStreams {
		if streams[i] != expectedStreams[i] {
			t.Fatalf("entry %d stream mismatch: got %s want %s", i, streams[i], expectedStreams[i])
		}
		if lines[i] != expectedLines[i] {
			t.Fatalf("entry %d line mismatch: got %s want %s", i, lines[i], expectedLines[i])
		}
	}
}

func TestMuxEmitsDropNotices(t *testing.T) {
	mux := New(1)
	src := make(chan Entry)

	mux.Add(src)

	done := make(chan struct{})
	go func() {
		src <- Entry{Stream: StreamStdout, Line: "line-1"}
		src <- Entry{Stream: StreamStdout, Line: "line-2"}
		src <- Entry{Stream: StreamStdout, Line: "line-3"}
		close(src)
		close(done)
	}()

	<-done

	go mux.Close()

	var entries []Entry
	for entry := range mux.Output() {
		entries = append(entries, entry)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries (1 line + 1 notice), got %d", len(entries))
	}

	if entries[0].Line != "line-1" {
		t.Fatalf("expected first entry to be the original line, got %q", entries[0].Line)
	}

	notice := entries[1]
	if notice.Stream != StreamSystem {
		t.Fatalf("notice stream mismatch: got %s", notice.Stream)
	}
	if notice.Line != "stdout: dropped=2" {
		t.Fatalf("expected drop notice, got %q", notice.Line)
	}
	if time.Since(notice.Time) > time.Second {
		t.Fatalf("expected recent timestamp, got %v", notice.Time)
	}
}

func TestTailCarriesLongLines(t *testing.T) {
	long := strings.Repeat("x", 256*1024)
	mux := New(4)
	mux.Tail(strings.NewReader(long+"\nshort\n"), StreamStdout)

	go mux.Close()

	var lines []string
	for entry := range mux.Output() {
		if entry.Stream != StreamStdout {
			t.Fatalf("entry stream = %s, want stdout", entry.Stream)
		}
		lines = append(lines, entry.Line)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(lines))
	}
	if lines[0] != long || lines[1] != "short" {
		t.Fatalf("long line not delivered intact (lengths %d, %d)", len(lines[0]), len(lines[1]))
	}
}

func TestTailReportsScanFailure(t *testing.T) {
	// A line over the tail limit makes the scanner fail; the failure must
	// surface as a system-stream notice rather than a silent stop.
	over := strings.Repeat("y", maxLineBytes+1)
	mux := New(4)
	mux.Tail(strings.NewReader(over), StreamStderr)

	go mux.Close()

	var entries []Entry
	for entry := range mux.Output() {
		entries = append(entries, entry)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 notice entry, got %d", len(entries))
	}
	notice := entries[0]
	if notice.Stream != StreamSystem {
		t.Fatalf("notice stream = %s, want system", notice.Stream)
	}
	if !strings.Contains(notice.Line, "stderr: tail aborted") {
		t.Fatalf("notice = %q, want tail abort for stderr", notice.Line)
	}
}

func TestTailScansReaderLines(t *testing.T) {
	mux := New(8)
	mux.Tail(strings.NewReader("first\nsecond\n"), StreamStderr)

	go mux.Close()

	var lines []string
	for entry := range mux.Output() {
		if entry.Stream != StreamStderr {
			t.Fatalf("entry stream = %s, want stderr", entry.Stream)
		}
		lines = append(lines, entry.Line)
	}
	if len(lines) != 2 || lines[0] != "first" || lines[1] != "second" {
		t.Fatalf("tailed lines = %v", lines)
	}
}
