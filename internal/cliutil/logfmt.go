package cliutil

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/Paintersrp/reeve/internal/logmux"
)

// LogRecord represents a structured child-output event ready for JSON encoding.
type LogRecord struct {
	Timestamp time.Time `json:"ts"`
	Pid       int       `json:"pid"`
	Stream    string    `json:"stream"`
	Level     string    `json:"level"`
	Message   string    `json:"msg"`
}

// NewLogRecord converts a muxed output line into a structured log record.
// The level is inferred from the line text; lines synthesized by the mux
// itself (drop notices and the like) are flagged as warnings.
func NewLogRecord(pid int, entry logmux.Entry) LogRecord {
	level := inferLogLevel(entry.Line)
	if level == "" {
		if entry.Stream == logmux.StreamSystem {
			level = "warn"
		} else {
			level = "info"
		}
	}
	return LogRecord{
		Timestamp: entry.Time,
		Pid:       pid,
		Stream:    entry.Stream,
		Level:     level,
		Message:   RedactSecrets(entry.Line),
	}
}

var levelTokenPattern = regexp.MustCompile(`(?i)\b(error|warn|info)\b`)

func inferLogLevel(message string) string {
	matches := levelTokenPattern.FindStringSubmatch(message)
	if len(matches) < 2 {
		return ""
	}
	switch strings.ToLower(matches[1]) {
	case "error":
		return "error"
	case "warn":
		return "warn"
	case "info":
		return "info"
	default:
		return ""
	}
}

// EncodeLogEvent encodes an output line to JSON, reporting errors to stderr if needed.
func EncodeLogEvent(enc *json.Encoder, stderr io.Writer, pid int, entry logmux.Entry) {
	if enc == nil {
		return
	}
	record := NewLogRecord(pid, entry)
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if err := enc.Encode(&record); err != nil {
		fmt.Fprintf(stderr, "error: encode log: %v\n", err)
	}
}
