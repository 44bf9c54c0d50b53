// Package logging provides leveled logging and computation tracing for
// coopindex. It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - An EventLogger for structured JSONL computation traces (events.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug. At this level every
// stationary solve is logged, not only the fixation and sweep summaries.
const LevelTrace = slog.LevelDebug - 4

// EventsFile is the name of the JSONL trace inside a trace directory.
const EventsFile = "events.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// EventLogger writes structured computation events to a JSONL file.
// It is safe for concurrent use. A nil EventLogger is safe to use;
// all methods are no-ops on nil receiver.
type EventLogger struct {
	mu    sync.Mutex
	file  *os.File
	trace bool
}

// NewEventLogger creates an event logger writing to dir/events.jsonl.
// At "info" level, or with an empty dir, it returns nil and no file is
// created. Returns nil if the file cannot be opened.
func NewEventLogger(dir string, level string) *EventLogger {
	lvl := ParseLevel(level)
	if lvl == slog.LevelInfo || dir == "" {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	f, err := os.OpenFile(filepath.Join(dir, EventsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &EventLogger{file: f, trace: lvl <= LevelTrace}
}

// Tracing reports whether per-solve events should be recorded.
func (el *EventLogger) Tracing() bool {
	return el != nil && el.trace
}

// Log writes an event as a single JSONL line. The kind is stored under
// "event" and a "time" field is added. The caller's map is not mutated.
func (el *EventLogger) Log(kind string, fields map[string]any) {
	if el == nil || el.file == nil {
		return
	}

	entry := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		entry[k] = v
	}
	entry["event"] = kind
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	el.mu.Lock()
	defer el.mu.Unlock()
	if el.file != nil {
		_, _ = el.file.Write(data)
	}
}

// Close closes the underlying file. Safe to call on nil receiver.
func (el *EventLogger) Close() {
	if el == nil {
		return
	}

	el.mu.Lock()
	defer el.mu.Unlock()

	if el.file != nil {
		el.file.Close()
		el.file = nil
	}
}
