package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// AuditFile is the name of the audit log inside an audit directory.
const AuditFile = "audit.jsonl"

// AuditEntry represents a single audit log entry for an MCP tool invocation.
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"` // "success" or "error"
	Error      string            `json:"error,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// AuditLogger writes audit entries to a JSONL file. It is safe for
// concurrent use. A nil AuditLogger is safe to use; all methods are no-ops
// on nil receiver.
type AuditLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewAuditLogger creates an audit logger writing to dir/audit.jsonl.
// If the file cannot be created, a warning is printed to stderr and nil is
// returned (non-fatal).
func NewAuditLogger(dir string) *AuditLogger {
	if err := os.MkdirAll(dir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot create audit log directory %s: %v\n", dir, err)
		return nil
	}

	path := filepath.Join(dir, AuditFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot open audit log %s: %v\n", path, err)
		return nil
	}

	return &AuditLogger{file: f}
}

// Log appends a JSON-encoded entry as a single line. Safe to call on nil
// receiver.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return // silently skip malformed entries
	}
	data = append(data, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file != nil {
		_, _ = a.file.Write(data)
	}
}

// Close closes the audit log file. Safe to call on nil receiver and more
// than once.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// paramsMetadata flattens the overrides a caller set into loggable strings.
// Unset overrides are omitted. A "_param_count" key is always included.
func paramsMetadata(in ParamsInput, extra map[string]any) map[string]string {
	result := make(map[string]string)

	set := map[string]any{}
	if in.NumAgents != nil {
		set["num_agents"] = *in.NumAgents
	}
	if in.Levels != nil {
		set["levels"] = *in.Levels
	}
	if in.AssessmentError != nil {
		set["assessment_error"] = *in.AssessmentError
	}
	if in.PerceptionError != nil {
		set["perception_error"] = *in.PerceptionError
	}
	if in.Generosity != nil {
		set["generosity"] = *in.Generosity
	}
	if in.DonatePayoff != nil {
		set["donate_payoff"] = *in.DonatePayoff
	}
	if in.ReceivePayoff != nil {
		set["receive_payoff"] = *in.ReceivePayoff
	}
	if in.Beta != nil {
		set["beta"] = *in.Beta
	}
	for k, v := range extra {
		set[k] = v
	}

	for k, v := range set {
		result[k] = fmt.Sprintf("%v", v)
	}
	result["_param_count"] = fmt.Sprintf("%d", len(set))

	return result
}

// formatValues renders a sweep's values compactly, truncating long lists.
func formatValues(values []float64) string {
	const limit = 8
	parts := make([]string, 0, limit+1)
	for i, v := range values {
		if i == limit {
			parts = append(parts, fmt.Sprintf("...(%d more)", len(values)-limit))
			break
		}
		parts = append(parts, fmt.Sprintf("%g", v))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// auditTool logs a tool invocation to the audit log.
func (s *Server) auditTool(toolName string, start time.Time, err error, params map[string]string) {
	status := "success"
	errMsg := ""
	if err != nil {
		status = "error"
		errMsg = err.Error()
	}

	s.auditLogger.Log(AuditEntry{
		Timestamp:  start,
		Tool:       toolName,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     status,
		Error:      errMsg,
		Params:     params,
	})

	if s.logger.Enabled(context.Background(), slog.LevelDebug) {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		attrs := []any{"tool", toolName, "status", status, "elapsed", time.Since(start)}
		for _, k := range keys {
			attrs = append(attrs, k, params[k])
		}
		s.logger.Debug("mcp tool call", attrs...)
	}
}
