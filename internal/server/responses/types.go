// Package responses defines the JSON bodies written by docsync HTTP handlers.
package responses

import (
	"time"

	"github.com/evolvinglmms-lab/docsync/internal/eventstore"
)

// TimestampLayout renders UTC instants with millisecond precision and a Z
// suffix, e.g. 2025-01-02T03:04:05.678Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// SyncResponse is the body of a finished sync trigger. Success carries a
// message and timestamp; failure carries only the error.
type SyncResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
	RunID     string `json:"run_id,omitempty"`
}

// ErrorResponse is the body of a rejected request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    float64                `json:"uptime"`
	Pipelines []string               `json:"pipelines"`
	LastRun   *eventstore.RunSummary `json:"last_run,omitempty"`
}

// HistoryResponse lists recent runs, newest first.
type HistoryResponse struct {
	Runs []eventstore.RunSummary `json:"runs"`
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
