// Package handlers provides the HTTP handlers of the docsync trigger server.
package handlers

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/evolvinglmms-lab/docsync/internal/eventstore"
	"github.com/evolvinglmms-lab/docsync/internal/logfields"
	"github.com/evolvinglmms-lab/docsync/internal/server/responses"
	"github.com/evolvinglmms-lab/docsync/internal/trigger"
)

// Runner is the trigger surface the handlers drive.
type Runner interface {
	Run(ctx context.Context, req trigger.Request) trigger.Result
	History() *eventstore.HistoryProjection
	PipelineNames() []string
}

// writeJSON serializes the provided value to JSON and writes it with the given
// status code. Encoding is performed into an intermediate buffer so that a
// failed encode sends nothing.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(v); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed writing JSON response body", logfields.Error(err))
		return err
	}
	return nil
}

// writeJSONPretty pretty prints when pretty=1 or pretty=true is in the query.
// It falls back to compact form if marshalling fails for any reason.
func writeJSONPretty(w http.ResponseWriter, r *http.Request, status int, v any) error {
	if r != nil {
		if p := r.URL.Query().Get("pretty"); p == "1" || p == "true" {
			b, err := json.MarshalIndent(v, "", "  ")
			if err == nil {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(status)
				if _, werr := w.Write(append(b, '\n')); werr != nil {
					slog.Error("failed writing pretty JSON", logfields.Error(werr))
					return werr
				}
				return nil
			}
			slog.Warn("pretty JSON marshal failed, falling back to standard encode", logfields.Error(err))
		}
	}
	return writeJSON(w, status, v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, responses.ErrorResponse{Error: msg})
}

// bearerAuthorized reports whether r carries "Authorization: Bearer <key>".
// An empty key disables the check.
func bearerAuthorized(r *http.Request, key string) bool {
	if key == "" {
		return true
	}
	want := "Bearer " + key
	return subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), []byte(want)) == 1
}
