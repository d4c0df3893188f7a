package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/evolvinglmms-lab/docsync/internal/forge"
	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
	"github.com/evolvinglmms-lab/docsync/internal/logfields"
	"github.com/evolvinglmms-lab/docsync/internal/server/responses"
	"github.com/evolvinglmms-lab/docsync/internal/trigger"
)

// maxWebhookBody matches GitHub's delivery size cap.
const maxWebhookBody = 25 << 20

const (
	msgInvalidSignature = "Invalid signature"
	msgUnauthorized     = "Unauthorized"
)

// SyncConfig holds the credentials and defaults of the sync endpoints.
type SyncConfig struct {
	// WebhookSecret enables signature checks on POST when set.
	WebhookSecret string
	// APIKey enables bearer authentication on GET when set.
	APIKey string
	// Pipelines are synced when a request names none; empty means all.
	Pipelines []string
}

// SyncHandlers serve the webhook and manual sync triggers.
type SyncHandlers struct {
	runner       Runner
	cfg          SyncConfig
	errorAdapter *errors.HTTPErrorAdapter
}

// NewSyncHandlers creates the sync trigger handlers.
func NewSyncHandlers(runner Runner, cfg SyncConfig) *SyncHandlers {
	return &SyncHandlers{
		runner:       runner,
		cfg:          cfg,
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleWebhook handles POST deliveries. The signature is checked over the raw
// body before anything else is done with it.
func (h *SyncHandlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryValidation, "failed to read request body").Build())
		return
	}

	if h.cfg.WebhookSecret != "" &&
		!forge.ValidateSignature(body, r.Header.Get(forge.SignatureHeader), h.cfg.WebhookSecret) {
		slog.Warn("Rejected webhook delivery with invalid signature", logfields.RemoteAddr(r.RemoteAddr))
		writeError(w, http.StatusUnauthorized, msgInvalidSignature)
		return
	}

	attrs := []any{slog.String("event", r.Header.Get(forge.EventHeader))}
	if ev, perr := forge.ParsePushEvent(body); perr == nil {
		attrs = append(attrs, slog.String("repository", ev.Repository), logfields.Ref(ev.Ref))
	}
	slog.Info("Webhook delivery accepted", attrs...)

	h.run(w, r, trigger.Request{Source: trigger.SourceWebhook, Pipelines: h.cfg.Pipelines})
}

// HandleManual handles GET triggers. Optional query parameters: pipeline
// (repeatable or comma separated) and force.
func (h *SyncHandlers) HandleManual(w http.ResponseWriter, r *http.Request) {
	if !bearerAuthorized(r, h.cfg.APIKey) {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	q := r.URL.Query()
	req := trigger.Request{Source: trigger.SourceManual, Pipelines: h.cfg.Pipelines}
	if names := splitList(q["pipeline"]); len(names) > 0 {
		req.Pipelines = names
	}
	if raw := q.Get("force"); raw != "" {
		force, err := strconv.ParseBool(raw)
		if err != nil {
			h.errorAdapter.WriteErrorResponse(w, r,
				errors.ValidationError("force must be a boolean").WithContext("force", raw).Build())
			return
		}
		req.Force = force
	}

	h.run(w, r, req)
}

// run executes req and writes the trigger result. The sync is detached from
// the request's cancellation so a dropped client does not abort a run midway.
func (h *SyncHandlers) run(w http.ResponseWriter, r *http.Request, req trigger.Request) {
	result := h.runner.Run(context.WithoutCancel(r.Context()), req)
	if result.Success {
		_ = writeJSON(w, http.StatusOK, responses.SyncResponse{
			Success:   true,
			Message:   result.Message,
			Timestamp: responses.FormatTimestamp(result.Timestamp),
			RunID:     result.RunID,
		})
		return
	}

	status := http.StatusInternalServerError
	if trigger.IsUnknownPipeline(result.Err) {
		status = http.StatusNotFound
	}
	_ = writeJSON(w, status, responses.SyncResponse{Success: false, Error: result.Error, RunID: result.RunID})
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
