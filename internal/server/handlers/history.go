package handlers

import (
	"log/slog"
	"net/http"

	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
	"github.com/evolvinglmms-lab/docsync/internal/server/responses"
)

// HistoryHandlers expose the run history projection.
type HistoryHandlers struct {
	runner       Runner
	apiKey       string
	errorAdapter *errors.HTTPErrorAdapter
}

// NewHistoryHandlers creates history handlers guarded by apiKey when set.
func NewHistoryHandlers(runner Runner, apiKey string) *HistoryHandlers {
	return &HistoryHandlers{
		runner:       runner,
		apiKey:       apiKey,
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleHistory lists recent runs, or one run when ?run=<id> is given.
func (h *HistoryHandlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if !bearerAuthorized(r, h.apiKey) {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	history := h.runner.History()
	if history == nil {
		h.errorAdapter.WriteErrorResponse(w, r, errors.NotFoundError("run history is disabled").Build())
		return
	}

	if id := r.URL.Query().Get("run"); id != "" {
		run, ok := history.Run(id)
		if !ok {
			h.errorAdapter.WriteErrorResponse(w, r,
				errors.NotFoundError("run not found").WithContext("run_id", id).Build())
			return
		}
		h.write(w, r, run)
		return
	}

	h.write(w, r, responses.HistoryResponse{Runs: history.History()})
}

func (h *HistoryHandlers) write(w http.ResponseWriter, r *http.Request, v any) {
	if err := writeJSONPretty(w, r, http.StatusOK, v); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryInternal, "failed to write history response").Build())
	}
}
