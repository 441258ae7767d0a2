// Package analysis exposes the AI bias-analysis batch over HTTP.
package analysis

import (
	"context"
	"errors"
	"net/http"
	"time"

	"biaswatch/internal/handler/http/respond"
	analysisUC "biaswatch/internal/usecase/analysis"
)

// RequestTimeout bounds POST /analyze/batch. It is longer than the
// scheduler's batch timeout so the outcome is always written.
const RequestTimeout = 180 * time.Second

// BatchRunner analyzes pending articles. *analysisUC.Scheduler implements it.
type BatchRunner interface {
	AnalyzeBatch(ctx context.Context, limit int) (analysisUC.Outcome, error)
}

type batchRequest struct {
	Limit *int `json:"limit"`
}

// BatchHandler serves POST /analyze/batch.
type BatchHandler struct{ Svc BatchRunner }

// ServeHTTP analyzes up to limit unanalyzed articles. Body: {"limit": 10}, optional.
// Per-article failures are listed in the outcome; the status stays 200.
func (h BatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	limit := analysisUC.DefaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	if err := analysisUC.ValidateLimit(limit); err != nil {
		writeError(w, err)
		return
	}

	out, err := h.Svc.AnalyzeBatch(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if out.Failures == nil {
		out.Failures = []analysisUC.Failure{}
	}
	respond.JSON(w, http.StatusOK, out)
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, analysisUC.ErrInvalidLimit) {
		respond.SafeError(w, http.StatusBadRequest, respond.NewAppError(http.StatusBadRequest, err.Error(), nil))
		return
	}
	respond.SafeError(w, http.StatusInternalServerError, err)
}
