// Package ingest exposes feed ingestion and its status over HTTP.
package ingest

import (
	"context"
	"errors"
	"net/http"

	"biaswatch/internal/domain/entity"
	"biaswatch/internal/handler/http/respond"
	"biaswatch/internal/repository"
	ingestUC "biaswatch/internal/usecase/ingest"
)

// GlobalRunner ingests every category. *ingestUC.GlobalIngestor implements it.
type GlobalRunner interface {
	IngestAll(ctx context.Context, pageSize int) (ingestUC.Summary, error)
}

// StatsReader reports stored article counts.
type StatsReader interface {
	Stats(ctx context.Context) (repository.ArticleStats, error)
}

// StatusReader reports the latest runs of this process.
type StatusReader interface {
	Snapshot() ingestUC.Snapshot
}

type categoryRequest struct {
	Category string `json:"category"`
	PageSize *int   `json:"pageSize"`
}

type allRequest struct {
	PageSize *int `json:"pageSize"`
}

// CategoryHandler serves POST /ingest/news.
type CategoryHandler struct{ Svc ingestUC.CategoryRunner }

// ServeHTTP ingests one category.
// Body: {"category": "deportes", "pageSize": 20}. pageSize defaults to 20.
// Unreachable sources are reported in the result, not as an error.
func (h CategoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	category, err := entity.ParseCategory(req.Category)
	if err != nil {
		writeError(w, err)
		return
	}
	pageSize, err := pageSizeOrDefault(req.PageSize)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.Svc.IngestCategory(r.Context(), category, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// AllHandler serves POST /ingest/all.
type AllHandler struct{ Svc GlobalRunner }

// ServeHTTP ingests every category. Body: {"pageSize": 20}, optional.
func (h AllHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req allRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	pageSize, err := pageSizeOrDefault(req.PageSize)
	if err != nil {
		writeError(w, err)
		return
	}

	summary, err := h.Svc.IngestAll(r.Context(), pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, summary)
}

// StatusResponse is the body of GET /ingest/status.
type StatusResponse struct {
	Articles repository.ArticleStats `json:"articles"`
	ingestUC.Snapshot
}

// StatusHandler serves GET /ingest/status.
type StatusHandler struct {
	Stats  StatsReader
	Status StatusReader
}

func (h StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats.Stats(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := StatusResponse{Articles: stats}
	if h.Status != nil {
		resp.Snapshot = h.Status.Snapshot()
	}
	if resp.Categories == nil {
		resp.Categories = map[entity.Category]ingestUC.Run[ingestUC.Result]{}
	}
	respond.JSON(w, http.StatusOK, resp)
}

func pageSizeOrDefault(p *int) (int, error) {
	if p == nil {
		return ingestUC.DefaultPageSize, nil
	}
	if err := ingestUC.ValidatePageSize(*p); err != nil {
		return 0, err
	}
	return *p, nil
}

// writeError maps input errors to 400 and everything else to 500.
func writeError(w http.ResponseWriter, err error) {
	var ve *entity.ValidationError
	switch {
	case errors.As(err, &ve):
		respond.SafeError(w, http.StatusBadRequest, respond.NewAppError(http.StatusBadRequest, ve.Message, nil))
	case errors.Is(err, ingestUC.ErrInvalidPageSize):
		respond.SafeError(w, http.StatusBadRequest, respond.NewAppError(http.StatusBadRequest, err.Error(), nil))
	default:
		respond.SafeError(w, http.StatusInternalServerError, err)
	}
}
