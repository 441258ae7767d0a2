package news

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"biaswatch/internal/handler/http/respond"
	"biaswatch/internal/usecase/search"
)

// Searcher answers a news query. *search.Waterfall implements it.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) (search.Result, error)
}

// SearchHandler serves GET /news/search?q=&limit=.
type SearchHandler struct{ Svc Searcher }

// ServeHTTP runs the search waterfall.
// limit defaults to 20. An unanswered query is a 200 with level "fallback".
func (h SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := search.DefaultLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respond.SafeError(w, http.StatusBadRequest,
				errors.New("invalid limit: must be a valid integer"))
			return
		}
		limit = n
	}

	res, err := h.Svc.Search(r.Context(), q.Get("q"), limit)
	if err != nil {
		if errors.Is(err, search.ErrInvalidQuery) || errors.Is(err, search.ErrInvalidLimit) {
			respond.SafeError(w, http.StatusBadRequest, respond.NewAppError(http.StatusBadRequest, err.Error(), nil))
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, toResponse(res))
}
