package news

import "net/http"

// Register mounts the news routes. guard wraps the handler and may be nil.
func Register(mux *http.ServeMux, svc Searcher, guard func(http.Handler) http.Handler) {
	var h http.Handler = SearchHandler{Svc: svc}
	if guard != nil {
		h = guard(h)
	}
	mux.Handle("GET /news/search", h)
}
