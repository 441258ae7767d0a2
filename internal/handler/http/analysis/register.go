package analysis

import "net/http"

// Register mounts the analysis routes. guard wraps the handler and may be nil.
func Register(mux *http.ServeMux, svc BatchRunner, guard func(http.Handler) http.Handler) {
	var h http.Handler = BatchHandler{Svc: svc}
	if guard != nil {
		h = guard(h)
	}
	mux.Handle("POST /analyze/batch", h)
}
