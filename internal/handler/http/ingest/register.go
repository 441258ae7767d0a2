package ingest

import (
	"net/http"

	ingestUC "biaswatch/internal/usecase/ingest"
)

// Guards wrap each route, typically with its own throttle. Nil leaves the
// route unwrapped.
type Guards struct {
	All      func(http.Handler) http.Handler
	Category func(http.Handler) http.Handler
	Status   func(http.Handler) http.Handler
}

// Deps are the use cases behind the ingestion routes.
type Deps struct {
	Category ingestUC.CategoryRunner
	All      GlobalRunner
	Stats    StatsReader
	Status   StatusReader
}

// Register mounts the ingestion routes on mux.
func Register(mux *http.ServeMux, deps Deps, guards Guards) {
	mux.Handle("POST /ingest/news", wrap(guards.Category, CategoryHandler{deps.Category}))
	mux.Handle("POST /ingest/all", wrap(guards.All, AllHandler{deps.All}))
	mux.Handle("GET /ingest/status", wrap(guards.Status, StatusHandler{Stats: deps.Stats, Status: deps.Status}))
}

func wrap(mw func(http.Handler) http.Handler, h http.Handler) http.Handler {
	if mw == nil {
		return h
	}
	return mw(h)
}
