package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fiscstream/internal/config"
	"fiscstream/internal/stream"
)

// Upstream is the narrow seam to the LLM client, kept as an interface so the
// handler tests can script token sequences.
type Upstream interface {
	Stream(ctx context.Context, question string) (stream.TokenSource, error)
}

// App wires the router, configuration and shared stream statistics.
type App struct {
	Router   *chi.Mux
	cfg      config.Config
	upstream Upstream
	stats    *stream.Registry
}

func NewApp(cfg config.Config, upstream Upstream) *App {
	a := &App{
		cfg:      cfg,
		upstream: upstream,
		stats:    stream.NewRegistry(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	for _, path := range []string{"/healthz", "/readyz"} {
		r.Get(path, handleHealth)
		r.Head(path, handleHealth)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(a.requireAPIKey)
		r.Post("/advice/stream", a.handleStream)
		r.Post("/advice/blocks", a.handleBlocks)
		r.Get("/streams/{id}/stats", a.handleStats)
	})

	a.Router = r
	return a
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
