package serverhttp

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"theater-recon/internal/config"
	"theater-recon/internal/middleware"
	recHnd "theater-recon/internal/reconcile/handler"
	"theater-recon/server/http/handlers"
)

func NewRouter(cfg config.Config, logger zerolog.Logger, rec *recHnd.Handler) *chi.Mux {
	r := chi.NewRouter()

	// requestID first so panics and access lines carry the rid
	r.Use(middleware.RequestID())
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))
	r.Use(middleware.LimitBytes(int64(cfg.MaxUploadMB) * 1024 * 1024))

	r.Get("/health", handlers.Health)

	rec.Mount(r)

	return r
}
