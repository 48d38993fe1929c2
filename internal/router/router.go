package router

import (
	"catalog-rest-api/internal/handler"
	"catalog-rest-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler     *handler.Handler
	ItemHandler *handler.ItemHandler
	NoteHandler *handler.NoteHandler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		if cfg.ItemHandler != nil {
			r.Route("/items", func(r chi.Router) {
				r.Get("/", cfg.ItemHandler.List)
				r.Post("/", cfg.ItemHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.ItemHandler.Get)
					r.Patch("/", cfg.ItemHandler.Update)
					r.Delete("/", cfg.ItemHandler.Delete)
				})
			})
		}

		if cfg.NoteHandler != nil {
			r.Route("/notes", func(r chi.Router) {
				r.Get("/", cfg.NoteHandler.List)
				r.Post("/", cfg.NoteHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.NoteHandler.Get)
					r.Patch("/", cfg.NoteHandler.Update)
					r.Delete("/", cfg.NoteHandler.Delete)
				})
			})
		}
	})

	return r
}
