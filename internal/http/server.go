// Package http exposes the synchronized views, mutations, projections
// and backup bundle over a JSON API.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Ryuko2/dinerito/internal/backend"
	"github.com/Ryuko2/dinerito/internal/log"
)

// Server handles the JSON API on top of a manager set.
type Server struct {
	managers *backend.Set
	logger   *log.Logger
	router   chi.Router

	// now is stubbed in projection tests.
	now func() time.Time
}

func NewServer(managers *backend.Set, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	s := &Server{
		managers: managers,
		logger:   logger.WithComponent(log.ComponentHTTP),
		now:      time.Now,
	}
	s.router = s.routes()
	return s
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Route("/collections/{collection}", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Post("/", s.handleAdd)
			r.Patch("/{id}", s.handleUpdate)
			r.Delete("/{id}", s.handleRemove)
		})

		r.Route("/projections", func(r chi.Router) {
			r.Get("/budgets", s.handleBudgetProjections)
			r.Get("/goals", s.handleGoalProjections)
			r.Get("/ratio", s.handleRatio)
		})

		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, ww.Status(),
			log.FieldDuration, time.Since(start).Milliseconds(),
		)
	})
}
