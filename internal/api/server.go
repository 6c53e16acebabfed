// Package api exposes a persistence collaborator over REST so that a remote
// client can drive the task store.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sandeepkv93/todod/internal/store"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const HealthPath = "/health"

type Server struct {
	backend store.Persistence
	logger  *zap.Logger
	token   string
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithToken requires "Authorization: Bearer <token>" on every route except
// the health check. An empty token disables the check.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

func NewServer(backend store.Persistence, opts ...Option) *Server {
	s := &Server{backend: backend, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the chi router without tracing.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)

	r.Get(HealthPath, s.health)

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)

		r.Route("/todos", func(r chi.Router) {
			r.Get("/", s.listTodos)
			r.Post("/", s.createTodo)
			r.Post("/bulk-delete", s.bulkDelete)
			r.Put("/order", s.reorder)
			r.Put("/{id}", s.updateTodo)
			r.Delete("/{id}", s.deleteTodo)
			r.Patch("/{id}/toggle", s.toggleTodo)
		})
		r.Get("/categories", s.categories)
		r.Get("/stats", s.stats)
	})
	return r
}

// Handler wraps Routes with OpenTelemetry HTTP instrumentation. Health
// checks are not traced.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.Routes(), "todod-api",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != HealthPath
		}),
	)
}
