// Package server is the HTTP control surface: session runs streamed as
// server-sent events plus decision audit queries.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger
}

func New(port int, logger *slog.Logger, api *API) *Server {
	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "boardroom")
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Session streams run for the length of a discussion; only the audit
	// surface gets the request timeout.
	r.Post("/v1/sessions", api.handleCreateSession)

	r.Group(func(r chi.Router) {
		r.Use(TimeoutMiddleware(30 * time.Second))
		r.Get("/v1/audits/{auditID}", api.handleGetAudit)
		r.Get("/v1/audits/{auditID}/confidence", api.handleGetConfidence)
		r.Post("/v1/audits/{auditID}/outcome", api.handleRecordOutcome)
		r.Post("/v1/audits/{auditID}/feedback", api.handleAddFeedback)
		r.Post("/v1/audits/{auditID}/explain", api.handleExplain)
	})

	return &Server{
		Router: r,
		Port:   port,
		logger: logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting server", slog.Int("port", s.Port))
	return http.ListenAndServe(fmt.Sprintf(":%d", s.Port), s.Router)
}
