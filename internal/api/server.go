// SPDX-License-Identifier: MIT

// Package api exposes the recording studio over HTTP.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/loomverse/studio/internal/log"
	"github.com/loomverse/studio/internal/preview"
	"github.com/loomverse/studio/internal/studio"
)

// requestWindow is the sliding window for the per-client rate limit.
const requestWindow = time.Minute

// Options configure the HTTP surface.
type Options struct {
	// RequestsPerMinute is the per-client rate limit. Zero disables
	// limiting.
	RequestsPerMinute int
	Version           string
}

// Server routes HTTP traffic to the studio service.
type Server struct {
	studio *studio.Studio
	opts   Options
	logger zerolog.Logger
	router chi.Router

	// camera overlay placement, presentation state owned by the API
	pipMu sync.Mutex
	pip   preview.Corner
}

func NewServer(st *studio.Studio, opts Options) *Server {
	s := &Server{
		studio: st,
		opts:   opts,
		logger: log.WithComponent("api"),
	}
	s.router = s.newRouter()
	return s
}

// Handler returns the root handler, instrumented for tracing.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "studio-api")
}

func (s *Server) newRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)
	if s.opts.RequestsPerMinute > 0 {
		r.Use(httprate.LimitByIP(s.opts.RequestsPerMinute, requestWindow))
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/access", s.handleCheckAccess)

		r.Route("/session", func(r chi.Router) {
			r.Post("/", s.handleStartSession)
			r.Get("/", s.handleSessionStatus)
			r.Post("/cancel", s.handleCancelSession)
			r.Post("/pause", s.handlePauseSession)
			r.Post("/resume", s.handleResumeSession)
			r.Post("/stop", s.handleStopSession)
			r.Post("/discard", s.handleDiscardSession)
			r.Post("/save", s.handleSaveSession)
			r.Post("/pip", s.handleCyclePip)
		})

		r.Route("/recordings", func(r chi.Router) {
			r.Get("/", s.handleListRecordings)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRecording)
				r.Patch("/", s.handleUpdateRecording)
				r.Delete("/", s.handleDeleteRecording)
				r.Post("/view", s.handleViewRecording)
				r.Post("/share", s.handleShareRecording)
				r.Post("/enrich", s.handleEnrichRecording)
				r.Post("/transcript/clean", s.handleCleanTranscript)
				r.Get("/media", s.handleMedia)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.opts.Version,
	})
}
