// Package server exposes the claim decision pipeline over HTTP. Each module
// is mounted under its own prefix with its own credentials; nothing is shared
// between TP and CO except the process.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/gulfshield/claims-engine/internal/config"
	"github.com/gulfshield/claims-engine/internal/model"
	"github.com/gulfshield/claims-engine/internal/monitoring"
	"github.com/gulfshield/claims-engine/internal/pipeline"
	"github.com/gulfshield/claims-engine/internal/rules"
	"github.com/gulfshield/claims-engine/internal/store"
)

// Server handles claim decision requests for the configured modules.
type Server struct {
	cfg        *config.Config
	processors map[model.Module]*pipeline.Processor
	rules      map[model.Module]*rules.ModuleConfig
	store      store.Store
	checker    *monitoring.Checker
	collector  *monitoring.Collector
}

// New wires the HTTP server. store and checker may be nil; the endpoints that
// need them respond 503 instead.
func New(
	cfg *config.Config,
	processors map[model.Module]*pipeline.Processor,
	ruleSets map[model.Module]*rules.ModuleConfig,
	st store.Store,
	checker *monitoring.Checker,
) *Server {
	s := &Server{
		cfg:        cfg,
		processors: processors,
		rules:      ruleSets,
		store:      st,
		checker:    checker,
	}
	if st != nil {
		s.collector = monitoring.NewCollector(st)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Minute))
	r.Use(s.logRequests)

	allowed := s.cfg.Server.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/{module}", func(r chi.Router) {
		r.Use(s.moduleCtx)
		r.Use(s.basicAuth)
		r.Post("/process", s.handleProcess)
		r.Get("/config/prompts", s.handlePrompts)
		r.Get("/stats", s.handleStats)
		r.Get("/decisions", s.handleListDecisions)
		r.Get("/decisions/{id}", s.handleGetDecision)
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
