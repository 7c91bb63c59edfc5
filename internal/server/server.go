package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/techmentor/gateway/internal/config"
	"github.com/techmentor/gateway/internal/gate"
	"github.com/techmentor/gateway/internal/health"
	"github.com/techmentor/gateway/internal/llm"
	"github.com/techmentor/gateway/internal/review"
	"github.com/techmentor/gateway/internal/session"
)

// Completer is the completion surface the chat handlers need. *llm.Client
// implements it; tests substitute fakes.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
	Stream(ctx context.Context, messages []llm.Message, onDelta func(string)) (string, error)
}

// Reviewer runs the document review pipeline.
type Reviewer interface {
	Review(ctx context.Context, sessionID, uniReq, mimeType string, data []byte) (review.Result, error)
}

// HealthReader exposes the monitor's snapshot to the liveness endpoints.
type HealthReader interface {
	Snapshot() health.State
}

// Server is the TechMentor backend gateway HTTP surface.
type Server struct {
	cfg        *config.Config
	gate       *gate.Gate
	sessions   session.Store
	completer  Completer
	reviewer   Reviewer
	monitor    HealthReader
	router     chi.Router
	httpServer *http.Server
}

// New creates a Server with all dependencies wired in.
func New(cfg *config.Config, g *gate.Gate, sessions session.Store, completer Completer, reviewer Reviewer, monitor HealthReader) *Server {
	s := &Server{
		cfg:       cfg,
		gate:      g,
		sessions:  sessions,
		completer: completer,
		reviewer:  reviewer,
		monitor:   monitor,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Liveness endpoints stay outside the rate limit so probes and
	// orchestrators are never shed.
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Group(func(r chi.Router) {
		r.Use(rateLimit(s.cfg.RateMax, s.cfg.RateWindow))
		r.Post("/chat", s.handleChat)
		r.Post("/chat/stream", s.handleChatStream)
		r.Post("/upload-review", s.handleUploadReview)
	})

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// WriteTimeout must cover the whole streaming relay, which is
		// bounded by the upstream request timeout plus client drain time.
		WriteTimeout: s.cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("server: mentorgate listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
