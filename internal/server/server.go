// Package server exposes the pull request service over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/naka-gawa/pr-tracker/internal/config"
	"github.com/naka-gawa/pr-tracker/internal/domain"
	"github.com/naka-gawa/pr-tracker/internal/usecase"
)

type pullRequestService interface {
	ListPullRequests(ctx context.Context, username string, limit int) ([]domain.PullRequestSummary, error)
	SearchPullRequests(ctx context.Context, username, period string, page, perPage int) (*usecase.SearchResult, error)
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*domain.PullRequestDetail, error)
	HabitTracker(ctx context.Context, username, period string) (*domain.HabitTrackerData, error)
}

type quotaChecker interface {
	CheckQuota(ctx context.Context, resource domain.QuotaResource) domain.QuotaStatus
}

type Server struct {
	router  *chi.Mux
	log     *slog.Logger
	service pullRequestService
	quota   quotaChecker
	cfg     config.HTTPServer
	now     func() time.Time
}

func NewServer(cfg config.HTTPServer, service pullRequestService, quota quotaChecker, log *slog.Logger) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(newRequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Retry-After", "X-Request-Id"},
		MaxAge:         300,
	}))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	s := &Server{
		router:  r,
		log:     log,
		service: service,
		quota:   quota,
		cfg:     cfg,
		now:     time.Now,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/quota", s.handleQuota)
	s.router.Route("/pull-requests", func(r chi.Router) {
		r.Get("/", s.handleListPullRequests)
		r.Get("/search", s.handleSearchPullRequests)
		r.Get("/{owner}/{repo}/{number}", s.handleGetPullRequest)
	})
	s.router.Route("/habit-tracker", func(r chi.Router) {
		r.Get("/", s.handleHabitTracker)
		r.Get("/{username}", s.handleHabitTracker)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer wraps the router in an http.Server using the configured timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
}
