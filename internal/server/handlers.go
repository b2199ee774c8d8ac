package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/naka-gawa/pr-tracker/internal/domain"
)

func (s *Server) logFor(r *http.Request, op string) *slog.Logger {
	return s.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// queryInt reads an optional integer query parameter; absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) handleQuota(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	core := s.quota.CheckQuota(ctx, domain.QuotaResourceCore)
	graphql := s.quota.CheckQuota(ctx, domain.QuotaResourceGraphQL)

	render.JSON(w, r, QuotaResponse{
		Core:    QuotaEntry{QuotaStatus: core, Severity: core.Severity()},
		GraphQL: QuotaEntry{QuotaStatus: graphql, Severity: graphql.Severity()},
	})
}

func (s *Server) handleListPullRequests(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleListPullRequests"
	log := s.logFor(r, op)

	username := r.URL.Query().Get("username")
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}

	items, err := s.service.ListPullRequests(r.Context(), username, limit)
	if err != nil {
		s.writeError(w, r, log, err)
		return
	}
	render.JSON(w, r, ListResponse{
		Data: items,
		Meta: ListMeta{Username: username, Count: len(items)},
	})
}

func (s *Server) handleSearchPullRequests(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSearchPullRequests"
	log := s.logFor(r, op)

	q := r.URL.Query()
	page, err := queryInt(r, "page")
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	perPage, err := queryInt(r, "per_page")
	if err != nil {
		s.badRequest(w, r, err.Error())
		return
	}

	result, err := s.service.SearchPullRequests(r.Context(), q.Get("username"), q.Get("period"), page, perPage)
	if err != nil {
		s.writeError(w, r, log, err)
		return
	}
	render.JSON(w, r, result)
}

func (s *Server) handleGetPullRequest(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleGetPullRequest"
	log := s.logFor(r, op)

	owner := chi.URLParam(r, "owner")
	repo := chi.URLParam(r, "repo")
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || number <= 0 {
		s.badRequest(w, r, "pull request number must be a positive integer")
		return
	}

	detail, err := s.service.GetPullRequest(r.Context(), owner, repo, number)
	if err != nil {
		s.writeError(w, r, log, err)
		return
	}
	render.JSON(w, r, detail)
}

func (s *Server) handleHabitTracker(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleHabitTracker"
	log := s.logFor(r, op)

	username := strings.TrimSpace(chi.URLParam(r, "username"))
	if username == "" {
		s.badRequest(w, r, "username is required")
		return
	}
	period, err := domain.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		s.writeError(w, r, log, err)
		return
	}

	data, err := s.service.HabitTracker(r.Context(), username, string(period))
	if err != nil {
		s.writeError(w, r, log, err)
		return
	}
	render.JSON(w, r, HabitTrackerResponse{
		Data: data,
		Meta: HabitTrackerMeta{
			Username:    username,
			Period:      period,
			GeneratedAt: s.now().UTC(),
		},
	})
}
