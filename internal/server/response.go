package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"
	"github.com/naka-gawa/pr-tracker/internal/domain"
	"github.com/naka-gawa/pr-tracker/internal/logging"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type ListMeta struct {
	Username string `json:"username"`
	Count    int    `json:"count"`
}

type ListResponse struct {
	Data []domain.PullRequestSummary `json:"data"`
	Meta ListMeta                    `json:"meta"`
}

type HabitTrackerMeta struct {
	Username    string        `json:"username"`
	Period      domain.Period `json:"period"`
	GeneratedAt time.Time     `json:"generatedAt"`
}

type HabitTrackerResponse struct {
	Data *domain.HabitTrackerData `json:"data"`
	Meta HabitTrackerMeta         `json:"meta"`
}

type QuotaResponse struct {
	Core    QuotaEntry `json:"core"`
	GraphQL QuotaEntry `json:"graphql"`
}

type QuotaEntry struct {
	domain.QuotaStatus
	Severity domain.QuotaSeverity `json:"severity"`
}

const internalMessage = "failed to fetch data from GitHub"

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.ErrorKindValidation:
		return http.StatusBadRequest
	case domain.ErrorKindNotFound:
		return http.StatusNotFound
	case domain.ErrorKindInsufficientQuota,
		domain.ErrorKindPrimaryQuotaExhausted,
		domain.ErrorKindSecondaryQuotaExhausted:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status code. Unclassified errors are logged and answered with a
// generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)

	message := internalMessage
	var de *domain.Error
	if errors.As(err, &de) && status != http.StatusInternalServerError {
		message = de.Message
		if de.ResetAt != nil {
			if wait := time.Until(*de.ResetAt); wait > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
			}
		}
	}

	if status == http.StatusInternalServerError {
		log.Error("request failed", logging.Err(err))
	} else {
		log.Info("request rejected", slog.String("kind", string(kind)), logging.Err(err))
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: string(kind), Message: message})
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Error: string(domain.ErrorKindValidation), Message: message})
}
