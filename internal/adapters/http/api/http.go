// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/almog/internal/app"
	"github.com/okian/almog/internal/adapters/repository"
	"github.com/okian/almog/internal/domain/notes"
	"github.com/okian/almog/internal/domain/week"
	"github.com/okian/almog/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RunDependencies
	WeeksDependencies
	NotesDependencies
	SessionsDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	weeklyHandler   *WeeklyHandler
	scoresHandler   *ScoresHandler
	weeksHandler    *WeeksHandler
	notesHandler    *NotesHandler
	sessionsHandler *SessionsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		weeklyHandler:   NewWeeklyHandler(deps),
		scoresHandler:   NewScoresHandler(deps),
		weeksHandler:    NewWeeksHandler(deps),
		notesHandler:    NewNotesHandler(deps),
		sessionsHandler: NewSessionsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/weekly", MetricsMiddleware(s.weeklyHandler.HandleGetWeekly, "weekly"))
	mux.HandleFunc("/scores", MetricsMiddleware(s.scoresHandler.HandleGetScores, "scores"))
	mux.HandleFunc("/weeks", MetricsMiddleware(s.weeksHandler.HandleGetWeeks, "weeks"))
	mux.HandleFunc("/notes", MetricsMiddleware(s.notesHandler.HandlePostNote, "notes"))
	mux.HandleFunc("/sessions", MetricsMiddleware(s.sessionsHandler.HandlePostSessions, "sessions"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps err onto a status code and writes it.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= statusInternalError {
		logger.Named("api").Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path), logger.Int("status", status), logger.Error(err))
	}
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, week.ErrInvalidKey),
		errors.Is(err, notes.ErrInvalidTarget),
		errors.Is(err, notes.ErrEmptyPlaceholder),
		errors.Is(err, notes.ErrUnknownMode):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, notes.ErrNoSessions):
		return http.StatusNotFound, "no_sessions"
	case errors.Is(err, notes.ErrWeekHasSessions):
		return http.StatusConflict, "week_has_sessions"
	case errors.Is(err, repository.ErrUnavailable), errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}

// allow writes 405 and returns false unless r uses one of methods.
func allow(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	for _, m := range methods {
		w.Header().Add("Allow", m)
	}
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
	return false
}
