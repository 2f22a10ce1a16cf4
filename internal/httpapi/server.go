// Package httpapi exposes the intake service over HTTP: referral letter
// upload, the chat endpoint driving the conversation orchestrator, and
// the clinician-facing consultation queries.
package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/somnohealth/intakeflow/internal/referral"
	"github.com/somnohealth/intakeflow/internal/store"
	"github.com/somnohealth/intakeflow/pkg/intake"
)

const defaultMaxUploadBytes = 10 << 20

// Server bundles the dependencies required by the HTTP handlers.
type Server struct {
	orch      *intake.Orchestrator
	store     *store.Store
	extractor *referral.Extractor
	logger    *slog.Logger

	maxUploadBytes int64
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithMaxUploadBytes bounds referral letter upload size.
func WithMaxUploadBytes(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// NewServer constructs the HTTP server around the orchestrator, the
// consultation store, and the referral extractor.
func NewServer(orch *intake.Orchestrator, st *store.Store, ex *referral.Extractor, opts ...ServerOption) *Server {
	s := &Server{
		orch:           orch,
		store:          st,
		extractor:      ex,
		logger:         slog.Default(),
		maxUploadBytes: defaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed http.Handler for the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/referral-letter", s.handleReferralUpload)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/consultations/search", s.handleSearch)
	mux.HandleFunc("GET /api/consultations/{id}", s.handleConsultation)
	mux.HandleFunc("GET /api/statistics", s.handleStatistics)
	return mux
}

// statusForError maps domain errors onto HTTP status codes.
func statusForError(err error) int {
	var termErr *intake.TerminalConversationError
	switch {
	case errors.Is(err, intake.ErrUnknownConversation),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &termErr),
		errors.Is(err, intake.ErrNoReplyToRedeliver):
		return http.StatusConflict
	case errors.Is(err, intake.ErrConversationIDRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
