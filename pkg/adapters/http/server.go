package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/internal/normalize"
	"github.com/aretw0/concierge/internal/presentation/graph"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxRequestBody caps JSON request bodies.
const maxRequestBody = 64 << 10

// Server exposes the session manager to the chat widget.
type Server struct {
	Sessions *session.Manager
	Streams  *StreamManager

	metrics        http.Handler
	allowedOrigins []string
	logger         *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler replaces the /metrics handler (default: promhttp.Handler()).
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithAllowedOrigins sets the origin patterns accepted for the websocket stream and CORS.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// NewServer creates a Server over sessions. streams must be the manager whose hooks are
// installed on the conversations the session factory builds.
func NewServer(sessions *session.Manager, streams *StreamManager, opts ...Option) *Server {
	s := &Server{
		Sessions:       sessions,
		Streams:        streams,
		metrics:        promhttp.Handler(),
		allowedOrigins: []string{"*"},
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Method(http.MethodGet, "/metrics", s.metrics)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.OpenSession)
		r.Get("/", s.ListSessions)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.CloseSession)
			r.Post("/options", s.SelectOption)
			r.Post("/options/retry", s.RetryOptions)
			r.Post("/messages", s.SubmitText)
			r.Post("/domain", s.SwitchDomain)
			r.Get("/stream", s.Stream)
			r.Get("/events", s.Events)
			r.Get("/graph", s.GetGraph)
		})
	})

	return r
}

func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin, ok := s.allowOrigin(r.Header.Get("Origin")); ok {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Add("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allowOrigin returns the Access-Control-Allow-Origin value for a request origin. Patterns
// follow the websocket OriginPatterns syntax (path.Match) and are tried against the full
// origin and against its host.
func (s *Server) allowOrigin(origin string) (string, bool) {
	if slices.Contains(s.allowedOrigins, "*") {
		return "*", true
	}
	if origin == "" {
		return "", false
	}
	host := origin
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		host = u.Host
	}
	for _, pattern := range s.allowedOrigins {
		pattern = strings.ToLower(pattern)
		for _, candidate := range []string{strings.ToLower(origin), strings.ToLower(host)} {
			if ok, err := path.Match(pattern, candidate); err == nil && ok {
				return origin, true
			}
		}
	}
	return "", false
}

type domainRequest struct {
	Domain string `json:"domain"`
}

type optionRequest struct {
	Value string `json:"value"`
}

type messageRequest struct {
	Text string `json:"text"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	// Session is the unchanged session, set when a validation error rejected the action.
	Session *domain.Snapshot `json:"session,omitempty"`
}

// OpenSession handles POST /sessions.
func (s *Server) OpenSession(w http.ResponseWriter, r *http.Request) {
	var body domainRequest
	if !s.decode(w, r, &body) {
		return
	}
	d, err := domain.ParseDomain(body.Domain)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}

	conv, err := s.Sessions.Open(r.Context(), d)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, conv.Snapshot())
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sessions.List())
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, conv.Snapshot())
}

// GetGraph handles GET /sessions/{id}/graph: a Mermaid chart of the session's flows with
// its position highlighted.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.lookup(w, r)
	if !ok {
		return
	}
	flows := conv.Flows()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(flows, graph.Overlay(flows, conv.Snapshot()))))
}

// CloseSession handles DELETE /sessions/{id}.
func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Sessions.Close(id); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectOption handles POST /sessions/{id}/options.
func (s *Server) SelectOption(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var body optionRequest
	if !s.decode(w, r, &body) {
		return
	}
	if err := conv.SelectOption(r.Context(), body.Value); err != nil {
		s.fail(w, r, err, conv)
		return
	}
	writeJSON(w, http.StatusOK, conv.Snapshot())
}

// SubmitText handles POST /sessions/{id}/messages.
func (s *Server) SubmitText(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var body messageRequest
	if !s.decode(w, r, &body) {
		return
	}
	if err := conv.SubmitText(r.Context(), body.Text); err != nil {
		s.fail(w, r, err, conv)
		return
	}
	// The reply arrives later, through the stream or by polling.
	writeJSON(w, http.StatusAccepted, conv.Snapshot())
}

// SwitchDomain handles POST /sessions/{id}/domain.
func (s *Server) SwitchDomain(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var body domainRequest
	if !s.decode(w, r, &body) {
		return
	}
	d, err := domain.ParseDomain(body.Domain)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if err := conv.SwitchDomain(r.Context(), d); err != nil {
		s.fail(w, r, err, conv)
		return
	}
	writeJSON(w, http.StatusOK, conv.Snapshot())
}

// RetryOptions handles POST /sessions/{id}/options/retry.
func (s *Server) RetryOptions(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := conv.RetryOptions(r.Context()); err != nil {
		s.fail(w, r, err, conv)
		return
	}
	writeJSON(w, http.StatusAccepted, conv.Snapshot())
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app":      "concierge-http",
		"version":  strings.TrimSpace(concierge.Version),
		"sessions": s.Sessions.Len(),
		"domains":  domain.Domains,
	})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*concierge.Conversation, bool) {
	conv, err := s.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err, nil)
		return nil, false
	}
	return conv, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Warn("invalid request body", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// fail maps err onto a status code. Validation errors answer 409 with the unchanged session.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, conv *concierge.Conversation) {
	resp := ErrorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	switch {
	case domain.IsValidation(err):
		status = http.StatusConflict
		if conv != nil {
			snap := conv.Snapshot()
			resp.Session = &snap
		}
	case errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrClosed):
		status = http.StatusGone
	case errors.Is(err, domain.ErrUnknownDomain),
		errors.Is(err, normalize.ErrInputTooLarge),
		errors.Is(err, normalize.ErrInvalidUTF8):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrTooManySessions):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		resp.Error = "internal error"
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
