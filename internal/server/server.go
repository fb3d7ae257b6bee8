// Package server exposes the HTTP API: auth, chat, conversations,
// suggestions, plugin features and provider administration.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"havenai/internal/app"
	"havenai/internal/plugins"
	"havenai/internal/ratelimit"
	"havenai/internal/util"
	"havenai/pkg/ai"
	"havenai/pkg/domain"
)

// Features gives handlers direct access to the stateful plugins behind
// their dedicated endpoints.
type Features struct {
	Mood     *plugins.MoodTracker
	Checkin  *plugins.DailyCheckin
	Kanban   *plugins.Kanban
	Recharge *plugins.Recharge
	Crisis   *plugins.Crisis
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App       *app.App
	Suggester *app.Suggester
	Features  Features

	LoginLimiter    *ratelimit.FixedWindowLimiter
	RegisterLimiter *ratelimit.FixedWindowLimiter
	ChatLimiter     *ratelimit.FixedWindowLimiter

	TrustProxyHeaders bool
}

// Server exposes the HTTP endpoints.
type Server struct {
	app       *app.App
	suggester *app.Suggester
	features  Features

	loginLimiter    *ratelimit.FixedWindowLimiter
	registerLimiter *ratelimit.FixedWindowLimiter
	chatLimiter     *ratelimit.FixedWindowLimiter
	trustProxy      bool

	mux *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:             cfg.App,
		suggester:       cfg.Suggester,
		features:        cfg.Features,
		loginLimiter:    cfg.LoginLimiter,
		registerLimiter: cfg.RegisterLimiter,
		chatLimiter:     cfg.ChatLimiter,
		trustProxy:      cfg.TrustProxyHeaders,
		mux:             http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler with the shared middleware chain.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/auth/register", s.handleRegister)
	s.mux.HandleFunc("/auth/login", s.handleLogin)
	s.mux.Handle("/auth/logout", s.withUser(s.handleLogout))
	s.mux.Handle("/auth/me", s.withUser(s.handleMe))

	// chat + suggestions
	s.mux.Handle("/chat", s.withUser(s.handleChat))
	s.mux.Handle("/suggestions", s.withUser(s.handleSuggestions))

	// conversations
	s.mux.Handle("/conversations", s.withUser(s.handleConversations))
	s.mux.Handle("/conversations/", s.withUser(s.handleConversationByID))
	s.mux.Handle("/search", s.withUser(s.handleSearch))

	// plugins and their feature endpoints
	s.mux.Handle("/plugins", s.withUser(s.handlePlugins))
	s.mux.Handle("/plugins/", s.withUser(s.handlePluginByName))
	s.mux.Handle("/checkin", s.withUser(s.handleCheckin))
	s.mux.Handle("/mood", s.withUser(s.handleMood))
	s.mux.Handle("/kanban", s.withUser(s.handleKanban))
	s.mux.Handle("/kanban/tasks", s.withUser(s.handleKanbanTasks))
	s.mux.Handle("/kanban/tasks/", s.withUser(s.handleKanbanTaskByID))
	s.mux.Handle("/recharge", s.withUser(s.handleRecharge))
	s.mux.Handle("/crisis", s.withUser(s.handleCrisis))
	s.mux.Handle("/insights", s.withUser(s.handleInsights))

	// admin
	s.mux.Handle("/admin/settings", s.withAdmin(s.handleAdminSettings))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) withUser(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, found, err := s.app.UserByToken(token)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !found {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) withAdmin(next userHandler) http.Handler {
	return s.withUser(func(w http.ResponseWriter, r *http.Request, user domain.User) {
		if user.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) allow(limiter *ratelimit.FixedWindowLimiter, key string) bool {
	if limiter == nil {
		return true
	}
	return limiter.Allow(key)
}

func (s *Server) clientIP(r *http.Request) string {
	return util.ClientIP(r, s.trustProxy)
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      errorCode(status),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "VALIDATION_ERROR"
	case http.StatusUnauthorized:
		return "AUTH_INVALID_TOKEN"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusBadGateway:
		return "UPSTREAM_ERROR"
	case http.StatusServiceUnavailable:
		return "PROVIDER_NOT_CONFIGURED"
	default:
		return "SYSTEM_INTERNAL_ERROR"
	}
}

// writeAppError maps application errors onto HTTP statuses.
func writeAppError(w http.ResponseWriter, err error) {
	var upstream *ai.UpstreamError
	switch {
	case errors.Is(err, app.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, app.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, app.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, app.ErrBadCredentials):
		writeError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, app.ErrAccountDisabled):
		writeError(w, http.StatusForbidden, "account disabled")
	case errors.Is(err, plugins.ErrAlreadyCheckedIn):
		writeError(w, http.StatusConflict, "already checked in today")
	case errors.Is(err, plugins.ErrUnknownPlugin):
		writeError(w, http.StatusNotFound, "unknown plugin")
	case errors.Is(err, plugins.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "task not found")
	case errors.Is(err, plugins.ErrUnknownColumn):
		writeError(w, http.StatusBadRequest, "unknown column")
	case errors.Is(err, ai.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "llm provider not configured")
	case errors.Is(err, ai.ErrUnknownFormat):
		writeError(w, http.StatusBadGateway, "llm provider misconfigured")
	case errors.As(err, &upstream):
		writeError(w, http.StatusBadGateway, "llm provider error")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
