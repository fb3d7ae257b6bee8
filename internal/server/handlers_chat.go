package server

import (
	"net/http"
	"strings"

	"havenai/pkg/domain"
)

type chatRequest struct {
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
	Image          string `json:"image"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allow(s.chatLimiter, user.ID) {
		writeError(w, http.StatusTooManyRequests, "slow down a little, try again in a minute")
		return
	}
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := s.app.SendMessage(r.Context(), user.ID, strings.TrimSpace(req.ConversationID), req.Text, req.Image)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	conversationID := strings.TrimSpace(r.URL.Query().Get("conversationId"))
	if conversationID == "" {
		writeError(w, http.StatusBadRequest, "conversationId is required")
		return
	}
	suggestions := s.suggester.Suggest(r.Context(), user.ID, conversationID)
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}
