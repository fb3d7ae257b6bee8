package server

import (
	"net/http"
	"strconv"
	"strings"

	"havenai/pkg/domain"
)

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		conversations, err := s.app.ListConversations(user.ID, limit)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
	case http.MethodDelete:
		var req struct {
			IDs []string `json:"ids"`
		}
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		deleted, err := s.app.DeleteConversations(user.ID, req.IDs)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
	default:
		methodNotAllowed(w)
	}
}

// /conversations/{id} or /conversations/{id}/export
func (s *Server) handleConversationByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	path := strings.TrimPrefix(r.URL.Path, "/conversations/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if len(parts) == 2 && parts[1] == "export" {
		s.handleExportConversation(w, r, user, id)
		return
	}
	if len(parts) == 2 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		detail, err := s.app.GetConversation(user.ID, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	case http.MethodPatch:
		var req struct {
			Title string `json:"title"`
		}
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		conv, err := s.app.RenameConversation(user.ID, id, req.Title)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, conv)
	case http.MethodDelete:
		deleted, err := s.app.DeleteConversations(user.ID, []string{id})
		if err != nil {
			writeAppError(w, err)
			return
		}
		if len(deleted) == 0 {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleExportConversation(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	transcript, err := s.app.ExportConversation(user.ID, id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="conversation.md"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(transcript))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := s.app.SearchMessages(user.ID, r.URL.Query().Get("q"), limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
