package server

import (
	"net/http"

	"havenai/internal/app"
	"havenai/pkg/domain"
)

// settingsView is the redacted admin read shape. The stored API key never
// leaves the server; only its presence is reported.
type settingsView struct {
	ProviderName  string            `json:"providerName"`
	APIFormat     string            `json:"apiFormat"`
	APIEndpoint   string            `json:"apiEndpoint"`
	HasAPIKey     bool              `json:"hasApiKey"`
	AuthType      string            `json:"authType"`
	ModelName     string            `json:"modelName"`
	Temperature   float64           `json:"temperature"`
	MaxTokens     int               `json:"maxTokens"`
	CustomHeaders map[string]string `json:"customHeaders,omitempty"`
	ExtraParams   map[string]any    `json:"extraParams,omitempty"`
	VisionEnabled bool              `json:"visionEnabled"`
	Configured    bool              `json:"configured"`
}

func viewOf(rec domain.ProviderSettings, configured bool) settingsView {
	return settingsView{
		ProviderName:  rec.ProviderName,
		APIFormat:     rec.APIFormat,
		APIEndpoint:   rec.APIEndpoint,
		HasAPIKey:     rec.APIKey != "",
		AuthType:      rec.AuthType,
		ModelName:     rec.ModelName,
		Temperature:   rec.Temperature,
		MaxTokens:     rec.MaxTokens,
		CustomHeaders: rec.CustomHeaders,
		ExtraParams:   rec.ExtraParams,
		VisionEnabled: rec.VisionEnabled,
		Configured:    configured,
	}
}

func (s *Server) handleAdminSettings(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		rec, found, err := s.app.ProviderSettings()
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(rec, found))
	case http.MethodPut:
		var req app.SettingsInput
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		rec, err := s.app.UpdateProviderSettings(user.ID, req)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(rec, true))
	default:
		methodNotAllowed(w)
	}
}
