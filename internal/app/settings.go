package app

import (
	"fmt"
	"strings"
	"time"

	"havenai/internal/util"
	"havenai/pkg/ai"
	"havenai/pkg/domain"
)

// SettingsInput is the admin-facing provider configuration payload. An
// empty APIKey keeps the stored key, so the key never has to round-trip
// through the UI.
type SettingsInput struct {
	ProviderName  string            `json:"providerName"`
	APIFormat     string            `json:"apiFormat"`
	APIEndpoint   string            `json:"apiEndpoint"`
	APIKey        string            `json:"apiKey"`
	AuthType      string            `json:"authType"`
	ModelName     string            `json:"modelName"`
	Temperature   float64           `json:"temperature"`
	MaxTokens     int               `json:"maxTokens"`
	CustomHeaders map[string]string `json:"customHeaders"`
	ExtraParams   map[string]any    `json:"extraParams"`
	VisionEnabled bool              `json:"visionEnabled"`
}

// ProviderSettings returns the stored provider row. found is false when
// the provider has never been configured.
func (a *App) ProviderSettings() (domain.ProviderSettings, bool, error) {
	return a.store.GetProviderSettings()
}

// UpdateProviderSettings validates and saves the single provider row,
// keeping the previous API key when the input leaves it blank.
func (a *App) UpdateProviderSettings(adminID string, in SettingsInput) (domain.ProviderSettings, error) {
	if err := validateSettings(in); err != nil {
		return domain.ProviderSettings{}, err
	}
	current, found, err := a.store.GetProviderSettings()
	if err != nil {
		return domain.ProviderSettings{}, err
	}
	rec := domain.ProviderSettings{
		ID:            util.NewID(),
		UpdatedBy:     adminID,
		ProviderName:  strings.TrimSpace(in.ProviderName),
		APIFormat:     in.APIFormat,
		APIEndpoint:   strings.TrimSpace(in.APIEndpoint),
		APIKey:        in.APIKey,
		AuthType:      in.AuthType,
		ModelName:     strings.TrimSpace(in.ModelName),
		Temperature:   in.Temperature,
		MaxTokens:     in.MaxTokens,
		CustomHeaders: in.CustomHeaders,
		ExtraParams:   in.ExtraParams,
		VisionEnabled: in.VisionEnabled,
		UpdatedAt:     a.now(),
	}
	if found {
		rec.ID = current.ID
		if rec.APIKey == "" {
			rec.APIKey = current.APIKey
		}
	}
	if err := a.store.SaveProviderSettings(rec); err != nil {
		return domain.ProviderSettings{}, err
	}
	return rec, nil
}

func validateSettings(in SettingsInput) error {
	switch ai.Format(in.APIFormat) {
	case ai.FormatOpenAI, ai.FormatAnthropic, ai.FormatOllama, ai.FormatCustom:
	default:
		return fmt.Errorf("%w: apiFormat must be one of openai, anthropic, ollama, custom", ErrValidation)
	}
	switch in.AuthType {
	case ai.AuthBearer, ai.AuthAPIKey, ai.AuthNone, "":
	default:
		return fmt.Errorf("%w: authType must be one of bearer, api_key, none", ErrValidation)
	}
	endpoint := strings.TrimSpace(in.APIEndpoint)
	if endpoint == "" {
		return fmt.Errorf("%w: apiEndpoint is required", ErrValidation)
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return fmt.Errorf("%w: apiEndpoint must be an http(s) URL", ErrValidation)
	}
	if in.Temperature < 0 || in.Temperature > 2 {
		return fmt.Errorf("%w: temperature must be between 0 and 2", ErrValidation)
	}
	if in.MaxTokens < 0 || in.MaxTokens > 100000 {
		return fmt.Errorf("%w: maxTokens must be between 0 and 100000", ErrValidation)
	}
	return nil
}

// Insights summarizes the user's wellness activity over the last 30 days.
type Insights struct {
	Days          int            `json:"days"`
	MoodCounts    map[string]int `json:"moodCounts"`
	MoodEntries   int            `json:"moodEntries"`
	CheckinCount  int            `json:"checkinCount"`
	CheckinStreak int            `json:"checkinStreak"`
}

// UserInsights aggregates mood and check-in events for the insights view.
func (a *App) UserInsights(userID string) (Insights, error) {
	const days = 30
	since := a.now().AddDate(0, 0, -days)

	insights := Insights{Days: days, MoodCounts: map[string]int{}}

	moods, err := a.store.ListEventsByType(userID, "mood", since)
	if err != nil {
		return Insights{}, err
	}
	for _, e := range moods {
		if mood, _ := e.Payload["mood"].(string); mood != "" {
			insights.MoodCounts[mood]++
			insights.MoodEntries++
		}
	}

	checkins, err := a.store.ListEventsByType(userID, "checkin", since)
	if err != nil {
		return Insights{}, err
	}
	insights.CheckinCount = len(checkins)
	insights.CheckinStreak = streakFromEvents(checkins, a.now())
	return insights, nil
}

func streakFromEvents(events []domain.AnalyticsEvent, now time.Time) int {
	days := map[string]bool{}
	for _, e := range events {
		days[e.RecordedAt.UTC().Format("2006-01-02")] = true
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !days[day.Format("2006-01-02")] {
		day = day.AddDate(0, 0, -1)
	}
	streak := 0
	for days[day.Format("2006-01-02")] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}
