package domain

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusDisabled UserStatus = "disabled"
)

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         UserRole   `json:"role"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message content is plain text, or a JSON document {"text","image"} when
// the user attached an image. Messages are immutable once written.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ProviderSettings is the single global LLM provider configuration row.
// Absence of the row means "unconfigured" and is a valid state.
type ProviderSettings struct {
	ID            string            `json:"id"`
	UpdatedBy     string            `json:"updatedBy,omitempty"`
	ProviderName  string            `json:"providerName"`
	APIFormat     string            `json:"apiFormat"`
	APIEndpoint   string            `json:"apiEndpoint"`
	APIKey        string            `json:"-"`
	AuthType      string            `json:"authType"`
	ModelName     string            `json:"modelName"`
	Temperature   float64           `json:"temperature"`
	MaxTokens     int               `json:"maxTokens"`
	CustomHeaders map[string]string `json:"customHeaders,omitempty"`
	ExtraParams   map[string]any    `json:"extraParams,omitempty"`
	VisionEnabled bool              `json:"visionEnabled"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// PluginEnablement records a per-user plugin toggle. The absence of a row
// means the plugin is enabled (default-on policy).
type PluginEnablement struct {
	UserID     string    `json:"userId"`
	PluginName string    `json:"pluginName"`
	Enabled    bool      `json:"enabled"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// PluginState is a free-form document owned entirely by one plugin.
type PluginState struct {
	UserID     string         `json:"userId"`
	PluginName string         `json:"pluginName"`
	State      map[string]any `json:"state"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// AnalyticsEvent is an append-only record of a user wellness signal,
// e.g. a daily check-in. The payload shape is owned by the writer.
type AnalyticsEvent struct {
	ID         string         `json:"id"`
	UserID     string         `json:"userId"`
	EventType  string         `json:"eventType"`
	Payload    map[string]any `json:"payload"`
	RecordedAt time.Time      `json:"recordedAt"`
}

// Suggestion is one proactive chip proposed after an assistant reply.
type Suggestion struct {
	Text    string `json:"text"`
	Action  string `json:"action"`
	Payload string `json:"payload"`
}
