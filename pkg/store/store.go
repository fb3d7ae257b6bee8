package store

import (
	"time"

	"havenai/pkg/domain"
)

// Store defines persistence operations for users, conversations, provider
// settings, plugin rows, and analytics events. The application reads
// snapshots and derives writes; it never owns transactions.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)

	// provider settings (single global row)
	GetProviderSettings() (domain.ProviderSettings, bool, error)
	SaveProviderSettings(domain.ProviderSettings) error

	// conversations
	CreateConversation(domain.Conversation) error
	GetConversation(id string) (domain.Conversation, bool, error)
	LatestConversationByUser(userID string) (domain.Conversation, bool, error)
	ListConversationsByUser(userID string, limit int) ([]domain.Conversation, error)
	RenameConversation(id, title string) error
	TouchConversation(id string, at time.Time) error
	DeleteConversations(userID string, ids []string) ([]string, error)

	// messages; ListMessages returns the last limit messages in
	// chronological order (all messages when limit <= 0)
	AppendMessage(domain.Message) error
	ListMessages(conversationID string, limit int) ([]domain.Message, error)
	LatestMessage(conversationID string) (domain.Message, bool, error)
	SearchMessages(userID, query string, limit int) ([]domain.Message, error)

	// plugin enablement and opaque per-plugin state
	GetPluginEnabled(userID, pluginName string) (enabled bool, exists bool, err error)
	SetPluginEnabled(userID, pluginName string, enabled bool) error
	GetPluginState(userID, pluginName string) (map[string]any, bool, error)
	SavePluginState(userID, pluginName string, state map[string]any) error

	// analytics (append-only)
	AppendEvent(domain.AnalyticsEvent) error
	ListEventsByType(userID, eventType string, since time.Time) ([]domain.AnalyticsEvent, error)
}

// SessionStore issues and resolves session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	UserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
