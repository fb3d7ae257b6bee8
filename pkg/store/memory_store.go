package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"havenai/pkg/domain"
)

// MemoryStore keeps everything in-process. It backs tests and local
// development without Postgres.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]domain.User
	email         map[string]string // email -> user ID
	settings      *domain.ProviderSettings
	conversations map[string]domain.Conversation
	messages      map[string][]domain.Message // conversation ID -> append order
	enablement    map[string]bool             // userID|plugin -> enabled
	state         map[string]map[string]any   // userID|plugin -> blob
	events        []domain.AnalyticsEvent
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]domain.User),
		email:         make(map[string]string),
		conversations: make(map[string]domain.Conversation),
		messages:      make(map[string][]domain.Message),
		enablement:    make(map[string]bool),
		state:         make(map[string]map[string]any),
	}
}

func pluginKey(userID, pluginName string) string {
	return userID + "|" + pluginName
}

func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[strings.ToLower(strings.TrimSpace(email))]
	return ok, nil
}

func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) GetProviderSettings() (domain.ProviderSettings, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.settings == nil {
		return domain.ProviderSettings{}, false, nil
	}
	return *m.settings, true, nil
}

func (m *MemoryStore) SaveProviderSettings(rec domain.ProviderSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings != nil {
		rec.ID = m.settings.ID
	}
	rec.UpdatedAt = time.Now().UTC()
	m.settings = &rec
	return nil
}

func (m *MemoryStore) CreateConversation(c domain.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[c.ID] = c
	return nil
}

func (m *MemoryStore) GetConversation(id string) (domain.Conversation, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conversations[id]
	return c, ok, nil
}

func (m *MemoryStore) LatestConversationByUser(userID string) (domain.Conversation, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest domain.Conversation
	found := false
	for _, c := range m.conversations {
		if c.UserID != userID {
			continue
		}
		if !found || c.UpdatedAt.After(latest.UpdatedAt) {
			latest = c
			found = true
		}
	}
	return latest, found, nil
}

func (m *MemoryStore) ListConversationsByUser(userID string, limit int) ([]domain.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]domain.Conversation, 0)
	for _, c := range m.conversations {
		if c.UserID == userID {
			items = append(items, c)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *MemoryStore) RenameConversation(id, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return nil
	}
	c.Title = title
	c.UpdatedAt = time.Now().UTC()
	m.conversations[id] = c
	return nil
}

func (m *MemoryStore) TouchConversation(id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return nil
	}
	c.UpdatedAt = at.UTC()
	m.conversations[id] = c
	return nil
}

func (m *MemoryStore) DeleteConversations(userID string, ids []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := make([]string, 0, len(ids))
	for _, id := range ids {
		c, ok := m.conversations[id]
		if !ok || c.UserID != userID {
			continue
		}
		delete(m.conversations, id)
		delete(m.messages, id)
		deleted = append(deleted, id)
	}
	return deleted, nil
}

func (m *MemoryStore) AppendMessage(msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], msg)
	return nil
}

func (m *MemoryStore) ListMessages(conversationID string, limit int) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *MemoryStore) LatestMessage(conversationID string) (domain.Message, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.messages[conversationID]
	if len(msgs) == 0 {
		return domain.Message{}, false, nil
	}
	return msgs[len(msgs)-1], true, nil
}

func (m *MemoryStore) SearchMessages(userID, query string, limit int) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 40
	}
	needle := strings.ToLower(query)
	matches := make([]domain.Message, 0)
	for convID, msgs := range m.messages {
		conv, ok := m.conversations[convID]
		if !ok || conv.UserID != userID {
			continue
		}
		for _, msg := range msgs {
			if strings.Contains(strings.ToLower(msg.Content), needle) {
				matches = append(matches, msg)
			}
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (m *MemoryStore) GetPluginEnabled(userID, pluginName string) (bool, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	enabled, ok := m.enablement[pluginKey(userID, pluginName)]
	return enabled, ok, nil
}

func (m *MemoryStore) SetPluginEnabled(userID, pluginName string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enablement[pluginKey(userID, pluginName)] = enabled
	return nil
}

func (m *MemoryStore) GetPluginState(userID, pluginName string) (map[string]any, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.state[pluginKey(userID, pluginName)]
	return state, ok, nil
}

func (m *MemoryStore) SavePluginState(userID, pluginName string, state map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[pluginKey(userID, pluginName)] = state
	return nil
}

func (m *MemoryStore) AppendEvent(event domain.AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MemoryStore) ListEventsByType(userID, eventType string, since time.Time) ([]domain.AnalyticsEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.AnalyticsEvent, 0)
	for _, e := range m.events {
		if e.UserID == userID && e.EventType == eventType && !e.RecordedAt.Before(since) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out, nil
}
