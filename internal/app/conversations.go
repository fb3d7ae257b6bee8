package app

import (
	"fmt"
	"strings"

	"havenai/pkg/domain"
)

// Explicit renames may be longer than the auto-generated titles.
const renameTitleMax = 100

// ConversationDetail is a conversation with its full transcript.
type ConversationDetail struct {
	Conversation domain.Conversation `json:"conversation"`
	Messages     []domain.Message    `json:"messages"`
}

// ListConversations returns the user's conversations, most recent first.
func (a *App) ListConversations(userID string, limit int) ([]domain.Conversation, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return a.store.ListConversationsByUser(userID, limit)
}

// GetConversation returns one owned conversation with its messages.
func (a *App) GetConversation(userID, conversationID string) (ConversationDetail, error) {
	conv, err := a.ownedConversation(userID, conversationID)
	if err != nil {
		return ConversationDetail{}, err
	}
	messages, err := a.store.ListMessages(conv.ID, 0)
	if err != nil {
		return ConversationDetail{}, err
	}
	return ConversationDetail{Conversation: conv, Messages: messages}, nil
}

// RenameConversation sets a new title on an owned conversation.
func (a *App) RenameConversation(userID, conversationID, title string) (domain.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Conversation{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if runes := []rune(title); len(runes) > renameTitleMax {
		title = string(runes[:renameTitleMax])
	}
	conv, err := a.ownedConversation(userID, conversationID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if err := a.store.RenameConversation(conv.ID, title); err != nil {
		return domain.Conversation{}, err
	}
	conv.Title = title
	return conv, nil
}

// DeleteConversations removes the given conversations and returns the ids
// actually deleted. Ids the user does not own are silently skipped.
func (a *App) DeleteConversations(userID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one conversation id is required", ErrValidation)
	}
	return a.store.DeleteConversations(userID, ids)
}

// SearchMessages finds the user's messages containing query.
func (a *App) SearchMessages(userID, query string, limit int) ([]domain.Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrValidation)
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	return a.store.SearchMessages(userID, query, limit)
}

// ExportConversation renders an owned conversation as a markdown
// transcript for download.
func (a *App) ExportConversation(userID, conversationID string) (string, error) {
	detail, err := a.GetConversation(userID, conversationID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	title := detail.Conversation.Title
	if title == "" {
		title = "Conversation"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Exported %s\n\n", a.now().Format("2006-01-02 15:04 UTC"))
	for _, m := range detail.Messages {
		text, image := decodeContent(m.Content)
		speaker := "You"
		if m.Role == "assistant" {
			speaker = "Haven"
		}
		fmt.Fprintf(&b, "**%s** (%s):\n\n%s\n\n", speaker, m.CreatedAt.Format("2006-01-02 15:04"), text)
		if image != "" {
			b.WriteString("_[image attached]_\n\n")
		}
	}
	return b.String(), nil
}

func (a *App) ownedConversation(userID, conversationID string) (domain.Conversation, error) {
	conv, found, err := a.store.GetConversation(conversationID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if !found {
		return domain.Conversation{}, ErrNotFound
	}
	if conv.UserID != userID {
		return domain.Conversation{}, ErrForbidden
	}
	return conv, nil
}
