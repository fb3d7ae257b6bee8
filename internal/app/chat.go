package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"havenai/internal/util"
	"havenai/pkg/ai"
	"havenai/pkg/domain"
)

const systemPersona = "You are Haven, a warm and supportive wellness companion. " +
	"Listen carefully, validate feelings, and keep replies conversational and " +
	"concise. Offer practical, gentle suggestions rather than lectures. You are " +
	"not a therapist and you say so when the user needs professional help."

// timeoutReply is persisted as the assistant turn when the provider times
// out, so the conversation keeps a coherent transcript.
const timeoutReply = "Sorry, I took too long to answer. I'm still here, could you try sending that again?"

const titleMaxRunes = 50

// ChatResult is what one send-message round trip produces.
type ChatResult struct {
	Conversation domain.Conversation `json:"conversation"`
	UserMessage  domain.Message      `json:"userMessage"`
	Reply        domain.Message      `json:"reply"`
	TimedOut     bool                `json:"timedOut"`
}

// SendMessage runs the full chat flow: pick or create a conversation,
// persist the user turn, assemble history plus plugin context, call the
// provider, and persist the reply. A provider timeout is not an error:
// the fallback reply is persisted and TimedOut is set.
func (a *App) SendMessage(ctx context.Context, userID, conversationID, text, image string) (ChatResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatResult{}, fmt.Errorf("%w: message text is required", ErrValidation)
	}

	conv, err := a.resolveConversation(userID, conversationID, text)
	if err != nil {
		return ChatResult{}, err
	}

	now := a.now()
	userMsg := domain.Message{
		ID:             util.NewID(),
		ConversationID: conv.ID,
		Role:           "user",
		Content:        encodeContent(text, image),
		CreatedAt:      now,
	}
	if err := a.appendMessage(&conv, userMsg); err != nil {
		return ChatResult{}, err
	}

	reply, timedOut, err := a.generateReply(ctx, userID, conv.ID)
	if err != nil {
		return ChatResult{}, err
	}

	assistantMsg := domain.Message{
		ID:             util.NewID(),
		ConversationID: conv.ID,
		Role:           "assistant",
		Content:        reply,
		CreatedAt:      a.now(),
	}
	if err := a.appendMessage(&conv, assistantMsg); err != nil {
		return ChatResult{}, err
	}

	return ChatResult{
		Conversation: conv,
		UserMessage:  userMsg,
		Reply:        assistantMsg,
		TimedOut:     timedOut,
	}, nil
}

// resolveConversation applies the continuity heuristic. An explicit target
// is honored after an ownership check. Without one, the latest conversation
// is reused only when its last message is an unanswered user turn and it
// was touched within the reuse window; anything else starts fresh.
func (a *App) resolveConversation(userID, conversationID, text string) (domain.Conversation, error) {
	if conversationID != "" {
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

	latest, found, err := a.store.LatestConversationByUser(userID)
	if err != nil {
		return domain.Conversation{}, err
	}
	if found && a.now().Sub(latest.UpdatedAt) <= a.reuseWindow {
		last, hasMsg, err := a.store.LatestMessage(latest.ID)
		if err != nil {
			return domain.Conversation{}, err
		}
		if hasMsg && last.Role == "user" {
			return latest, nil
		}
	}

	now := a.now()
	conv := domain.Conversation{
		ID:        util.NewID(),
		UserID:    userID,
		Title:     titleFromText(text),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.CreateConversation(conv); err != nil {
		return domain.Conversation{}, err
	}
	return conv, nil
}

func titleFromText(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= titleMaxRunes {
		return string(runes)
	}
	return string(runes[:titleMaxRunes])
}

func (a *App) appendMessage(conv *domain.Conversation, msg domain.Message) error {
	if err := a.store.AppendMessage(msg); err != nil {
		return err
	}
	conv.UpdatedAt = msg.CreatedAt
	return a.store.TouchConversation(conv.ID, msg.CreatedAt)
}

// generateReply assembles the normalized message list and calls the
// provider. Timeouts resolve to the fallback reply instead of an error.
func (a *App) generateReply(ctx context.Context, userID, conversationID string) (string, bool, error) {
	history, err := a.store.ListMessages(conversationID, a.historyLimit)
	if err != nil {
		return "", false, err
	}

	messages := make([]ai.Message, 0, len(history)+1)
	messages = append(messages, ai.Message{Role: "system", Text: a.systemPrompt(ctx, userID)})
	for _, m := range history {
		text, image := decodeContent(m.Content)
		messages = append(messages, ai.Message{Role: m.Role, Text: text, Image: image})
	}

	settings, err := a.providerSettings()
	if err != nil {
		return "", false, err
	}
	if !settings.Configured() {
		return "", false, ai.ErrNotConfigured
	}
	reply, err := a.llm.Chat(ctx, messages, settings)
	if errors.Is(err, ai.ErrUpstreamTimeout) {
		return timeoutReply, true, nil
	}
	if err != nil {
		return "", false, err
	}
	return reply, false, nil
}

func (a *App) systemPrompt(ctx context.Context, userID string) string {
	prompt := systemPersona
	if pluginContext := a.plugins.CollectContext(ctx, userID); pluginContext != "" {
		prompt += "\n\nContext about the user:\n" + pluginContext
	}
	return prompt
}

func (a *App) providerSettings() (ai.Settings, error) {
	rec, found, err := a.store.GetProviderSettings()
	if err != nil {
		return ai.Settings{}, err
	}
	if !found {
		return ai.ResolveSettings(nil), nil
	}
	return ai.ResolveSettings(&rec), nil
}

// encodeContent stores plain text as-is; with an image attached the
// content becomes a small JSON document.
func encodeContent(text, image string) string {
	if image == "" {
		return text
	}
	doc, err := json.Marshal(map[string]string{"text": text, "image": image})
	if err != nil {
		return text
	}
	return string(doc)
}

func decodeContent(content string) (text, image string) {
	if !strings.HasPrefix(content, "{") {
		return content, ""
	}
	var doc struct {
		Text  string `json:"text"`
		Image string `json:"image"`
	}
	if err := json.Unmarshal([]byte(content), &doc); err != nil || doc.Text == "" && doc.Image == "" {
		return content, ""
	}
	return doc.Text, doc.Image
}
