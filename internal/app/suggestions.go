package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"havenai/internal/plugins"
	"havenai/pkg/ai"
	"havenai/pkg/domain"
	"havenai/pkg/store"
)

// Suggestion actions the UI knows how to render.
var suggestionActions = map[string]bool{
	"message":   true,
	"checkin":   true,
	"resources": true,
	"breathing": true,
}

const (
	suggestionTextMax    = 80
	suggestionPayloadMax = 300
	maxSuggestions       = 3
	suggestionHistory    = 10
)

// SuggestionCache holds the per-user cooldown state. While an entry is
// live the cached list is served unchanged and no upstream call happens.
type SuggestionCache interface {
	Get(userID string) ([]domain.Suggestion, bool)
	Put(userID string, items []domain.Suggestion)
}

// Suggester proposes up to three action chips after an assistant reply.
// It never fails: every error on the way resolves to an empty list so the
// chat flow is unaffected.
type Suggester struct {
	store    store.Store
	llm      ChatClient
	plugins  *plugins.Manager
	checkin  *plugins.DailyCheckin
	cache    SuggestionCache
	inflight singleflight.Group
	now      func() time.Time
}

func NewSuggester(st store.Store, llm ChatClient, pm *plugins.Manager, checkin *plugins.DailyCheckin, cache SuggestionCache) *Suggester {
	return &Suggester{
		store:   st,
		llm:     llm,
		plugins: pm,
		checkin: checkin,
		cache:   cache,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Suggest returns cached suggestions inside the cooldown window, otherwise
// generates a fresh set. Concurrent calls for the same user share one
// upstream request.
func (s *Suggester) Suggest(ctx context.Context, userID, conversationID string) []domain.Suggestion {
	if cached, ok := s.cache.Get(userID); ok {
		return cached
	}
	result, _, _ := s.inflight.Do(userID, func() (any, error) {
		if cached, ok := s.cache.Get(userID); ok {
			return cached, nil
		}
		items := s.generate(ctx, userID, conversationID)
		s.cache.Put(userID, items)
		return items, nil
	})
	items, _ := result.([]domain.Suggestion)
	if items == nil {
		items = []domain.Suggestion{}
	}
	return items
}

func (s *Suggester) generate(ctx context.Context, userID, conversationID string) []domain.Suggestion {
	conv, found, err := s.store.GetConversation(conversationID)
	if err != nil || !found || conv.UserID != userID {
		return []domain.Suggestion{}
	}
	history, err := s.store.ListMessages(conversationID, suggestionHistory)
	if err != nil || len(history) == 0 {
		return []domain.Suggestion{}
	}

	rec, found, err := s.store.GetProviderSettings()
	if err != nil {
		return []domain.Suggestion{}
	}
	var settings ai.Settings
	if found {
		settings = ai.ResolveSettings(&rec)
	} else {
		settings = ai.ResolveSettings(nil)
	}
	if !settings.Configured() {
		return []domain.Suggestion{}
	}

	reply, err := s.llm.Chat(ctx, s.buildPrompt(ctx, userID, history), settings)
	if err != nil {
		return []domain.Suggestion{}
	}
	return parseSuggestions(reply)
}

func (s *Suggester) buildPrompt(ctx context.Context, userID string, history []domain.Message) []ai.Message {
	var b strings.Builder
	b.WriteString("You suggest next actions for a wellness companion app. ")
	b.WriteString("Reply with ONLY a JSON array of 0 to 3 objects, each shaped ")
	b.WriteString(`{"text": "...", "action": "...", "payload": "..."}. `)
	b.WriteString("Allowed actions: message, checkin, resources, breathing. ")
	b.WriteString("text is a short chip label. No prose outside the array.\n\n")

	fmt.Fprintf(&b, "It is currently %s.\n", hourLabel(s.now().Hour()))
	if s.checkin != nil {
		if done, err := s.checkin.HasCheckedInToday(userID); err == nil && !done {
			b.WriteString("The user has not done today's check-in.\n")
		}
	}
	if pluginContext := s.plugins.CollectContext(ctx, userID); pluginContext != "" {
		b.WriteString("\n" + pluginContext + "\n")
	}

	b.WriteString("\nRecent conversation:\n")
	for _, m := range history {
		text, _ := decodeContent(m.Content)
		fmt.Fprintf(&b, "%s: %s\n", m.Role, text)
	}

	return []ai.Message{{Role: "user", Text: b.String()}}
}

func hourLabel(hour int) string {
	switch {
	case hour < 5:
		return "late night"
	case hour < 12:
		return "morning"
	case hour < 17:
		return "afternoon"
	case hour < 22:
		return "evening"
	default:
		return "night"
	}
}

// parseSuggestions extracts the suggestion array from a model reply. The
// reply may wrap the array in markdown fences or prose; the span between
// the first '[' and the last ']' is what gets parsed. Anything that does
// not validate resolves to an empty list.
func parseSuggestions(reply string) []domain.Suggestion {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")

	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end <= start {
		return []domain.Suggestion{}
	}

	var raw []struct {
		Text    string `json:"text"`
		Action  string `json:"action"`
		Payload string `json:"payload"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return []domain.Suggestion{}
	}

	items := make([]domain.Suggestion, 0, maxSuggestions)
	for _, r := range raw {
		text := strings.TrimSpace(r.Text)
		if text == "" || !suggestionActions[r.Action] {
			continue
		}
		items = append(items, domain.Suggestion{
			Text:    truncate(text, suggestionTextMax),
			Action:  r.Action,
			Payload: truncate(r.Payload, suggestionPayloadMax),
		})
		if len(items) == maxSuggestions {
			break
		}
	}
	return items
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
