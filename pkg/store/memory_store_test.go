package store

import (
	"testing"
	"time"

	"havenai/pkg/domain"
)

func TestMemoryStoreConversationsAndMessages(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now().UTC()

	old := domain.Conversation{ID: "c1", UserID: "u1", Title: "first", CreatedAt: now.Add(-time.Hour), UpdatedAt: now.Add(-time.Hour)}
	recent := domain.Conversation{ID: "c2", UserID: "u1", Title: "second", CreatedAt: now, UpdatedAt: now}
	if err := s.CreateConversation(old); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateConversation(recent); err != nil {
		t.Fatalf("create: %v", err)
	}

	latest, ok, err := s.LatestConversationByUser("u1")
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	if latest.ID != "c2" {
		t.Fatalf("latest should be most recently updated, got %q", latest.ID)
	}

	for i, text := range []string{"one", "two", "three"} {
		msg := domain.Message{
			ID: text, ConversationID: "c2", Role: "user", Content: text,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}
		if err := s.AppendMessage(msg); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	msgs, err := s.ListMessages("c2", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "two" || msgs[1].Content != "three" {
		t.Fatalf("expected last two messages chronological, got %+v", msgs)
	}
	last, ok, err := s.LatestMessage("c2")
	if err != nil || !ok || last.Content != "three" {
		t.Fatalf("latest message: %+v ok=%v err=%v", last, ok, err)
	}

	deleted, err := s.DeleteConversations("u1", []string{"c1", "missing"})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != "c1" {
		t.Fatalf("expected only owned existing ids deleted, got %v", deleted)
	}
}

func TestMemoryStorePluginDefaults(t *testing.T) {
	s := NewMemoryStore()

	_, exists, err := s.GetPluginEnabled("u1", "mood_tracker")
	if err != nil {
		t.Fatalf("get enabled: %v", err)
	}
	if exists {
		t.Fatalf("no row should exist before first toggle")
	}
	if err := s.SetPluginEnabled("u1", "mood_tracker", false); err != nil {
		t.Fatalf("set enabled: %v", err)
	}
	enabled, exists, err := s.GetPluginEnabled("u1", "mood_tracker")
	if err != nil || !exists || enabled {
		t.Fatalf("expected explicit disabled row, enabled=%v exists=%v err=%v", enabled, exists, err)
	}
}

func TestMemoryStoreProviderSettingsSingleRow(t *testing.T) {
	s := NewMemoryStore()

	if _, found, err := s.GetProviderSettings(); err != nil || found {
		t.Fatalf("fresh store must report no settings")
	}
	if err := s.SaveProviderSettings(domain.ProviderSettings{ID: "a", APIFormat: "openai", APIEndpoint: "http://x"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveProviderSettings(domain.ProviderSettings{ID: "b", APIFormat: "ollama", APIEndpoint: "http://y"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	rec, found, err := s.GetProviderSettings()
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if rec.ID != "a" {
		t.Fatalf("second save must mutate the existing row, got id %q", rec.ID)
	}
	if rec.APIFormat != "ollama" {
		t.Fatalf("second save must overwrite fields, got %q", rec.APIFormat)
	}
}

func TestMemoryStoreEventsByTypeAndRange(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now().UTC()

	for i, typ := range []string{"checkin", "checkin", "mood"} {
		e := domain.AnalyticsEvent{
			ID: string(rune('a' + i)), UserID: "u1", EventType: typ,
			Payload:    map[string]any{"i": i},
			RecordedAt: now.Add(time.Duration(-i) * 24 * time.Hour),
		}
		if err := s.AppendEvent(e); err != nil {
			t.Fatalf("append event: %v", err)
		}
	}
	events, err := s.ListEventsByType("u1", "checkin", now.Add(-36*time.Hour))
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected both checkins in range, got %d", len(events))
	}
	if events[0].RecordedAt.After(events[1].RecordedAt) {
		t.Fatalf("events must be chronological")
	}
}
