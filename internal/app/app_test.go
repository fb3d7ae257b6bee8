package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"havenai/pkg/domain"
)

func TestRegisterLoginLogout(t *testing.T) {
	a, _ := newTestApp(t, &stubLLM{})

	user, token, err := a.Register("Person@Example.com", "sunrise42")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "person@example.com" {
		t.Fatalf("email = %q, want lowercased", user.Email)
	}
	got, ok, err := a.UserByToken(token)
	if err != nil || !ok || got.ID != user.ID {
		t.Fatalf("UserByToken = (%+v, %v, %v)", got, ok, err)
	}

	if _, _, err := a.Register("person@example.com", "sunrise42"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate register = %v, want ErrEmailTaken", err)
	}

	if _, _, err := a.Login("person@example.com", "wrongpass1"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("bad login = %v, want ErrBadCredentials", err)
	}
	_, loginToken, err := a.Login("person@example.com", "sunrise42")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := a.Logout(loginToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, ok, _ := a.UserByToken(loginToken); ok {
		t.Fatalf("expected revoked token to stop resolving")
	}
}

func TestRegisterRejectsWeakInput(t *testing.T) {
	a, _ := newTestApp(t, &stubLLM{})
	if _, _, err := a.Register("not-an-email", "sunrise42"); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad email = %v, want ErrValidation", err)
	}
	if _, _, err := a.Register("a@b.co", "short1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("weak password = %v, want ErrValidation", err)
	}
}

func TestConversationOperations(t *testing.T) {
	a, st := newTestApp(t, &stubLLM{reply: "hi"})
	configureProvider(t, st)

	res, err := a.SendMessage(context.Background(), "u1", "", "first conversation about sleep", "")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	convID := res.Conversation.ID

	renamed, err := a.RenameConversation("u1", convID, "Sleep habits")
	if err != nil || renamed.Title != "Sleep habits" {
		t.Fatalf("Rename = (%+v, %v)", renamed, err)
	}
	if _, err := a.RenameConversation("u2", convID, "x"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign rename = %v, want ErrForbidden", err)
	}

	found, err := a.SearchMessages("u1", "sleep", 0)
	if err != nil || len(found) == 0 {
		t.Fatalf("Search = (%d, %v), want a hit", len(found), err)
	}

	export, err := a.ExportConversation("u1", convID)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(export, "# Sleep habits") || !strings.Contains(export, "first conversation about sleep") {
		t.Fatalf("export missing content:\n%s", export)
	}

	deleted, err := a.DeleteConversations("u1", []string{convID, "nope"})
	if err != nil || len(deleted) != 1 || deleted[0] != convID {
		t.Fatalf("Delete = (%v, %v)", deleted, err)
	}
	if _, err := a.GetConversation("u1", convID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestUpdateProviderSettingsKeepsKeyWhenBlank(t *testing.T) {
	a, _ := newTestApp(t, &stubLLM{})

	first, err := a.UpdateProviderSettings("admin1", SettingsInput{
		APIFormat:   "anthropic",
		APIEndpoint: "https://api.example.com/v1/messages",
		APIKey:      "sk-secret",
		AuthType:    "api_key",
		ModelName:   "claude-x",
		Temperature: 0.5,
		MaxTokens:   512,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	second, err := a.UpdateProviderSettings("admin1", SettingsInput{
		APIFormat:   "anthropic",
		APIEndpoint: "https://api.example.com/v1/messages",
		AuthType:    "api_key",
		ModelName:   "claude-y",
		Temperature: 0.5,
		MaxTokens:   512,
	})
	if err != nil {
		t.Fatalf("Update again: %v", err)
	}
	if second.APIKey != "sk-secret" {
		t.Fatalf("apiKey = %q, want previous key kept", second.APIKey)
	}
	if second.ID != first.ID {
		t.Fatalf("settings row id changed: %q -> %q", first.ID, second.ID)
	}
}

func TestUpdateProviderSettingsValidation(t *testing.T) {
	a, _ := newTestApp(t, &stubLLM{})
	cases := []SettingsInput{
		{APIFormat: "grpc", APIEndpoint: "https://x", Temperature: 1},
		{APIFormat: "openai", APIEndpoint: "", Temperature: 1},
		{APIFormat: "openai", APIEndpoint: "ftp://x", Temperature: 1},
		{APIFormat: "openai", APIEndpoint: "https://x", Temperature: 3},
		{APIFormat: "openai", APIEndpoint: "https://x", AuthType: "magic", Temperature: 1},
	}
	for i, in := range cases {
		if _, err := a.UpdateProviderSettings("admin1", in); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: err = %v, want ErrValidation", i, err)
		}
	}
}

func TestUserInsights(t *testing.T) {
	a, st := newTestApp(t, &stubLLM{})
	now := time.Now().UTC()
	events := []domain.AnalyticsEvent{
		{ID: "e1", UserID: "u1", EventType: "mood", Payload: map[string]any{"mood": "good"}, RecordedAt: now.AddDate(0, 0, -1)},
		{ID: "e2", UserID: "u1", EventType: "mood", Payload: map[string]any{"mood": "good"}, RecordedAt: now},
		{ID: "e3", UserID: "u1", EventType: "mood", Payload: map[string]any{"mood": "tired"}, RecordedAt: now},
		{ID: "e4", UserID: "u1", EventType: "checkin", Payload: map[string]any{"mood": "good"}, RecordedAt: now.AddDate(0, 0, -1)},
		{ID: "e5", UserID: "u1", EventType: "checkin", Payload: map[string]any{"mood": "good"}, RecordedAt: now},
	}
	for _, e := range events {
		if err := st.AppendEvent(e); err != nil {
			t.Fatalf("AppendEvent: %v", err)
		}
	}

	insights, err := a.UserInsights("u1")
	if err != nil {
		t.Fatalf("UserInsights: %v", err)
	}
	if insights.MoodCounts["good"] != 2 || insights.MoodCounts["tired"] != 1 {
		t.Fatalf("mood counts = %+v", insights.MoodCounts)
	}
	if insights.CheckinCount != 2 || insights.CheckinStreak != 2 {
		t.Fatalf("checkins = %d streak = %d", insights.CheckinCount, insights.CheckinStreak)
	}
}
