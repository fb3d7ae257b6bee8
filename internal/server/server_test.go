package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"havenai/internal/app"
	"havenai/internal/plugins"
	"havenai/internal/ratelimit"
	"havenai/pkg/ai"
	"havenai/pkg/domain"
	"havenai/pkg/store"
)

type stubLLM struct {
	reply string
	err   error
	calls int
}

func (s *stubLLM) Chat(context.Context, []ai.Message, ai.Settings) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

type testEnv struct {
	srv   *httptest.Server
	store store.Store
	llm   *stubLLM
	redis *miniredis.Miniredis
}

func newTestEnv(t *testing.T, cfgTweak func(*Config)) *testEnv {
	t.Helper()
	st := store.NewMemoryStore()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions, err := store.NewRedisSessionStore(client, []byte("test-secret"), time.Hour)
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}

	llm := &stubLLM{reply: "I hear you."}

	pm := plugins.NewManager(st)
	mood := plugins.NewMoodTracker(st)
	checkin := plugins.NewDailyCheckin(st)
	kanban := plugins.NewKanban(st)
	pm.Register(mood)
	pm.Register(checkin)
	pm.Register(plugins.NewGoalStreaks(st))
	pm.Register(kanban)
	pm.Register(plugins.NewRecharge())
	pm.Register(plugins.NewCrisis())
	pm.Register(plugins.NewTaskBreakdown())

	a := app.New(st, sessions, llm, pm, app.Options{})
	suggester := app.NewSuggester(st, llm, pm, checkin, app.NewMemorySuggestionCache(10*time.Minute))

	cfg := Config{
		App:       a,
		Suggester: suggester,
		Features: Features{
			Mood:     mood,
			Checkin:  checkin,
			Kanban:   kanban,
			Recharge: plugins.NewRecharge(),
			Crisis:   plugins.NewCrisis(),
		},
	}
	if cfgTweak != nil {
		cfgTweak(&cfg)
	}
	srv := httptest.NewServer(New(cfg).Router())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: st, llm: llm, redis: mr}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (e *testEnv) registerUser(t *testing.T, email string) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": email, "password": "sunrise42",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d body = %v", resp.StatusCode, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("register returned no token")
	}
	return token
}

func configureProvider(t *testing.T, e *testEnv) {
	t.Helper()
	err := e.store.SaveProviderSettings(domain.ProviderSettings{
		ID:          "settings-1",
		APIFormat:   "openai",
		APIEndpoint: "http://llm.local/v1/chat/completions",
		ModelName:   "test-model",
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("save provider settings: %v", err)
	}
}

// promoteToAdmin registers an account and flips its role directly in the
// store, since there is no self-service path to admin.
func promoteToAdmin(t *testing.T, e *testEnv, email string) string {
	t.Helper()
	token := e.registerUser(t, email)
	user, found, err := e.store.GetUserByEmail(email)
	if err != nil || !found {
		t.Fatalf("lookup user: %v found=%v", err, found)
	}
	user.Role = domain.RoleAdmin
	if err := e.store.SaveUser(user); err != nil {
		t.Fatalf("save user: %v", err)
	}
	return token
}

func TestRegisterLoginMeFlow(t *testing.T) {
	e := newTestEnv(t, nil)
	token := e.registerUser(t, "flow@example.com")

	resp, body := e.do(t, http.MethodGet, "/auth/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d", resp.StatusCode)
	}
	if body["email"] != "flow@example.com" {
		t.Fatalf("me email = %v", body["email"])
	}

	resp, _ = e.do(t, http.MethodPost, "/auth/logout", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}
	resp, _ = e.do(t, http.MethodGet, "/auth/me", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me after logout = %d, want 401", resp.StatusCode)
	}
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	e := newTestEnv(t, nil)
	for _, path := range []string{"/chat", "/conversations", "/plugins", "/insights"} {
		resp, _ := e.do(t, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s status = %d, want 401", path, resp.StatusCode)
		}
	}
}

func TestChatRoundTrip(t *testing.T) {
	e := newTestEnv(t, nil)
	configureProvider(t, e)
	token := e.registerUser(t, "chat@example.com")

	resp, body := e.do(t, http.MethodPost, "/chat", token, map[string]string{
		"text": "I had a rough day",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status = %d body = %v", resp.StatusCode, body)
	}
	reply, _ := body["reply"].(map[string]any)
	if reply["content"] != "I hear you." {
		t.Fatalf("reply = %v", reply)
	}

	resp, body = e.do(t, http.MethodGet, "/conversations", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("conversations status = %d", resp.StatusCode)
	}
	conversations, _ := body["conversations"].([]any)
	if len(conversations) != 1 {
		t.Fatalf("conversations = %v", body)
	}
}

func TestChatMapsProviderFailures(t *testing.T) {
	e := newTestEnv(t, nil)
	token := e.registerUser(t, "errs@example.com")

	// Unconfigured provider.
	resp, _ := e.do(t, http.MethodPost, "/chat", token, map[string]string{"text": "hello"})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unconfigured chat status = %d, want 503", resp.StatusCode)
	}

	configureProvider(t, e)
	e.llm.err = &ai.UpstreamError{Status: 500, Body: "exploded"}
	resp, _ = e.do(t, http.MethodPost, "/chat", token, map[string]string{"text": "hello"})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("upstream failure status = %d, want 502", resp.StatusCode)
	}
}

func TestPluginToggleEndpoint(t *testing.T) {
	e := newTestEnv(t, nil)
	token := e.registerUser(t, "plug@example.com")

	resp, body := e.do(t, http.MethodGet, "/plugins", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("plugins status = %d", resp.StatusCode)
	}
	list, _ := body["plugins"].([]any)
	if len(list) != 7 {
		t.Fatalf("plugins = %d, want 7", len(list))
	}

	resp, _ = e.do(t, http.MethodPut, "/plugins/mood_tracker", token, map[string]bool{"enabled": false})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle status = %d", resp.StatusCode)
	}
	resp, _ = e.do(t, http.MethodPut, "/plugins/unknown", token, map[string]bool{"enabled": false})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown toggle status = %d, want 404", resp.StatusCode)
	}
}

func TestCheckinEndpointConflictsOnSecondSubmit(t *testing.T) {
	e := newTestEnv(t, nil)
	token := e.registerUser(t, "daily@example.com")

	payload := map[string]any{"mood": "calm", "energy": 4}
	resp, _ := e.do(t, http.MethodPost, "/checkin", token, payload)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkin status = %d", resp.StatusCode)
	}
	resp, _ = e.do(t, http.MethodPost, "/checkin", token, payload)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second checkin status = %d, want 409", resp.StatusCode)
	}
	resp, body := e.do(t, http.MethodGet, "/checkin", token, nil)
	if resp.StatusCode != http.StatusOK || body["checkedInToday"] != true {
		t.Fatalf("checkin state = %d %v", resp.StatusCode, body)
	}
}

func TestAdminSettingsRequireAdminRole(t *testing.T) {
	e := newTestEnv(t, nil)
	token := e.registerUser(t, "user@example.com")

	resp, _ := e.do(t, http.MethodGet, "/admin/settings", token, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("settings as user = %d, want 403", resp.StatusCode)
	}
}

func TestAdminSettingsRedactAPIKey(t *testing.T) {
	e := newTestEnv(t, nil)
	token := promoteToAdmin(t, e, "admin@example.com")

	resp, body := e.do(t, http.MethodPut, "/admin/settings", token, map[string]any{
		"apiFormat":   "openai",
		"apiEndpoint": "https://api.example.com/v1/chat/completions",
		"apiKey":      "sk-super-secret",
		"authType":    "bearer",
		"modelName":   "gpt-x",
		"temperature": 0.7,
		"maxTokens":   800,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update settings status = %d body = %v", resp.StatusCode, body)
	}
	if _, leaked := body["apiKey"]; leaked {
		t.Fatalf("api key leaked in response: %v", body)
	}
	if body["hasApiKey"] != true {
		t.Fatalf("hasApiKey = %v, want true", body["hasApiKey"])
	}

	resp, body = e.do(t, http.MethodGet, "/admin/settings", token, nil)
	if resp.StatusCode != http.StatusOK || body["configured"] != true {
		t.Fatalf("get settings = %d %v", resp.StatusCode, body)
	}
}

func TestLoginRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter, err := ratelimit.NewFixedWindowLimiter(client, "test:login", 2, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	e := newTestEnv(t, func(cfg *Config) { cfg.LoginLimiter = limiter })

	creds := map[string]string{"email": "x@example.com", "password": "wrongpass1"}
	for i := 0; i < 2; i++ {
		resp, _ := e.do(t, http.MethodPost, "/auth/login", "", creds)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i, resp.StatusCode)
		}
	}
	resp, _ := e.do(t, http.MethodPost, "/auth/login", "", creds)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("limited attempt status = %d, want 429", resp.StatusCode)
	}
}

func TestSuggestionsEndpointAlwaysReturnsArray(t *testing.T) {
	e := newTestEnv(t, nil)
	token := e.registerUser(t, "sugg@example.com")

	resp, body := e.do(t, http.MethodGet, "/suggestions?conversationId=missing", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("suggestions status = %d", resp.StatusCode)
	}
	if _, ok := body["suggestions"].([]any); !ok {
		t.Fatalf("suggestions body = %v, want array", body)
	}
}
