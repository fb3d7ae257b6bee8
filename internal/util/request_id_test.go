package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithRequestIDEchoesClientHeader(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromRequest(r)
	}))

	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.Header.Set("X-Request-Id", "chat-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "chat-42" {
		t.Fatalf("request id in context = %q, want the client's id", seen)
	}
	if got := rec.Header().Get("X-Request-Id"); got != "chat-42" {
		t.Fatalf("response header = %q, want the client's id echoed", got)
	}
}

func TestWithRequestIDGeneratesDistinctIDs(t *testing.T) {
	h := WithRequestID(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))

	ids := make(map[string]bool)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/suggestions", nil))
		id := rec.Header().Get("X-Request-Id")
		if id == "" {
			t.Fatal("expected a generated request id")
		}
		ids[id] = true
	}
	if len(ids) != 3 {
		t.Fatalf("generated ids collided: %v", ids)
	}
}

func TestRequestIDFromContextMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	if got := RequestIDFromRequest(req); got != "" {
		t.Fatalf("request id without middleware = %q, want empty", got)
	}
}
