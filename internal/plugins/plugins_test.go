package plugins

import (
	"context"
	"errors"
	"testing"
	"time"

	"havenai/internal/util"
	"havenai/pkg/domain"
	"havenai/pkg/store"
)

type stubPlugin struct {
	name  string
	block string
	err   error
	panic bool
}

func (p *stubPlugin) Name() string        { return p.name }
func (p *stubPlugin) DisplayName() string { return p.name }
func (p *stubPlugin) Description() string { return "" }
func (p *stubPlugin) Context(context.Context, string) (string, error) {
	if p.panic {
		panic("boom")
	}
	return p.block, p.err
}

func TestCollectContextSkipsFailingAndEmptyPlugins(t *testing.T) {
	m := NewManager(store.NewMemoryStore())
	m.Register(&stubPlugin{name: "failing", err: errors.New("db down")})
	m.Register(&stubPlugin{name: "silent", block: ""})
	m.Register(&stubPlugin{name: "mood", block: "mood: good"})

	got := m.CollectContext(context.Background(), "u1")
	if got != "mood: good" {
		t.Fatalf("context = %q, want only the healthy plugin block", got)
	}
}

func TestCollectContextRecoversFromPanics(t *testing.T) {
	m := NewManager(store.NewMemoryStore())
	m.Register(&stubPlugin{name: "panicky", panic: true})
	m.Register(&stubPlugin{name: "ok", block: "still here"})

	if got := m.CollectContext(context.Background(), "u1"); got != "still here" {
		t.Fatalf("context = %q, want panicking plugin skipped", got)
	}
}

func TestCollectContextJoinsInRegistrationOrder(t *testing.T) {
	m := NewManager(store.NewMemoryStore())
	m.Register(&stubPlugin{name: "first", block: "alpha"})
	m.Register(&stubPlugin{name: "second", block: "beta"})

	if got := m.CollectContext(context.Background(), "u1"); got != "alpha\n\nbeta" {
		t.Fatalf("context = %q, want blocks joined with a blank line", got)
	}
}

func TestPluginsDefaultEnabledAndToggle(t *testing.T) {
	st := store.NewMemoryStore()
	m := NewManager(st)
	m.Register(&stubPlugin{name: "mood", block: "mood: low"})

	enabled, err := m.Enabled("u1", "mood")
	if err != nil || !enabled {
		t.Fatalf("Enabled = (%v, %v), want default on", enabled, err)
	}
	if err := m.SetEnabled("u1", "mood", false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if got := m.CollectContext(context.Background(), "u1"); got != "" {
		t.Fatalf("context = %q, want disabled plugin skipped", got)
	}
	if got := m.CollectContext(context.Background(), "u2"); got != "mood: low" {
		t.Fatalf("context = %q, toggle must be per user", got)
	}
	if err := m.SetEnabled("u1", "nope", true); !errors.Is(err, ErrUnknownPlugin) {
		t.Fatalf("SetEnabled unknown = %v, want ErrUnknownPlugin", err)
	}
}

func TestMoodTrackerContextUsesLastFiveEntries(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewMoodTracker(st)
	moods := []string{"tired", "ok", "ok", "good", "good", "great"}
	for _, mood := range moods {
		if err := p.Log("u1", mood, ""); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}
	got, err := p.Context(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Context: %v", err)
	}
	want := "Recent moods the user logged, oldest first: ok, ok, good, good, great."
	if got != want {
		t.Fatalf("context = %q, want %q", got, want)
	}
}

func TestDailyCheckinOncePerDay(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewDailyCheckin(st)

	done, err := p.HasCheckedInToday("u1")
	if err != nil || done {
		t.Fatalf("HasCheckedInToday = (%v, %v), want false before submit", done, err)
	}
	if err := p.Submit("u1", "calm", 4, "slept well"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := p.Submit("u1", "calm", 4, ""); !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Fatalf("second Submit = %v, want ErrAlreadyCheckedIn", err)
	}
	got, err := p.Context(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Context: %v", err)
	}
	if got != "In today's check-in the user said they feel calm." {
		t.Fatalf("context = %q", got)
	}
}

func TestGoalStreaksCountsConsecutiveDays(t *testing.T) {
	st := store.NewMemoryStore()
	now := time.Now().UTC()
	for _, daysAgo := range []int{0, 1, 2, 4} {
		err := st.AppendEvent(domain.AnalyticsEvent{
			ID:         util.NewID(),
			UserID:     "u1",
			EventType:  "checkin",
			Payload:    map[string]any{"mood": "ok"},
			RecordedAt: now.AddDate(0, 0, -daysAgo),
		})
		if err != nil {
			t.Fatalf("AppendEvent: %v", err)
		}
	}
	p := NewGoalStreaks(st)
	streak, err := p.Streak("u1")
	if err != nil {
		t.Fatalf("Streak: %v", err)
	}
	if streak != 3 {
		t.Fatalf("streak = %d, want 3 (gap at day -3 breaks it)", streak)
	}
}
