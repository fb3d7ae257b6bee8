package plugins

import (
	"context"
	"fmt"
	"strings"
	"time"

	"havenai/internal/util"
	"havenai/pkg/domain"
	"havenai/pkg/store"
)

const moodEventType = "mood"

// MoodTracker records quick mood entries and surfaces the recent trend to
// the model so replies can acknowledge how the user has been feeling.
type MoodTracker struct {
	store store.Store
}

func NewMoodTracker(st store.Store) *MoodTracker {
	return &MoodTracker{store: st}
}

func (p *MoodTracker) Name() string        { return "mood_tracker" }
func (p *MoodTracker) DisplayName() string { return "Mood Tracker" }
func (p *MoodTracker) Description() string {
	return "Log how you feel and see your mood trend over time."
}

// Log appends one mood entry. Mood is a short word like "good" or "anxious".
func (p *MoodTracker) Log(userID, mood, note string) error {
	mood = strings.TrimSpace(mood)
	if mood == "" {
		return fmt.Errorf("mood is required")
	}
	payload := map[string]any{"mood": mood}
	if note = strings.TrimSpace(note); note != "" {
		payload["note"] = note
	}
	return p.store.AppendEvent(domain.AnalyticsEvent{
		ID:         util.NewID(),
		UserID:     userID,
		EventType:  moodEventType,
		Payload:    payload,
		RecordedAt: time.Now().UTC(),
	})
}

// History returns mood entries from the last days days, oldest first.
func (p *MoodTracker) History(userID string, days int) ([]domain.AnalyticsEvent, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	return p.store.ListEventsByType(userID, moodEventType, since)
}

func (p *MoodTracker) Context(_ context.Context, userID string) (string, error) {
	entries, err := p.History(userID, 7)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", nil
	}
	if len(entries) > 5 {
		entries = entries[len(entries)-5:]
	}
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		mood, _ := e.Payload["mood"].(string)
		if mood == "" {
			continue
		}
		if note, _ := e.Payload["note"].(string); note != "" {
			parts = append(parts, fmt.Sprintf("%s (%s)", mood, note))
		} else {
			parts = append(parts, mood)
		}
	}
	if len(parts) == 0 {
		return "", nil
	}
	return "Recent moods the user logged, oldest first: " + strings.Join(parts, ", ") + ".", nil
}
