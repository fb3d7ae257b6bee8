package plugins

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"havenai/internal/util"
	"havenai/pkg/domain"
	"havenai/pkg/store"
)

const checkinEventType = "checkin"

var ErrAlreadyCheckedIn = errors.New("already checked in today")

// DailyCheckin captures one structured check-in per day: a mood word, an
// energy level from 1 to 5, and an optional gratitude line.
type DailyCheckin struct {
	store store.Store
}

func NewDailyCheckin(st store.Store) *DailyCheckin {
	return &DailyCheckin{store: st}
}

func (p *DailyCheckin) Name() string        { return "daily_checkin" }
func (p *DailyCheckin) DisplayName() string { return "Daily Check-in" }
func (p *DailyCheckin) Description() string {
	return "A short daily check-in to track mood, energy and gratitude."
}

// Submit records today's check-in. A second submission on the same day
// returns ErrAlreadyCheckedIn.
func (p *DailyCheckin) Submit(userID, mood string, energy int, gratitude string) error {
	mood = strings.TrimSpace(mood)
	if mood == "" {
		return fmt.Errorf("mood is required")
	}
	if energy < 1 || energy > 5 {
		return fmt.Errorf("energy must be between 1 and 5")
	}
	done, err := p.HasCheckedInToday(userID)
	if err != nil {
		return err
	}
	if done {
		return ErrAlreadyCheckedIn
	}
	payload := map[string]any{"mood": mood, "energy": energy}
	if gratitude = strings.TrimSpace(gratitude); gratitude != "" {
		payload["gratitude"] = gratitude
	}
	return p.store.AppendEvent(domain.AnalyticsEvent{
		ID:         util.NewID(),
		UserID:     userID,
		EventType:  checkinEventType,
		Payload:    payload,
		RecordedAt: time.Now().UTC(),
	})
}

func (p *DailyCheckin) HasCheckedInToday(userID string) (bool, error) {
	events, err := p.todayEvents(userID)
	if err != nil {
		return false, err
	}
	return len(events) > 0, nil
}

func (p *DailyCheckin) todayEvents(userID string) ([]domain.AnalyticsEvent, error) {
	now := time.Now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return p.store.ListEventsByType(userID, checkinEventType, startOfDay)
}

func (p *DailyCheckin) Context(_ context.Context, userID string) (string, error) {
	events, err := p.todayEvents(userID)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		return "The user has not completed today's check-in yet.", nil
	}
	latest := events[len(events)-1]
	mood, _ := latest.Payload["mood"].(string)
	if mood == "" {
		return "The user completed today's check-in.", nil
	}
	return fmt.Sprintf("In today's check-in the user said they feel %s.", mood), nil
}
