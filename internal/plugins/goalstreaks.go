package plugins

import (
	"context"
	"fmt"
	"time"

	"havenai/pkg/store"
)

// GoalStreaks derives a consecutive-day streak from check-in events. A
// streak counts days with at least one check-in, ending today or
// yesterday (so the streak is not broken before the user had a chance
// to check in today).
type GoalStreaks struct {
	store store.Store
}

func NewGoalStreaks(st store.Store) *GoalStreaks {
	return &GoalStreaks{store: st}
}

func (p *GoalStreaks) Name() string        { return "goal_streaks" }
func (p *GoalStreaks) DisplayName() string { return "Goal Streaks" }
func (p *GoalStreaks) Description() string {
	return "Tracks how many days in a row you have checked in."
}

// Streak returns the current consecutive-day check-in streak.
func (p *GoalStreaks) Streak(userID string) (int, error) {
	since := time.Now().UTC().AddDate(0, 0, -60)
	events, err := p.store.ListEventsByType(userID, checkinEventType, since)
	if err != nil {
		return 0, err
	}
	days := map[string]bool{}
	for _, e := range events {
		days[e.RecordedAt.UTC().Format("2006-01-02")] = true
	}
	now := time.Now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !days[day.Format("2006-01-02")] {
		day = day.AddDate(0, 0, -1)
	}
	streak := 0
	for days[day.Format("2006-01-02")] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak, nil
}

func (p *GoalStreaks) Context(_ context.Context, userID string) (string, error) {
	streak, err := p.Streak(userID)
	if err != nil {
		return "", err
	}
	if streak < 2 {
		return "", nil
	}
	return fmt.Sprintf("The user is on a %d day check-in streak.", streak), nil
}
