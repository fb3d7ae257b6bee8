package plugins

import (
	"context"
	"time"
)

// RechargeItem is one piece of motivational or restorative content.
type RechargeItem struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

var rechargeQuotes = []RechargeItem{
	{Kind: "quote", Title: "Small steps", Body: "You don't have to see the whole staircase, just take the first step."},
	{Kind: "quote", Title: "Rest is productive", Body: "Rest is not a reward for finishing. It is part of the work."},
	{Kind: "quote", Title: "Progress over perfection", Body: "Done is better than perfect, and started is better than done later."},
	{Kind: "quote", Title: "Be kind to yourself", Body: "Talk to yourself the way you would talk to a good friend."},
	{Kind: "quote", Title: "One day at a time", Body: "You have survived every difficult day so far. That record stands."},
}

var rechargeExercises = []RechargeItem{
	{Kind: "exercise", Title: "Box breathing", Body: "Breathe in for 4 seconds, hold for 4, out for 4, hold for 4. Repeat four times."},
	{Kind: "exercise", Title: "5-4-3-2-1 grounding", Body: "Name 5 things you can see, 4 you can touch, 3 you can hear, 2 you can smell, 1 you can taste."},
	{Kind: "exercise", Title: "Shoulder drop", Body: "Raise your shoulders to your ears, hold for 5 seconds, then let them fall. Repeat three times."},
}

// Recharge serves short restorative content. It keeps no per-user state;
// the daily pick rotates with the calendar so everyone sees the same
// quote on the same day.
type Recharge struct{}

func NewRecharge() *Recharge { return &Recharge{} }

func (p *Recharge) Name() string        { return "recharge" }
func (p *Recharge) DisplayName() string { return "Recharge" }
func (p *Recharge) Description() string {
	return "Short quotes and breathing exercises for a quick reset."
}

// Daily returns today's quote and one suggested exercise.
func (p *Recharge) Daily() []RechargeItem {
	day := time.Now().UTC().YearDay()
	return []RechargeItem{
		rechargeQuotes[day%len(rechargeQuotes)],
		rechargeExercises[day%len(rechargeExercises)],
	}
}

// Library returns the full content set.
func (p *Recharge) Library() []RechargeItem {
	items := make([]RechargeItem, 0, len(rechargeQuotes)+len(rechargeExercises))
	items = append(items, rechargeQuotes...)
	items = append(items, rechargeExercises...)
	return items
}

func (p *Recharge) Context(context.Context, string) (string, error) {
	return "", nil
}
