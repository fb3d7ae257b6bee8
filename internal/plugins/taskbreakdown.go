package plugins

import "context"

// TaskBreakdown holds no state. It only steers the model toward offering
// to split overwhelming tasks into small concrete steps.
type TaskBreakdown struct{}

func NewTaskBreakdown() *TaskBreakdown { return &TaskBreakdown{} }

func (p *TaskBreakdown) Name() string        { return "task_breakdown" }
func (p *TaskBreakdown) DisplayName() string { return "Task Breakdown" }
func (p *TaskBreakdown) Description() string {
	return "Helps split overwhelming tasks into small, doable steps."
}

func (p *TaskBreakdown) Context(context.Context, string) (string, error) {
	return "When the user mentions feeling overwhelmed by a task or project, " +
		"offer to break it down together into 3 to 5 small concrete steps, " +
		"and suggest starting with the easiest one.", nil
}
