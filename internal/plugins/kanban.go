package plugins

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"havenai/internal/util"
	"havenai/pkg/store"
)

// Kanban column names, in board order.
var kanbanColumns = []string{"todo", "doing", "done"}

var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrUnknownColumn = errors.New("unknown column")
)

// Task is one card on the personal kanban board.
type Task struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Column    string `json:"column"`
	CreatedAt string `json:"createdAt"`
}

// Kanban keeps a small personal board so users can externalize tasks
// instead of carrying them in their head. The whole board lives in the
// plugin state document.
type Kanban struct {
	store store.Store
}

func NewKanban(st store.Store) *Kanban {
	return &Kanban{store: st}
}

func (p *Kanban) Name() string        { return "kanban" }
func (p *Kanban) DisplayName() string { return "Kanban Board" }
func (p *Kanban) Description() string {
	return "A simple personal board with to do, doing and done columns."
}

func validColumn(column string) bool {
	for _, c := range kanbanColumns {
		if c == column {
			return true
		}
	}
	return false
}

// Board returns all tasks grouped by column.
func (p *Kanban) Board(userID string) (map[string][]Task, error) {
	tasks, err := p.loadTasks(userID)
	if err != nil {
		return nil, err
	}
	board := make(map[string][]Task, len(kanbanColumns))
	for _, c := range kanbanColumns {
		board[c] = []Task{}
	}
	for _, t := range tasks {
		board[t.Column] = append(board[t.Column], t)
	}
	return board, nil
}

// AddTask creates a card in the given column and returns it.
func (p *Kanban) AddTask(userID, column, title string) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, fmt.Errorf("task title is required")
	}
	if column == "" {
		column = "todo"
	}
	if !validColumn(column) {
		return Task{}, ErrUnknownColumn
	}
	tasks, err := p.loadTasks(userID)
	if err != nil {
		return Task{}, err
	}
	task := Task{
		ID:        util.NewID(),
		Title:     title,
		Column:    column,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	tasks = append(tasks, task)
	return task, p.saveTasks(userID, tasks)
}

// MoveTask moves a card to another column.
func (p *Kanban) MoveTask(userID, taskID, column string) error {
	if !validColumn(column) {
		return ErrUnknownColumn
	}
	tasks, err := p.loadTasks(userID)
	if err != nil {
		return err
	}
	for i := range tasks {
		if tasks[i].ID == taskID {
			tasks[i].Column = column
			return p.saveTasks(userID, tasks)
		}
	}
	return ErrTaskNotFound
}

// RemoveTask deletes a card from the board.
func (p *Kanban) RemoveTask(userID, taskID string) error {
	tasks, err := p.loadTasks(userID)
	if err != nil {
		return err
	}
	for i := range tasks {
		if tasks[i].ID == taskID {
			tasks = append(tasks[:i], tasks[i+1:]...)
			return p.saveTasks(userID, tasks)
		}
	}
	return ErrTaskNotFound
}

func (p *Kanban) Context(_ context.Context, userID string) (string, error) {
	tasks, err := p.loadTasks(userID)
	if err != nil {
		return "", err
	}
	if len(tasks) == 0 {
		return "", nil
	}
	counts := map[string]int{}
	for _, t := range tasks {
		counts[t.Column]++
	}
	return fmt.Sprintf(
		"The user's kanban board has %d task(s) to do, %d in progress and %d done.",
		counts["todo"], counts["doing"], counts["done"],
	), nil
}

func (p *Kanban) loadTasks(userID string) ([]Task, error) {
	state, found, err := p.store.GetPluginState(userID, p.Name())
	if err != nil || !found {
		return nil, err
	}
	raw, _ := state["tasks"].([]any)
	tasks := make([]Task, 0, len(raw))
	for _, item := range raw {
		doc, ok := item.(map[string]any)
		if !ok {
			continue
		}
		t := Task{}
		t.ID, _ = doc["id"].(string)
		t.Title, _ = doc["title"].(string)
		t.Column, _ = doc["column"].(string)
		t.CreatedAt, _ = doc["createdAt"].(string)
		if t.ID == "" || !validColumn(t.Column) {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (p *Kanban) saveTasks(userID string, tasks []Task) error {
	raw := make([]any, 0, len(tasks))
	for _, t := range tasks {
		raw = append(raw, map[string]any{
			"id":        t.ID,
			"title":     t.Title,
			"column":    t.Column,
			"createdAt": t.CreatedAt,
		})
	}
	return p.store.SavePluginState(userID, p.Name(), map[string]any{"tasks": raw})
}
