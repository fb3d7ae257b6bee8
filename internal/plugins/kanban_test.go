package plugins

import (
	"context"
	"errors"
	"testing"

	"havenai/pkg/store"
)

func TestKanbanBoardLifecycle(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewKanban(st)

	task, err := p.AddTask("u1", "todo", "water the plants")
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if _, err := p.AddTask("u1", "doing", "write journal"); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	if err := p.MoveTask("u1", task.ID, "done"); err != nil {
		t.Fatalf("MoveTask: %v", err)
	}
	board, err := p.Board("u1")
	if err != nil {
		t.Fatalf("Board: %v", err)
	}
	if len(board["todo"]) != 0 || len(board["doing"]) != 1 || len(board["done"]) != 1 {
		t.Fatalf("board shape = todo:%d doing:%d done:%d", len(board["todo"]), len(board["doing"]), len(board["done"]))
	}

	ctxBlock, err := p.Context(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Context: %v", err)
	}
	if ctxBlock != "The user's kanban board has 0 task(s) to do, 1 in progress and 1 done." {
		t.Fatalf("context = %q", ctxBlock)
	}

	if err := p.RemoveTask("u1", task.ID); err != nil {
		t.Fatalf("RemoveTask: %v", err)
	}
	if err := p.RemoveTask("u1", task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("RemoveTask again = %v, want ErrTaskNotFound", err)
	}
}

func TestKanbanRejectsUnknownColumn(t *testing.T) {
	p := NewKanban(store.NewMemoryStore())
	if _, err := p.AddTask("u1", "someday", "x"); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("AddTask = %v, want ErrUnknownColumn", err)
	}
	task, err := p.AddTask("u1", "", "defaults to todo")
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if task.Column != "todo" {
		t.Fatalf("column = %q, want todo default", task.Column)
	}
	if err := p.MoveTask("u1", task.ID, "blocked"); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("MoveTask = %v, want ErrUnknownColumn", err)
	}
}
