package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dayloop/planner/internal/apperror"
	"github.com/dayloop/planner/internal/model"
	"github.com/dayloop/planner/internal/repository"
)

func TestCreateAndGetTask(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db)

	due := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	task := &model.Task{
		UserID: user.ID,
		Title:  "water the plants",
		Note:   "the big one needs a lot",
		DueAt:  &due,
	}
	if err := db.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ID == 0 {
		t.Fatal("CreateTask should assign an ID")
	}

	got, err := db.GetTaskByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTaskByID: %v", err)
	}
	if got.Title != task.Title || got.Note != task.Note {
		t.Errorf("got %+v, fields do not round-trip", got)
	}
	if got.DueAt == nil || !got.DueAt.Equal(due) {
		t.Errorf("DueAt = %v, want %v", got.DueAt, due)
	}
	if got.Done {
		t.Error("a new task must not be done")
	}
}

func TestListTasksByUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db)

	other := &model.User{Name: "other", Status: model.StatusActive, Role: model.RoleUser}
	if err := db.CreateUser(ctx, other); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	for i := 0; i < 5; i++ {
		task := &model.Task{UserID: owner.ID, Title: fmt.Sprintf("task %d", i)}
		if err := db.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask #%d: %v", i, err)
		}
	}
	if err := db.CreateTask(ctx, &model.Task{UserID: other.ID, Title: "not yours"}); err != nil {
		t.Fatalf("CreateTask for other: %v", err)
	}

	tasks, err := db.ListTasksByUser(ctx, owner.ID, repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("ListTasksByUser: %v", err)
	}
	if len(tasks) != 5 {
		t.Fatalf("len = %d, want 5", len(tasks))
	}
	for i := 1; i < len(tasks); i++ {
		if tasks[i-1].ID < tasks[i].ID {
			t.Errorf("tasks out of order: %d before %d", tasks[i-1].ID, tasks[i].ID)
		}
	}

	page, err := db.ListTasksByUser(ctx, owner.ID, repository.ListOptions{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatalf("ListTasksByUser page: %v", err)
	}
	if len(page) != 1 {
		t.Errorf("page len = %d, want 1 (only one row past offset 4)", len(page))
	}

	empty, err := db.ListTasksByUser(ctx, 9999, repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("ListTasksByUser empty: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("len = %d, want 0", len(empty))
	}
}

func TestUpdateTask(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db)

	task := &model.Task{UserID: user.ID, Title: "before"}
	if err := db.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	task.Title = "after"
	task.Done = true
	if err := db.UpdateTask(ctx, task); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	got, err := db.GetTaskByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTaskByID: %v", err)
	}
	if got.Title != "after" || !got.Done {
		t.Errorf("got %+v, update not persisted", got)
	}
}

func TestUpdateTask_NotFound(t *testing.T) {
	db := newTestDB(t)

	ghost := &model.Task{ID: 424242, Title: "ghost"}
	if err := db.UpdateTask(context.Background(), ghost); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDeleteTask(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db)

	task := &model.Task{UserID: user.ID, Title: "doomed"}
	if err := db.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	if err := db.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := db.GetTaskByID(ctx, task.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("get after delete error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteTask(ctx, task.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}
