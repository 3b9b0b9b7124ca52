package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dayloop/planner/internal/apperror"
	"github.com/dayloop/planner/internal/model"
	"github.com/dayloop/planner/internal/repository"
)

// Validation constants for tasks.
const (
	MaxTaskTitleLength = 200
	MaxTaskNoteLength  = 10000
	DefaultListLimit   = 20
	MaxListLimit       = 100
)

// TaskService handles business logic for planner tasks. Every operation is
// scoped to the owning user — a task is only ever visible to the account
// that created it.
type TaskService struct {
	repo   repository.TaskRepository
	logger *slog.Logger
}

// NewTaskService creates a TaskService.
func NewTaskService(repo repository.TaskRepository, logger *slog.Logger) *TaskService {
	return &TaskService{
		repo:   repo,
		logger: logger,
	}
}

// Create validates and saves a new task for the user.
func (s *TaskService) Create(ctx context.Context, userID int64, title, note string, dueAt *time.Time) (*model.Task, error) {
	title = strings.TrimSpace(title)

	if title == "" {
		return nil, apperror.ValidationFailed("title", "task title is required")
	}
	if len(title) > MaxTaskTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("task title must be %d characters or fewer", MaxTaskTitleLength))
	}
	if len(note) > MaxTaskNoteLength {
		return nil, apperror.ValidationFailed("note",
			fmt.Sprintf("task note must be %d characters or fewer", MaxTaskNoteLength))
	}

	task := &model.Task{
		UserID: userID,
		Title:  title,
		Note:   note,
		DueAt:  dueAt,
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("service/task: creating task: %w", err)
	}

	s.logger.Info("task created",
		slog.Int64("taskID", task.ID),
		slog.Int64("userID", userID),
	)
	return task, nil
}

// Get returns one task, enforcing ownership.
func (s *TaskService) Get(ctx context.Context, userID, taskID int64) (*model.Task, error) {
	task, err := s.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("service/task: fetching task %d: %w", taskID, err)
	}
	if task.UserID != userID {
		// Not-found rather than forbidden: task IDs are sequential, and a
		// 403 would confirm the ID exists.
		return nil, apperror.NotFound("task", taskID)
	}
	return task, nil
}

// List returns the user's tasks, newest first.
func (s *TaskService) List(ctx context.Context, userID int64, limit, offset int) ([]model.Task, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	tasks, err := s.repo.ListTasksByUser(ctx, userID, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("service/task: listing tasks for user %d: %w", userID, err)
	}
	return tasks, nil
}

// Update replaces the task's mutable fields.
func (s *TaskService) Update(ctx context.Context, userID, taskID int64, title, note string, dueAt *time.Time, done bool) (*model.Task, error) {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "task title is required")
	}
	if len(title) > MaxTaskTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("task title must be %d characters or fewer", MaxTaskTitleLength))
	}
	if len(note) > MaxTaskNoteLength {
		return nil, apperror.ValidationFailed("note",
			fmt.Sprintf("task note must be %d characters or fewer", MaxTaskNoteLength))
	}

	task.Title = title
	task.Note = note
	task.DueAt = dueAt
	task.Done = done

	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("service/task: updating task %d: %w", taskID, err)
	}
	return task, nil
}

// SetDone toggles completion without touching the other fields.
func (s *TaskService) SetDone(ctx context.Context, userID, taskID int64, done bool) (*model.Task, error) {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	task.Done = done
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("service/task: updating task %d: %w", taskID, err)
	}
	return task, nil
}

// Delete removes the task, enforcing ownership.
func (s *TaskService) Delete(ctx context.Context, userID, taskID int64) error {
	if _, err := s.Get(ctx, userID, taskID); err != nil {
		return err
	}
	if err := s.repo.DeleteTask(ctx, taskID); err != nil {
		return fmt.Errorf("service/task: deleting task %d: %w", taskID, err)
	}

	s.logger.Info("task deleted",
		slog.Int64("taskID", taskID),
		slog.Int64("userID", userID),
	)
	return nil
}
