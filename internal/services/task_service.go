package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/task-assignment-api/internal/models"
	"github.com/yukikurage/task-assignment-api/internal/repository"
)

// TaskService is the task ledger: creation, lookup, listing and partial
// updates of tasks, each optionally assigned to one user.
type TaskService struct {
	taskRepo repository.TaskRepository
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository) *TaskService {
	return &TaskService{taskRepo: taskRepo}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	DueDate     *time.Time
	Status      models.TaskStatus
	AssigneeID  *uint64
}

// UpdateTaskInput represents a partial task update. Nil fields are left
// unchanged; ClearAssignee unassigns the task.
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	DueDate       *time.Time
	Status        *models.TaskStatus
	AssigneeID    *uint64
	ClearAssignee bool
}

// Create stores a new task. The assignee reference is checked by the
// storage foreign key.
func (s *TaskService) Create(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, ErrDescriptionRequired
	}
	if input.DueDate == nil || input.DueDate.IsZero() {
		return nil, ErrDueDateRequired
	}

	status := input.Status
	if status == "" {
		status = models.TaskStatusPending
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	task := &models.Task{
		Title:       title,
		Description: description,
		DueDate:     input.DueDate.UTC(),
		Status:      status,
		AssigneeID:  input.AssigneeID,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			return nil, ErrAssigneeNotFound
		}
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.GetByID(ctx, task.ID)
}

// GetByID returns a task with its assignee
func (s *TaskService) GetByID(ctx context.Context, id uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id, "Assignee")
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// ListAll returns every task, optionally narrowed to one status
func (s *TaskService) ListAll(ctx context.Context, status *models.TaskStatus) ([]models.Task, error) {
	return s.list(ctx, repository.TaskFilter{Status: status})
}

// ListByAssignee returns the tasks assigned to userID, optionally narrowed to
// one status
func (s *TaskService) ListByAssignee(ctx context.Context, userID uint64, status *models.TaskStatus) ([]models.Task, error) {
	return s.list(ctx, repository.TaskFilter{AssigneeID: &userID, Status: status})
}

// Update applies a partial update and returns the refreshed task
func (s *TaskService) Update(ctx context.Context, id uint64, input UpdateTaskInput) (*models.Task, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}

	changes := map[string]any{}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		changes["title"] = title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return nil, ErrDescriptionRequired
		}
		changes["description"] = description
	}
	if input.DueDate != nil {
		if input.DueDate.IsZero() {
			return nil, ErrDueDateRequired
		}
		changes["due_date"] = input.DueDate.UTC()
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		changes["status"] = *input.Status
	}
	if input.ClearAssignee {
		changes["assignee_id"] = nil
	} else if input.AssigneeID != nil {
		changes["assignee_id"] = *input.AssigneeID
	}

	if len(changes) > 0 {
		if err := s.taskRepo.Update(ctx, id, changes); err != nil {
			if errors.Is(err, repository.ErrForeignKey) {
				return nil, ErrAssigneeNotFound
			}
			return nil, fmt.Errorf("failed to update task: %w", err)
		}
	}

	return s.GetByID(ctx, id)
}

// Complete marks a task as completed. Completing an already completed task
// is a no-op.
func (s *TaskService) Complete(ctx context.Context, id uint64) (*models.Task, error) {
	status := models.TaskStatusCompleted
	return s.Update(ctx, id, UpdateTaskInput{Status: &status})
}

func (s *TaskService) list(ctx context.Context, filter repository.TaskFilter) ([]models.Task, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	tasks, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}
