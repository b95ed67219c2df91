package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yukikurage/task-assignment-api/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicate is returned when a uniqueness constraint rejects a write.
	ErrDuplicate = errors.New("repository: duplicate key")
	// ErrForeignKey is returned when a referenced row does not exist.
	ErrForeignKey = errors.New("repository: foreign key violation")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// List returns every user ordered by ID
	List(ctx context.Context) ([]models.User, error)

	// Update applies the given column changes to a user
	Update(ctx context.Context, id uint64, changes map[string]any) error

	// Delete hard deletes a user
	Delete(ctx context.Context, id uint64) error

	// CountByRole counts users holding role
	CountByRole(ctx context.Context, role models.UserRole) (int64, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with their assignee
	List(ctx context.Context, filter TaskFilter) ([]models.Task, error)

	// Update applies the given column changes to a task
	Update(ctx context.Context, id uint64, changes map[string]any) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	AssigneeID *uint64
	Status     *models.TaskStatus
}

// translateError maps driver errors onto the repository sentinels. gorm's
// TranslateError covers the common cases; the fallbacks catch drivers or
// versions that do not translate.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return ErrForeignKey
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrDuplicate
		case "23503":
			return ErrForeignKey
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"), strings.Contains(msg, "Duplicate entry"):
		return ErrDuplicate
	case strings.Contains(msg, "FOREIGN KEY constraint failed"), strings.Contains(msg, "a foreign key constraint fails"):
		return ErrForeignKey
	}

	return err
}
