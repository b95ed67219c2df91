package repository

import (
	"context"

	"github.com/yukikurage/task-assignment-api/internal/models"
	"github.com/yukikurage/task-assignment-api/internal/observability"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db   *gorm.DB
	prom *observability.Prom
}

// NewTaskRepository creates a new TaskRepository. prom may be nil.
func NewTaskRepository(db *gorm.DB, prom *observability.Prom) TaskRepository {
	return &GormTaskRepository{db: db, prom: prom}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return translateError(r.prom.ObserveDB("tasks.create", func() error {
		return r.db.WithContext(ctx).Omit("Assignee").Create(task).Error
	}))
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db.WithContext(ctx)

	// Apply preloading if specified
	for _, p := range preload {
		query = query.Preload(p)
	}

	err := r.prom.ObserveDB("tasks.find_by_id", func() error {
		return query.First(&task, id).Error
	})
	if err != nil {
		return nil, translateError(err)
	}

	return &task, nil
}

// List retrieves tasks ordered by due date, each with its assignee resolved
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, error) {
	tasks := []models.Task{}

	query := r.db.WithContext(ctx).Model(&models.Task{})

	// Apply filters
	if filter.AssigneeID != nil {
		query = query.Where("tasks.assignee_id = ?", *filter.AssigneeID)
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}

	err := r.prom.ObserveDB("tasks.list", func() error {
		return query.Preload("Assignee").
			Order("tasks.due_date ASC").
			Order("tasks.id ASC").
			Find(&tasks).Error
	})
	if err != nil {
		return nil, translateError(err)
	}

	return tasks, nil
}

// Update applies changes to a single task row. Callers check existence first;
// MySQL reports zero affected rows when the values are unchanged.
func (r *GormTaskRepository) Update(ctx context.Context, id uint64, changes map[string]any) error {
	return translateError(r.prom.ObserveDB("tasks.update", func() error {
		return r.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", id).Updates(changes).Error
	}))
}
