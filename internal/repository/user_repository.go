package repository

import (
	"context"

	"github.com/yukikurage/task-assignment-api/internal/models"
	"github.com/yukikurage/task-assignment-api/internal/observability"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db   *gorm.DB
	prom *observability.Prom
}

// NewUserRepository creates a new UserRepository. prom may be nil.
func NewUserRepository(db *gorm.DB, prom *observability.Prom) UserRepository {
	return &GormUserRepository{db: db, prom: prom}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return translateError(r.prom.ObserveDB("users.create", func() error {
		return r.db.WithContext(ctx).Create(user).Error
	}))
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	err := r.prom.ObserveDB("users.find_by_id", func() error {
		return r.db.WithContext(ctx).First(&user, id).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// FindByUsername finds a user by username
func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.prom.ObserveDB("users.find_by_username", func() error {
		return r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// List returns every user ordered by ID
func (r *GormUserRepository) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := r.prom.ObserveDB("users.list", func() error {
		return r.db.WithContext(ctx).Order("id ASC").Find(&users).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return users, nil
}

// Update applies changes to a single user row. Callers check existence first;
// MySQL reports zero affected rows when the values are unchanged.
func (r *GormUserRepository) Update(ctx context.Context, id uint64, changes map[string]any) error {
	return translateError(r.prom.ObserveDB("users.update", func() error {
		return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(changes).Error
	}))
}

// Delete hard deletes a user. Tasks assigned to them become unassigned
// through the ON DELETE SET NULL constraint.
func (r *GormUserRepository) Delete(ctx context.Context, id uint64) error {
	var affected int64
	err := r.prom.ObserveDB("users.delete", func() error {
		result := r.db.WithContext(ctx).Delete(&models.User{}, id)
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return translateError(err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByRole counts users holding role
func (r *GormUserRepository) CountByRole(ctx context.Context, role models.UserRole) (int64, error) {
	var count int64
	err := r.prom.ObserveDB("users.count_by_role", func() error {
		return r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Count(&count).Error
	})
	return count, translateError(err)
}
