package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yukikurage/task-assignment-api/internal/constants"
	"github.com/yukikurage/task-assignment-api/internal/models"
	"github.com/yukikurage/task-assignment-api/internal/repository"
	"github.com/yukikurage/task-assignment-api/internal/security"
)

// UserService is the user directory: account CRUD with unique usernames.
type UserService struct {
	userRepo repository.UserRepository
	hasher   security.Hasher
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepository, hasher security.Hasher) *UserService {
	return &UserService{
		userRepo: userRepo,
		hasher:   hasher,
	}
}

// CreateUserInput represents input for creating a user
type CreateUserInput struct {
	Username  string
	Password  string
	Role      models.UserRole
	Name      string
	Bio       *string
	AvatarURL *string
}

// UpdateUserInput represents a privileged partial update. Nil fields are left
// unchanged; username, id and creation time cannot be changed.
type UpdateUserInput struct {
	Name      *string
	Bio       *string
	AvatarURL *string
	Role      *models.UserRole
	Password  *string
}

// ProfileInput is the subset of fields a user may change on their own account.
type ProfileInput struct {
	Name      *string
	Bio       *string
	AvatarURL *string
}

// GetByID returns a user by ID
func (s *UserService) GetByID(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// GetByUsername returns a user by username
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// ListAll returns every user
func (s *UserService) ListAll(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Create validates input, hashes the password and stores a new user
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	role := input.Role
	if role == "" {
		role = models.RoleEmployee
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Name:         name,
		Bio:          normalizeOptional(input.Bio),
		AvatarURL:    normalizeOptional(input.AvatarURL),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Update applies a privileged partial update to any user
func (s *UserService) Update(ctx context.Context, id uint64, input UpdateUserInput) (*models.User, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}

	changes, err := profileChanges(ProfileInput{
		Name:      input.Name,
		Bio:       input.Bio,
		AvatarURL: input.AvatarURL,
	})
	if err != nil {
		return nil, err
	}

	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, ErrInvalidRole
		}
		changes["role"] = *input.Role
	}
	if input.Password != nil {
		hash, err := s.hashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		changes["password"] = hash
	}

	return s.apply(ctx, id, changes)
}

// UpdateProfile changes the display fields of a user
func (s *UserService) UpdateProfile(ctx context.Context, id uint64, input ProfileInput) (*models.User, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}

	changes, err := profileChanges(input)
	if err != nil {
		return nil, err
	}

	return s.apply(ctx, id, changes)
}

// Delete hard deletes a user. Self-deletion is rejected by the authorization
// gate before this is reached.
func (s *UserService) Delete(ctx context.Context, id uint64) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (s *UserService) apply(ctx context.Context, id uint64, changes map[string]any) (*models.User, error) {
	if len(changes) > 0 {
		if err := s.userRepo.Update(ctx, id, changes); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}
	return s.GetByID(ctx, id)
}

func (s *UserService) hashPassword(password string) (string, error) {
	if utf8.RuneCountInString(password) < constants.MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	if len(password) > constants.MaxPasswordLength {
		return "", ErrPasswordTooLong
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", ErrFailedToHashPassword
	}
	return hash, nil
}

func profileChanges(input ProfileInput) (map[string]any, error) {
	changes := map[string]any{}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		changes["name"] = name
	}
	if input.Bio != nil {
		changes["bio"] = normalizeOptional(input.Bio)
	}
	if input.AvatarURL != nil {
		changes["avatar_url"] = normalizeOptional(input.AvatarURL)
	}

	return changes, nil
}

// normalizeOptional stores blank optional text as NULL.
func normalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
