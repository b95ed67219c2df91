package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/task-assignment-api/internal/models"
	"github.com/yukikurage/task-assignment-api/internal/repository"
	"github.com/yukikurage/task-assignment-api/internal/security"
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo repository.UserRepository
	hasher   security.Hasher
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, hasher security.Hasher) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		hasher:   hasher,
	}
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Username string
	Password string
}

// Login verifies credentials and returns the authenticated user. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
