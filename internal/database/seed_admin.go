package database

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"

	"github.com/yukikurage/task-assignment-api/internal/models"
	"github.com/yukikurage/task-assignment-api/internal/repository"
	"github.com/yukikurage/task-assignment-api/internal/security"
)

// AdminSeed describes the default administrator created on first start.
type AdminSeed struct {
	Username string
	Password string
	Name     string
}

// SeedResult reports what EnsureAdminUser did.
type SeedResult struct {
	Created  bool
	Username string
	// Reason explains a skipped seed.
	Reason string
	// GeneratedPassword is set when no password was configured and one was
	// generated for the new account.
	GeneratedPassword string
}

// EnsureAdminUser creates the default admin account unless an admin already
// exists. It is idempotent and must finish before the server accepts requests.
func EnsureAdminUser(ctx context.Context, users repository.UserRepository, hasher security.Hasher, seed AdminSeed) (SeedResult, error) {
	result := SeedResult{Username: seed.Username}

	if seed.Username == "" {
		return result, errors.New("admin username is required")
	}

	// check if the seeded account exists
	_, err := users.FindByUsername(ctx, seed.Username)
	if err == nil {
		result.Reason = "user already exists"
		return result, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return result, fmt.Errorf("failed to look up admin user: %w", err)
	}

	admins, err := users.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return result, fmt.Errorf("failed to count admins: %w", err)
	}
	if admins > 0 {
		result.Reason = "an admin account already exists"
		return result, nil
	}

	password := seed.Password
	if password == "" {
		password, err = randomPassword()
		if err != nil {
			return result, err
		}
		result.GeneratedPassword = password
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return result, fmt.Errorf("failed to hash admin password: %w", err)
	}

	name := seed.Name
	if name == "" {
		name = "System Admin"
	}
	bio := "The system administrator."
	avatar := "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"

	admin := &models.User{
		Username:     seed.Username,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Name:         name,
		Bio:          &bio,
		AvatarURL:    &avatar,
	}

	if err := users.Create(ctx, admin); err != nil {
		// another instance seeded first
		if errors.Is(err, repository.ErrDuplicate) {
			result.Reason = "user already exists"
			result.GeneratedPassword = ""
			return result, nil
		}
		return result, fmt.Errorf("failed to create admin user: %w", err)
	}

	result.Created = true
	return result, nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate admin password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
