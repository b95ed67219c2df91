package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-assignment-api/internal/database"
	"github.com/yukikurage/task-assignment-api/internal/models"
	"github.com/yukikurage/task-assignment-api/internal/repository"
	"github.com/yukikurage/task-assignment-api/internal/security"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db          *gorm.DB
	authService *AuthService
	userService *UserService
	taskService *TaskService
}

func setupTestEnv(t *testing.T) testEnv {
	t.Helper()

	db, err := database.OpenSQLite(":memory:", &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		_ = database.Close(db)
	})

	hasher := &security.BcryptHasher{Cost: bcrypt.MinCost}
	userRepo := repository.NewUserRepository(db, nil)
	taskRepo := repository.NewTaskRepository(db, nil)

	return testEnv{
		db:          db,
		authService: NewAuthService(userRepo, hasher),
		userService: NewUserService(userRepo, hasher),
		taskService: NewTaskService(taskRepo),
	}
}

func (e testEnv) createUser(t *testing.T, username string, role models.UserRole) *models.User {
	t.Helper()
	user, err := e.userService.Create(context.Background(), CreateUserInput{
		Username: username,
		Password: "password123",
		Role:     role,
		Name:     username,
	})
	require.NoError(t, err)
	return user
}

func TestAuthService_Login(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "alice", models.RoleEmployee)

	user, err := env.authService.Login(ctx, LoginInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = env.authService.Login(ctx, LoginInput{Username: "alice", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.authService.Login(ctx, LoginInput{Username: "ghost", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_Create(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "alice", "")
	assert.Equal(t, models.RoleEmployee, user.Role)
	assert.NotEqual(t, "password123", user.PasswordHash)

	_, err := env.userService.Create(ctx, CreateUserInput{Username: "alice", Password: "password123", Name: "Other"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = env.userService.Create(ctx, CreateUserInput{Username: "bob", Password: "123", Name: "Bob"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = env.userService.Create(ctx, CreateUserInput{Username: "bob", Password: "password123", Name: "  "})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = env.userService.Create(ctx, CreateUserInput{Username: "bob", Password: "password123", Name: "Bob", Role: "owner"})
	assert.ErrorIs(t, err, ErrInvalidRole)

	users, err := env.userService.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUserService_Update(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice", models.RoleEmployee)

	name := "Alice Liddell"
	bio := "Curious"
	updated, err := env.userService.UpdateProfile(ctx, alice.ID, ProfileInput{Name: &name, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	require.NotNil(t, updated.Bio)
	assert.Equal(t, bio, *updated.Bio)
	assert.Equal(t, alice.Username, updated.Username)

	empty := ""
	updated, err = env.userService.UpdateProfile(ctx, alice.ID, ProfileInput{Bio: &empty})
	require.NoError(t, err)
	assert.Nil(t, updated.Bio)

	role := models.RoleAdmin
	password := "new-password"
	updated, err = env.userService.Update(ctx, alice.ID, UpdateUserInput{Role: &role, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)

	_, err = env.authService.Login(ctx, LoginInput{Username: "alice", Password: "new-password"})
	assert.NoError(t, err)

	_, err = env.userService.Update(ctx, 9999, UpdateUserInput{Name: &name})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_Delete(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	bob := env.createUser(t, "bob", models.RoleEmployee)

	require.NoError(t, env.userService.Delete(ctx, bob.ID))
	assert.ErrorIs(t, env.userService.Delete(ctx, bob.ID), ErrUserNotFound)

	_, err := env.userService.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestTaskService_CreateDefaultsToPending(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	bob := env.createUser(t, "bob", models.RoleEmployee)

	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	task, err := env.taskService.Create(ctx, CreateTaskInput{
		Title:       "Write report",
		Description: "Quarterly numbers",
		DueDate:     &due,
		AssigneeID:  &bob.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.True(t, due.Equal(task.DueDate))
	require.NotNil(t, task.Assignee)
	assert.Equal(t, bob.ID, task.Assignee.ID)
}

func TestTaskService_CreateValidation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	due := time.Now()
	missing := uint64(777)

	cases := []struct {
		name  string
		input CreateTaskInput
		want  error
	}{
		{"empty title", CreateTaskInput{Title: " ", Description: "d", DueDate: &due}, ErrTitleRequired},
		{"empty description", CreateTaskInput{Title: "t", DueDate: &due}, ErrDescriptionRequired},
		{"no due date", CreateTaskInput{Title: "t", Description: "d"}, ErrDueDateRequired},
		{"bad status", CreateTaskInput{Title: "t", Description: "d", DueDate: &due, Status: "archived"}, ErrInvalidStatus},
		{"unknown assignee", CreateTaskInput{Title: "t", Description: "d", DueDate: &due, AssigneeID: &missing}, ErrAssigneeNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.taskService.Create(ctx, tc.input)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	tasks, err := env.taskService.ListAll(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestTaskService_PartialUpdate(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	bob := env.createUser(t, "bob", models.RoleEmployee)

	due := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	task, err := env.taskService.Create(ctx, CreateTaskInput{
		Title:       "Write report",
		Description: "Quarterly numbers",
		DueDate:     &due,
		AssigneeID:  &bob.ID,
	})
	require.NoError(t, err)

	completed := models.TaskStatusCompleted
	updated, err := env.taskService.Update(ctx, task.ID, UpdateTaskInput{Status: &completed})
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusCompleted, updated.Status)
	assert.Equal(t, task.Title, updated.Title)
	assert.Equal(t, task.Description, updated.Description)
	assert.True(t, task.DueDate.Equal(updated.DueDate))
	assert.Equal(t, task.AssigneeID, updated.AssigneeID)

	updated, err = env.taskService.Update(ctx, task.ID, UpdateTaskInput{ClearAssignee: true})
	require.NoError(t, err)
	assert.Nil(t, updated.AssigneeID)
	assert.Nil(t, updated.Assignee)

	empty := ""
	_, err = env.taskService.Update(ctx, task.ID, UpdateTaskInput{Title: &empty})
	assert.ErrorIs(t, err, ErrTitleRequired)

	_, err = env.taskService.Update(ctx, 9999, UpdateTaskInput{Status: &completed})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskService_CompleteIsIdempotent(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	due := time.Now()

	task, err := env.taskService.Create(ctx, CreateTaskInput{Title: "t", Description: "d", DueDate: &due})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		done, err := env.taskService.Complete(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TaskStatusCompleted, done.Status)
	}
}

func TestTaskService_ListByAssignee(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	bob := env.createUser(t, "bob", models.RoleEmployee)
	carol := env.createUser(t, "carol", models.RoleEmployee)
	due := time.Now()

	for _, assignee := range []*models.User{bob, carol, bob} {
		_, err := env.taskService.Create(ctx, CreateTaskInput{
			Title:       "task for " + assignee.Username,
			Description: "d",
			DueDate:     &due,
			AssigneeID:  &assignee.ID,
		})
		require.NoError(t, err)
	}

	own, err := env.taskService.ListByAssignee(ctx, bob.ID, nil)
	require.NoError(t, err)
	assert.Len(t, own, 2)
	for _, task := range own {
		assert.Equal(t, bob.ID, *task.AssigneeID)
	}

	invalid := models.TaskStatus("archived")
	_, err = env.taskService.ListAll(ctx, &invalid)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
