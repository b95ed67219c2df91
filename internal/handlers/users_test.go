package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-assignment-api/internal/dto"
	apierrors "github.com/yukikurage/task-assignment-api/internal/errors"
	"github.com/yukikurage/task-assignment-api/internal/models"
	"github.com/yukikurage/task-assignment-api/internal/repository"
	"github.com/yukikurage/task-assignment-api/internal/security"
	"github.com/yukikurage/task-assignment-api/internal/services"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestUserHandler_CreateUser(t *testing.T) {
	env := setupHandlerTestEnv(t)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	r := env.router(admin)

	w := doJSON(t, r, http.MethodPost, "/api/users", map[string]string{
		"username": "newuser",
		"password": "supersecret",
		"name":     "New User",
		"role":     "employee",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "newuser", response.Username)
	assert.Equal(t, models.RoleEmployee, response.Role)
	assert.NotContains(t, w.Body.String(), "supersecret")
}

func TestUserHandler_CreateUserDuplicate(t *testing.T) {
	env := setupHandlerTestEnv(t)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	env.createUser(t, "taken", models.RoleEmployee)
	r := env.router(admin)

	w := doJSON(t, r, http.MethodPost, "/api/users", map[string]string{
		"username": "taken",
		"password": "supersecret",
		"name":     "Someone Else",
	})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apierrors.ErrCodeConflict, decodeError(t, w).Code)

	var count int64
	require.NoError(t, env.db.Model(&models.User{}).Where("username = ?", "taken").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUserHandler_CreateUserValidation(t *testing.T) {
	env := setupHandlerTestEnv(t)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	r := env.router(admin)

	cases := []struct {
		payload map[string]string
		field   string
	}{
		{map[string]string{"username": "ab", "password": "supersecret", "name": "A"}, "username"},
		{map[string]string{"username": "abc", "password": "123", "name": "A"}, "password"},
		{map[string]string{"username": "abc", "password": "supersecret"}, "name"},
		{map[string]string{"username": "abc", "password": "supersecret", "name": "A", "role": "owner"}, "role"},
	}

	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/users", tc.payload)
			require.Equal(t, http.StatusBadRequest, w.Code)
			apiErr := decodeError(t, w)
			assert.Equal(t, apierrors.ErrCodeInvalidInput, apiErr.Code)
			assert.Equal(t, tc.field, apiErr.Field)
		})
	}
}

func TestUserHandler_EmployeeCannotAdminister(t *testing.T) {
	env := setupHandlerTestEnv(t)
	employee := env.createUser(t, "employee", models.RoleEmployee)
	other := env.createUser(t, "other", models.RoleEmployee)
	r := env.router(employee)

	w := doJSON(t, r, http.MethodGet, "/api/users", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/users", map[string]string{
		"username": "sneaky", "password": "supersecret", "name": "Sneaky",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/users/%d", other.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	_, err := env.userService.GetByID(t.Context(), other.ID)
	assert.NoError(t, err)
}

func TestUserHandler_DeleteSelfIsRejected(t *testing.T) {
	env := setupHandlerTestEnv(t)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	r := env.router(admin)

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/users/%d", admin.ID), nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apierrors.ErrCodeInvalidOperation, decodeError(t, w).Code)

	_, err := env.userService.GetByID(t.Context(), admin.ID)
	assert.NoError(t, err)
}

func TestUserHandler_DeleteUser(t *testing.T) {
	env := setupHandlerTestEnv(t)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	bob := env.createUser(t, "bob", models.RoleEmployee)
	r := env.router(admin)

	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	task, err := env.taskService.Create(t.Context(), services.CreateTaskInput{
		Title: "Report", Description: "Quarterly", DueDate: &due, AssigneeID: &bob.ID,
	})
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/users/%d", bob.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, err = env.userService.GetByID(t.Context(), bob.ID)
	assert.ErrorIs(t, err, services.ErrUserNotFound)

	reloaded, err := env.taskService.GetByID(t.Context(), task.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.AssigneeID)

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/users/%d", bob.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/users/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserHandler_UpdateProfile(t *testing.T) {
	env := setupHandlerTestEnv(t)
	bob := env.createUser(t, "bob", models.RoleEmployee)
	r := env.router(bob)

	w := doJSON(t, r, http.MethodPatch, "/api/users/profile", map[string]string{
		"name":      "Robert",
		"bio":       "Likes tasks",
		"avatarUrl": "https://example.com/bob.png",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Robert", response.Name)
	require.NotNil(t, response.Bio)
	assert.Equal(t, "Likes tasks", *response.Bio)
	assert.Equal(t, models.RoleEmployee, response.Role)

	w = doJSON(t, r, http.MethodPatch, "/api/users/profile", map[string]string{"name": "   "})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "name", decodeError(t, w).Field)
}

func TestUserHandler_UpdateUserRole(t *testing.T) {
	env := setupHandlerTestEnv(t)
	admin := env.createUser(t, "admin", models.RoleAdmin)
	bob := env.createUser(t, "bob", models.RoleEmployee)
	r := env.router(admin)

	w := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/users/%d", bob.ID), map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, models.RoleAdmin, response.Role)
	assert.Equal(t, "bob", response.Username)

	w = doJSON(t, r, http.MethodPatch, "/api/users/9999", map[string]string{"name": "Ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserHandler_StorageFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnError(errors.New("pq: relation does not exist"))

	handler := NewUserHandler(services.NewUserService(repository.NewUserRepository(db, nil), security.NewBcryptHasher()))
	r := gin.New()
	r.GET("/api/users", handler.ListUsers)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	apiErr := decodeError(t, w)
	assert.Equal(t, apierrors.ErrCodeInternalError, apiErr.Code)
	assert.Equal(t, "Internal server error", apiErr.Message)
	assert.NotContains(t, w.Body.String(), "relation")

	require.NoError(t, mock.ExpectationsWereMet())
}
