package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-assignment-api/internal/authz"
	"github.com/yukikurage/task-assignment-api/internal/constants"
	"github.com/yukikurage/task-assignment-api/internal/database"
	apierrors "github.com/yukikurage/task-assignment-api/internal/errors"
	"github.com/yukikurage/task-assignment-api/internal/middleware"
	"github.com/yukikurage/task-assignment-api/internal/models"
	"github.com/yukikurage/task-assignment-api/internal/repository"
	"github.com/yukikurage/task-assignment-api/internal/security"
	"github.com/yukikurage/task-assignment-api/internal/services"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type handlerTestEnv struct {
	db          *gorm.DB
	gate        *authz.Gate
	userService *services.UserService
	taskService *services.TaskService
	authHandler *AuthHandler
	userHandler *UserHandler
	taskHandler *TaskHandler
}

func setupHandlerTestEnv(t *testing.T) handlerTestEnv {
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

	userService := services.NewUserService(userRepo, hasher)
	taskService := services.NewTaskService(taskRepo)
	gate := authz.NewGate()

	return handlerTestEnv{
		db:          db,
		gate:        gate,
		userService: userService,
		taskService: taskService,
		authHandler: NewAuthHandler(services.NewAuthService(userRepo, hasher), nil),
		userHandler: NewUserHandler(userService),
		taskHandler: NewTaskHandler(taskService, gate),
	}
}

// router registers the API routes behind a stand-in for RequireAuth that
// authenticates every request as user (nil means anonymous).
func (e handlerTestEnv) router(user *models.User) *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))

	r.POST("/api/login", e.authHandler.Login)
	r.POST("/api/logout", e.authHandler.Logout)

	authed := r.Group("/api")
	authed.Use(func(c *gin.Context) {
		if user == nil {
			apierrors.Unauthorized(c, "")
			return
		}
		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyUser, user)
		c.Next()
	})

	authed.GET("/user", e.authHandler.GetCurrentUser)
	authed.GET("/users", middleware.Authorize(e.gate, authz.ActionListUsers), e.userHandler.ListUsers)
	authed.POST("/users", middleware.Authorize(e.gate, authz.ActionCreateUser), e.userHandler.CreateUser)
	authed.PATCH("/users/profile", middleware.Authorize(e.gate, authz.ActionUpdateProfile), e.userHandler.UpdateProfile)
	authed.PATCH("/users/:id", middleware.AuthorizeUser(e.gate, authz.ActionUpdateUser), e.userHandler.UpdateUser)
	authed.DELETE("/users/:id", middleware.AuthorizeUser(e.gate, authz.ActionDeleteUser), e.userHandler.DeleteUser)

	authed.GET("/tasks", middleware.Authorize(e.gate, authz.ActionListTasks), e.taskHandler.ListTasks)
	authed.POST("/tasks", middleware.Authorize(e.gate, authz.ActionCreateTask), e.taskHandler.CreateTask)
	authed.GET("/tasks/:id", middleware.RequireTaskAccess(e.taskService, e.gate, authz.ActionReadTask), e.taskHandler.GetTask)
	authed.PATCH("/tasks/:id", middleware.RequireTaskAccess(e.taskService, e.gate, authz.ActionUpdateTask), e.taskHandler.UpdateTask)
	authed.POST("/tasks/:id/complete", middleware.RequireTaskAccess(e.taskService, e.gate, authz.ActionUpdateTask), e.taskHandler.CompleteTask)

	return r
}

func (e handlerTestEnv) createUser(t *testing.T, username string, role models.UserRole) *models.User {
	t.Helper()
	user, err := e.userService.Create(context.Background(), services.CreateUserInput{
		Username: username,
		Password: "password123",
		Role:     role,
		Name:     username + " name",
	})
	require.NoError(t, err)
	return user
}

func doJSON(t *testing.T, r http.Handler, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	switch p := payload.(type) {
	case nil:
		body = bytes.NewReader(nil)
	case string:
		body = bytes.NewReader([]byte(p))
	default:
		raw, err := json.Marshal(p)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apierrors.APIError {
	t.Helper()
	var out apierrors.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
