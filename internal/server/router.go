package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yukikurage/task-assignment-api/internal/authz"
	"github.com/yukikurage/task-assignment-api/internal/constants"
	"github.com/yukikurage/task-assignment-api/internal/handlers"
	"github.com/yukikurage/task-assignment-api/internal/middleware"
	"github.com/yukikurage/task-assignment-api/internal/observability"
	"github.com/yukikurage/task-assignment-api/internal/repository"
	"github.com/yukikurage/task-assignment-api/internal/security"
	"github.com/yukikurage/task-assignment-api/internal/services"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

// Deps carries everything the router needs. DB and SessionStore are
// required; the rest fall back to working defaults.
type Deps struct {
	DB           *gorm.DB
	SessionStore sessions.Store
	Logger       *slog.Logger
	Prom         *observability.Prom
	Gatherer     prometheus.Gatherer
	LoginLimiter middleware.Limiter
	Hasher       security.Hasher
	ServiceName  string
	MaxBodyBytes int64
}

// NewRouter wires repositories, services and handlers into a gin engine.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Hasher == nil {
		deps.Hasher = security.NewBcryptHasher()
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = constants.DefaultMaxBodyBytes
	}

	r := gin.New()

	r.Use(gin.Recovery())
	if deps.ServiceName != "" {
		r.Use(otelgin.Middleware(deps.ServiceName))
	}
	r.Use(middleware.RequestID())
	r.Use(middleware.SecurityHeaders())
	if deps.Prom != nil {
		r.Use(deps.Prom.HTTPMiddleware())
	}
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodyBytes(deps.MaxBodyBytes))

	// Health and metrics
	health := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// Repositories and services
	userRepo := repository.NewUserRepository(deps.DB, deps.Prom)
	taskRepo := repository.NewTaskRepository(deps.DB, deps.Prom)

	authService := services.NewAuthService(userRepo, deps.Hasher)
	userService := services.NewUserService(userRepo, deps.Hasher)
	taskService := services.NewTaskService(taskRepo)

	gate := authz.NewGate()

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, deps.Prom)
	userHandler := handlers.NewUserHandler(userService)
	taskHandler := handlers.NewTaskHandler(taskService, gate)

	requireAuth := middleware.RequireAuth(userService)

	// API routes
	api := r.Group("/api")
	api.Use(sessions.Sessions(constants.SessionCookieName, deps.SessionStore))
	{
		login := []gin.HandlerFunc{}
		if deps.LoginLimiter != nil {
			login = append(login, middleware.RateLimit(deps.LoginLimiter, middleware.KeyByIP))
		}
		login = append(login, authHandler.Login)

		api.POST("/login", login...)
		api.POST("/logout", authHandler.Logout)
		api.GET("/user", requireAuth, middleware.Authorize(gate, authz.ActionReadSelf), authHandler.GetCurrentUser)

		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.GET("", middleware.Authorize(gate, authz.ActionListUsers), userHandler.ListUsers)
			users.POST("", middleware.Authorize(gate, authz.ActionCreateUser), userHandler.CreateUser)
			users.PATCH("/profile", middleware.Authorize(gate, authz.ActionUpdateProfile), userHandler.UpdateProfile)
			users.PATCH("/:id", middleware.AuthorizeUser(gate, authz.ActionUpdateUser), userHandler.UpdateUser)
			users.DELETE("/:id", middleware.AuthorizeUser(gate, authz.ActionDeleteUser), userHandler.DeleteUser)
		}

		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", middleware.Authorize(gate, authz.ActionListTasks), taskHandler.ListTasks)
			tasks.POST("", middleware.Authorize(gate, authz.ActionCreateTask), taskHandler.CreateTask)
			tasks.GET("/:id", middleware.RequireTaskAccess(taskService, gate, authz.ActionReadTask), taskHandler.GetTask)
			tasks.PATCH("/:id", middleware.RequireTaskAccess(taskService, gate, authz.ActionUpdateTask), taskHandler.UpdateTask)
			tasks.POST("/:id/complete", middleware.RequireTaskAccess(taskService, gate, authz.ActionUpdateTask), taskHandler.CompleteTask)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "message": "Route not found"})
	})

	return r
}
