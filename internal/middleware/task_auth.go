package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-assignment-api/internal/authz"
	"github.com/yukikurage/task-assignment-api/internal/constants"
	apierrors "github.com/yukikurage/task-assignment-api/internal/errors"
	"github.com/yukikurage/task-assignment-api/internal/models"
	"github.com/yukikurage/task-assignment-api/internal/services"
)

// TaskLoader resolves the task named in a request path.
type TaskLoader interface {
	GetByID(ctx context.Context, id uint64) (*models.Task, error)
}

// RequireTaskAccess loads the task in the :id path parameter and checks that
// the caller may perform action on it. A missing task is reported before a
// permission failure.
func RequireTaskAccess(tasks TaskLoader, gate *authz.Gate, action authz.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequestField(c, "id", "Invalid task ID")
			return
		}

		task, err := tasks.GetByID(c.Request.Context(), taskID)
		if err != nil {
			if errors.Is(err, services.ErrTaskNotFound) {
				apierrors.NotFound(c, "Task not found")
				return
			}
			slog.ErrorContext(c.Request.Context(), "load task failed", "task_id", taskID, "err", err)
			apierrors.InternalError(c, "")
			return
		}

		if err := gate.Authorize(GetCaller(c), action, authz.TaskTarget(task)); err != nil {
			RespondAuthzError(c, err)
			return
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}

// GetTask returns the task loaded by RequireTaskAccess.
func GetTask(c *gin.Context) (*models.Task, bool) {
	v, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return nil, false
	}
	task, ok := v.(*models.Task)
	return task, ok && task != nil
}
