package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-assignment-api/internal/authz"
	"github.com/yukikurage/task-assignment-api/internal/dto"
	apierrors "github.com/yukikurage/task-assignment-api/internal/errors"
	"github.com/yukikurage/task-assignment-api/internal/middleware"
	"github.com/yukikurage/task-assignment-api/internal/models"
	"github.com/yukikurage/task-assignment-api/internal/services"
)

// TaskHandler serves the task ledger endpoints.
type TaskHandler struct {
	taskService *services.TaskService
	gate        *authz.Gate
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService, gate *authz.Gate) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		gate:        gate,
	}
}

// CreateTaskRequest is the body of POST /api/tasks.
type CreateTaskRequest struct {
	Title       string  `json:"title" binding:"required,max=200"`
	Description string  `json:"description" binding:"required"`
	DueDate     *string `json:"dueDate" binding:"required"`
	Status      string  `json:"status" binding:"omitempty,oneof=pending completed"`
	AssigneeID  *uint64 `json:"assigneeId"`
}

// UpdateTaskRequest is the body of PATCH /api/tasks/:id. Every field is
// optional; "assigneeId": null unassigns the task.
type UpdateTaskRequest struct {
	Title       *string        `json:"title" binding:"omitempty,max=200"`
	Description *string        `json:"description"`
	DueDate     *string        `json:"dueDate"`
	Status      *string        `json:"status" binding:"omitempty,oneof=pending completed"`
	AssigneeID  dto.NullableID `json:"assigneeId"`
}

// ListTasks returns every task for admins and the caller's own tasks otherwise.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	caller := middleware.GetCaller(c)
	if caller == nil {
		apierrors.Unauthorized(c, "")
		return
	}

	var status *models.TaskStatus
	if raw := c.Query("status"); raw != "" {
		s := models.TaskStatus(raw)
		if !s.Valid() {
			apierrors.BadRequestField(c, "status", "Status must be pending or completed")
			return
		}
		status = &s
	}

	var (
		tasks []models.Task
		err   error
	)
	switch h.gate.TaskScope(caller) {
	case authz.ScopeAll:
		tasks, err = h.taskService.ListAll(c.Request.Context(), status)
	default:
		tasks, err = h.taskService.ListByAssignee(c.Request.Context(), caller.ID, status)
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTOs(tasks))
}

// GetTask returns a specific task.
// Task is already loaded and authorized by RequireTaskAccess middleware.
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task, optionally assigned to a user.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if !BindJSON(c, &req) {
		return
	}

	dueDate, ok := parseDueDate(c, *req.DueDate)
	if !ok {
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     &dueDate,
		Status:      models.TaskStatus(req.Status),
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies a partial update to a task.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	var req UpdateTaskRequest
	if !BindJSON(c, &req) {
		return
	}

	input := services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.DueDate != nil {
		dueDate, ok := parseDueDate(c, *req.DueDate)
		if !ok {
			return
		}
		input.DueDate = &dueDate
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		input.Status = &status
	}
	if req.AssigneeID.Set {
		if req.AssigneeID.Value == nil {
			input.ClearAssignee = true
		} else {
			input.AssigneeID = req.AssigneeID.Value
		}
	}

	updated, err := h.taskService.Update(c.Request.Context(), task.ID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// CompleteTask marks a task as completed.
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	updated, err := h.taskService.Complete(c.Request.Context(), task.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

func parseDueDate(c *gin.Context, raw string) (time.Time, bool) {
	t, err := dto.ParseDate(raw)
	if err != nil {
		apierrors.BadRequestField(c, "dueDate", "Due date must be RFC3339 or YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}
