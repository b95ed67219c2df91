package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-assignment-api/internal/constants"
	apierrors "github.com/yukikurage/task-assignment-api/internal/errors"
	"github.com/yukikurage/task-assignment-api/internal/services"
)

// fieldErrors maps service validation failures to the request field at fault.
var fieldErrors = []struct {
	err   error
	field string
}{
	{services.ErrUsernameRequired, "username"},
	{services.ErrNameRequired, "name"},
	{services.ErrPasswordTooLong, "password"},
	{services.ErrInvalidRole, "role"},
	{services.ErrTitleRequired, "title"},
	{services.ErrDescriptionRequired, "description"},
	{services.ErrDueDateRequired, "dueDate"},
	{services.ErrInvalidStatus, "status"},
	{services.ErrAssigneeNotFound, "assigneeId"},
}

// respondServiceError translates a service error into an API error response.
// Unexpected errors are logged and reported with a generic message.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c)
		return
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, "User not found")
		return
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
		return
	case errors.Is(err, services.ErrUsernameTaken):
		apierrors.Conflict(c, "Username already exists")
		return
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequestField(c, "password", fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
		return
	}

	for _, fe := range fieldErrors {
		if errors.Is(err, fe.err) {
			apierrors.BadRequestField(c, fe.field, capitalize(fe.err.Error()))
			return
		}
	}

	slog.ErrorContext(c.Request.Context(), "request failed",
		"route", c.FullPath(),
		"request_id", c.GetString(constants.ContextKeyRequestID),
		"err", err,
	)
	apierrors.InternalError(c, "")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
