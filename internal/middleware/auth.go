package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-assignment-api/internal/authz"
	"github.com/yukikurage/task-assignment-api/internal/constants"
	apierrors "github.com/yukikurage/task-assignment-api/internal/errors"
	"github.com/yukikurage/task-assignment-api/internal/models"
	"github.com/yukikurage/task-assignment-api/internal/services"
)

// UserLoader resolves the account behind a session.
type UserLoader interface {
	GetByID(ctx context.Context, id uint64) (*models.User, error)
}

// RequireAuth checks the session and loads the current user. The row is read
// on every request so deleted accounts and role changes take effect at once.
func RequireAuth(users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := toUint64(session.Get(constants.ContextKeyUserID))
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				session.Clear()
				_ = session.Save()
				apierrors.Unauthorized(c, "")
				return
			}
			slog.ErrorContext(c.Request.Context(), "load session user failed", "user_id", userID, "err", err)
			apierrors.InternalError(c, "")
			return
		}

		// Store user in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyUser, user)
		c.Next()
	}
}

// Authorize runs the gate for an action that has no target row.
func Authorize(gate *authz.Gate, action authz.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := gate.Authorize(GetCaller(c), action, nil); err != nil {
			RespondAuthzError(c, err)
			return
		}
		c.Next()
	}
}

// AuthorizeUser runs the gate for an action aimed at the user in the :id path
// parameter.
func AuthorizeUser(gate *authz.Gate, action authz.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequestField(c, "id", "Invalid user ID")
			return
		}

		if err := gate.Authorize(GetCaller(c), action, authz.UserTarget(id)); err != nil {
			RespondAuthzError(c, err)
			return
		}
		c.Next()
	}
}

// RespondAuthzError maps gate decisions onto HTTP responses.
func RespondAuthzError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		apierrors.Unauthorized(c, "")
	case errors.Is(err, authz.ErrSelfDeletion):
		apierrors.InvalidOperation(c, err.Error())
	default:
		apierrors.Forbidden(c, "")
	}
}

// CurrentUser returns the user loaded by RequireAuth.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(constants.ContextKeyUser)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// GetCaller returns the gate identity of the current request, or nil.
func GetCaller(c *gin.Context) *authz.Caller {
	user, ok := CurrentUser(c)
	if !ok {
		return nil
	}
	return authz.CallerFromUser(user)
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUint64(userID)
}

func toUint64(v interface{}) (uint64, bool) {
	switch v := v.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
