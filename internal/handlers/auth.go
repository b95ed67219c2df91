package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-assignment-api/internal/constants"
	"github.com/yukikurage/task-assignment-api/internal/dto"
	apierrors "github.com/yukikurage/task-assignment-api/internal/errors"
	"github.com/yukikurage/task-assignment-api/internal/middleware"
	"github.com/yukikurage/task-assignment-api/internal/observability"
	"github.com/yukikurage/task-assignment-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
	prom        *observability.Prom
}

// NewAuthHandler creates a new AuthHandler. prom may be nil.
func NewAuthHandler(authService *services.AuthService, prom *observability.Prom) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		prom:        prom,
	}
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates a user and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !BindJSON(c, &req) {
		return
	}

	user, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.prom.CountLogin("failure")
		}
		respondServiceError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Clear()
	session.Set(constants.ContextKeyUserID, user.ID)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	h.prom.CountLogin("success")
	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// Logout removes the authentication session. It succeeds without a session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}
