package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-assignment-api/internal/dto"
	apierrors "github.com/yukikurage/task-assignment-api/internal/errors"
	"github.com/yukikurage/task-assignment-api/internal/middleware"
	"github.com/yukikurage/task-assignment-api/internal/models"
	"github.com/yukikurage/task-assignment-api/internal/services"
)

// UserHandler serves the user directory endpoints.
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// CreateUserRequest is the body of POST /api/users.
type CreateUserRequest struct {
	Username  string  `json:"username" binding:"required,min=3,max=50"`
	Password  string  `json:"password" binding:"required,min=6,max=72"`
	Role      string  `json:"role" binding:"omitempty,oneof=admin employee"`
	Name      string  `json:"name" binding:"required,max=100"`
	Bio       *string `json:"bio" binding:"omitempty,max=1000"`
	AvatarURL *string `json:"avatarUrl"`
}

// UpdateProfileRequest is the body of PATCH /api/users/profile.
type UpdateProfileRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=1,max=100"`
	Bio       *string `json:"bio" binding:"omitempty,max=1000"`
	AvatarURL *string `json:"avatarUrl"`
}

// UpdateUserRequest is the body of PATCH /api/users/:id.
type UpdateUserRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=1,max=100"`
	Bio       *string `json:"bio" binding:"omitempty,max=1000"`
	AvatarURL *string `json:"avatarUrl"`
	Role      *string `json:"role" binding:"omitempty,oneof=admin employee"`
	Password  *string `json:"password" binding:"omitempty,min=6,max=72"`
}

// ListUsers returns every user.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.ListAll(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTOs(users))
}

// CreateUser registers a new account.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !BindJSON(c, &req) {
		return
	}

	user, err := h.userService.Create(c.Request.Context(), services.CreateUserInput{
		Username:  req.Username,
		Password:  req.Password,
		Role:      models.UserRole(req.Role),
		Name:      req.Name,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// UpdateProfile changes the caller's own display fields.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	var req UpdateProfileRequest
	if !BindJSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, services.ProfileInput{
		Name:      req.Name,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// UpdateUser applies an administrative update to any account.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequestField(c, "id", "Invalid user ID")
		return
	}

	var req UpdateUserRequest
	if !BindJSON(c, &req) {
		return
	}

	input := services.UpdateUserInput{
		Name:      req.Name,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
		Password:  req.Password,
	}
	if req.Role != nil {
		role := models.UserRole(*req.Role)
		input.Role = &role
	}

	user, err := h.userService.Update(c.Request.Context(), id, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// DeleteUser removes an account. Tasks it was assigned become unassigned.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequestField(c, "id", "Invalid user ID")
		return
	}

	if err := h.userService.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User deleted successfully",
	})
}
