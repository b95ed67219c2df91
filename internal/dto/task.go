package dto

import (
	"time"

	"github.com/yukikurage/task-assignment-api/internal/models"
)

// UserDTO represents a user in API responses. The password hash is never included.
type UserDTO struct {
	ID        uint64          `json:"id"`
	Username  string          `json:"username"`
	Role      models.UserRole `json:"role"`
	Name      string          `json:"name"`
	Bio       *string         `json:"bio"`
	AvatarURL *string         `json:"avatarUrl"`
	CreatedAt time.Time       `json:"createdAt"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          uint64            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	DueDate     time.Time         `json:"dueDate"`
	Status      models.TaskStatus `json:"status"`
	AssigneeID  *uint64           `json:"assigneeId"`
	CreatedAt   time.Time         `json:"createdAt"`
	Assignee    *UserDTO          `json:"assignee"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Username:  user.Username,
		Role:      user.Role,
		Name:      user.Name,
		Bio:       user.Bio,
		AvatarURL: user.AvatarURL,
		CreatedAt: user.CreatedAt,
	}
}

// ToUserDTOs converts a slice of users
func ToUserDTOs(users []models.User) []UserDTO {
	out := make([]UserDTO, len(users))
	for i, user := range users {
		out[i] = ToUserDTO(user)
	}
	return out
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.DueDate.UTC(),
		Status:      task.Status,
		AssigneeID:  task.AssigneeID,
		CreatedAt:   task.CreatedAt,
	}

	// Include assignee if preloaded
	if task.Assignee != nil && task.Assignee.ID != 0 {
		assignee := ToUserDTO(*task.Assignee)
		dto.Assignee = &assignee
	}

	return dto
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	out := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		out[i] = ToTaskDTO(task)
	}
	return out
}
