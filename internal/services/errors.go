package services

import "errors"

// Authentication
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// User directory
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUsernameTaken        = errors.New("username already exists")
	ErrUsernameRequired     = errors.New("username is required")
	ErrNameRequired         = errors.New("name is required")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrPasswordTooLong      = errors.New("password too long")
	ErrInvalidRole          = errors.New("role must be admin or employee")
	ErrFailedToHashPassword = errors.New("failed to hash password")
)

// Task ledger
var (
	ErrTaskNotFound        = errors.New("task not found")
	ErrTitleRequired       = errors.New("title is required")
	ErrDescriptionRequired = errors.New("description is required")
	ErrDueDateRequired     = errors.New("due date is required")
	ErrInvalidStatus       = errors.New("status must be pending or completed")
	ErrAssigneeNotFound    = errors.New("assignee does not exist")
)
