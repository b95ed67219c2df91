// Package authz decides whether a caller may perform an operation.
//
// Rules are evaluated in a fixed order and the first match wins:
//
//  1. no caller: unauthenticated (login is the only public action)
//  2. user administration and task creation require the admin role
//  3. an account can never delete itself, whatever its role
//  4. any caller may list tasks; the visible scope depends on the role
//  5. task updates require admin or being the task's assignee
//  6. profile updates may only target the caller's own account
package authz

import (
	"errors"

	"github.com/yukikurage/task-assignment-api/internal/models"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access denied")
	ErrSelfDeletion    = errors.New("you cannot delete your own account")
)

type Action string

const (
	ActionLogin         Action = "login"
	ActionLogout        Action = "logout"
	ActionReadSelf      Action = "read_self"
	ActionListUsers     Action = "list_users"
	ActionCreateUser    Action = "create_user"
	ActionUpdateUser    Action = "update_user"
	ActionDeleteUser    Action = "delete_user"
	ActionUpdateProfile Action = "update_profile"
	ActionListTasks     Action = "list_tasks"
	ActionReadTask      Action = "read_task"
	ActionCreateTask    Action = "create_task"
	ActionUpdateTask    Action = "update_task"
)

// Caller is the identity resolved for the current request.
type Caller struct {
	ID   uint64
	Role models.UserRole
}

// CallerFromUser builds a Caller from a loaded user row. A nil user yields nil.
func CallerFromUser(u *models.User) *Caller {
	if u == nil {
		return nil
	}
	return &Caller{ID: u.ID, Role: u.Role}
}

func (c *Caller) IsAdmin() bool {
	return c != nil && c.Role == models.RoleAdmin
}

// Target describes the row an action is aimed at, when there is one.
type Target struct {
	UserID     uint64
	AssigneeID *uint64
}

// UserTarget targets a user row.
func UserTarget(id uint64) *Target {
	return &Target{UserID: id}
}

// TaskTarget targets a task row through its assignee.
func TaskTarget(task *models.Task) *Target {
	return &Target{AssigneeID: task.AssigneeID}
}

type TaskScope int

const (
	ScopeOwn TaskScope = iota
	ScopeAll
)

// Gate is stateless; the zero value is ready to use.
type Gate struct{}

func NewGate() *Gate {
	return &Gate{}
}

var adminOnly = map[Action]bool{
	ActionListUsers:  true,
	ActionCreateUser: true,
	ActionUpdateUser: true,
	ActionDeleteUser: true,
	ActionCreateTask: true,
}

// Authorize returns nil when caller may perform action on target.
func (g *Gate) Authorize(caller *Caller, action Action, target *Target) error {
	if action == ActionLogin || action == ActionLogout {
		return nil
	}
	if caller == nil {
		return ErrUnauthenticated
	}

	if adminOnly[action] && !caller.IsAdmin() {
		return ErrForbidden
	}

	switch action {
	case ActionDeleteUser:
		if target != nil && target.UserID == caller.ID {
			return ErrSelfDeletion
		}
		return nil
	case ActionListUsers, ActionCreateUser, ActionUpdateUser, ActionCreateTask:
		return nil
	case ActionListTasks, ActionReadSelf:
		return nil
	case ActionReadTask, ActionUpdateTask:
		if caller.IsAdmin() {
			return nil
		}
		if target != nil && target.AssigneeID != nil && *target.AssigneeID == caller.ID {
			return nil
		}
		return ErrForbidden
	case ActionUpdateProfile:
		if target == nil || target.UserID == caller.ID {
			return nil
		}
		return ErrForbidden
	}

	return ErrForbidden
}

// TaskScope returns which slice of the task ledger the caller may see.
func (g *Gate) TaskScope(caller *Caller) TaskScope {
	if caller.IsAdmin() {
		return ScopeAll
	}
	return ScopeOwn
}
