package constants

import "time"

// Session and context keys
const (
	SessionCookieName   = "task_session"
	ContextKeyUserID    = "user_id"
	ContextKeyUser      = "current_user"
	ContextKeyTask      = "task"
	ContextKeyRequestID = "request_id"
)

// Account rules
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72 // bcrypt ignores input past 72 bytes
	MinUsernameLength = 3
	MaxUsernameLength = 50
)

// Session lifetime
const (
	SessionMaxAge = 86400 * 7
)

// Login throttling defaults
const (
	DefaultLoginRateLimit  = 10
	DefaultLoginRateWindow = time.Minute
)

// DefaultMaxBodyBytes caps request bodies; avatars may be sent as data URIs.
const DefaultMaxBodyBytes int64 = 2 << 20
