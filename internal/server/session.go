package server

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/yukikurage/task-assignment-api/internal/config"
	"github.com/yukikurage/task-assignment-api/internal/constants"
)

// NewSessionStore builds the session store selected by SESSION_STORE.
func NewSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store

	switch cfg.SessionStore {
	case "cookie":
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	case "redis", "":
		s, err := redisStore.NewStore(
			10,    // Redis pool size
			"tcp", // network type
			cfg.RedisAddr(),
			"", // username (empty for default user)
			cfg.RedisPassword,
			[]byte(cfg.SessionSecret), // authentication key
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis session store: %w", err)
		}
		store = s
	default:
		return nil, fmt.Errorf("unsupported session store %q", cfg.SessionStore)
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   constants.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction(), // true in production (HTTPS)
		SameSite: http.SameSiteLaxMode,
	})

	return store, nil
}
