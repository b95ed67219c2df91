package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-assignment-api/internal/config"
	"github.com/yukikurage/task-assignment-api/internal/constants"
)

func sessionCookie(t *testing.T, cfg *config.Config) *http.Cookie {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := NewSessionStore(cfg)
	require.NoError(t, err)

	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, store))
	r.GET("/", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set(constants.ContextKeyUserID, uint64(1))
		require.NoError(t, session.Save())
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestNewSessionStore_CookieOverPlainHTTP(t *testing.T) {
	cookie := sessionCookie(t, &config.Config{
		SessionStore:  "cookie",
		SessionSecret: "test-secret",
		GinMode:       gin.DebugMode,
	})

	assert.Equal(t, constants.SessionCookieName, cookie.Name)
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, constants.SessionMaxAge, cookie.MaxAge)
}

func TestNewSessionStore_SecureInRelease(t *testing.T) {
	cookie := sessionCookie(t, &config.Config{
		SessionStore:  "cookie",
		SessionSecret: "test-secret",
		GinMode:       gin.ReleaseMode,
	})

	assert.True(t, cookie.Secure)
}

func TestNewSessionStore_UnknownBackend(t *testing.T) {
	_, err := NewSessionStore(&config.Config{SessionStore: "memcached"})
	assert.Error(t, err)
}
