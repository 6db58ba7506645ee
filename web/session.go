package web

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// SessionStore remembers, per client, which file each conversion produced.
type SessionStore interface {
	Middleware() gin.HandlerFunc
	Lookup(c *gin.Context, id string) (path string, ok bool)
	Remember(c *gin.Context, id, path string) error
}

const sessionName = "wizardconvert"

// CookieSessions keeps the map in a signed client side cookie.
type CookieSessions struct {
	store cookie.Store
}

func NewCookieSessions(secret string, maxAge int) *CookieSessions {
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
	})
	return &CookieSessions{store: store}
}

func (cs *CookieSessions) Middleware() gin.HandlerFunc {
	return sessions.Sessions(sessionName, cs.store)
}

func (cs *CookieSessions) Lookup(c *gin.Context, id string) (string, bool) {
	path, ok := sessions.Default(c).Get(id).(string)
	return path, ok && path != ""
}

func (cs *CookieSessions) Remember(c *gin.Context, id, path string) error {
	session := sessions.Default(c)
	session.Set(id, path)
	return session.Save()
}
