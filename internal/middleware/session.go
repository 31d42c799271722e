package middleware

import (
	"net/http"
	"strings"

	"github.com/damacus/iron-gallery/internal/services"
	"github.com/damacus/iron-gallery/internal/utils"
	"github.com/labstack/echo/v4"
)

const contextKeySessionStore = "session_store"

// Sessions loads the visitor session named by the session cookie and puts
// it in the context. Nothing is persisted until SaveSession is called.
func Sessions(store *services.SessionStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := ""
			if cookie, err := c.Cookie(utils.SessionCookieName); err == nil {
				id = cookie.Value
			}
			c.Set(utils.ContextKeySession, store.Load(id))
			c.Set(contextKeySessionStore, store)
			return next(c)
		}
	}
}

// CurrentSession returns the request's session, or nil when the Sessions
// middleware is not installed
func CurrentSession(c echo.Context) *services.Session {
	sess, _ := c.Get(utils.ContextKeySession).(*services.Session)
	return sess
}

// SaveSession persists the current session and, for a new one, issues the
// cookie. Call it before writing the response.
func SaveSession(c echo.Context) {
	sess := CurrentSession(c)
	store, _ := c.Get(contextKeySessionStore).(*services.SessionStore)
	if sess == nil || store == nil {
		return
	}
	isNew := sess.IsNew()
	store.Save(sess)
	if isNew {
		c.SetCookie(&http.Cookie{
			Name:     utils.SessionCookieName,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   isSecureRequest(c),
		})
	}
}

// DestroySession forgets the current session and expires its cookie
func DestroySession(c echo.Context) {
	if sess := CurrentSession(c); sess != nil {
		if store, ok := c.Get(contextKeySessionStore).(*services.SessionStore); ok {
			store.Destroy(sess.ID)
		}
	}
	ExpireCookie(c, utils.SessionCookieName)
}

// ExpireCookie tells the browser to drop the named cookie
func ExpireCookie(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   isSecureRequest(c),
	})
}

// IsHTMX reports whether the request was issued by htmx
func IsHTMX(c echo.Context) bool {
	return strings.EqualFold(c.Request().Header.Get("HX-Request"), "true")
}
