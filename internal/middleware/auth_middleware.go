package middleware

import (
	"log/slog"
	"net/http"

	"github.com/damacus/iron-gallery/internal/services"
	"github.com/damacus/iron-gallery/internal/utils"
	"github.com/labstack/echo/v4"
)

// RequireAdmin lets a request through when its session carries the admin
// flag, or when the admin token cookie verifies; in the second case the
// flag is written back to the session. Anything else goes to /login.
func RequireAdmin(gate *services.AdminGate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := CurrentSession(c)

			creds := services.AdminCredentials{}
			if sess != nil {
				creds.SessionFlag = sess.Flag(services.AdminSessionFlag)
			}
			cookie, cookieErr := c.Cookie(utils.AdminTokenCookieName)
			if cookieErr == nil {
				creds.Token = cookie.Value
			}

			switch gate.Authorize(creds) {
			case services.AdminViaSession:
				return next(c)
			case services.AdminViaToken:
				if sess != nil {
					sess.SetFlag(services.AdminSessionFlag)
					SaveSession(c)
				}
				slog.Debug("admin session restored from token", "path", c.Request().URL.Path)
				return next(c)
			}

			if cookieErr == nil {
				// Invalid token - Clear it to prevent loop
				ExpireCookie(c, utils.AdminTokenCookieName)
			}
			return c.Redirect(http.StatusSeeOther, "/login")
		}
	}
}
