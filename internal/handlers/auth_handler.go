package handlers

import (
	"log/slog"
	"net/http"

	"github.com/damacus/iron-gallery/internal/middleware"
	"github.com/damacus/iron-gallery/internal/services"
	"github.com/damacus/iron-gallery/internal/utils"
	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	gate *services.AdminGate
}

func NewAuthHandler(gate *services.AdminGate) *AuthHandler {
	return &AuthHandler{gate: gate}
}

// LoginPage renders the login view
func (h *AuthHandler) LoginPage(c echo.Context) error {
	// Already logged in, skip the form
	if sess := middleware.CurrentSession(c); sess != nil && sess.Flag(services.AdminSessionFlag) {
		return c.Redirect(http.StatusSeeOther, "/admin")
	}
	return c.Render(http.StatusOK, "login", map[string]interface{}{
		"CSRF": c.Get("csrf"),
	})
}

// Login checks the admin password, marks the session and hands out the
// bearer token cookie that outlives the session
func (h *AuthHandler) Login(c echo.Context) error {
	if !h.gate.CheckPassword(c.FormValue("password")) {
		slog.Warn("admin login rejected", "remote_ip", c.RealIP())
		return c.Render(http.StatusUnauthorized, "login", map[string]interface{}{
			"CSRF":  c.Get("csrf"),
			"Error": "Invalid password",
		})
	}

	token, expires, err := h.gate.IssueToken()
	if err != nil {
		slog.Error("issue admin token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create session")
	}

	sess := middleware.CurrentSession(c)
	if sess != nil {
		sess.SetFlag(services.AdminSessionFlag)
		middleware.SaveSession(c)
	}

	cookie := new(http.Cookie)
	cookie.Name = utils.AdminTokenCookieName
	cookie.Value = token
	cookie.Expires = expires
	cookie.Path = "/"
	cookie.HttpOnly = true
	cookie.SameSite = http.SameSiteLaxMode
	cookie.Secure = requestIsSecure(c)
	c.SetCookie(cookie)

	return Redirect(c, "/admin")
}

// Logout drops both the session and the token cookie
func (h *AuthHandler) Logout(c echo.Context) error {
	middleware.DestroySession(c)
	middleware.ExpireCookie(c, utils.AdminTokenCookieName)
	return c.Redirect(http.StatusSeeOther, "/login")
}

func requestIsSecure(c echo.Context) bool {
	req := c.Request()
	if req.TLS != nil {
		return true
	}

	return req.Header.Get("X-Forwarded-Proto") == "https"
}
