package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/damacus/iron-gallery/internal/services"
	"github.com/damacus/iron-gallery/internal/utils"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminEcho(store *services.SessionStore, gate *services.AdminGate) (*echo.Echo, *bool) {
	e := echo.New()
	handlerCalled := new(bool)
	admin := e.Group("/admin", Sessions(store), RequireAdmin(gate))
	admin.GET("", func(c echo.Context) error {
		*handlerCalled = true
		return c.String(http.StatusOK, "OK")
	})
	return e, handlerCalled
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestRequireAdmin_RedirectsWithoutCredentials(t *testing.T) {
	e, handlerCalled := newAdminEcho(services.NewSessionStore(0), services.NewAdminGate("pw", "secret", 0))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.False(t, *handlerCalled, "handler should not be called without credentials")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Nil(t, findCookie(rec, utils.AdminTokenCookieName))
}

func TestRequireAdmin_SessionFlagSkipsToken(t *testing.T) {
	store := services.NewSessionStore(0)
	e, handlerCalled := newAdminEcho(store, services.NewAdminGate("pw", "secret", 0))

	sess := store.Load("")
	sess.SetFlag(services.AdminSessionFlag)
	store.Save(sess)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: utils.SessionCookieName, Value: sess.ID})
	// a garbage token is never looked at while the flag is set
	req.AddCookie(&http.Cookie{Name: utils.AdminTokenCookieName, Value: "garbage"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.True(t, *handlerCalled)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, findCookie(rec, utils.AdminTokenCookieName))
}

func TestRequireAdmin_TokenRestoresSessionFlag(t *testing.T) {
	store := services.NewSessionStore(0)
	gate := services.NewAdminGate("pw", "secret", 0)
	e, handlerCalled := newAdminEcho(store, gate)

	token, _, err := gate.IssueToken()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: utils.AdminTokenCookieName, Value: token})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.True(t, *handlerCalled)
	assert.Equal(t, http.StatusOK, rec.Code)

	sid := findCookie(rec, utils.SessionCookieName)
	require.NotNil(t, sid, "restored session must be handed to the browser")
	assert.True(t, store.Load(sid.Value).Flag(services.AdminSessionFlag))
}

func TestRequireAdmin_ExpiredTokenIsClearedAndRedirected(t *testing.T) {
	store := services.NewSessionStore(0)
	gate := services.NewAdminGate("pw", "secret", time.Nanosecond)
	e, handlerCalled := newAdminEcho(store, gate)

	token, _, err := gate.IssueToken()
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: utils.AdminTokenCookieName, Value: token})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.False(t, *handlerCalled)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	cleared := findCookie(rec, utils.AdminTokenCookieName)
	require.NotNil(t, cleared, "should set cookie with MaxAge=-1 to clear it")
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestRequireAdmin_TamperedToken(t *testing.T) {
	gate := services.NewAdminGate("pw", "secret", 0)
	forger := services.NewAdminGate("pw", "guessed", 0)
	e, handlerCalled := newAdminEcho(services.NewSessionStore(0), gate)

	forged, _, err := forger.IssueToken()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: utils.AdminTokenCookieName, Value: forged})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.False(t, *handlerCalled)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestRequireAdmin_WithoutSessionMiddleware(t *testing.T) {
	gate := services.NewAdminGate("pw", "secret", 0)
	token, _, err := gate.IssueToken()
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: utils.AdminTokenCookieName, Value: token})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handlerCalled := false
	err = RequireAdmin(gate)(func(c echo.Context) error {
		handlerCalled = true
		return c.String(http.StatusOK, "OK")
	})(c)

	assert.NoError(t, err)
	assert.True(t, handlerCalled)
}
