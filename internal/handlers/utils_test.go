package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/damacus/iron-gallery/internal/services"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMXRedirect(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := HTMXRedirect(c, "/admin")

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("HX-Redirect"))
}

func TestHTMXRedirect_WithQueryParams(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := HTMXRedirect(c, "/admin?prefix=folder/")

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/admin?prefix=folder/", rec.Header().Get("HX-Redirect"))
}

func TestRedirect_PlainRequestGets303(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, Redirect(c, "/s/abc"))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/s/abc", rec.Header().Get("Location"))
	assert.Empty(t, rec.Header().Get("HX-Redirect"))
}

func TestRedirect_HTMXRequestGetsHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, Redirect(c, "/s/abc"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/s/abc", rec.Header().Get("HX-Redirect"))
}

func TestStoreError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "not found", err: fmt.Errorf("open %q: %w", "a", services.ErrNotFound), code: http.StatusNotFound},
		{name: "invalid input", err: fmt.Errorf("%w: empty key", services.ErrInvalidInput), code: http.StatusBadRequest},
		{name: "store failure", err: errors.New("connection refused"), code: http.StatusInternalServerError},
		{name: "partial failure", err: &services.PartialFailureError{Op: "delete folder", Key: "a/b", Err: errors.New("denied")}, code: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

			err := storeError(c, "test", tt.err)

			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.code, httpErr.Code)
			if tt.code == http.StatusInternalServerError {
				assert.Equal(t, "Storage operation failed", httpErr.Message)
			}
		})
	}
}

func TestUploadFilename(t *testing.T) {
	tests := map[string]string{
		"a.jpg":              "a.jpg",
		"trip/a.jpg":         "a.jpg",
		`C:\photos\a.jpg`:    "a.jpg",
		"../../etc/passwd":   "passwd",
		"..":                 "",
		"":                   "",
		"/":                  "",
		"holiday photo.jpeg": "holiday photo.jpeg",
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, uploadFilename(in))
		})
	}
}

func TestAdminFolderURL(t *testing.T) {
	assert.Equal(t, "/admin", adminFolderURL(""))
	assert.Equal(t, "/admin?prefix=trip%2Fday+1%2F", adminFolderURL("trip/day 1/"))
}

func TestFlexBool(t *testing.T) {
	for _, raw := range []string{"true", "on", "1", "yes", " TRUE "} {
		var b FlexBool
		require.NoError(t, b.UnmarshalParam(raw))
		assert.True(t, bool(b), raw)
	}
	for _, raw := range []string{"", "false", "off", "0", "no", "maybe"} {
		b := FlexBool(true)
		require.NoError(t, b.UnmarshalParam(raw))
		assert.False(t, bool(b), raw)
	}

	var b FlexBool
	require.NoError(t, b.UnmarshalJSON([]byte("true")))
	assert.True(t, bool(b))
}
