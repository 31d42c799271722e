package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/damacus/iron-gallery/internal/middleware"
	"github.com/damacus/iron-gallery/internal/services"
	"github.com/labstack/echo/v4"
)

// HTMXRedirect sets the HX-Redirect header and returns a 200 OK response.
// This is used for HTMX requests that should trigger a client-side redirect.
func HTMXRedirect(c echo.Context, url string) error {
	c.Response().Header().Set("HX-Redirect", url)
	return c.NoContent(http.StatusOK)
}

// Redirect sends htmx requests through HX-Redirect and everything else
// through a 303 so form posts turn into a GET
func Redirect(c echo.Context, url string) error {
	if middleware.IsHTMX(c) {
		return HTMXRedirect(c, url)
	}
	return c.Redirect(http.StatusSeeOther, url)
}

// storeError maps a service error onto an HTTP error. Store failures are
// logged and reported generically.
func storeError(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	attrs := []any{"op", op, "path", c.Request().URL.Path, "error", err}
	var partial *services.PartialFailureError
	if errors.As(err, &partial) {
		attrs = append(attrs, "failed_key", partial.Key, "completed", len(partial.Completed))
	}
	slog.Error("store operation failed", attrs...)
	return echo.NewHTTPError(http.StatusInternalServerError, "Storage operation failed")
}

// uploadFilename strips any client supplied directories from a file name
func uploadFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}

// adminFolderURL is the admin browser location for a prefix
func adminFolderURL(prefix string) string {
	if prefix == "" {
		return "/admin"
	}
	return "/admin?prefix=" + url.QueryEscape(prefix)
}

// FlexBool accepts the checkbox and JSON spellings of a boolean
type FlexBool bool

func (b *FlexBool) UnmarshalParam(param string) error {
	switch strings.ToLower(strings.TrimSpace(param)) {
	case "true", "on", "1", "yes":
		*b = true
	default:
		*b = false
	}
	return nil
}

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	return b.UnmarshalParam(strings.Trim(string(data), `"`))
}
