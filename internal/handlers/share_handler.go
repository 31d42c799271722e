package handlers

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/damacus/iron-gallery/internal/middleware"
	"github.com/damacus/iron-gallery/internal/models"
	"github.com/damacus/iron-gallery/internal/services"
	"github.com/damacus/iron-gallery/internal/shares"
	"github.com/labstack/echo/v4"
)

// ShareHandler serves the public side of share links
type ShareHandler struct {
	registry *shares.Registry
	store    *services.ObjectStore
	thumbs   *services.Thumbnailer
	archiver *services.Archiver
}

func NewShareHandler(registry *shares.Registry, store *services.ObjectStore) *ShareHandler {
	return &ShareHandler{
		registry: registry,
		store:    store,
		thumbs:   services.NewThumbnailer(store),
		archiver: services.NewArchiver(store),
	}
}

// APIShare lists a share for programmatic consumers. There is no unlock
// flow here, so password protected shares are always refused.
func (h *ShareHandler) APIShare(c echo.Context) error {
	rec, err := h.loadShare(c)
	if err != nil {
		return err
	}
	if rec.HasPassword() {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Password required"})
	}

	folders, items, err := h.galleryContent(c, rec)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.ShareListing{
		ID:        rec.ID,
		FolderKey: rec.FolderKey,
		Editable:  rec.Editable,
		Folders:   folders,
		Items:     items,
	})
}

// Gallery shows the share, or the password prompt while it is locked
func (h *ShareHandler) Gallery(c echo.Context) error {
	rec, err := h.loadShare(c)
	if err != nil {
		return err
	}
	if !shares.Unlocked(rec, sessionFlags(c)) {
		return h.renderPrompt(c, http.StatusOK, rec, "")
	}

	folders, items, err := h.galleryContent(c, rec)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "gallery", map[string]interface{}{
		"CSRF":     c.Get("csrf"),
		"ID":       rec.ID,
		"Title":    galleryTitle(rec.FolderKey),
		"Editable": rec.Editable,
		"Folders":  folders,
		"Items":    items,
	})
}

// Unlock takes the password form and remembers a correct answer for the
// rest of the session
func (h *ShareHandler) Unlock(c echo.Context) error {
	rec, err := h.loadShare(c)
	if err != nil {
		return err
	}

	flags := sessionFlags(c)
	if flags == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Sessions are not available")
	}
	if !shares.Unlock(rec, c.FormValue("password"), flags) {
		slog.Warn("share unlock rejected", "id", rec.ID, "remote_ip", c.RealIP())
		return h.renderPrompt(c, http.StatusUnauthorized, rec, "Incorrect password")
	}
	middleware.SaveSession(c)
	return Redirect(c, shareURL(rec.ID))
}

// Thumbnail renders a resized JPEG of one photo in the share. The key is
// validated against the share folder before the password gate is consulted.
func (h *ShareHandler) Thumbnail(c echo.Context) error {
	rec, err := h.loadShare(c)
	if err != nil {
		return err
	}
	key := c.QueryParam("key")
	if !services.KeyWithinFolder(key, rec.FolderKey) {
		return echo.NewHTTPError(http.StatusBadRequest, "Key is outside the shared folder")
	}
	if !shares.Unlocked(rec, sessionFlags(c)) {
		return echo.NewHTTPError(http.StatusForbidden, "Password required")
	}

	width := services.ClampDimension(c.QueryParam("w"), services.DefaultThumbDimension)
	height := services.ClampDimension(c.QueryParam("h"), width)

	data, err := h.thumbs.Thumbnail(c.Request().Context(), key, width, height)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return echo.NewHTTPError(http.StatusUnsupportedMediaType, "Not an image")
		}
		return storeError(c, "thumbnail", err)
	}

	c.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return c.Blob(http.StatusOK, "image/jpeg", data)
}

// DownloadZip streams the whole share folder as one archive. Once the
// headers are out a failure can only be signalled by cutting the
// connection, which leaves the client with a zip missing its directory.
func (h *ShareHandler) DownloadZip(c echo.Context) error {
	rec, err := h.loadShare(c)
	if err != nil {
		return err
	}
	if !shares.Unlocked(rec, sessionFlags(c)) {
		return echo.NewHTTPError(http.StatusForbidden, "Password required")
	}

	ctx := c.Request().Context()
	plan, err := h.archiver.Plan(ctx, rec.FolderKey)
	if err != nil {
		return storeError(c, "archive", err)
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "application/zip")
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", plan.Name))
	res.WriteHeader(http.StatusOK)
	// the zip writer buffers, so push the status line out before the first entry
	res.Flush()

	if err := h.archiver.Write(ctx, res, plan); err != nil {
		slog.Error("archive aborted", "id", rec.ID, "folder", rec.FolderKey, "error", err)
		panic(http.ErrAbortHandler)
	}
	return nil
}

// Upload adds photos to an editable share
func (h *ShareHandler) Upload(c echo.Context) error {
	rec, err := h.loadShare(c)
	if err != nil {
		return err
	}
	if !shares.Unlocked(rec, sessionFlags(c)) {
		return echo.NewHTTPError(http.StatusForbidden, "Password required")
	}
	if !rec.Editable {
		return echo.NewHTTPError(http.StatusForbidden, "Uploads disabled")
	}

	if _, err := storeUploads(c, h.store, services.FolderPrefix(rec.FolderKey)); err != nil {
		return err
	}
	return Redirect(c, shareURL(rec.ID))
}

func (h *ShareHandler) loadShare(c echo.Context) (shares.Record, error) {
	rec, err := h.registry.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return shares.Record{}, echo.NewHTTPError(http.StatusNotFound, "Share not found")
		}
		return shares.Record{}, storeError(c, "load share", err)
	}
	return rec, nil
}

// galleryContent lists one level of the share: sub-folder names and the
// photos with signed links. Sub-folders are only named; their photos are in
// the zip.
func (h *ShareHandler) galleryContent(c echo.Context, rec shares.Record) ([]string, []models.GalleryItem, error) {
	ctx := c.Request().Context()
	prefix := services.FolderPrefix(rec.FolderKey)

	listing, err := h.store.ListPrefix(ctx, prefix)
	if err != nil {
		return nil, nil, storeError(c, "list share", err)
	}

	folders := make([]string, 0, len(listing.Folders))
	for _, f := range listing.Folders {
		folders = append(folders, services.FolderDisplayName(f, prefix))
	}

	items := make([]models.GalleryItem, 0, len(listing.Files))
	for _, obj := range listing.Files {
		signed, err := h.store.SignGetURL(ctx, obj.Key, services.DefaultSignTTL)
		if err != nil {
			return nil, nil, storeError(c, "sign", err)
		}
		items = append(items, models.GalleryItem{
			Key:      obj.Key,
			Name:     strings.TrimPrefix(obj.Key, prefix),
			Size:     obj.Size,
			URL:      signed,
			ThumbURL: thumbURL(rec.ID, obj.Key),
		})
	}
	return folders, items, nil
}

func (h *ShareHandler) renderPrompt(c echo.Context, status int, rec shares.Record, msg string) error {
	return c.Render(status, "enter_password", map[string]interface{}{
		"CSRF":  c.Get("csrf"),
		"ID":    rec.ID,
		"Error": msg,
	})
}

// sessionFlags returns the session as a flag store, or a nil interface
// when no session middleware ran
func sessionFlags(c echo.Context) shares.FlagStore {
	if sess := middleware.CurrentSession(c); sess != nil {
		return sess
	}
	return nil
}

func thumbURL(id, key string) string {
	q := url.Values{}
	q.Set("key", key)
	q.Set("w", strconv.Itoa(services.DefaultThumbDimension))
	return shareURL(id) + "/thumb?" + q.Encode()
}

func galleryTitle(folderKey string) string {
	name := services.FolderDisplayName(services.FolderPrefix(folderKey), services.ParentPrefix(folderKey))
	if name == "" {
		return "Gallery"
	}
	return name
}
