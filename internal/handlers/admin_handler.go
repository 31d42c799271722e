package handlers

import (
	"context"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/damacus/iron-gallery/internal/middleware"
	"github.com/damacus/iron-gallery/internal/models"
	"github.com/damacus/iron-gallery/internal/services"
	"github.com/damacus/iron-gallery/internal/shares"
	"github.com/damacus/iron-gallery/internal/utils"
	"github.com/labstack/echo/v4"
)

type AdminHandler struct {
	store    *services.ObjectStore
	folders  *services.Folders
	registry *shares.Registry
	usage    *services.UsageReporter
}

// NewAdminHandler wires the admin panel. usage may be nil when the endpoint
// has no admin API.
func NewAdminHandler(store *services.ObjectStore, registry *shares.Registry, usage *services.UsageReporter) *AdminHandler {
	return &AdminHandler{
		store:    store,
		folders:  services.NewFolders(store),
		registry: registry,
		usage:    usage,
	}
}

// folderListing is the JSON form of the admin browser
type folderListing struct {
	Prefix  string               `json:"prefix"`
	Folders []string             `json:"folders"`
	Files   []services.ObjectRef `json:"files"`
}

// Browse renders one level of the bucket with folder support
func (h *AdminHandler) Browse(c echo.Context) error {
	ctx := c.Request().Context()
	prefix := services.FolderPrefix(c.QueryParam("prefix"))

	listing, err := h.store.ListPrefix(ctx, prefix)
	if err != nil {
		return storeError(c, "list", err)
	}

	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) {
		return c.JSON(http.StatusOK, folderListing{Prefix: prefix, Folders: listing.Folders, Files: listing.Files})
	}

	folders := make([]models.FolderEntry, 0, len(listing.Folders))
	for _, key := range listing.Folders {
		folders = append(folders, models.FolderEntry{
			Name:   services.FolderDisplayName(key, prefix),
			Prefix: key,
		})
	}

	files := make([]models.FileEntry, 0, len(listing.Files))
	for _, obj := range listing.Files {
		url, err := h.store.SignGetURL(ctx, obj.Key, services.DefaultSignTTL)
		if err != nil {
			slog.Warn("sign preview url", "key", obj.Key, "error", err)
		}
		files = append(files, models.FileEntry{
			Key:          obj.Key,
			Name:         strings.TrimPrefix(obj.Key, prefix),
			Size:         obj.Size,
			SizeDisplay:  utils.FormatPhotoSize(obj.Size),
			LastModified: obj.LastModified,
			URL:          url,
			IsImage:      isImageKey(obj.Key),
		})
	}

	return c.Render(http.StatusOK, "admin", map[string]interface{}{
		"Admin":       true,
		"CSRF":        c.Get("csrf"),
		"Prefix":      prefix,
		"Breadcrumbs": Breadcrumbs(prefix),
		"Folders":     folders,
		"Files":       files,
	})
}

// Upload stores every file of the multipart form under prefix
func (h *AdminHandler) Upload(c echo.Context) error {
	prefix := services.FolderPrefix(c.FormValue("prefix"))
	if _, err := storeUploads(c, h.store, prefix); err != nil {
		return err
	}
	return Redirect(c, adminFolderURL(prefix))
}

// DeleteObject handles deleting a single object
func (h *AdminHandler) DeleteObject(c echo.Context) error {
	key := services.JoinKey(c.FormValue("key"))
	if key == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "key required")
	}
	if err := h.store.DeleteObject(c.Request().Context(), key); err != nil {
		return storeError(c, "delete", err)
	}
	return Redirect(c, adminFolderURL(services.ParentPrefix(key)))
}

// MoveObject copies an object into another folder and deletes the original
func (h *AdminHandler) MoveObject(c echo.Context) error {
	fromKey := c.FormValue("fromKey")
	if services.JoinKey(fromKey) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "fromKey required")
	}
	dst, err := h.folders.MoveObject(c.Request().Context(), fromKey, c.FormValue("toFolder"))
	if err != nil {
		return storeError(c, "move", err)
	}
	slog.Info("object moved", "from", services.JoinKey(fromKey), "to", dst)
	return Redirect(c, adminFolderURL(services.ParentPrefix(dst)))
}

func (h *AdminHandler) CreateFolder(c echo.Context) error {
	prefix := services.FolderPrefix(c.FormValue("prefix"))
	name := strings.Trim(c.FormValue("name"), "/ ")
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Folder name is required")
	}
	if _, err := h.folders.CreateFolder(c.Request().Context(), prefix+name); err != nil {
		return storeError(c, "create folder", err)
	}
	return Redirect(c, adminFolderURL(prefix))
}

func (h *AdminHandler) DeleteFolder(c echo.Context) error {
	prefix := c.FormValue("prefix")
	if services.JoinKey(prefix) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prefix required")
	}
	if err := h.folders.DeleteFolderRecursive(c.Request().Context(), prefix); err != nil {
		return storeError(c, "delete folder", err)
	}
	return Redirect(c, adminFolderURL(services.ParentPrefix(prefix)))
}

type createShareRequest struct {
	FolderKey string   `json:"folderKey" form:"folderKey"`
	Password  string   `json:"password" form:"password"`
	Editable  FlexBool `json:"editable" form:"editable"`
}

type createShareResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateShare accepts a JSON or form body and answers with the new share's
// id and path. htmx callers get the share link fragment instead.
func (h *AdminHandler) CreateShare(c echo.Context) error {
	var req createShareRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if services.JoinKey(req.FolderKey) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "folderKey required"})
	}

	rec, err := h.createShare(c.Request().Context(), req)
	if err != nil {
		return storeError(c, "create share", err)
	}

	resp := createShareResponse{ID: rec.ID, URL: shareURL(rec.ID)}
	if middleware.IsHTMX(c) {
		return c.Render(http.StatusOK, "share_link", map[string]interface{}{"URL": resp.URL})
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) createShare(ctx context.Context, req createShareRequest) (shares.Record, error) {
	rec, err := h.registry.Create(ctx, shares.CreateParams{
		FolderKey: services.JoinKey(req.FolderKey),
		Password:  req.Password,
		Editable:  bool(req.Editable),
	})
	if err != nil {
		return shares.Record{}, err
	}
	slog.Info("share created", "id", rec.ID, "folder", rec.FolderKey, "password", rec.HasPassword(), "editable", rec.Editable)
	return rec, nil
}

// Sign returns a fresh presigned URL for key. ttl is in seconds.
func (h *AdminHandler) Sign(c echo.Context) error {
	key := c.QueryParam("key")
	if services.JoinKey(key) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "key required"})
	}
	ttl := services.DefaultSignTTL
	if raw := c.QueryParam("ttl"); raw != "" {
		if secs, err := strconv.ParseInt(raw, 10, 64); err == nil && secs > 0 {
			ttl = time.Duration(secs) * time.Second
		}
	}
	url, err := h.store.SignGetURL(c.Request().Context(), key, ttl)
	if err != nil {
		return storeError(c, "sign", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}

// ListShares renders the share management page
func (h *AdminHandler) ListShares(c echo.Context) error {
	records, err := h.registry.List(c.Request().Context())
	if err != nil {
		return storeError(c, "list shares", err)
	}

	rows := make([]models.ShareRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, models.ShareRow{
			ID:          rec.ID,
			FolderKey:   rec.FolderKey,
			URL:         shareURL(rec.ID),
			HasPassword: rec.HasPassword(),
			Editable:    rec.Editable,
			CreatedAt:   rec.CreatedAt,
		})
	}

	return c.Render(http.StatusOK, "shares", map[string]interface{}{
		"Admin":  true,
		"CSRF":   c.Get("csrf"),
		"Shares": rows,
	})
}

// CreateShareForm is the shares page variant of CreateShare
func (h *AdminHandler) CreateShareForm(c echo.Context) error {
	var req createShareRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form")
	}
	if services.JoinKey(req.FolderKey) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "folderKey required")
	}
	if _, err := h.createShare(c.Request().Context(), req); err != nil {
		return storeError(c, "create share", err)
	}
	return Redirect(c, "/admin/shares")
}

func (h *AdminHandler) DeleteShare(c echo.Context) error {
	id := c.FormValue("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "id required")
	}
	if err := h.registry.Delete(c.Request().Context(), id); err != nil {
		return storeError(c, "delete share", err)
	}
	slog.Info("share deleted", "id", id)
	return Redirect(c, "/admin/shares")
}

// StorageUsage reports the bucket size from the admin API
func (h *AdminHandler) StorageUsage(c echo.Context) error {
	if h.usage == nil {
		return echo.NewHTTPError(http.StatusBadGateway, "Storage usage is not available for this endpoint")
	}
	usage, err := h.usage.BucketUsage(c.Request().Context())
	if err != nil {
		slog.Warn("storage usage", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "Storage usage is not available for this endpoint")
	}
	return c.JSON(http.StatusOK, usage)
}

// Breadcrumbs splits a folder prefix into links, starting at the root
func Breadcrumbs(prefix string) []models.Breadcrumb {
	crumbs := []models.Breadcrumb{{Name: "Root", Prefix: ""}}
	acc := ""
	for _, part := range strings.Split(services.JoinKey(prefix), "/") {
		if part == "" {
			continue
		}
		acc += part + "/"
		crumbs = append(crumbs, models.Breadcrumb{Name: part, Prefix: acc})
	}
	return crumbs
}

func shareURL(id string) string {
	return "/s/" + id
}

// storeUploads writes every uploaded file under prefix and returns the new keys
func storeUploads(c echo.Context, store *services.ObjectStore, prefix string) ([]string, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid upload")
	}
	defer func() { _ = form.RemoveAll() }()

	files := form.File["photos"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	if len(files) == 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "No file uploaded")
	}

	keys := make([]string, 0, len(files))
	for _, fh := range files {
		key, err := storeUpload(c.Request().Context(), store, prefix, fh)
		if err != nil {
			return keys, storeError(c, "upload", err)
		}
		keys = append(keys, key)
	}
	slog.Info("upload stored", "prefix", prefix, "count", len(keys))
	return keys, nil
}

func storeUpload(ctx context.Context, store *services.ObjectStore, prefix string, fh *multipart.FileHeader) (string, error) {
	name := uploadFilename(fh.Filename)
	if name == "" {
		return "", services.ErrInvalidInput
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = src.Close() }()

	key := services.JoinKey(prefix, name)
	contentType := fh.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := store.PutObject(ctx, key, src, fh.Size, contentType); err != nil {
		return "", err
	}
	return key, nil
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".heic": true, ".heif": true, ".avif": true, ".bmp": true, ".tif": true, ".tiff": true,
}

func isImageKey(key string) bool {
	return imageExtensions[strings.ToLower(path.Ext(key))]
}
