package handlers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/damacus/iron-gallery/internal/middleware"
	"github.com/damacus/iron-gallery/internal/renderer"
	"github.com/damacus/iron-gallery/internal/services"
	"github.com/damacus/iron-gallery/internal/shares"
	"github.com/damacus/iron-gallery/internal/storetest"
	"github.com/damacus/iron-gallery/internal/utils"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

const testBucket = "photos"

type testEnv struct {
	e        *echo.Echo
	mem      *storetest.MemStore
	store    *services.ObjectStore
	registry *shares.Registry
	sessions *services.SessionStore
}

// newTestEnv mounts the admin and share handlers without the admin gate
func newTestEnv(t *testing.T, usage *services.UsageReporter) *testEnv {
	t.Helper()

	mem := storetest.NewMemStore()
	store, err := services.NewObjectStore(mem, testBucket)
	require.NoError(t, err)
	registry := shares.NewRegistry(shares.NewFileBackend(filepath.Join(t.TempDir(), "shares.json")))
	sessions := services.NewSessionStore(0)

	e := echo.New()
	e.Renderer = renderer.New()
	e.Use(middleware.Sessions(sessions))

	admin := NewAdminHandler(store, registry, usage)
	e.GET("/admin", admin.Browse)
	e.POST("/admin/upload", admin.Upload)
	e.POST("/admin/delete", admin.DeleteObject)
	e.POST("/admin/move", admin.MoveObject)
	e.POST("/admin/folder/create", admin.CreateFolder)
	e.POST("/admin/folder/delete", admin.DeleteFolder)
	e.POST("/admin/share/create", admin.CreateShare)
	e.GET("/admin/sign", admin.Sign)
	e.GET("/admin/shares", admin.ListShares)
	e.POST("/admin/shares", admin.CreateShareForm)
	e.POST("/admin/shares/delete", admin.DeleteShare)
	e.GET("/admin/storage", admin.StorageUsage)

	share := NewShareHandler(registry, store)
	e.GET("/api/share/:id", share.APIShare)
	e.GET("/s/:id", share.Gallery)
	e.POST("/s/:id", share.Unlock)
	e.GET("/s/:id/thumb", share.Thumbnail)
	e.GET("/s/:id/download.zip", share.DownloadZip)
	e.POST("/s/:id/upload", share.Upload)

	return &testEnv{e: e, mem: mem, store: store, registry: registry, sessions: sessions}
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) share(t *testing.T, folder, password string, editable bool) shares.Record {
	t.Helper()
	rec, err := env.registry.Create(context.Background(), shares.CreateParams{FolderKey: folder, Password: password, Editable: editable})
	require.NoError(t, err)
	return rec
}

type upload struct {
	name string
	data []byte
}

// multipartRequest builds a multipart POST with the given files under field
func multipartRequest(t *testing.T, target, field string, files []upload, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	return req
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == utils.SessionCookieName {
			return cookie
		}
	}
	return nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
