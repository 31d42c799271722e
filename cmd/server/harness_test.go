package main

import (
	"bytes"
	"encoding/json"
	"html"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/damacus/iron-gallery/internal/services"
	"github.com/damacus/iron-gallery/internal/shares"
	"github.com/damacus/iron-gallery/internal/storetest"
	"github.com/damacus/iron-gallery/internal/utils"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

const (
	testBucket        = "photos"
	testAdminPassword = "let-me-in"
	testSecret        = "journey-secret"
)

// journey is a full server over an in-memory bucket whose presigned URLs
// are served by a real HTTP listener
type journey struct {
	t        *testing.T
	e        *echo.Echo
	mem      *storetest.MemStore
	deps     serverDeps
	sharesDB string
}

func newJourney(t *testing.T) *journey {
	t.Helper()

	mem := storetest.NewMemStore()
	storeSrv := httptest.NewServer(mem)
	t.Cleanup(storeSrv.Close)
	mem.BaseURL = storeSrv.URL

	store, err := services.NewObjectStore(mem, testBucket)
	require.NoError(t, err)

	sharesDB := filepath.Join(t.TempDir(), "shares.json")
	deps := serverDeps{
		Store:    store,
		Registry: shares.NewRegistry(shares.NewFileBackend(sharesDB)),
		Gate:     services.NewAdminGate(testAdminPassword, testSecret, 0),
		Sessions: services.NewSessionStore(0),
	}
	return &journey{t: t, e: newServer(deps), mem: mem, deps: deps, sharesDB: sharesDB}
}

// restart simulates a process restart: same bucket, registry and secret,
// but every in-memory session is gone
func (j *journey) restart() {
	j.deps.Sessions = services.NewSessionStore(0)
	j.deps.Registry = shares.NewRegistry(shares.NewFileBackend(j.sharesDB))
	j.e = newServer(j.deps)
}

// client is one browser: it keeps the cookies the server hands out
type client struct {
	j       *journey
	cookies map[string]*http.Cookie
}

func (j *journey) visitor() *client {
	return &client{j: j, cookies: make(map[string]*http.Cookie)}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c.j.e.ServeHTTP(rec, req)
	for _, cookie := range rec.Result().Cookies() {
		if cookie.MaxAge < 0 {
			delete(c.cookies, cookie.Name)
			continue
		}
		c.cookies[cookie.Name] = cookie
	}
	return rec
}

func (c *client) get(target string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (c *client) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return c.do(req)
}

func (c *client) postJSON(target string, body any) *httptest.ResponseRecorder {
	data, err := json.Marshal(body)
	require.NoError(c.j.t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return c.do(req)
}

func (c *client) upload(target string, fields map[string]string, files map[string][]byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(c.j.t, mw.WriteField(k, v))
	}
	for name, data := range files {
		part, err := mw.CreateFormFile("photos", name)
		require.NoError(c.j.t, err)
		_, err = part.Write(data)
		require.NoError(c.j.t, err)
	}
	require.NoError(c.j.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	return c.do(req)
}

func (c *client) login() {
	rec := c.postForm("/login", url.Values{"password": {testAdminPassword}})
	require.Equal(c.j.t, http.StatusSeeOther, rec.Code)
	require.Contains(c.j.t, c.cookies, utils.AdminTokenCookieName)
	require.Contains(c.j.t, c.cookies, utils.SessionCookieName)
}

var dataURLPattern = regexp.MustCompile(`data-url="([^"]+)"`)

// galleryURLs extracts the signed photo URLs from a gallery page
func galleryURLs(page string) []string {
	var urls []string
	for _, m := range dataURLPattern.FindAllStringSubmatch(page, -1) {
		urls = append(urls, html.UnescapeString(m[1]))
	}
	return urls
}
