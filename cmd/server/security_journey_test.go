package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerAddsSecurityHeadersOnHealth(t *testing.T) {
	rec := newJourney(t).visitor().get("/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestServerRejectsHTMXPostWithoutCSRFToken(t *testing.T) {
	j := newJourney(t)
	admin := j.visitor()
	admin.login()

	req := httptest.NewRequest(http.MethodPost, "/admin/folder/create", strings.NewReader(url.Values{"name": {"trip"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	rec := admin.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, j.mem.Keys(testBucket))
}

func TestServerAcceptsHTMXPostWithCSRFToken(t *testing.T) {
	j := newJourney(t)
	admin := j.visitor()
	admin.login()

	// any page view hands out the token cookie
	require.Equal(t, http.StatusOK, admin.get("/admin").Code)
	require.Contains(t, admin.cookies, "csrf")
	token := admin.cookies["csrf"].Value

	req := httptest.NewRequest(http.MethodPost, "/admin/folder/create", strings.NewReader(url.Values{"name": {"trip"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	req.Header.Set("X-CSRF-Token", token)
	rec := admin.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("HX-Redirect"))
	assert.Equal(t, []string{"trip/"}, j.mem.Keys(testBucket))
}

func TestShareAPIAllowsConfiguredOrigin(t *testing.T) {
	j := newJourney(t)
	j.deps.CORSOrigins = []string{"https://photos.example.com"}
	j.e = newServer(j.deps)

	req := httptest.NewRequest(http.MethodOptions, "/api/share/abc", nil)
	req.Header.Set("Origin", "https://photos.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := j.visitor().do(req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://photos.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
