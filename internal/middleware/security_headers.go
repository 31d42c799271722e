package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// contentSecurityPolicy allows photos from the bucket's presign origin. With
// no origin known any https host is accepted.
func contentSecurityPolicy(imageOrigin string) string {
	imgSrc := "img-src 'self' data: https:"
	if imageOrigin != "" {
		imgSrc = "img-src 'self' data: " + imageOrigin
	}
	return strings.Join([]string{
		"default-src 'self'",
		"script-src 'self' 'unsafe-inline' https://unpkg.com",
		"style-src 'self' 'unsafe-inline'",
		imgSrc,
		"connect-src 'self'",
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
	}, "; ")
}

// SecurityHeaders sets the baseline headers on every response. Share ids are
// bearer secrets in the URL path, so no referrer leaves the site and pages
// ask not to be indexed.
func SecurityHeaders(imageOrigin string) echo.MiddlewareFunc {
	csp := contentSecurityPolicy(imageOrigin)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			headers := c.Response().Header()
			headers.Set("X-Frame-Options", "DENY")
			headers.Set("X-Content-Type-Options", "nosniff")
			headers.Set("Referrer-Policy", "no-referrer")
			headers.Set("X-Robots-Tag", "noindex, nofollow")
			headers.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
			headers.Set("Content-Security-Policy", csp)

			if isSecureRequest(c) {
				headers.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			return next(c)
		}
	}
}

func isSecureRequest(c echo.Context) bool {
	req := c.Request()
	if req.TLS != nil {
		return true
	}

	return strings.EqualFold(req.Header.Get("X-Forwarded-Proto"), "https")
}
