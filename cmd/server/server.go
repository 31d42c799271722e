package main

import (
	"log/slog"
	"net/http"

	"github.com/damacus/iron-gallery/internal/handlers"
	customMiddleware "github.com/damacus/iron-gallery/internal/middleware"
	"github.com/damacus/iron-gallery/internal/renderer"
	"github.com/damacus/iron-gallery/internal/services"
	"github.com/damacus/iron-gallery/internal/shares"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// serverDeps are the long-lived services the routes share
type serverDeps struct {
	Store       *services.ObjectStore
	Registry    *shares.Registry
	Gate        *services.AdminGate
	Sessions    *services.SessionStore
	Usage       *services.UsageReporter
	CORSOrigins []string
	// ImageOrigin is where presigned photo URLs point; empty allows any https origin
	ImageOrigin string
}

func newServer(deps serverDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	authHandler := handlers.NewAuthHandler(deps.Gate)
	adminHandler := handlers.NewAdminHandler(deps.Store, deps.Registry, deps.Usage)
	shareHandler := handlers.NewShareHandler(deps.Registry, deps.Store)

	// Middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
			}
			if v.Error != nil {
				slog.Warn("request", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Info("request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(customMiddleware.SecurityHeaders(deps.ImageOrigin))
	e.Use(customMiddleware.CSRF())
	e.Use(customMiddleware.Sessions(deps.Sessions))
	e.Use(customMiddleware.APICORS(deps.CORSOrigins))

	// Template Renderer
	e.Renderer = renderer.New()

	// Public Routes
	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusSeeOther, "/login")
	})
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})
	e.GET("/login", authHandler.LoginPage)
	e.POST("/login", authHandler.Login)
	e.GET("/logout", authHandler.Logout)

	// Share links
	e.GET("/s/:id", shareHandler.Gallery)
	e.POST("/s/:id", shareHandler.Unlock)
	e.GET("/s/:id/thumb", shareHandler.Thumbnail)
	e.GET("/s/:id/download.zip", shareHandler.DownloadZip)
	e.POST("/s/:id/upload", shareHandler.Upload)

	e.GET("/api/share/:id", shareHandler.APIShare)

	// Protected Routes
	admin := e.Group("/admin", customMiddleware.RequireAdmin(deps.Gate))
	admin.GET("", adminHandler.Browse)
	admin.POST("/upload", adminHandler.Upload)
	admin.POST("/delete", adminHandler.DeleteObject)
	admin.POST("/move", adminHandler.MoveObject)
	admin.POST("/folder/create", adminHandler.CreateFolder)
	admin.POST("/folder/delete", adminHandler.DeleteFolder)
	admin.POST("/share/create", adminHandler.CreateShare)
	admin.GET("/sign", adminHandler.Sign)
	admin.GET("/shares", adminHandler.ListShares)
	admin.POST("/shares", adminHandler.CreateShareForm)
	admin.POST("/shares/delete", adminHandler.DeleteShare)
	admin.GET("/storage", adminHandler.StorageUsage)

	return e
}
