package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/glowpress/glowpress/config"
)

// Run builds the application from config and serves the HTTP API.
func Run(cfg *config.Config, addr string) error {
	deps, err := Build(context.Background(), cfg)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(deps.Telemetry.MetricsHandler()))

	api := e.Group("/api")

	rh := NewRunsHandler(deps.Runner)
	rh.Register(api.Group("/runs"))

	hh := NewHistoryHandler(deps.History, deps.Runner)
	hh.Register(api.Group("/history"))

	ch := NewCatalogHandler(deps.Index)
	ch.Register(api.Group("/catalog"))

	ph := NewPublishHandler(cfg.LinkedIn, cfg.Features.Publish, deps.History, deps.Runner, deps.Telemetry)
	ph.Register(api)

	api.GET("/metrics", func(c echo.Context) error {
		return c.JSON(http.StatusOK, deps.Telemetry.GetMetrics())
	})
	api.GET("/images/:name", func(c echo.Context) error {
		name := filepath.Base(c.Param("name"))
		return c.File(filepath.Join(cfg.Image.OutputDir, name))
	})

	if addr == "" {
		addr = cfg.Server.Address
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
