package server

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/glowpress/glowpress/config"
	"github.com/glowpress/glowpress/internal/agent"
	"github.com/glowpress/glowpress/internal/store"
	"github.com/glowpress/glowpress/internal/telemetry"
	"github.com/glowpress/glowpress/tools/publish/linkedin"
)

type PublishHandler struct {
	cfg     config.LinkedInConfig
	enabled bool
	history *store.HistoryStore
	runner  *agent.Runner
	tele    *telemetry.Telemetry
	logger  *log.Logger
}

type publishRequest struct {
	ID string `json:"id"`
}

func NewPublishHandler(cfg config.LinkedInConfig, enabled bool, history *store.HistoryStore, runner *agent.Runner, tele *telemetry.Telemetry) *PublishHandler {
	return &PublishHandler{
		cfg:     cfg,
		enabled: enabled,
		history: history,
		runner:  runner,
		tele:    tele,
		logger:  log.New(log.Writer(), "[PUBLISH] ", log.LstdFlags),
	}
}

func (h *PublishHandler) Register(g *echo.Group) {
	g.POST("/publish", h.publish)
}

// publish posts a record's LinkedIn text to the LinkedIn UGC API and
// marks it published.
func (h *PublishHandler) publish(c echo.Context) error {
	if !h.enabled {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "publishing is disabled")
	}
	var req publishRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	rec, err := resultOrHistory(h.runner, h.history, req.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if rec == nil {
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}
	if strings.TrimSpace(rec.LinkedIn) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "record has no LinkedIn post")
	}

	// The client validates credentials before any network call.
	client, err := linkedin.NewClient(h.cfg.AccessToken, h.cfg.UserID, h.cfg.UGCURL, h.cfg.Timeout)
	if err != nil {
		var cfgErr *linkedin.ConfigurationError
		if errors.As(err, &cfgErr) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := client.Post(c.Request().Context(), rec.LinkedIn); err != nil {
		h.logger.Printf("publish failed for record %s: %v", rec.ID, err)
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	if err := h.history.MarkPublished(rec.ID); err != nil {
		h.logger.Printf("warn: history publish flag update failed: %v", err)
	}
	if live := h.runner.Result(); live != nil && live.ID == rec.ID {
		h.runner.MarkPublished()
	}
	h.tele.RecordPublish()
	h.logger.Printf("record %s published", rec.ID)
	return c.JSON(http.StatusOK, map[string]string{"status": "published", "id": rec.ID})
}
