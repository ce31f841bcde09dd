package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/glowpress/glowpress/internal/agent"
	"github.com/glowpress/glowpress/internal/events"
	"github.com/glowpress/glowpress/internal/store"
)

type RunsHandler struct {
	runner *agent.Runner
	logger *log.Logger
}

type startRunRequest struct {
	Topic string `json:"topic"`
}

type runStatusResponse struct {
	Running  bool `json:"running"`
	Progress int  `json:"progress"`
}

type runEventsResponse struct {
	Events []events.Event `json:"events"`
	Next   int            `json:"next"`
}

func NewRunsHandler(runner *agent.Runner) *RunsHandler {
	return &RunsHandler{
		runner: runner,
		logger: log.New(log.Writer(), "[RUNS] ", log.LstdFlags),
	}
}

func (h *RunsHandler) Register(g *echo.Group) {
	g.POST("", h.start)
	g.GET("/status", h.status)
	g.GET("/events", h.events)
	g.GET("/result", h.result)
	g.POST("/reset", h.reset)
}

// start launches a background generation run for a topic.
func (h *RunsHandler) start(c echo.Context) error {
	var req startRunRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Topic) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "topic is required")
	}
	if err := h.runner.Start(req.Topic); err != nil {
		if errors.Is(err, agent.ErrRunInProgress) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	h.logger.Printf("run started for topic %q", req.Topic)
	return c.JSON(http.StatusAccepted, map[string]string{"status": "started"})
}

func (h *RunsHandler) status(c echo.Context) error {
	running, progress := h.runner.Status()
	return c.JSON(http.StatusOK, runStatusResponse{Running: running, Progress: progress})
}

// events returns log events after the given offset for UI polling.
func (h *RunsHandler) events(c echo.Context) error {
	after := 0
	if v := strings.TrimSpace(c.QueryParam("after")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "after must be an integer")
		}
		after = n
	}
	evts, next := h.runner.Events(after)
	if evts == nil {
		evts = []events.Event{}
	}
	return c.JSON(http.StatusOK, runEventsResponse{Events: evts, Next: next})
}

func (h *RunsHandler) result(c echo.Context) error {
	rec := h.runner.Result()
	if rec == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no result available")
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *RunsHandler) reset(c echo.Context) error {
	if err := h.runner.Reset(); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "reset"})
}

// resultOrHistory resolves a record by id, preferring the live result.
func resultOrHistory(runner *agent.Runner, history *store.HistoryStore, id string) (*store.ContentRecord, error) {
	if rec := runner.Result(); rec != nil && (id == "" || rec.ID == id) {
		return rec, nil
	}
	records, err := history.Load()
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == id {
			return &records[i], nil
		}
	}
	return nil, nil
}
