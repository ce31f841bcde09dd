package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/glowpress/glowpress/internal/agent"
	"github.com/glowpress/glowpress/internal/store"
)

type HistoryHandler struct {
	history *store.HistoryStore
	runner  *agent.Runner
}

func NewHistoryHandler(history *store.HistoryStore, runner *agent.Runner) *HistoryHandler {
	return &HistoryHandler{history: history, runner: runner}
}

func (h *HistoryHandler) Register(g *echo.Group) {
	g.GET("", h.list)
	g.POST("/:id/show", h.show)
}

// list returns stored records, newest last.
func (h *HistoryHandler) list(c echo.Context) error {
	records, err := h.history.Load()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if records == nil {
		records = []store.ContentRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

// show loads a stored record into the live view.
func (h *HistoryHandler) show(c echo.Context) error {
	id := c.Param("id")
	records, err := h.history.Load()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	for _, rec := range records {
		if rec.ID == id {
			if err := h.runner.ShowRecord(rec); err != nil {
				return echo.NewHTTPError(http.StatusConflict, err.Error())
			}
			return c.JSON(http.StatusOK, rec)
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "record not found")
}
