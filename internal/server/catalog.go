package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/glowpress/glowpress/internal/catalog"
)

type CatalogHandler struct {
	index *catalog.Index
}

func NewCatalogHandler(index *catalog.Index) *CatalogHandler {
	return &CatalogHandler{index: index}
}

func (h *CatalogHandler) Register(g *echo.Group) {
	g.GET("/search", h.search)
}

// search queries the product index. mode selects vector, keyword or
// hybrid retrieval.
func (h *CatalogHandler) search(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	k := 5
	if v := strings.TrimSpace(c.QueryParam("k")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "k must be a positive integer")
		}
		k = n
	}

	ctx := c.Request().Context()
	var (
		matches []catalog.Match
		err     error
	)
	switch strings.ToLower(strings.TrimSpace(c.QueryParam("mode"))) {
	case "", "vector":
		matches, err = h.index.Search(ctx, query, k)
	case "keyword":
		matches, err = h.index.KeywordSearch(query, k)
	case "hybrid":
		matches, err = h.index.HybridSearch(ctx, query, k)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "mode must be vector, keyword or hybrid")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	if matches == nil {
		matches = []catalog.Match{}
	}
	return c.JSON(http.StatusOK, matches)
}
