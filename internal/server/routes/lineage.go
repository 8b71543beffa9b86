package routes

import (
	"io"
	"net/http"

	"github.com/intuitive-data/redesign/internal/server/middleware"
	"github.com/intuitive-data/redesign/pkg/logger"

	"github.com/labstack/echo/v4"
)

// GetLineageHandler exports the full transformation history as JSON.
func GetLineageHandler(c echo.Context) error {
	type errorResponse struct {
		Message string `json:"message"`
	}

	app := c.(*middleware.AppContext).App
	out, err := app.Engine.Lineage().Export(map[string]any{
		"source": "redesign-server",
	})
	if err != nil {
		logger.Error("Failed to export lineage", "err", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{
			Message: "Internal server error",
		})
	}
	return c.JSONBlob(http.StatusOK, out)
}

// PostLineageImportHandler replaces the history with a previously
// exported document.
func PostLineageImportHandler(c echo.Context) error {
	type importResponse struct {
		Message string `json:"message"`
		Total   int    `json:"total_operations,omitempty"`
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, importResponse{
			Message: "Invalid request body",
		})
	}

	app := c.(*middleware.AppContext).App
	if err := app.Engine.Lineage().Import(body); err != nil {
		return c.JSON(http.StatusBadRequest, importResponse{
			Message: "Document is not a valid lineage export",
		})
	}
	return c.JSON(http.StatusOK, importResponse{
		Message: "Lineage imported",
		Total:   app.Engine.Lineage().Len(),
	})
}

// GetCacheStatsHandler reports transition cache counters.
func GetCacheStatsHandler(c echo.Context) error {
	type cacheStatsResponse struct {
		Message      string `json:"message"`
		Entries      int    `json:"entries"`
		Hits         int64  `json:"hits"`
		Misses       int64  `json:"misses"`
		Evictions    int64  `json:"evictions"`
		SizeEstimate int64  `json:"size_estimate"`
	}

	app := c.(*middleware.AppContext).App
	stats := app.Engine.CacheStats()
	return c.JSON(http.StatusOK, cacheStatsResponse{
		Message:      "OK",
		Entries:      stats.Entries,
		Hits:         stats.Hits,
		Misses:       stats.Misses,
		Evictions:    stats.Evictions,
		SizeEstimate: stats.SizeEstimate,
	})
}
