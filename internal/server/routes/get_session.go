package routes

import (
	"net/http"

	"github.com/intuitive-data/redesign/internal/server/middleware"
	"github.com/intuitive-data/redesign/pkg/level"

	"github.com/labstack/echo/v4"
)

// GetSessionHandler reports the session's current representation level.
func GetSessionHandler(c echo.Context) error {
	type getSessionResponse struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id,omitempty"`
		Level     string `json:"level,omitempty"`
	}

	app := c.(*middleware.AppContext).App
	sess, ok := app.Session(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, getSessionResponse{
			Message: "Session not found",
		})
	}

	res := getSessionResponse{
		Message:   "OK",
		SessionID: sess.ID(),
	}
	if lvl, ok := sess.Current(); ok {
		res.Level = lvl.String()
	}
	return c.JSON(http.StatusOK, res)
}

// DeleteSessionHandler removes a session and its held data.
func DeleteSessionHandler(c echo.Context) error {
	type deleteSessionResponse struct {
		Message string `json:"message"`
	}

	app := c.(*middleware.AppContext).App
	if _, ok := app.Session(c.Param("id")); !ok {
		return c.JSON(http.StatusNotFound, deleteSessionResponse{
			Message: "Session not found",
		})
	}
	app.DeleteSession(c.Param("id"))
	return c.JSON(http.StatusOK, deleteSessionResponse{
		Message: "Session deleted",
	})
}

// GetGraphStatsHandler returns node and edge statistics for the
// session's graph, when one exists.
func GetGraphStatsHandler(c echo.Context) error {
	type graphStatsResponse struct {
		Message     string         `json:"message"`
		NodeCount   int            `json:"node_count,omitempty"`
		EdgeCount   int            `json:"edge_count,omitempty"`
		OrphanCount int            `json:"orphan_count,omitempty"`
		NodeTypes   map[string]int `json:"node_types,omitempty"`
		EntityTypes map[string]int `json:"entity_types,omitempty"`
	}

	app := c.(*middleware.AppContext).App
	sess, ok := app.Session(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, graphStatsResponse{
			Message: "Session not found",
		})
	}
	gd := sess.Graph()
	if gd == nil {
		return c.JSON(http.StatusConflict, graphStatsResponse{
			Message: "Session holds no data at level " + level.L3.String(),
		})
	}

	stats := gd.Graph.Stats()
	return c.JSON(http.StatusOK, graphStatsResponse{
		Message:     "OK",
		NodeCount:   stats.NodeCount,
		EdgeCount:   stats.EdgeCount,
		OrphanCount: stats.OrphanCount,
		NodeTypes:   stats.NodeTypes,
		EntityTypes: stats.EntityTypes,
	})
}
