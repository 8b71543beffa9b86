package server

import (
	"github.com/intuitive-data/redesign/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Session routes
	apiRoutes.POST("/sessions", routes.CreateSessionHandler)
	apiRoutes.GET("/sessions/:id", routes.GetSessionHandler)
	apiRoutes.DELETE("/sessions/:id", routes.DeleteSessionHandler)

	// Transition routes
	apiRoutes.POST("/sessions/:id/descend", routes.DescendHandler)
	apiRoutes.POST("/sessions/:id/ascend", routes.AscendHandler)
	apiRoutes.POST("/sessions/:id/join", routes.JoinHandler)
	apiRoutes.GET("/sessions/:id/joins", routes.GetJoinsHandler)
	apiRoutes.GET("/sessions/:id/graph/stats", routes.GetGraphStatsHandler)

	// Export routes
	apiRoutes.POST("/export", routes.ExportHandler)

	// Lineage and cache routes
	apiRoutes.GET("/lineage", routes.GetLineageHandler)
	apiRoutes.POST("/lineage/import", routes.PostLineageImportHandler)
	apiRoutes.GET("/cache/stats", routes.GetCacheStatsHandler)
}
