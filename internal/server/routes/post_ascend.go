package routes

import (
	"net/http"

	"github.com/intuitive-data/redesign/internal/server/middleware"
	"github.com/intuitive-data/redesign/pkg/transition"

	"github.com/labstack/echo/v4"
)

// AscendHandler moves a session one level up, reconstructing structure
// a previous descent collapsed.
func AscendHandler(c echo.Context) error {
	type ascendBody struct {
		Target         string   `json:"target" validate:"required,oneof=L1 L2 L3"`
		Domains        []string `json:"domains"`
		Threshold      *float64 `json:"threshold"`
		EntityColumn   string   `json:"entity_column"`
		Relationship   string   `json:"relationship"`
		ValueColumn    string   `json:"value_column"`
		SkipValidation bool     `json:"skip_validation"`
	}
	type ascendResponse struct {
		Message string         `json:"message"`
		Level   string         `json:"level,omitempty"`
		Meta    map[string]any `json:"meta,omitempty"`
		Rows    int            `json:"rows,omitempty"`
	}

	data := new(ascendBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, ascendResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, ascendResponse{
			Message: "Target must be one of L1, L2, L3",
		})
	}

	app := c.(*middleware.AppContext).App
	sess, ok := app.Session(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, ascendResponse{
			Message: "Session not found",
		})
	}

	res := ascendResponse{Message: "OK", Level: data.Target}
	var err error
	switch data.Target {
	case "L1":
		v, vErr := app.Engine.AscendToVector(sess)
		if vErr == nil {
			res.Meta = v.Meta
			res.Rows = v.Len()
		}
		err = vErr
	case "L2":
		if len(data.Domains) == 0 {
			return c.JSON(http.StatusBadRequest, ascendResponse{
				Message: "Domains are required when ascending to L2",
			})
		}
		threshold := transition.DefaultEnrichThreshold
		if data.Threshold != nil {
			threshold = *data.Threshold
		}
		td, tdErr := app.Engine.AscendToTable(c.Request().Context(), sess, transition.EnrichParams{
			Domains:   data.Domains,
			Threshold: threshold,
		})
		if tdErr == nil {
			res.Meta = td.Meta
			res.Rows = td.Table.Rows()
		}
		err = tdErr
	case "L3":
		if data.EntityColumn == "" {
			return c.JSON(http.StatusBadRequest, ascendResponse{
				Message: "Entity column is required when ascending to L3",
			})
		}
		params := transition.BuildGraphParams{
			EntityColumn: data.EntityColumn,
			Relationship: data.Relationship,
			ValueColumn:  data.ValueColumn,
		}
		if data.SkipValidation {
			skip := false
			params.ValidateOrphans = &skip
		}
		gd, gdErr := app.Engine.AscendToGraph(sess, params)
		if gdErr == nil {
			res.Meta = gd.Meta
		}
		err = gdErr
	}
	if err != nil {
		return transitionError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
