package routes

import (
	"errors"
	"net/http"

	"github.com/intuitive-data/redesign/internal/server/middleware"
	"github.com/intuitive-data/redesign/pkg/logger"
	"github.com/intuitive-data/redesign/pkg/transition"

	"github.com/labstack/echo/v4"
)

// DescendHandler moves a session one level down. The target level
// decides which operation runs and which parameters are required.
func DescendHandler(c echo.Context) error {
	type descendBody struct {
		Target string `json:"target" validate:"required,oneof=L3 L2 L1 L0"`
		Column string `json:"column"`
		Method string `json:"method"`
	}
	type descendResponse struct {
		Message string         `json:"message"`
		Level   string         `json:"level,omitempty"`
		Meta    map[string]any `json:"meta,omitempty"`
		Rows    int            `json:"rows,omitempty"`
	}

	data := new(descendBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, descendResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, descendResponse{
			Message: "Target must be one of L3, L2, L1, L0",
		})
	}

	app := c.(*middleware.AppContext).App
	sess, ok := app.Session(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, descendResponse{
			Message: "Session not found",
		})
	}

	res := descendResponse{Message: "OK", Level: data.Target}
	var err error
	switch data.Target {
	case "L3":
		gd, gdErr := app.Engine.DescendToGraph(sess)
		if gdErr == nil {
			res.Meta = gd.Meta
		}
		err = gdErr
	case "L2":
		td, tdErr := app.Engine.DescendToTable(sess)
		if tdErr == nil {
			res.Meta = td.Meta
			res.Rows = td.Table.Rows()
		}
		err = tdErr
	case "L1":
		if data.Column == "" {
			return c.JSON(http.StatusBadRequest, descendResponse{
				Message: "Column is required when descending to L1",
			})
		}
		v, vErr := app.Engine.DescendToVector(sess, data.Column)
		if vErr == nil {
			res.Meta = v.Meta
			res.Rows = v.Len()
		}
		err = vErr
	case "L0":
		if data.Method == "" {
			data.Method = "mean"
		}
		d, dErr := app.Engine.DescendToScalar(sess, data.Method)
		if dErr == nil {
			res.Meta = d.Meta
		}
		err = dErr
	}
	if err != nil {
		return transitionError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// transitionError maps engine errors to responses. Validation problems
// are the caller's to fix, everything else is logged as ours.
func transitionError(c echo.Context, err error) error {
	type errorResponse struct {
		Message string `json:"message"`
	}

	var vErr *transition.ValidationError
	if errors.As(err, &vErr) {
		return c.JSON(http.StatusConflict, errorResponse{Message: vErr.Error()})
	}
	var oErr *transition.OrphanNodeError
	if errors.As(err, &oErr) {
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Message: oErr.Error()})
	}
	var pErr *transition.NoParentError
	if errors.As(err, &pErr) {
		return c.JSON(http.StatusConflict, errorResponse{Message: pErr.Error()})
	}

	logger.Error("Transition failed", "err", err)
	return c.JSON(http.StatusInternalServerError, errorResponse{
		Message: "Internal server error",
	})
}
