package routes

import (
	"net/http"

	"github.com/intuitive-data/redesign/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

// JoinHandler joins two of the session's files on a shared key column
// and makes the joined table the session's current payload.
func JoinHandler(c echo.Context) error {
	type joinBody struct {
		Left  string `json:"left" validate:"required"`
		Right string `json:"right" validate:"required"`
		Key   string `json:"key" validate:"required"`
	}
	type joinResponse struct {
		Message string         `json:"message"`
		Level   string         `json:"level,omitempty"`
		Meta    map[string]any `json:"meta,omitempty"`
		Rows    int            `json:"rows,omitempty"`
	}

	data := new(joinBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, joinResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, joinResponse{
			Message: "Left, right and key are required",
		})
	}

	app := c.(*middleware.AppContext).App
	sess, ok := app.Session(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, joinResponse{
			Message: "Session not found",
		})
	}

	td, err := app.Engine.JoinFiles(sess, data.Left, data.Right, data.Key)
	if err != nil {
		return transitionError(c, err)
	}
	return c.JSON(http.StatusOK, joinResponse{
		Message: "OK",
		Level:   "L2",
		Meta:    td.Meta,
		Rows:    td.Table.Rows(),
	})
}
