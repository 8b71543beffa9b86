package routes

import (
	"net/http"

	"github.com/intuitive-data/redesign/internal/server/middleware"
	"github.com/intuitive-data/redesign/pkg/transition"

	"github.com/labstack/echo/v4"
)

// GetJoinsHandler lists the joinable column pairs across the session's
// files.
func GetJoinsHandler(c echo.Context) error {
	type joinsResponse struct {
		Message     string                      `json:"message"`
		Suggestions []transition.JoinSuggestion `json:"suggestions"`
	}

	app := c.(*middleware.AppContext).App
	sess, ok := app.Session(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, joinsResponse{
			Message: "Session not found",
		})
	}

	sugg, err := app.Engine.SuggestJoins(c.Request().Context(), sess)
	if err != nil {
		return transitionError(c, err)
	}
	return c.JSON(http.StatusOK, joinsResponse{
		Message:     "OK",
		Suggestions: sugg,
	})
}
