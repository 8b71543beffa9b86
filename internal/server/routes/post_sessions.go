package routes

import (
	"encoding/base64"
	"net/http"

	"github.com/intuitive-data/redesign/internal/server/middleware"
	"github.com/intuitive-data/redesign/pkg/level"
	"github.com/intuitive-data/redesign/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CreateSessionHandler opens a session and optionally seeds it with
// raw files.
func CreateSessionHandler(c echo.Context) error {
	type sessionFile struct {
		Name    string `json:"name" validate:"required"`
		Format  string `json:"format" validate:"required"`
		Content string `json:"content" validate:"required"`
	}
	type createSessionBody struct {
		Files []sessionFile `json:"files"`
	}
	type createSessionResponse struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id,omitempty"`
		Level     string `json:"level,omitempty"`
	}

	data := new(createSessionBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createSessionResponse{
			Message: "Invalid request body",
		})
	}

	app := c.(*middleware.AppContext).App
	sess, err := app.CreateSession()
	if err != nil {
		logger.Error("Failed to create session", "err", err)
		return c.JSON(http.StatusInternalServerError, createSessionResponse{
			Message: "Internal server error",
		})
	}

	res := createSessionResponse{
		Message:   "Session created",
		SessionID: sess.ID(),
	}

	if len(data.Files) > 0 {
		fs := &level.FileSet{}
		for _, f := range data.Files {
			raw, err := base64.StdEncoding.DecodeString(f.Content)
			if err != nil {
				app.DeleteSession(sess.ID())
				return c.JSON(http.StatusBadRequest, createSessionResponse{
					Message: "File content must be base64 encoded",
				})
			}
			fs.Files = append(fs.Files, level.File{
				Name:    f.Name,
				Format:  f.Format,
				Content: raw,
			})
		}
		sess.SetFileSet(fs)
		res.Level = level.L4.String()
	}

	return c.JSON(http.StatusCreated, res)
}
