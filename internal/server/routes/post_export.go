package routes

import (
	"bytes"
	"net/http"

	"github.com/intuitive-data/redesign/internal/server/middleware"
	"github.com/intuitive-data/redesign/pkg/logger"
	"github.com/intuitive-data/redesign/pkg/table"

	"github.com/labstack/echo/v4"
)

// ExportHandler cleans a CSV dataset, assesses whether it is ready for
// model training and returns the verdict in plain language. The
// cleaned CSV is included when the caller asks for it.
func ExportHandler(c echo.Context) error {
	type exportBody struct {
		CSV        string `json:"csv" validate:"required"`
		Target     string `json:"target" validate:"required"`
		IncludeCSV bool   `json:"include_csv"`
	}
	type exportResponse struct {
		Message      string   `json:"message"`
		IsReady      bool     `json:"is_ready"`
		Summary      string   `json:"summary,omitempty"`
		Score        *float64 `json:"score,omitempty"`
		Warnings     []string `json:"warnings,omitempty"`
		RowCount     int      `json:"row_count,omitempty"`
		RowsRemoved  int      `json:"rows_removed,omitempty"`
		APICallsUsed int      `json:"api_calls_used,omitempty"`
		CSV          string   `json:"csv,omitempty"`
	}

	data := new(exportBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, exportResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, exportResponse{
			Message: "CSV data and a target column are required",
		})
	}

	tbl, err := table.ReadCSV(bytes.NewReader([]byte(data.CSV)))
	if err != nil {
		return c.JSON(http.StatusBadRequest, exportResponse{
			Message: "Could not parse the CSV data",
		})
	}

	app := c.(*middleware.AppContext).App
	res, err := app.Exporter.Export(c.Request().Context(), tbl, data.Target)
	if err != nil {
		logger.Error("Export failed", "err", err)
		return c.JSON(http.StatusInternalServerError, exportResponse{
			Message: "Internal server error",
		})
	}

	out := exportResponse{
		Message:      "OK",
		IsReady:      res.IsReady,
		Summary:      res.Summary,
		Score:        res.Score,
		Warnings:     res.Warnings,
		RowCount:     res.CleanedRowCount,
		RowsRemoved:  res.RowsRemoved,
		APICallsUsed: res.APICallsUsed,
	}
	if data.IncludeCSV && res.Cleaned != nil {
		csv, err := res.CSV()
		if err != nil {
			logger.Error("Failed to render cleaned CSV", "err", err)
			return c.JSON(http.StatusInternalServerError, exportResponse{
				Message: "Internal server error",
			})
		}
		out.CSV = string(csv)
	}
	return c.JSON(http.StatusOK, out)
}
