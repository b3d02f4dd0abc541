package handlers

import (
	"log/slog"

	"github.com/labstack/echo/v4"
)

// ErrorResponse is the error body of the link API.
type ErrorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	StatusCode int    `json:"status_code"`
}

func writeError(c echo.Context, status int, msg string, err error) error {
	body := ErrorResponse{Error: msg, StatusCode: status}
	if err != nil {
		body.Details = err.Error()
	}
	return c.JSON(status, body)
}

// requestLog tags base with the request id assigned by the server.
func requestLog(c echo.Context, base *slog.Logger) *slog.Logger {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return base.With(slog.String("request_id", id))
	}
	return base
}
