package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// PingHandler serves /ping and /health for liveness.
type PingHandler struct {
	service string
	logger  *slog.Logger
}

// NewPingHandler creates a ping handler reporting service in /health.
func NewPingHandler(log *slog.Logger, service string) *PingHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PingHandler{service: service, logger: log.With(slog.String("handler", "ping"))}
}

// Register mounts GET /ping, GET /health and HEAD /health on the Echo instance.
func (h *PingHandler) Register(e *echo.Echo) {
	e.GET("/ping", h.Ping)
	e.GET("/health", h.Health)
	e.HEAD("/health", h.PingHead)
}

// Ping returns 200 JSON {"status":"ok"}.
func (h *PingHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Health returns 200 JSON {"status":"ok","service":...}.
func (h *PingHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": h.service,
	})
}

// PingHead returns 200 No Content for health checks.
func (h *PingHandler) PingHead(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}
