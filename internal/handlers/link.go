package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/guildsync/guildsync/internal/accounts"
	"github.com/guildsync/guildsync/internal/executor"
	"github.com/guildsync/guildsync/internal/orchestrator"
)

// Linker runs the explicit link flow.
type Linker interface {
	LinkAccount(ctx context.Context, discordID string) (orchestrator.LinkResult, error)
}

// LinkHandler serves POST /user/link/discord.
type LinkHandler struct {
	linker Linker
	logger *slog.Logger
}

// NewLinkHandler creates a LinkHandler.
func NewLinkHandler(log *slog.Logger, linker Linker) *LinkHandler {
	if log == nil {
		log = slog.Default()
	}
	return &LinkHandler{
		linker: linker,
		logger: log.With(slog.String("handler", "link")),
	}
}

// Register registers the link route.
func (h *LinkHandler) Register(e *echo.Echo) {
	e.POST("/user/link/discord", h.LinkDiscord)
}

type linkRequest struct {
	DiscordID string `json:"discord_id"`
}

// LinkDiscord reconciles every current role of the member and returns them
// with the reconciliation report.
func (h *LinkHandler) LinkDiscord(c echo.Context) error {
	if h.linker == nil {
		return writeError(c, http.StatusServiceUnavailable, "Link service not available", nil)
	}
	var req linkRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "Invalid request body", err)
	}
	req.DiscordID = strings.TrimSpace(req.DiscordID)
	if req.DiscordID == "" {
		return writeError(c, http.StatusBadRequest, "discord_id is required", nil)
	}

	result, err := h.linker.LinkAccount(c.Request().Context(), req.DiscordID)
	if err != nil {
		requestLog(c, h.logger).Warn("link failed", slog.String("discord_id", req.DiscordID), slog.Any("error", err))
		status, msg := linkErrorStatus(err)
		return writeError(c, status, msg, err)
	}
	return c.JSON(http.StatusOK, result)
}

func linkErrorStatus(err error) (int, string) {
	var statusErr *executor.StatusError
	switch {
	case errors.Is(err, accounts.ErrDiscordIDRequired):
		return http.StatusBadRequest, "discord_id is required"
	case errors.Is(err, accounts.ErrAccountNotFound):
		return http.StatusNotFound, "No internal account for this Discord ID"
	case errors.Is(err, executor.ErrMemberNotFound):
		return http.StatusNotFound, "Discord member not found in guild"
	case errors.Is(err, orchestrator.ErrNoDefaultGuild):
		return http.StatusServiceUnavailable, "No Discord guild configured"
	case errors.Is(err, executor.ErrNotConfigured):
		return http.StatusServiceUnavailable, "Discord service not configured"
	case errors.Is(err, orchestrator.ErrRolesUnavailable) && errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Discord service timed out"
	case errors.Is(err, orchestrator.ErrRolesUnavailable) && errors.As(err, &statusErr):
		return statusErr.Code, "Failed to retrieve roles from Discord service"
	case errors.Is(err, orchestrator.ErrRolesUnavailable):
		return http.StatusBadGateway, "Failed to connect to Discord service"
	case errors.Is(err, orchestrator.ErrSnapshotConflict):
		return http.StatusConflict, "Role snapshot changed concurrently"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}
