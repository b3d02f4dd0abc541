package discord

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/guildsync/guildsync/internal/adapters/adapterutil"
	"github.com/guildsync/guildsync/internal/adapters/api"
)

// Handler exposes Service over HTTP.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(log *slog.Logger, service *Service) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{service: service, logger: log.With(slog.String("handler", "discord"))}
}

// Register mounts the role routes.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/user/:discord_id/roles", h.UserRoles)
	e.GET("/guilds/:guild_id/roles", h.GuildRoles)
}

// UserRoles answers GET /user/:discord_id/roles?guild_id=.
func (h *Handler) UserRoles(c echo.Context) error {
	resp, err := h.service.UserRoles(c.Request().Context(), c.Param("discord_id"), c.QueryParam("guild_id"))
	if err != nil {
		return adapterutil.WriteError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// GuildRoles answers GET /guilds/:guild_id/roles.
func (h *Handler) GuildRoles(c echo.Context) error {
	guildID := c.Param("guild_id")
	roles, err := h.service.GuildRoles(c.Request().Context(), guildID)
	if err != nil {
		return adapterutil.WriteError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, api.GuildRolesResponse{GuildID: guildID, Roles: roles})
}
