package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/guildsync/guildsync/internal/mappings"
)

// MappingsHandler maintains the role mappings of a guild.
type MappingsHandler struct {
	store  mappings.Store
	logger *slog.Logger
}

// NewMappingsHandler creates a MappingsHandler.
func NewMappingsHandler(log *slog.Logger, store mappings.Store) *MappingsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &MappingsHandler{
		store:  store,
		logger: log.With(slog.String("handler", "mappings")),
	}
}

// Register registers mapping routes.
func (h *MappingsHandler) Register(e *echo.Echo) {
	g := e.Group("/guilds/:guild_id/mappings")
	g.GET("", h.List)
	g.PUT("/:role_id", h.Put)
	g.DELETE("/:role_id", h.Delete)
}

type mappingsResponse struct {
	GuildID  string           `json:"guild_id"`
	Mappings mappings.Mapping `json:"mappings"`
}

// List returns every mapping entry of the guild.
func (h *MappingsHandler) List(c echo.Context) error {
	guildID := c.Param("guild_id")
	m, err := h.store.GetMappings(c.Request().Context(), guildID)
	if err != nil {
		return mappingError(err)
	}
	if m == nil {
		m = mappings.Mapping{}
	}
	return c.JSON(http.StatusOK, mappingsResponse{GuildID: guildID, Mappings: m})
}

// Put replaces the entry of one role.
func (h *MappingsHandler) Put(c echo.Context) error {
	var entry mappings.Entry
	if err := c.Bind(&entry); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := entry.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	guildID, roleID := c.Param("guild_id"), c.Param("role_id")
	if err := h.store.PutEntry(c.Request().Context(), guildID, roleID, entry); err != nil {
		return mappingError(err)
	}
	h.logger.Info("mapping updated", slog.String("guild_id", guildID), slog.String("role_id", roleID))
	return c.JSON(http.StatusOK, entry)
}

// Delete removes the entry of one role.
func (h *MappingsHandler) Delete(c echo.Context) error {
	guildID, roleID := c.Param("guild_id"), c.Param("role_id")
	if err := h.store.DeleteEntry(c.Request().Context(), guildID, roleID); err != nil {
		return mappingError(err)
	}
	h.logger.Info("mapping deleted", slog.String("guild_id", guildID), slog.String("role_id", roleID))
	return c.NoContent(http.StatusNoContent)
}

func mappingError(err error) error {
	switch {
	case errors.Is(err, mappings.ErrGuildIDRequired), errors.Is(err, mappings.ErrRoleIDRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, mappings.ErrEntryNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
