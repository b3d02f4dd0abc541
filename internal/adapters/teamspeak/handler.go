package teamspeak

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

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
	return &Handler{service: service, logger: log.With(slog.String("handler", "teamspeak"))}
}

// Register mounts the group routes.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/groups", h.Groups)
	e.POST("/groups/:group_id/members", h.AddMember)
	e.DELETE("/groups/:group_id/members/:unique_id", h.RemoveMember)
}

// Groups answers GET /groups.
func (h *Handler) Groups(c echo.Context) error {
	groups, err := h.service.Groups(c.Request().Context())
	if err != nil {
		return adapterutil.WriteError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, api.GroupsResponse{Groups: groups})
}

// AddMember answers POST /groups/:group_id/members.
func (h *Handler) AddMember(c echo.Context) error {
	var req api.MemberRequest
	if err := c.Bind(&req); err != nil {
		return adapterutil.BadRequest(c, err.Error())
	}
	uid := strings.TrimSpace(req.UniqueID)
	if uid == "" {
		return adapterutil.BadRequest(c, "unique_id is required")
	}
	if err := h.service.AddToGroup(c.Request().Context(), uid, c.Param("group_id")); err != nil {
		return adapterutil.WriteError(c, h.logger, err)
	}
	return adapterutil.WriteResult(c, true)
}

// RemoveMember answers DELETE /groups/:group_id/members/:unique_id.
func (h *Handler) RemoveMember(c echo.Context) error {
	uid, err := url.PathUnescape(c.Param("unique_id"))
	if err != nil {
		return adapterutil.BadRequest(c, err.Error())
	}
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return adapterutil.BadRequest(c, "unique_id is required")
	}
	if err := h.service.RemoveFromGroup(c.Request().Context(), uid, c.Param("group_id")); err != nil {
		return adapterutil.WriteError(c, h.logger, err)
	}
	return adapterutil.WriteResult(c, true)
}
