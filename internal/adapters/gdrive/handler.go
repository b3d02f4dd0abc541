package gdrive

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/guildsync/guildsync/internal/adapters/adapterutil"
	"github.com/guildsync/guildsync/internal/adapters/api"
	"github.com/guildsync/guildsync/internal/mappings"
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
	return &Handler{service: service, logger: log.With(slog.String("handler", "gdrive"))}
}

// Register mounts the permission routes.
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/permissions", h.Grant)
	e.DELETE("/permissions", h.Revoke)
}

// bindPermission returns the request or a message explaining why it is invalid.
func bindPermission(c echo.Context) (api.PermissionRequest, string) {
	var req api.PermissionRequest
	if err := c.Bind(&req); err != nil {
		return req, err.Error()
	}
	req.Email = strings.TrimSpace(req.Email)
	req.ItemID = strings.TrimSpace(req.ItemID)
	if req.Email == "" || req.ItemID == "" {
		return req, "email and item_id are required"
	}
	return req, ""
}

// Grant answers POST /permissions.
func (h *Handler) Grant(c echo.Context) error {
	req, invalid := bindPermission(c)
	if invalid != "" {
		return adapterutil.BadRequest(c, invalid)
	}
	if !slices.Contains(mappings.DrivePermissions, req.Role) {
		return adapterutil.BadRequest(c, "role must be one of "+strings.Join(mappings.DrivePermissions, ", "))
	}
	applied, err := h.service.Grant(c.Request().Context(), req.Email, req.ItemID, req.Role)
	if err != nil {
		return adapterutil.WriteError(c, h.logger, err)
	}
	return adapterutil.WriteResult(c, applied)
}

// Revoke answers DELETE /permissions.
func (h *Handler) Revoke(c echo.Context) error {
	req, invalid := bindPermission(c)
	if invalid != "" {
		return adapterutil.BadRequest(c, invalid)
	}
	if err := h.service.Revoke(c.Request().Context(), req.Email, req.ItemID); err != nil {
		return adapterutil.WriteError(c, h.logger, err)
	}
	return adapterutil.WriteResult(c, true)
}
