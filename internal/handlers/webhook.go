package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/guildsync/guildsync/internal/accounts"
	"github.com/guildsync/guildsync/internal/adapters/api"
	"github.com/guildsync/guildsync/internal/orchestrator"
	"github.com/guildsync/guildsync/internal/reconcile"
	"github.com/guildsync/guildsync/internal/roles"
)

// RoleChangeHandler runs the role-change flow.
type RoleChangeHandler interface {
	HandleRoleChange(ctx context.Context, change orchestrator.RoleChange) (reconcile.Report, error)
}

// WebhookHandler serves role-change notifications relayed from Discord.
type WebhookHandler struct {
	handler RoleChangeHandler
	logger  *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(log *slog.Logger, handler RoleChangeHandler) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		handler: handler,
		logger:  log.With(slog.String("handler", "webhook")),
	}
}

// Register registers the webhook route.
func (h *WebhookHandler) Register(e *echo.Echo) {
	e.POST("/webhooks/discord/role-change", h.RoleChange)
}

type roleChangeRequest struct {
	DiscordID string     `json:"discord_id"`
	GuildID   string     `json:"guild_id"`
	Roles     []api.Role `json:"roles"`
}

// WebhookResponse is the body of every role-change response.
type WebhookResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Report  *reconcile.Report `json:"report,omitempty"`
}

// RoleChange reconciles the notified roles against the stored snapshot.
// Downstream failures are reported in the body, not in the status code.
func (h *WebhookHandler) RoleChange(c echo.Context) error {
	if h.handler == nil {
		return c.JSON(http.StatusServiceUnavailable, WebhookResponse{Status: "error", Message: "role change service not available"})
	}
	var req roleChangeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, WebhookResponse{Status: "error", Message: "invalid request body: " + err.Error()})
	}
	change := orchestrator.RoleChange{
		DiscordID: req.DiscordID,
		GuildID:   req.GuildID,
		Roles:     make(roles.Snapshot, 0, len(req.Roles)),
	}
	for _, r := range req.Roles {
		change.Roles = append(change.Roles, roles.Role{ID: r.ID, Name: r.Name})
	}

	report, err := h.handler.HandleRoleChange(c.Request().Context(), change)
	if err != nil {
		requestLog(c, h.logger).Warn("role change failed", slog.String("discord_id", req.DiscordID), slog.String("guild_id", req.GuildID), slog.Any("error", err))
		status := roleChangeErrorStatus(err)
		resp := WebhookResponse{Status: "error", Message: err.Error()}
		if report.RunID != "" {
			resp.Report = &report
		}
		return c.JSON(status, resp)
	}
	return c.JSON(http.StatusOK, WebhookResponse{
		Status:  "received",
		Message: summarize(report),
		Report:  &report,
	})
}

func roleChangeErrorStatus(err error) int {
	switch {
	case errors.Is(err, accounts.ErrDiscordIDRequired), errors.Is(err, orchestrator.ErrGuildIDRequired):
		return http.StatusBadRequest
	case errors.Is(err, accounts.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, orchestrator.ErrSnapshotConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func summarize(r reconcile.Report) string {
	if r.MappingError != "" {
		return "role mapping unavailable: " + r.MappingError
	}
	return fmt.Sprintf("%d added, %d removed, %d calls, %d not successful",
		len(r.Added), len(r.Removed), len(r.Items), len(r.Failures()))
}
