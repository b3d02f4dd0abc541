package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/guildsync/guildsync/internal/accounts"
)

// AccountStore reads and updates linked accounts.
type AccountStore interface {
	Resolve(ctx context.Context, discordID string) (accounts.LinkedAccount, error)
	UpdateLinks(ctx context.Context, discordID string, update accounts.LinksUpdate) (accounts.LinkedAccount, error)
}

// AccountsHandler exposes linked identities of an account.
type AccountsHandler struct {
	store  AccountStore
	logger *slog.Logger
}

// NewAccountsHandler creates an AccountsHandler.
func NewAccountsHandler(log *slog.Logger, store AccountStore) *AccountsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AccountsHandler{
		store:  store,
		logger: log.With(slog.String("handler", "accounts")),
	}
}

// Register registers account routes.
func (h *AccountsHandler) Register(e *echo.Echo) {
	e.GET("/accounts/:discord_id", h.Get)
	e.PUT("/accounts/:discord_id/links", h.UpdateLinks)
}

// Get returns the linked account of a Discord id.
func (h *AccountsHandler) Get(c echo.Context) error {
	account, err := h.store.Resolve(c.Request().Context(), c.Param("discord_id"))
	if err != nil {
		return accountError(err)
	}
	return c.JSON(http.StatusOK, account)
}

// UpdateLinks sets or clears the Drive and TeamSpeak identities, creating the account if needed.
func (h *AccountsHandler) UpdateLinks(c echo.Context) error {
	var update accounts.LinksUpdate
	if err := c.Bind(&update); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if update.GDriveEmail == nil && update.TeamSpeakUID == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "gdrive_email or teamspeak_uid is required")
	}
	discordID := c.Param("discord_id")
	account, err := h.store.UpdateLinks(c.Request().Context(), discordID, update)
	if err != nil {
		return accountError(err)
	}
	h.logger.Info("account links updated",
		slog.String("discord_id", discordID),
		slog.Bool("gdrive_linked", account.GDriveLinked),
		slog.Bool("teamspeak_linked", account.TeamSpeakLinked),
	)
	return c.JSON(http.StatusOK, account)
}

func accountError(err error) error {
	switch {
	case errors.Is(err, accounts.ErrDiscordIDRequired), errors.Is(err, accounts.ErrInvalidEmail):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, accounts.ErrAccountNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
