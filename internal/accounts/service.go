// Package accounts resolves Discord identities to internal accounts and their linked identities.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/guildsync/guildsync/internal/db"
)

// Resolver maps a Discord identity to its linked account.
type Resolver interface {
	Resolve(ctx context.Context, discordID string) (LinkedAccount, error)
	Ensure(ctx context.Context, discordID string) (LinkedAccount, error)
}

// Service stores linked accounts in Postgres.
type Service struct {
	db     db.DBTX
	logger *slog.Logger
}

// NewService creates an account service.
func NewService(log *slog.Logger, conn db.DBTX) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		db:     conn,
		logger: log.With(slog.String("service", "accounts")),
	}
}

const accountColumns = `id, discord_id, gdrive_email, gdrive_linked, teamspeak_uid, teamspeak_linked, created_at, updated_at`

// Resolve returns the account linked to discordID, or ErrAccountNotFound.
func (s *Service) Resolve(ctx context.Context, discordID string) (LinkedAccount, error) {
	if s.db == nil {
		return LinkedAccount{}, errors.New("account store not configured")
	}
	discordID = strings.TrimSpace(discordID)
	if discordID == "" {
		return LinkedAccount{}, ErrDiscordIDRequired
	}
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE discord_id = $1`, discordID)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LinkedAccount{}, ErrAccountNotFound
		}
		return LinkedAccount{}, fmt.Errorf("resolve account: %w", err)
	}
	return account, nil
}

// Ensure returns the account linked to discordID, creating an empty one on first sight.
func (s *Service) Ensure(ctx context.Context, discordID string) (LinkedAccount, error) {
	if s.db == nil {
		return LinkedAccount{}, errors.New("account store not configured")
	}
	discordID = strings.TrimSpace(discordID)
	if discordID == "" {
		return LinkedAccount{}, ErrDiscordIDRequired
	}
	row := s.db.QueryRow(ctx, `
INSERT INTO accounts (discord_id) VALUES ($1)
ON CONFLICT (discord_id) DO UPDATE SET updated_at = now()
RETURNING `+accountColumns, discordID)
	account, err := scanAccount(row)
	if err != nil {
		return LinkedAccount{}, fmt.Errorf("ensure account: %w", err)
	}
	return account, nil
}

// UpdateLinks applies update to the account of discordID, creating it if needed.
func (s *Service) UpdateLinks(ctx context.Context, discordID string, update LinksUpdate) (LinkedAccount, error) {
	if s.db == nil {
		return LinkedAccount{}, errors.New("account store not configured")
	}
	discordID = strings.TrimSpace(discordID)
	if discordID == "" {
		return LinkedAccount{}, ErrDiscordIDRequired
	}
	email, setEmail, err := normalizeEmail(update.GDriveEmail)
	if err != nil {
		return LinkedAccount{}, err
	}
	uid, setUID := normalizeUID(update.TeamSpeakUID)

	row := s.db.QueryRow(ctx, `
INSERT INTO accounts (discord_id, gdrive_email, gdrive_linked, teamspeak_uid, teamspeak_linked)
VALUES ($1, $3, $3 IS NOT NULL AND $2, $5, $5 IS NOT NULL AND $4)
ON CONFLICT (discord_id) DO UPDATE SET
  gdrive_email     = CASE WHEN $2 THEN $3 ELSE accounts.gdrive_email END,
  gdrive_linked    = CASE WHEN $2 THEN $3 IS NOT NULL ELSE accounts.gdrive_linked END,
  teamspeak_uid    = CASE WHEN $4 THEN $5 ELSE accounts.teamspeak_uid END,
  teamspeak_linked = CASE WHEN $4 THEN $5 IS NOT NULL ELSE accounts.teamspeak_linked END,
  updated_at       = now()
RETURNING `+accountColumns,
		discordID, setEmail, email, setUID, uid)
	account, err := scanAccount(row)
	if err != nil {
		return LinkedAccount{}, fmt.Errorf("update account links: %w", err)
	}
	s.logger.Info("account links updated",
		slog.String("account_id", account.ID),
		slog.String("discord_id", account.DiscordID),
		slog.Bool("gdrive_linked", account.GDriveLinked),
		slog.Bool("teamspeak_linked", account.TeamSpeakLinked),
	)
	return account, nil
}

func scanAccount(row pgx.Row) (LinkedAccount, error) {
	var (
		id              pgtype.UUID
		discordID       string
		gdriveEmail     pgtype.Text
		gdriveLinked    bool
		teamspeakUID    pgtype.Text
		teamspeakLinked bool
		createdAt       pgtype.Timestamptz
		updatedAt       pgtype.Timestamptz
	)
	if err := row.Scan(&id, &discordID, &gdriveEmail, &gdriveLinked, &teamspeakUID, &teamspeakLinked, &createdAt, &updatedAt); err != nil {
		return LinkedAccount{}, err
	}
	return toLinkedAccount(id, discordID, gdriveEmail, gdriveLinked, teamspeakUID, teamspeakLinked, createdAt.Time, updatedAt.Time), nil
}

func toLinkedAccount(id pgtype.UUID, discordID string, email pgtype.Text, emailLinked bool, uid pgtype.Text, uidLinked bool, createdAt, updatedAt time.Time) LinkedAccount {
	a := LinkedAccount{
		ID:           db.UUIDToString(id),
		DiscordID:    discordID,
		GDriveEmail:  db.TextToString(email),
		TeamSpeakUID: db.TextToString(uid),
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
	a.GDriveLinked = emailLinked && a.GDriveEmail != ""
	a.TeamSpeakLinked = uidLinked && a.TeamSpeakUID != ""
	return a
}

// normalizeEmail returns the value to store (NULL to unlink) and whether to change it.
func normalizeEmail(raw *string) (pgtype.Text, bool, error) {
	if raw == nil {
		return pgtype.Text{}, false, nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return pgtype.Text{}, true, nil
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return pgtype.Text{}, false, ErrInvalidEmail
	}
	return pgtype.Text{String: strings.ToLower(value), Valid: true}, true, nil
}

func normalizeUID(raw *string) (pgtype.Text, bool) {
	if raw == nil {
		return pgtype.Text{}, false
	}
	return db.ToText(*raw), true
}
