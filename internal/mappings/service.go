// Package mappings provides the per-guild role → downstream grant mappings.
package mappings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/guildsync/guildsync/internal/db"
)

// Provider returns the mapping of a guild. An unknown guild yields an empty mapping.
type Provider interface {
	GetMappings(ctx context.Context, guildID string) (Mapping, error)
}

// Store is a Provider that can also be edited.
type Store interface {
	Provider
	PutEntry(ctx context.Context, guildID, roleID string, entry Entry) error
	DeleteEntry(ctx context.Context, guildID, roleID string) error
}

// Service stores mappings in Postgres, one row per (guild, role).
type Service struct {
	db     db.DBTX
	logger *slog.Logger
}

// NewService creates a mapping service.
func NewService(log *slog.Logger, conn db.DBTX) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		db:     conn,
		logger: log.With(slog.String("service", "mappings")),
	}
}

// GetMappings loads every role entry of guildID.
func (s *Service) GetMappings(ctx context.Context, guildID string) (Mapping, error) {
	if s.db == nil {
		return nil, errors.New("mapping store not configured")
	}
	guildID = strings.TrimSpace(guildID)
	if guildID == "" {
		return nil, ErrGuildIDRequired
	}
	rows, err := s.db.Query(ctx, `SELECT role_id, gdrive, teamspeak FROM role_mappings WHERE guild_id = $1`, guildID)
	if err != nil {
		return nil, fmt.Errorf("query role mappings: %w", err)
	}
	defer rows.Close()

	m := Mapping{}
	for rows.Next() {
		var (
			roleID           string
			gdriveRaw, tsRaw []byte
		)
		if err := rows.Scan(&roleID, &gdriveRaw, &tsRaw); err != nil {
			return nil, fmt.Errorf("scan role mapping: %w", err)
		}
		entry, err := decodeEntry(gdriveRaw, tsRaw)
		if err != nil {
			s.logger.Warn("skip malformed role mapping",
				slog.String("guild_id", guildID),
				slog.String("role_id", roleID),
				slog.Any("error", err),
			)
			continue
		}
		m[roleID] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate role mappings: %w", err)
	}
	return m, nil
}

// PutEntry creates or replaces the entry for (guildID, roleID).
func (s *Service) PutEntry(ctx context.Context, guildID, roleID string, entry Entry) error {
	if s.db == nil {
		return errors.New("mapping store not configured")
	}
	guildID, roleID, err := normalizeKey(guildID, roleID)
	if err != nil {
		return err
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	gdriveRaw, tsRaw, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, `
INSERT INTO role_mappings (guild_id, role_id, gdrive, teamspeak) VALUES ($1, $2, $3, $4)
ON CONFLICT (guild_id, role_id) DO UPDATE SET gdrive = EXCLUDED.gdrive, teamspeak = EXCLUDED.teamspeak, updated_at = now()`,
		guildID, roleID, gdriveRaw, tsRaw); err != nil {
		return fmt.Errorf("upsert role mapping: %w", err)
	}
	s.logger.Info("role mapping stored",
		slog.String("guild_id", guildID),
		slog.String("role_id", roleID),
		slog.Int("gdrive", len(entry.GDrive)),
		slog.Int("teamspeak", len(entry.TeamSpeak)),
	)
	return nil
}

// DeleteEntry removes the entry for (guildID, roleID).
func (s *Service) DeleteEntry(ctx context.Context, guildID, roleID string) error {
	if s.db == nil {
		return errors.New("mapping store not configured")
	}
	guildID, roleID, err := normalizeKey(guildID, roleID)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM role_mappings WHERE guild_id = $1 AND role_id = $2`, guildID, roleID)
	if err != nil {
		return fmt.Errorf("delete role mapping: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func normalizeKey(guildID, roleID string) (string, string, error) {
	guildID = strings.TrimSpace(guildID)
	roleID = strings.TrimSpace(roleID)
	if guildID == "" {
		return "", "", ErrGuildIDRequired
	}
	if roleID == "" {
		return "", "", ErrRoleIDRequired
	}
	return guildID, roleID, nil
}

func encodeEntry(entry Entry) ([]byte, []byte, error) {
	if entry.GDrive == nil {
		entry.GDrive = []DriveGrant{}
	}
	if entry.TeamSpeak == nil {
		entry.TeamSpeak = []VoiceGroup{}
	}
	gdriveRaw, err := json.Marshal(entry.GDrive)
	if err != nil {
		return nil, nil, fmt.Errorf("encode gdrive entries: %w", err)
	}
	tsRaw, err := json.Marshal(entry.TeamSpeak)
	if err != nil {
		return nil, nil, fmt.Errorf("encode teamspeak entries: %w", err)
	}
	return gdriveRaw, tsRaw, nil
}

func decodeEntry(gdriveRaw, tsRaw []byte) (Entry, error) {
	var entry Entry
	if len(gdriveRaw) > 0 {
		if err := json.Unmarshal(gdriveRaw, &entry.GDrive); err != nil {
			return Entry{}, fmt.Errorf("decode gdrive entries: %w", err)
		}
	}
	if len(tsRaw) > 0 {
		if err := json.Unmarshal(tsRaw, &entry.TeamSpeak); err != nil {
			return Entry{}, fmt.Errorf("decode teamspeak entries: %w", err)
		}
	}
	return entry, nil
}
