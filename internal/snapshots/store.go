// Package snapshots persists the last-known role snapshot per (account, guild).
package snapshots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/guildsync/guildsync/internal/db"
	"github.com/guildsync/guildsync/internal/roles"
)

// Store loads and saves snapshots with an optimistic version check.
type Store interface {
	// Get returns ErrNotFound when nothing was stored yet.
	Get(ctx context.Context, accountID, guildID string) (Record, error)
	// Save stores snapshot if the stored version still equals expectedVersion
	// (0 meaning "nothing stored"), otherwise it returns ErrVersionConflict.
	Save(ctx context.Context, accountID, guildID string, snapshot roles.Snapshot, expectedVersion int64) (Record, error)
}

// Service is the Postgres Store.
type Service struct {
	db     db.DBTX
	logger *slog.Logger
}

// NewService creates a snapshot service.
func NewService(log *slog.Logger, conn db.DBTX) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		db:     conn,
		logger: log.With(slog.String("service", "snapshots")),
	}
}

func (s *Service) Get(ctx context.Context, accountID, guildID string) (Record, error) {
	if s.db == nil {
		return Record{}, errors.New("snapshot store not configured")
	}
	pgAccountID, err := db.ParseUUID(accountID)
	if err != nil {
		return Record{}, err
	}
	row := s.db.QueryRow(ctx, `
SELECT account_id, guild_id, roles, version, updated_at FROM role_snapshots
WHERE account_id = $1 AND guild_id = $2`, pgAccountID, strings.TrimSpace(guildID))
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("load role snapshot: %w", err)
	}
	return rec, nil
}

func (s *Service) Save(ctx context.Context, accountID, guildID string, snapshot roles.Snapshot, expectedVersion int64) (Record, error) {
	if s.db == nil {
		return Record{}, errors.New("snapshot store not configured")
	}
	pgAccountID, err := db.ParseUUID(accountID)
	if err != nil {
		return Record{}, err
	}
	payload, err := json.Marshal(snapshot.Dedupe())
	if err != nil {
		return Record{}, fmt.Errorf("encode role snapshot: %w", err)
	}
	guildID = strings.TrimSpace(guildID)

	var row pgx.Row
	if expectedVersion == 0 {
		row = s.db.QueryRow(ctx, `
INSERT INTO role_snapshots (account_id, guild_id, roles) VALUES ($1, $2, $3)
ON CONFLICT (account_id, guild_id) DO NOTHING
RETURNING account_id, guild_id, roles, version, updated_at`, pgAccountID, guildID, payload)
	} else {
		row = s.db.QueryRow(ctx, `
UPDATE role_snapshots SET roles = $3, version = version + 1, updated_at = now()
WHERE account_id = $1 AND guild_id = $2 AND version = $4
RETURNING account_id, guild_id, roles, version, updated_at`, pgAccountID, guildID, payload, expectedVersion)
	}
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrVersionConflict
		}
		return Record{}, fmt.Errorf("save role snapshot: %w", err)
	}
	return rec, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		accountID pgtype.UUID
		rec       Record
		raw       []byte
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&accountID, &rec.GuildID, &raw, &rec.Version, &updatedAt); err != nil {
		return Record{}, err
	}
	rec.AccountID = db.UUIDToString(accountID)
	rec.UpdatedAt = updatedAt.Time
	if err := json.Unmarshal(raw, &rec.Roles); err != nil {
		return Record{}, fmt.Errorf("decode role snapshot: %w", err)
	}
	return rec, nil
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]Record{}, now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, accountID, guildID string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[memoryKey(accountID, guildID)]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryStore) Save(_ context.Context, accountID, guildID string, snapshot roles.Snapshot, expectedVersion int64) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memoryKey(accountID, guildID)
	current := m.records[key]
	if current.Version != expectedVersion {
		return Record{}, ErrVersionConflict
	}
	rec := Record{
		AccountID: accountID,
		GuildID:   strings.TrimSpace(guildID),
		Roles:     snapshot.Dedupe(),
		Version:   expectedVersion + 1,
		UpdatedAt: m.now(),
	}
	m.records[key] = rec
	return rec, nil
}

func memoryKey(accountID, guildID string) string {
	return accountID + "/" + strings.TrimSpace(guildID)
}
