// Package orchestrator implements the two reconciliation entry points: an
// explicit account link and a role-change notification.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/guildsync/guildsync/internal/accounts"
	"github.com/guildsync/guildsync/internal/locks"
	"github.com/guildsync/guildsync/internal/reconcile"
	"github.com/guildsync/guildsync/internal/reports"
	"github.com/guildsync/guildsync/internal/roles"
	"github.com/guildsync/guildsync/internal/snapshots"
)

const (
	defaultLockWait    = 30 * time.Second
	defaultCallTimeout = 10 * time.Second
)

// Deps are the collaborators of a Service. Locker and Publisher are optional.
type Deps struct {
	Accounts     accounts.Resolver
	Roles        RoleSource
	Snapshots    snapshots.Store
	Reconciler   Reconciler
	Locker       locks.Locker
	Publisher    reports.Publisher
	DefaultGuild string
	LockWait     time.Duration
	// CallTimeout bounds the Discord role read of LinkAccount.
	CallTimeout time.Duration
}

// Service runs reconciliations for linked accounts.
type Service struct {
	deps   Deps
	logger *slog.Logger
}

// NewService creates an orchestrator service.
func NewService(log *slog.Logger, deps Deps) *Service {
	if log == nil {
		log = slog.Default()
	}
	if deps.Locker == nil {
		deps.Locker = locks.NewLocal()
	}
	if deps.LockWait <= 0 {
		deps.LockWait = defaultLockWait
	}
	if deps.CallTimeout <= 0 {
		deps.CallTimeout = defaultCallTimeout
	}
	deps.DefaultGuild = strings.TrimSpace(deps.DefaultGuild)
	return &Service{
		deps:   deps,
		logger: log.With(slog.String("service", "orchestrator")),
	}
}

// DefaultGuild is the guild used by LinkAccount.
func (s *Service) DefaultGuild() string {
	return s.deps.DefaultGuild
}

// LinkAccount reconciles every current role of discordID in the default guild
// as newly added and stores them as the baseline snapshot.
func (s *Service) LinkAccount(ctx context.Context, discordID string) (LinkResult, error) {
	discordID = strings.TrimSpace(discordID)
	if discordID == "" {
		return LinkResult{}, accounts.ErrDiscordIDRequired
	}
	guildID := s.deps.DefaultGuild
	if guildID == "" {
		return LinkResult{}, ErrNoDefaultGuild
	}
	account, err := s.deps.Accounts.Ensure(ctx, discordID)
	if err != nil {
		return LinkResult{}, err
	}
	if !account.Resolved() {
		return LinkResult{}, accounts.ErrAccountNotFound
	}
	readCtx, cancel := context.WithTimeout(ctx, s.deps.CallTimeout)
	current, err := s.deps.Roles.GetCurrentRoles(readCtx, discordID, guildID)
	cancel()
	if err != nil {
		return LinkResult{}, fmt.Errorf("%w: %w", ErrRolesUnavailable, err)
	}
	current = current.Dedupe()

	report, err := s.reconcile(ctx, account, guildID, current, true)
	result := LinkResult{DiscordID: discordID, GuildID: guildID, Roles: current, Report: report}
	return result, err
}

// HandleRoleChange reconciles change against the stored snapshot and stores
// the new one. An unknown Discord id is a hard failure and no work is done.
func (s *Service) HandleRoleChange(ctx context.Context, change RoleChange) (reconcile.Report, error) {
	discordID := strings.TrimSpace(change.DiscordID)
	guildID := strings.TrimSpace(change.GuildID)
	if discordID == "" {
		return reconcile.Report{}, accounts.ErrDiscordIDRequired
	}
	if guildID == "" {
		return reconcile.Report{}, ErrGuildIDRequired
	}
	account, err := s.deps.Accounts.Resolve(ctx, discordID)
	if err != nil {
		return reconcile.Report{}, err
	}
	if !account.Resolved() {
		return reconcile.Report{}, accounts.ErrAccountNotFound
	}
	return s.reconcile(ctx, account, guildID, change.Roles.Dedupe(), false)
}

// reconcile runs one reconciliation under the account lock. With fromEmpty the
// stored snapshot is only used for its version.
func (s *Service) reconcile(ctx context.Context, account accounts.LinkedAccount, guildID string, current roles.Snapshot, fromEmpty bool) (reconcile.Report, error) {
	log := s.logger.With(slog.String("account_id", account.ID), slog.String("guild_id", guildID))

	lockCtx, cancel := context.WithTimeout(ctx, s.deps.LockWait)
	release, err := s.deps.Locker.Acquire(lockCtx, locks.AccountKey(account.ID))
	cancel()
	if err != nil {
		return reconcile.Report{}, fmt.Errorf("lock account %s: %w", account.ID, err)
	}
	defer release()

	stored, err := s.deps.Snapshots.Get(ctx, account.ID, guildID)
	if err != nil && !errors.Is(err, snapshots.ErrNotFound) {
		return reconcile.Report{}, err
	}
	previous := stored.Roles
	if fromEmpty {
		previous = roles.Snapshot{}
	}

	delta := roles.ComputeDelta(previous, current)
	report := s.deps.Reconciler.Reconcile(ctx, account, guildID, delta)
	s.publish(ctx, report)

	if _, err := s.deps.Snapshots.Save(context.WithoutCancel(ctx), account.ID, guildID, current, stored.Version); err != nil {
		if errors.Is(err, snapshots.ErrVersionConflict) {
			log.Warn("snapshot changed concurrently, keeping the newer one", slog.String("run_id", report.RunID))
			return report, fmt.Errorf("%w: %w", ErrSnapshotConflict, err)
		}
		log.Error("persist role snapshot failed", slog.String("run_id", report.RunID), slog.Any("error", err))
		return report, err
	}
	log.Info("reconciled",
		slog.String("run_id", report.RunID),
		slog.Int("added", len(delta.Added)),
		slog.Int("removed", len(delta.Removed)),
		slog.Int("calls", len(report.Items)),
	)
	return report, nil
}

func (s *Service) publish(ctx context.Context, report reconcile.Report) {
	if s.deps.Publisher == nil {
		return
	}
	if err := s.deps.Publisher.Publish(context.WithoutCancel(ctx), report); err != nil {
		s.logger.Warn("publish report failed", slog.String("run_id", report.RunID), slog.Any("error", err))
	}
}
