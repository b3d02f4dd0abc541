// Package reports publishes reconciliation reports.
package reports

import (
	"context"
	"errors"
	"log/slog"

	"github.com/guildsync/guildsync/internal/reconcile"
)

// Publisher delivers a finished report somewhere.
type Publisher interface {
	Publish(ctx context.Context, report reconcile.Report) error
	Close() error
}

// LogPublisher writes a one-line summary per report and one line per failed call.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(log *slog.Logger) *LogPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &LogPublisher{logger: log.With(slog.String("service", "reports"))}
}

func (p *LogPublisher) Publish(ctx context.Context, report reconcile.Report) error {
	attrs := []any{
		slog.String("run_id", report.RunID),
		slog.String("account_id", report.AccountID),
		slog.String("discord_id", report.DiscordID),
		slog.String("guild_id", report.GuildID),
		slog.Int("added", len(report.Added)),
		slog.Int("removed", len(report.Removed)),
		slog.Int("calls", len(report.Items)),
		slog.Any("counts", report.Counts),
		slog.Duration("duration", report.Duration),
	}
	if report.MappingError != "" {
		attrs = append(attrs, slog.String("mapping_error", report.MappingError))
	}
	level := slog.LevelInfo
	if !report.OK() {
		level = slog.LevelWarn
	}
	p.logger.Log(ctx, level, "reconciliation finished", attrs...)
	for _, it := range report.Failures() {
		p.logger.Log(ctx, level, "reconciliation call failed",
			slog.String("run_id", report.RunID),
			slog.String("role_id", it.RoleID),
			slog.String("action", string(it.Action)),
			slog.String("target_service", string(it.Service)),
			slog.String("target", it.Target),
			slog.String("outcome", it.Outcome.String()),
		)
	}
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, report reconcile.Report) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
