// Package reconcile turns a role delta into downstream grant and revoke calls.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/guildsync/guildsync/internal/accounts"
	"github.com/guildsync/guildsync/internal/executor"
	"github.com/guildsync/guildsync/internal/mappings"
	"github.com/guildsync/guildsync/internal/roles"
)

// DefaultConcurrency bounds in-flight downstream calls per reconciliation.
const DefaultConcurrency = 8

// Options tunes a Coordinator.
type Options struct {
	Concurrency int
	Policy      executor.Policy
	// Limits throttles calls per service. A missing entry means unlimited.
	Limits map[Service]*rate.Limiter
	Now    func() time.Time
}

// NewLimiter returns a limiter for perSecond calls, or nil when perSecond <= 0.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Coordinator is the fan-out engine.
type Coordinator struct {
	mappings mappings.Provider
	docs     executor.DocumentStorage
	voice    executor.VoiceServer
	opts     Options
	logger   *slog.Logger
}

// NewCoordinator creates a Coordinator. A nil executor makes every call for
// that service Unavailable.
func NewCoordinator(log *slog.Logger, provider mappings.Provider, docs executor.DocumentStorage, voice executor.VoiceServer, opts Options) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Coordinator{
		mappings: provider,
		docs:     docs,
		voice:    voice,
		opts:     opts,
		logger:   log.With(slog.String("service", "reconcile")),
	}
}

type task struct {
	item Item
	run  func(context.Context) executor.Outcome
}

// Reconcile fans delta out to the services account is linked to and reports
// every call. It never returns an error: a mapping lookup failure is recorded
// in the report with zero calls made.
//
// Once planned, calls are not cancelled by ctx.
func (c *Coordinator) Reconcile(ctx context.Context, account accounts.LinkedAccount, guildID string, delta roles.Delta) (report Report) {
	start := c.opts.Now()
	report = Report{
		RunID:     uuid.NewString(),
		AccountID: account.ID,
		DiscordID: account.DiscordID,
		GuildID:   guildID,
		Added:     nonNil(delta.Added),
		Removed:   nonNil(delta.Removed),
		Items:     []Item{},
		StartedAt: start,
	}
	log := c.logger.With(
		slog.String("run_id", report.RunID),
		slog.String("account_id", account.ID),
		slog.String("guild_id", guildID),
	)
	defer func() {
		report.tally()
		report.Duration = c.opts.Now().Sub(start)
	}()

	if delta.Empty() {
		return report
	}
	if c.mappings == nil {
		report.MappingError = "role mapping provider not configured"
		return report
	}
	mapping, err := c.mappings.GetMappings(ctx, guildID)
	if err != nil {
		log.Error("load role mapping failed", slog.Any("error", err))
		report.MappingError = err.Error()
		return report
	}
	if len(mapping) == 0 {
		log.Debug("no role mapping for guild")
		return report
	}

	tasks := c.plan(account, mapping, delta)
	if len(tasks) == 0 {
		return report
	}
	report.Items = make([]Item, len(tasks))

	detached := context.WithoutCancel(ctx)
	var g errgroup.Group
	g.SetLimit(c.opts.Concurrency)
	for i, t := range tasks {
		g.Go(func() error {
			item := t.item
			item.Outcome = c.call(detached, item.Service, t.run)
			report.Items[i] = item
			if !item.Outcome.Succeeded() {
				log.Warn("downstream call did not succeed",
					slog.String("role_id", item.RoleID),
					slog.String("action", string(item.Action)),
					slog.String("target_service", string(item.Service)),
					slog.String("target", item.Target),
					slog.String("outcome", item.Outcome.String()),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
	return report
}

func (c *Coordinator) call(ctx context.Context, svc Service, run func(context.Context) executor.Outcome) executor.Outcome {
	if lim := c.opts.Limits[svc]; lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return executor.Failed(executor.FailureInternal, "rate limiter: "+err.Error())
		}
	}
	return executor.Call(ctx, c.opts.Policy, run)
}

// plan lists one task per (role, service, target) in delta order, added roles
// first. Services the account is not linked to get no task.
func (c *Coordinator) plan(account accounts.LinkedAccount, mapping mappings.Mapping, delta roles.Delta) []task {
	email, docsLinked := account.DocumentStorageIdentity()
	uid, voiceLinked := account.VoiceServerIdentity()

	var tasks []task
	add := func(roleID string, action Action) {
		entry, ok := mapping.Lookup(roleID)
		if !ok {
			return
		}
		if docsLinked {
			for _, g := range entry.GDrive {
				item := Item{RoleID: roleID, Action: action, Service: ServiceGDrive, Target: g.ItemID}
				var run func(context.Context) executor.Outcome
				if action == ActionAdd {
					item.Level = g.Permission
					run = func(ctx context.Context) executor.Outcome {
						if c.docs == nil {
							return executor.Unavailable("gdrive executor not configured")
						}
						return c.docs.Grant(ctx, email, g.ItemID, g.Permission)
					}
				} else {
					run = func(ctx context.Context) executor.Outcome {
						if c.docs == nil {
							return executor.Unavailable("gdrive executor not configured")
						}
						return c.docs.Revoke(ctx, email, g.ItemID)
					}
				}
				tasks = append(tasks, task{item: item, run: run})
			}
		}
		if voiceLinked {
			for _, v := range entry.TeamSpeak {
				item := Item{RoleID: roleID, Action: action, Service: ServiceTeamSpeak, Target: v.GroupID}
				run := func(ctx context.Context) executor.Outcome {
					if c.voice == nil {
						return executor.Unavailable("teamspeak executor not configured")
					}
					if action == ActionAdd {
						return c.voice.AddToGroup(ctx, uid, v.GroupID)
					}
					return c.voice.RemoveFromGroup(ctx, uid, v.GroupID)
				}
				tasks = append(tasks, task{item: item, run: run})
			}
		}
	}
	for _, id := range delta.Added {
		add(id, ActionAdd)
	}
	for _, id := range delta.Removed {
		add(id, ActionRemove)
	}
	return tasks
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
