package modules

import (
	"log/slog"
	"net/http"

	"go.uber.org/fx"
	"golang.org/x/time/rate"

	"github.com/guildsync/guildsync/internal/accounts"
	"github.com/guildsync/guildsync/internal/boot"
	"github.com/guildsync/guildsync/internal/cache"
	"github.com/guildsync/guildsync/internal/config"
	"github.com/guildsync/guildsync/internal/db"
	"github.com/guildsync/guildsync/internal/executor"
	"github.com/guildsync/guildsync/internal/locks"
	"github.com/guildsync/guildsync/internal/mappings"
	"github.com/guildsync/guildsync/internal/orchestrator"
	"github.com/guildsync/guildsync/internal/reconcile"
	"github.com/guildsync/guildsync/internal/reports"
	"github.com/guildsync/guildsync/internal/snapshots"
)

var DomainModule = fx.Module(
	"domain",
	fx.Provide(
		accounts.NewService,
		provideMappingStore,
		provideSnapshotStore,
		provideHTTPClient,
		provideDocumentStorage,
		provideVoiceServer,
		provideDiscordClient,
		provideCoordinator,
		provideOrchestrator,
	),
)

// ---------------------------------------------------------------------------
// domain service providers (interface adapters)
// ---------------------------------------------------------------------------

func provideMappingStore(log *slog.Logger, conn db.DBTX, rc *boot.RuntimeConfig) mappings.Store {
	return mappings.NewCachedStore(mappings.NewService(log, conn), cache.New[mappings.Mapping](rc.MappingCacheTTL, nil))
}

func provideSnapshotStore(log *slog.Logger, conn db.DBTX) snapshots.Store {
	return snapshots.NewService(log, conn)
}

// provideHTTPClient is shared by the adapter clients. Timeouts come from each
// call's context.
func provideHTTPClient() *http.Client {
	return &http.Client{}
}

func provideDocumentStorage(cfg config.Config, client *http.Client) executor.DocumentStorage {
	return executor.NewGDriveClient(cfg.Services.GDriveURL, client)
}

func provideVoiceServer(cfg config.Config, client *http.Client) executor.VoiceServer {
	return executor.NewTeamSpeakClient(cfg.Services.TeamSpeakURL, client)
}

func provideDiscordClient(cfg config.Config, client *http.Client) *executor.DiscordClient {
	return executor.NewDiscordClient(cfg.Services.DiscordURL, client)
}

func provideCoordinator(log *slog.Logger, store mappings.Store, docs executor.DocumentStorage, voice executor.VoiceServer, cfg config.Config, rc *boot.RuntimeConfig) *reconcile.Coordinator {
	policy := executor.DefaultPolicy
	policy.Timeout = rc.CallTimeout
	policy.Attempts = cfg.Reconcile.RetryAttempts
	return reconcile.NewCoordinator(log, store, docs, voice, reconcile.Options{
		Concurrency: cfg.Reconcile.Concurrency,
		Policy:      policy,
		Limits: map[reconcile.Service]*rate.Limiter{
			reconcile.ServiceGDrive:    reconcile.NewLimiter(cfg.Reconcile.GDriveRate, cfg.Reconcile.RateLimitBursts),
			reconcile.ServiceTeamSpeak: reconcile.NewLimiter(cfg.Reconcile.TeamSpeakRate, cfg.Reconcile.RateLimitBursts),
		},
	})
}

type orchestratorParams struct {
	fx.In

	Logger      *slog.Logger
	Runtime     *boot.RuntimeConfig
	Accounts    *accounts.Service
	Discord     *executor.DiscordClient
	Snapshots   snapshots.Store
	Coordinator *reconcile.Coordinator
	Locker      locks.Locker
	Publisher   reports.Publisher
}

func provideOrchestrator(p orchestratorParams) *orchestrator.Service {
	return orchestrator.NewService(p.Logger, orchestrator.Deps{
		Accounts:     p.Accounts,
		Roles:        p.Discord,
		Snapshots:    p.Snapshots,
		Reconciler:   p.Coordinator,
		Locker:       p.Locker,
		Publisher:    p.Publisher,
		DefaultGuild: p.Runtime.DefaultGuildID,
		LockWait:     p.Runtime.LockTTL,
		CallTimeout:  p.Runtime.CallTimeout,
	})
}
