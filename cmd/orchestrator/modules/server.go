package modules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.uber.org/fx"

	"github.com/guildsync/guildsync/internal/accounts"
	"github.com/guildsync/guildsync/internal/boot"
	"github.com/guildsync/guildsync/internal/handlers"
	"github.com/guildsync/guildsync/internal/orchestrator"
	"github.com/guildsync/guildsync/internal/server"
	"github.com/guildsync/guildsync/internal/version"
)

var ServerModule = fx.Module(
	"server",
	fx.Provide(
		provideServerHandler(providePingHandler),
		provideServerHandler(provideLinkHandler),
		provideServerHandler(provideWebhookHandler),
		provideServerHandler(handlers.NewMappingsHandler),
		provideServerHandler(provideAccountsHandler),
		provideServer,
	),
	fx.Invoke(startServer),
)

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

// ---------------------------------------------------------------------------
// handlers
// ---------------------------------------------------------------------------

func providePingHandler(log *slog.Logger) *handlers.PingHandler {
	return handlers.NewPingHandler(log, "orchestrator")
}

func provideLinkHandler(log *slog.Logger, svc *orchestrator.Service) *handlers.LinkHandler {
	return handlers.NewLinkHandler(log, svc)
}

func provideWebhookHandler(log *slog.Logger, svc *orchestrator.Service) *handlers.WebhookHandler {
	return handlers.NewWebhookHandler(log, svc)
}

func provideAccountsHandler(log *slog.Logger, svc *accounts.Service) *handlers.AccountsHandler {
	return handlers.NewAccountsHandler(log, svc)
}

// ---------------------------------------------------------------------------
// server
// ---------------------------------------------------------------------------

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	RuntimeConfig  *boot.RuntimeConfig
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.RuntimeConfig.ServerAddr, params.RuntimeConfig.InternalSecret, params.ServerHandlers...)
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, rc *boot.RuntimeConfig) {
	fmt.Printf("Starting guildsync orchestrator %s\n", version.GetInfo())
	if rc.InternalSecret == "" {
		logger.Warn("auth.internal_secret is empty; the API accepts unauthenticated requests")
	}
	if rc.DefaultGuildID == "" {
		logger.Warn("discord.guild_id is empty; account linking is disabled")
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
