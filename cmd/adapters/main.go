// Command adapters runs one of the per-platform adapter services that the
// orchestrator calls: discord, gdrive or teamspeak.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/guildsync/guildsync/internal/adapters/api"
	"github.com/guildsync/guildsync/internal/adapters/discord"
	"github.com/guildsync/guildsync/internal/adapters/gdrive"
	"github.com/guildsync/guildsync/internal/adapters/teamspeak"
	"github.com/guildsync/guildsync/internal/boot"
	"github.com/guildsync/guildsync/internal/cache"
	"github.com/guildsync/guildsync/internal/config"
	"github.com/guildsync/guildsync/internal/handlers"
	"github.com/guildsync/guildsync/internal/logger"
	"github.com/guildsync/guildsync/internal/server"
	"github.com/guildsync/guildsync/internal/version"
)

const shutdownTimeout = 10 * time.Second

type adapterEnv struct {
	cfg config.Config
	rc  *boot.RuntimeConfig
	log *slog.Logger
}

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "adapters",
		Short:         "Run a guildsync platform adapter",
		Version:       version.GetInfo(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "Path to config.toml")

	root.AddCommand(
		adapterCommand("discord", "Serve Discord role lookups", &configPath, buildDiscord),
		adapterCommand("gdrive", "Serve Google Drive permission changes", &configPath, buildGDrive),
		adapterCommand("teamspeak", "Serve TeamSpeak server group changes", &configPath, buildTeamSpeak),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "adapters: %v\n", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if p := strings.TrimSpace(os.Getenv("CONFIG_PATH")); p != "" {
		return p
	}
	return config.DefaultConfigPath
}

type buildFunc func(ctx context.Context, env adapterEnv) (server.Handler, error)

func adapterCommand(name, short string, configPath *string, build buildFunc) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			rc, err := boot.ProvideRuntimeConfig(cfg)
			if err != nil {
				return err
			}
			logger.Init(cfg.Log.Level, cfg.Log.Format, slog.String("app", name+"_service"))
			env := adapterEnv{cfg: cfg, rc: rc, log: logger.L}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			handler, err := build(ctx, env)
			if err != nil {
				return fmt.Errorf("init %s adapter: %w", name, err)
			}
			return serve(ctx, env.log, listenAddr(cfg, name), name, handler)
		},
	}
}

func listenAddr(cfg config.Config, name string) string {
	if addr := strings.TrimSpace(os.Getenv("HTTP_ADDR")); addr != "" {
		return addr
	}
	return cfg.ListenAddr(name)
}

// serve runs the adapter until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, log *slog.Logger, addr, name string, handler server.Handler) error {
	srv := server.NewServer(log, addr, "", handlers.NewPingHandler(log, name+"_service"), handler)

	errCh := make(chan error, 1)
	go func() {
		log.Info("adapter listening", slog.String("adapter", name), slog.String("addr", addr), slog.String("version", version.GetInfo()))
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down adapter", slog.String("adapter", name))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stop: %w", err)
	}
	return nil
}

func buildDiscord(_ context.Context, env adapterEnv) (server.Handler, error) {
	var session discord.Session
	if env.rc.DiscordBotToken != "" {
		s, err := discord.NewSession(env.rc.DiscordBotToken)
		if err != nil {
			return nil, err
		}
		session = s
	} else {
		env.log.Warn("discord bot token is empty; role lookups will report unavailable")
	}
	svc := discord.NewService(env.log, session, cache.New[[]api.Role](env.rc.ListingCacheTTL, nil), env.rc.DefaultGuildID)
	return discord.NewHandler(env.log, svc), nil
}

func buildGDrive(ctx context.Context, env adapterEnv) (server.Handler, error) {
	perms, err := gdrive.NewDrivePermissions(ctx, env.rc.GDriveCredentials)
	if err != nil {
		return nil, err
	}
	if perms == nil {
		env.log.Warn("gdrive credentials file is empty; permission changes will report unavailable")
	}
	return gdrive.NewHandler(env.log, gdrive.NewService(env.log, perms)), nil
}

func buildTeamSpeak(_ context.Context, env adapterEnv) (server.Handler, error) {
	var dial teamspeak.Dialer
	if env.cfg.TeamSpeak.QueryAddr != "" {
		dial = teamspeak.NewDialer(teamspeak.QueryConfig{
			Addr:        env.cfg.TeamSpeak.QueryAddr,
			User:        env.cfg.TeamSpeak.QueryUser,
			Password:    env.rc.TeamSpeakPassword,
			VirtualPort: env.cfg.TeamSpeak.VirtualPort,
		})
	} else {
		env.log.Warn("teamspeak query address is empty; group changes will report unavailable")
	}
	svc := teamspeak.NewService(env.log, dial, cache.New[[]api.Group](env.rc.ListingCacheTTL, nil))
	return teamspeak.NewHandler(env.log, svc), nil
}
