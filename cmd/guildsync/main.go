// Command guildsync is the operator CLI: database migrations, manual links and
// role-change notifications against a running orchestrator.
package main

import (
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	dbembed "github.com/guildsync/guildsync/db"
	"github.com/guildsync/guildsync/internal/auth"
	"github.com/guildsync/guildsync/internal/boot"
	"github.com/guildsync/guildsync/internal/config"
	"github.com/guildsync/guildsync/internal/db"
	"github.com/guildsync/guildsync/internal/logger"
	"github.com/guildsync/guildsync/internal/version"
)

type cliOptions struct {
	configPath string
	apiBaseURL string
	jwtToken   string
	timeout    time.Duration
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "guildsync: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{}
	root := &cobra.Command{
		Use:           "guildsync",
		Short:         "Operate the guildsync role orchestrator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defaultConfig := strings.TrimSpace(os.Getenv("CONFIG_PATH"))
	if defaultConfig == "" {
		defaultConfig = config.DefaultConfigPath
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", defaultConfig, "Path to config.toml")
	flags.StringVar(&opts.apiBaseURL, "api-url", "", "Orchestrator base URL (defaults to server.addr)")
	flags.StringVar(&opts.jwtToken, "jwt", "", "Bearer token (minted from auth.internal_secret when empty)")
	flags.DurationVar(&opts.timeout, "timeout", 60*time.Second, "Request timeout")

	root.AddCommand(
		newMigrateCommand(opts),
		newLinkCommand(opts),
		newNotifyCommand(opts),
		newTokenCommand(opts),
		newVersionCommand(),
	)
	return root
}

func loadRuntime(opts *cliOptions) (config.Config, *boot.RuntimeConfig, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	rc, err := boot.ProvideRuntimeConfig(cfg)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return cfg, rc, nil
}

func newMigrateCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate <up|down|version|force N>",
		Short:     "Apply or roll back database migrations",
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: []string{"up", "down", "version", "force"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadRuntime(opts)
			if err != nil {
				return err
			}
			migrations, err := fs.Sub(dbembed.MigrationsFS, "migrations")
			if err != nil {
				return fmt.Errorf("open migrations: %w", err)
			}
			return db.RunMigrate(logger.L, cfg.Postgres, migrations, args[0], args[1:])
		},
	}
}

func newLinkCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "link <discord_id>",
		Short: "Link a Discord member and reconcile all of their current roles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient(opts)
			if err != nil {
				return err
			}
			var out map[string]any
			if err := client.post(cmd.Context(), "/user/link/discord", map[string]string{"discord_id": args[0]}, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newNotifyCommand(opts *cliOptions) *cobra.Command {
	var (
		guildID string
		roleIDs []string
	)
	cmd := &cobra.Command{
		Use:   "notify <discord_id>",
		Short: "Send a role-change notification with the member's full current role set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient(opts)
			if err != nil {
				return err
			}
			req := roleChangeRequest{DiscordID: args[0], GuildID: guildID, Roles: parseRoles(roleIDs)}
			var out map[string]any
			if err := client.post(cmd.Context(), "/webhooks/discord/role-change", req, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&guildID, "guild", "", "Guild id")
	cmd.Flags().StringSliceVar(&roleIDs, "role", nil, "Current role as id or id=name (repeatable)")
	_ = cmd.MarkFlagRequired("guild")
	return cmd
}

func newTokenCommand(opts *cliOptions) *cobra.Command {
	var caller string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the orchestrator API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, rc, err := loadRuntime(opts)
			if err != nil {
				return err
			}
			token, expiresAt, err := auth.GenerateToken(caller, rc.InternalSecret, rc.TokenExpiresIn)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&caller, "caller", "guildsync-cli", "Caller name embedded in the token")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "guildsync %s\n", version.GetInfo())
		},
	}
}
