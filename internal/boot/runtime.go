// Package boot turns the loaded TOML configuration into typed runtime settings.
package boot

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/guildsync/guildsync/internal/config"
)

// RuntimeConfig holds parsed runtime settings.
// Values may be overridden by environment variables (e.g. HTTP_ADDR, DISCORD_BOT_TOKEN).
type RuntimeConfig struct {
	ServerAddr        string
	InternalSecret    string
	TokenExpiresIn    time.Duration
	CallTimeout       time.Duration
	LockTTL           time.Duration
	MappingCacheTTL   time.Duration
	ListingCacheTTL   time.Duration
	DiscordBotToken   string
	DefaultGuildID    string
	GDriveCredentials string
	TeamSpeakPassword string
}

// ProvideRuntimeConfig builds RuntimeConfig from the given config and applies env overrides.
func ProvideRuntimeConfig(cfg config.Config) (*RuntimeConfig, error) {
	ret := &RuntimeConfig{
		ServerAddr:        cfg.Server.Addr,
		InternalSecret:    cfg.Auth.InternalSecret,
		DiscordBotToken:   cfg.Discord.BotToken,
		DefaultGuildID:    strings.TrimSpace(cfg.Discord.GuildID),
		GDriveCredentials: cfg.GDrive.CredentialsFile,
		TeamSpeakPassword: cfg.TeamSpeak.QueryPassword,
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"auth.token_expires_in", cfg.Auth.TokenExpiresIn, &ret.TokenExpiresIn},
		{"reconcile.call_timeout", cfg.Reconcile.CallTimeout, &ret.CallTimeout},
		{"reconcile.lock_ttl", cfg.Reconcile.LockTTL, &ret.LockTTL},
		{"cache.mapping_ttl", cfg.Cache.MappingTTL, &ret.MappingCacheTTL},
		{"cache.listing_ttl", cfg.Cache.ListingTTL, &ret.ListingCacheTTL},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(strings.TrimSpace(d.value))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.name, err)
		}
		if parsed < 0 {
			return nil, fmt.Errorf("invalid %s: must not be negative", d.name)
		}
		*d.dst = parsed
	}
	if ret.CallTimeout == 0 {
		return nil, fmt.Errorf("invalid reconcile.call_timeout: must be positive")
	}

	overrides := []struct {
		env string
		dst *string
	}{
		{"HTTP_ADDR", &ret.ServerAddr},
		{"GUILDSYNC_INTERNAL_SECRET", &ret.InternalSecret},
		{"DISCORD_BOT_TOKEN", &ret.DiscordBotToken},
		{"DISCORD_GUILD_ID", &ret.DefaultGuildID},
		{"GDRIVE_CREDENTIALS_FILE", &ret.GDriveCredentials},
		{"TEAMSPEAK_QUERY_PASSWORD", &ret.TeamSpeakPassword},
	}
	for _, o := range overrides {
		if value := strings.TrimSpace(os.Getenv(o.env)); value != "" {
			*o.dst = value
		}
	}
	return ret, nil
}
