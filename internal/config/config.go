// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath       = "config.toml"
	DefaultHTTPAddr         = ":8000"
	DefaultJWTExpiresIn     = "1h"
	DefaultPGHost           = "127.0.0.1"
	DefaultPGPort           = 5432
	DefaultPGUser           = "postgres"
	DefaultPGDatabase       = "guildsync"
	DefaultPGSSLMode        = "disable"
	DefaultKafkaTopic       = "guildsync.reconciliations"
	DefaultCallTimeout      = "10s"
	DefaultConcurrency      = 8
	DefaultRetryAttempts    = 3
	DefaultLockTTL          = "30s"
	DefaultMappingCacheTTL  = "1m"
	DefaultListingCacheTTL  = "5m"
	DefaultTeamSpeakAddr    = "127.0.0.1:10011"
	DefaultTeamSpeakUser    = "serveradmin"
	DefaultTeamSpeakPort    = 9987
	DefaultDiscordAddr      = ":8001"
	DefaultGDriveAddr       = ":8002"
	DefaultTeamSpeakSvcAddr = ":8003"
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Auth      AuthConfig      `toml:"auth"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	Kafka     KafkaConfig     `toml:"kafka"`
	Services  ServicesConfig  `toml:"services"`
	Reconcile ReconcileConfig `toml:"reconcile"`
	Cache     CacheConfig     `toml:"cache"`
	Discord   DiscordConfig   `toml:"discord"`
	GDrive    GDriveConfig    `toml:"gdrive"`
	TeamSpeak TeamSpeakConfig `toml:"teamspeak"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the orchestrator HTTP listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// AuthConfig holds the shared secret used to sign internal bearer tokens.
// An empty secret disables authentication on the orchestrator API.
type AuthConfig struct {
	InternalSecret string `toml:"internal_secret"`
	TokenExpiresIn string `toml:"token_expires_in"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// RedisConfig enables the distributed per-account lock when Addr is set.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// KafkaConfig enables publishing reconciliation reports when Brokers is set.
type KafkaConfig struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// ServicesConfig holds the base URLs of the per-platform adapters.
// An empty URL marks the adapter as unconfigured.
type ServicesConfig struct {
	DiscordURL   string `toml:"discord_url"`
	GDriveURL    string `toml:"gdrive_url"`
	TeamSpeakURL string `toml:"teamspeak_url"`
}

// ReconcileConfig tunes the fan-out coordinator.
type ReconcileConfig struct {
	CallTimeout     string  `toml:"call_timeout"`
	Concurrency     int     `toml:"concurrency"`
	RetryAttempts   int     `toml:"retry_attempts"`
	LockTTL         string  `toml:"lock_ttl"`
	GDriveRate      float64 `toml:"gdrive_rate"`
	TeamSpeakRate   float64 `toml:"teamspeak_rate"`
	RateLimitBursts int     `toml:"rate_limit_bursts"`
}

// CacheConfig holds TTLs for memoized read-only lookups.
type CacheConfig struct {
	MappingTTL string `toml:"mapping_ttl"`
	ListingTTL string `toml:"listing_ttl"`
}

// DiscordConfig holds the bot token for the Discord adapter and the default guild.
type DiscordConfig struct {
	BotToken string `toml:"bot_token"`
	GuildID  string `toml:"guild_id"`
	Addr     string `toml:"addr"`
}

// GDriveConfig holds the service-account credentials for the Drive adapter.
type GDriveConfig struct {
	CredentialsFile string `toml:"credentials_file"`
	Addr            string `toml:"addr"`
}

// TeamSpeakConfig holds ServerQuery connection parameters.
type TeamSpeakConfig struct {
	QueryAddr     string `toml:"query_addr"`
	QueryUser     string `toml:"query_user"`
	QueryPassword string `toml:"query_password"`
	VirtualPort   int    `toml:"virtual_port"`
	Addr          string `toml:"addr"`
}

// ListenAddr returns the address the named adapter listens on.
func (c Config) ListenAddr(adapter string) string {
	switch adapter {
	case "discord":
		return c.Discord.Addr
	case "gdrive":
		return c.GDrive.Addr
	case "teamspeak":
		return c.TeamSpeak.Addr
	default:
		return ""
	}
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Auth: AuthConfig{
			TokenExpiresIn: DefaultJWTExpiresIn,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Kafka: KafkaConfig{
			Topic: DefaultKafkaTopic,
		},
		Services: ServicesConfig{
			DiscordURL:   "http://localhost:8001",
			GDriveURL:    "http://localhost:8002",
			TeamSpeakURL: "http://localhost:8003",
		},
		Reconcile: ReconcileConfig{
			CallTimeout:     DefaultCallTimeout,
			Concurrency:     DefaultConcurrency,
			RetryAttempts:   DefaultRetryAttempts,
			LockTTL:         DefaultLockTTL,
			RateLimitBursts: 1,
		},
		Cache: CacheConfig{
			MappingTTL: DefaultMappingCacheTTL,
			ListingTTL: DefaultListingCacheTTL,
		},
		Discord: DiscordConfig{
			Addr: DefaultDiscordAddr,
		},
		GDrive: GDriveConfig{
			Addr: DefaultGDriveAddr,
		},
		TeamSpeak: TeamSpeakConfig{
			QueryAddr:   DefaultTeamSpeakAddr,
			QueryUser:   DefaultTeamSpeakUser,
			VirtualPort: DefaultTeamSpeakPort,
			Addr:        DefaultTeamSpeakSvcAddr,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
