package modules

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"

	"github.com/guildsync/guildsync/internal/boot"
	"github.com/guildsync/guildsync/internal/config"
	"github.com/guildsync/guildsync/internal/db"
	"github.com/guildsync/guildsync/internal/locks"
	"github.com/guildsync/guildsync/internal/logger"
	"github.com/guildsync/guildsync/internal/reports"
)

var InfraModule = fx.Module(
	"infra",
	fx.Provide(
		provideConfig,
		provideLogger,
		boot.ProvideRuntimeConfig,
		provideDBConn,
		provideDBTX,
		provideLocker,
		provideReportPublisher,
	),
)

// ---------------------------------------------------------------------------
// infrastructure providers
// ---------------------------------------------------------------------------

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format, slog.String("app", "orchestrator"))
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			conn.Close()
			return nil
		},
	})
	return conn, nil
}

func provideDBTX(conn *pgxpool.Pool) db.DBTX {
	return conn
}

// provideLocker shares account locks through redis when configured, so
// several orchestrator replicas never reconcile the same account at once.
func provideLocker(lc fx.Lifecycle, log *slog.Logger, cfg config.Config, rc *boot.RuntimeConfig) (locks.Locker, error) {
	if cfg.Redis.Addr == "" {
		log.Info("using in-process account locks")
		return locks.NewLocal(), nil
	}
	client := locks.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	log.Info("using redis account locks", slog.String("addr", cfg.Redis.Addr))
	return locks.NewRedis(log, client, rc.LockTTL), nil
}

func provideReportPublisher(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) reports.Publisher {
	publishers := reports.Multi{reports.NewLogPublisher(log)}
	if len(cfg.Kafka.Brokers) > 0 {
		publishers = append(publishers, reports.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		log.Info("publishing reports to kafka", slog.String("topic", cfg.Kafka.Topic))
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return publishers.Close()
		},
	})
	return publishers
}
