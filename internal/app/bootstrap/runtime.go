package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/session-booking/internal/config"
	"github.com/wolfman30/session-booking/internal/schedule"
	"github.com/wolfman30/session-booking/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildSettingsStore keeps the schedule in Redis when a client is available
// and in process memory otherwise.
func BuildSettingsStore(redisClient *redis.Client, logger *logging.Logger) schedule.Store {
	if redisClient != nil {
		return schedule.NewRedisStore(redisClient)
	}
	if logger != nil {
		logger.Warn("redis unavailable, schedule settings kept in memory")
	}
	return schedule.NewMemoryStore(schedule.DefaultConfig())
}

// ConnectPostgresPool opens and pings a pgx pool. An empty URL yields a nil
// pool and no error so callers can fall back to memory repositories.
func ConnectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) (*pgxpool.Pool, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: create pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	logger.Info("connected to postgres")
	return pool, nil
}

// OpenAuditDB opens the database/sql handle used by the audit log.
func OpenAuditDB(databaseURL string) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open audit db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// LoadLocation resolves the business timezone, falling back to UTC.
func LoadLocation(name string, logger *logging.Logger) *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(name))
	if err != nil || name == "" {
		if logger != nil {
			logger.Warn("invalid timezone, using UTC", "timezone", name, "error", err)
		}
		return time.UTC
	}
	return loc
}
