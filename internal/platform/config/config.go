package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	liststr "webring/pkg/platform/strings"
)

// Config is the full process configuration. Everything comes from the
// environment, optionally seeded from a .env file.
type Config struct {
	Server     Server
	Members    MembersConfig
	Health     HealthConfig
	Hits       HitsConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	ClickHouse ClickHouseConfig
	Logging    LoggingConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr       string
	TrustProxy bool
}

// MembersConfig locates the member registry.
type MembersConfig struct {
	Dir   string
	Order string // "slug" or "daily"
}

// HealthConfig drives the health-check scheduler.
type HealthConfig struct {
	Interval    time.Duration
	Timeout     time.Duration
	Concurrency int
	EmbedPrefix string
}

// HitsConfig selects the hit log backend.
type HitsConfig struct {
	Backend string // memory, postgres, redis, kafka, clickhouse
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	StreamKey    string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type ClickHouseConfig struct {
	Addr        []string
	Database    string
	Username    string
	Password    string
	DialTimeout time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads .env (if present) and the environment so main stays lean.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "error", err)
	}

	return Config{
		Server: Server{
			Addr:       cast.ToString(coalesce("WEBRING_ADDR", ":8000")),
			TrustProxy: cast.ToBool(coalesce("TRUST_PROXY", false)),
		},
		Members: MembersConfig{
			Dir:   cast.ToString(coalesce("MEMBERS_DIR", "members")),
			Order: cast.ToString(coalesce("MEMBERS_ORDER", "slug")),
		},
		Health: HealthConfig{
			Interval:    duration("HEALTH_INTERVAL", 60*time.Second),
			Timeout:     duration("HEALTH_TIMEOUT", 5*time.Second),
			Concurrency: cast.ToInt(coalesce("HEALTH_CONCURRENCY", 8)),
			EmbedPrefix: cast.ToString(coalesce("EMBED_PREFIX", "https://overengineering.kognise.dev/embed/")),
		},
		Hits: HitsConfig{
			Backend: strings.ToLower(cast.ToString(coalesce("HITS_BACKEND", "memory"))),
		},
		Postgres: PostgresConfig{
			DSN:             cast.ToString(coalesce("DATABASE_URL", "")),
			MaxOpenConns:    cast.ToInt(coalesce("DB_MAX_OPEN_CONNS", 10)),
			MaxIdleConns:    cast.ToInt(coalesce("DB_MAX_IDLE_CONNS", 5)),
			ConnMaxLifetime: duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          cast.ToString(coalesce("REDIS_URL", "")),
			PoolSize:     cast.ToInt(coalesce("REDIS_POOL_SIZE", 10)),
			MinIdleConns: cast.ToInt(coalesce("REDIS_MIN_IDLE_CONNS", 2)),
			DialTimeout:  duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			StreamKey:    cast.ToString(coalesce("REDIS_HITS_STREAM", "webring:hits")),
		},
		Kafka: KafkaConfig{
			Brokers: liststr.SplitList(cast.ToString(coalesce("KAFKA_BROKERS", "localhost:9092"))),
			Topic:   cast.ToString(coalesce("KAFKA_HITS_TOPIC", "webring.hits")),
		},
		ClickHouse: ClickHouseConfig{
			Addr:        liststr.SplitList(cast.ToString(coalesce("CLICKHOUSE_ADDR", "localhost:9000"))),
			Database:    cast.ToString(coalesce("CLICKHOUSE_DB", "webring")),
			Username:    cast.ToString(coalesce("CLICKHOUSE_USER", "default")),
			Password:    cast.ToString(coalesce("CLICKHOUSE_PASSWORD", "")),
			DialTimeout: duration("CLICKHOUSE_DIAL_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:  cast.ToString(coalesce("LOG_LEVEL", "info")),
			Format: cast.ToString(coalesce("LOG_FORMAT", "json")),
		},
	}
}

func coalesce(key string, value any) any {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return value
}

func duration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := cast.ToDurationE(raw)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return d
}

