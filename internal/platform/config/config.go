package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DevJWTSecret is the development fallback for the identity token secret.
const DevJWTSecret = "dev-secret-key-change-in-production"

// Config is the process configuration, read once at startup.
type Config struct {
	Environment string
	LogLevel    string
	Server      Server
	Auth        Auth
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	RateLimit   RateLimitConfig
	Audit       AuditConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Auth configures verification of identity tokens issued by the external provider.
type Auth struct {
	JWTSecret string
	Issuer    string
	Audience  string
}

// DatabaseConfig configures the Postgres pool. An empty URL selects in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	TxTimeout       time.Duration
}

// RedisConfig configures the rate limit counter store. An empty URL selects
// the in-process bucket store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the security event fan-out. No brokers disables it.
type KafkaConfig struct {
	Brokers           []string
	SecurityTopic     string
	Partitions        int32
	ReplicationFactor int16
}

// RateLimitConfig overrides the per-class limits.
type RateLimitConfig struct {
	LoginMax             int
	LoginWindow          time.Duration
	APIMax               int
	APIWindow            time.Duration
	WhitelistCheckMax    int
	WhitelistCheckWindow time.Duration
}

// AuditConfig configures the security event publisher.
type AuditConfig struct {
	AsyncBuffer int
	MaxRetries  int
}

// IsProduction reports whether ENVIRONMENT is production.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	p := &parser{}
	cfg := Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: Server{
			Addr:            getEnv("GATEKEEPER_ADDR", ":8080"),
			ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Auth: Auth{
			JWTSecret: getEnv("JWT_SECRET", DevJWTSecret),
			Issuer:    os.Getenv("JWT_ISSUER"),
			Audience:  os.Getenv("JWT_AUDIENCE"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    p.int("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    p.int("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: p.duration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			TxTimeout:       p.duration("DATABASE_TX_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     p.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:           splitList(os.Getenv("KAFKA_BROKERS")),
			SecurityTopic:     getEnv("KAFKA_SECURITY_TOPIC", "gatekeeper.security-events"),
			Partitions:        int32(p.int("KAFKA_TOPIC_PARTITIONS", 3)),
			ReplicationFactor: int16(p.int("KAFKA_TOPIC_REPLICATION_FACTOR", 1)),
		},
		RateLimit: RateLimitConfig{
			LoginMax:             p.int("RATELIMIT_LOGIN_MAX", 5),
			LoginWindow:          p.duration("RATELIMIT_LOGIN_WINDOW", 15*time.Minute),
			APIMax:               p.int("RATELIMIT_API_MAX", 100),
			APIWindow:            p.duration("RATELIMIT_API_WINDOW", time.Minute),
			WhitelistCheckMax:    p.int("RATELIMIT_WHITELIST_CHECK_MAX", 50),
			WhitelistCheckWindow: p.duration("RATELIMIT_WHITELIST_CHECK_WINDOW", time.Minute),
		},
		Audit: AuditConfig{
			AsyncBuffer: p.int("AUDIT_ASYNC_BUFFER", 1024),
			MaxRetries:  p.int("AUDIT_MAX_RETRIES", 3),
		},
	}

	if cfg.IsProduction() && cfg.Auth.JWTSecret == DevJWTSecret {
		p.errs = append(p.errs, errors.New("JWT_SECRET must be set in production"))
	}
	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type parser struct {
	errs []error
}

func (p *parser) int(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
