// Package config builds runtime configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "legado/pkg/platform/strings"
)

// StorageMode selects the persistence backend.
type StorageMode string

const (
	StorageMemory   StorageMode = "memory"
	StoragePostgres StorageMode = "postgres"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	JWTSigningKey   string
	JWTIssuer       string
}

// Storage captures the persistence backend selection.
type Storage struct {
	Mode        StorageMode
	PostgresDSN string
}

// RedisConfig captures the identity read cache connection settings. An empty
// URL disables the cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// KafkaConfig captures audit trail publishing. Empty brokers disable the
// outbox worker.
type KafkaConfig struct {
	Brokers      []string
	AuditTopic   string
	PollInterval time.Duration
}

// RateLimit captures request throttling. A zero Limit disables throttling.
type RateLimit struct {
	Limit  int
	Window time.Duration
}

// Escrow captures the proof-of-death trust settings.
type Escrow struct {
	// AttestorWallets is the allowlist of wallets that may assert a
	// testator's death. Empty means the testator's own wallet.
	AttestorWallets []string
}

type Config struct {
	Server    Server
	Storage   Storage
	Redis     RedisConfig
	Kafka     KafkaConfig
	RateLimit RateLimit
	Escrow    Escrow
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Server: Server{
			Addr:            envOr("LEGADO_ADDR", ":8080"),
			ShutdownTimeout: envDuration("LEGADO_SHUTDOWN_TIMEOUT", 15*time.Second),
			JWTSigningKey:   envOr("LEGADO_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:       envOr("LEGADO_JWT_ISSUER", "legado"),
		},
		Storage: Storage{
			Mode:        StorageMemory,
			PostgresDSN: os.Getenv("LEGADO_POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("LEGADO_REDIS_URL"),
			PoolSize:     envInt("LEGADO_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("LEGADO_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("LEGADO_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("LEGADO_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("LEGADO_REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     envDuration("LEGADO_REDIS_CACHE_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:      splitList(os.Getenv("LEGADO_KAFKA_BROKERS")),
			AuditTopic:   envOr("LEGADO_KAFKA_AUDIT_TOPIC", "legado.audit"),
			PollInterval: envDuration("LEGADO_KAFKA_POLL_INTERVAL", 2*time.Second),
		},
		RateLimit: RateLimit{
			Limit:  envInt("LEGADO_RATE_LIMIT", 120),
			Window: envDuration("LEGADO_RATE_LIMIT_WINDOW", time.Minute),
		},
		Escrow: Escrow{
			AttestorWallets: splitList(os.Getenv("LEGADO_ATTESTOR_WALLETS")),
		},
	}
	if mode := os.Getenv("LEGADO_STORAGE_MODE"); mode == string(StoragePostgres) {
		cfg.Storage.Mode = StoragePostgres
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	out := pstrings.DedupeAndTrim(strings.Split(s, ","))
	if len(out) == 0 {
		return nil
	}
	return out
}
