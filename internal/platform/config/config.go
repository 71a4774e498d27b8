package config

import (
	"os"
	"strings"
	"time"
)

// Backend selects a storage implementation at startup. Business logic never
// branches on this; cmd/server wires the matching store and hands the
// interface down.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendPostgres Backend = "postgres"
	BackendRedis    Backend = "redis"
)

// Server captures process-level configuration.
type Server struct {
	Addr           string
	StorageBackend Backend
	CounterBackend Backend
	DatabaseURL    string
	Redis          RedisConfig

	// ControlNumberPrefix is the fixed leading token of every control number.
	ControlNumberPrefix string
	// Sections is the fixed set of organizational codes records may carry.
	Sections []string
}

// RedisConfig carries connection settings for the optional Redis counter
// backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultSections is the section set used when DOCTRACK_SECTIONS is unset.
var DefaultSections = []string{"ADMIN", "INVES", "LEGAL", "OPS", "RECORDS"}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("DOCTRACK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	storage := Backend(os.Getenv("DOCTRACK_STORAGE"))
	if storage == "" {
		storage = BackendMemory
	}
	counters := Backend(os.Getenv("DOCTRACK_COUNTER_BACKEND"))
	if counters == "" {
		// Counters follow the record store unless explicitly overridden.
		counters = storage
	}

	prefix := os.Getenv("DOCTRACK_PREFIX")
	if prefix == "" {
		prefix = "DTS"
	}

	sections := DefaultSections
	if raw := os.Getenv("DOCTRACK_SECTIONS"); raw != "" {
		sections = nil
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(strings.ToUpper(s)); s != "" {
				sections = append(sections, s)
			}
		}
	}

	return Server{
		Addr:                addr,
		StorageBackend:      storage,
		CounterBackend:      counters,
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		Redis:               redisFromEnv(),
		ControlNumberPrefix: prefix,
		Sections:            sections,
	}
}

func redisFromEnv() RedisConfig {
	return RedisConfig{
		URL:          os.Getenv("REDIS_URL"),
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}
