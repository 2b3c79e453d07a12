package domain

import (
	"context"
	"time"
)

// Cache defines the interface for verdict caching.
// Supports two-phase caching: local LRU (Community) + Redis (Pro).
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache. A zero or negative TTL means the
	// entry never expires (verdicts are only replaced, never aged out).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache. Used when new scam-list entries
	// or confirmed reports invalidate a stored verdict.
	Delete(ctx context.Context, key string) error

	// GetVerdict retrieves a cached verdict for a normalized query.
	GetVerdict(ctx context.Context, query string) (*RiskVerdict, error)

	// SetVerdict caches a verdict for a normalized query.
	SetVerdict(ctx context.Context, query string, verdict *RiskVerdict, ttl time.Duration) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (Community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis

	// VerdictTTL bounds how long verdicts live in cache.
	// Zero means verdicts never expire (spec default).
	VerdictTTL time.Duration
}
