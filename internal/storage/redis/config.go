package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// GuestPlayerTTL expires idle guest players; registered players never expire
	GuestPlayerTTL time.Duration

	// MaxTxRetries bounds optimistic transaction retries on contended keys
	MaxTxRetries int
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:            "redis://localhost:6379",
		PoolSize:       10,
		MinIdleConns:   2,
		GuestPlayerTTL: 30 * 24 * time.Hour,
		MaxTxRetries:   50,
	}
}
