package memory

import (
	"fmt"
	"time"
)

// Lock strategies accepted by Config.LockStrategy.
const (
	LockGlobal = "global"
	LockKeyed  = "keyed"
)

// Config configures a SessionStore. It is read once at construction.
type Config struct {
	CacheCapacity           int           // max cached sessions
	MessagesPerSession      int           // window size
	SummaryThreshold        int           // first summary at this message count
	SummaryUpdateInterval   int           // messages between summary refreshes
	InactiveSessionTimeout  time.Duration // idle sessions are flushed and dropped
	CleanupInterval         time.Duration // sweeper period
	MaxConcurrentOperations int           // concurrent durable-store round trips
	LockStrategy            string        // "global" or "keyed"
	LockShards              int           // stripes for the keyed strategy
	LogCacheOperations      bool
}

// DefaultConfig returns the general-purpose defaults.
func DefaultConfig() Config {
	return Config{
		CacheCapacity:           50,
		MessagesPerSession:      10,
		SummaryThreshold:        20,
		SummaryUpdateInterval:   10,
		InactiveSessionTimeout:  60 * time.Minute,
		CleanupInterval:         30 * time.Minute,
		MaxConcurrentOperations: 10,
		LockStrategy:            LockKeyed,
		LockShards:              32,
	}
}

// DevelopmentConfig keeps the cache small and logs every operation.
func DevelopmentConfig() Config {
	c := DefaultConfig()
	c.CacheCapacity = 10
	c.MessagesPerSession = 5
	c.SummaryThreshold = 5
	c.SummaryUpdateInterval = 3
	c.InactiveSessionTimeout = 30 * time.Minute
	c.CleanupInterval = 15 * time.Minute
	c.LogCacheOperations = true
	return c
}

// ProductionConfig favours larger windows and longer idle periods.
func ProductionConfig() Config {
	c := DefaultConfig()
	c.CacheCapacity = 100
	c.MessagesPerSession = 15
	c.SummaryThreshold = 30
	c.SummaryUpdateInterval = 10
	c.InactiveSessionTimeout = 120 * time.Minute
	c.CleanupInterval = 60 * time.Minute
	c.MaxConcurrentOperations = 20
	return c
}

// TestingConfig uses tiny limits so eviction paths are easy to reach.
func TestingConfig() Config {
	c := DefaultConfig()
	c.CacheCapacity = 5
	c.MessagesPerSession = 3
	c.SummaryThreshold = 3
	c.SummaryUpdateInterval = 2
	c.InactiveSessionTimeout = 5 * time.Minute
	c.CleanupInterval = 2 * time.Minute
	c.MaxConcurrentOperations = 5
	c.LockShards = 4
	return c
}

// ConfigForPreset maps a preset name to its config. Unknown names fall
// back to the defaults.
func ConfigForPreset(name string) Config {
	switch name {
	case "development", "dev":
		return DevelopmentConfig()
	case "production", "prod":
		return ProductionConfig()
	case "testing", "test":
		return TestingConfig()
	default:
		return DefaultConfig()
	}
}

// Validate fails on any non-positive limit or unknown lock strategy.
func (c Config) Validate() error {
	checks := []struct {
		name  string
		value int64
	}{
		{"cache_capacity", int64(c.CacheCapacity)},
		{"messages_per_session", int64(c.MessagesPerSession)},
		{"summary_threshold", int64(c.SummaryThreshold)},
		{"summary_update_interval", int64(c.SummaryUpdateInterval)},
		{"inactive_session_timeout", int64(c.InactiveSessionTimeout)},
		{"cleanup_interval", int64(c.CleanupInterval)},
		{"max_concurrent_operations", int64(c.MaxConcurrentOperations)},
	}
	for _, chk := range checks {
		if chk.value <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, chk.name)
		}
	}
	switch c.LockStrategy {
	case LockGlobal:
	case LockKeyed:
		if c.LockShards <= 0 {
			return fmt.Errorf("%w: lock_shards must be positive", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown lock strategy %q", ErrInvalidConfig, c.LockStrategy)
	}
	return nil
}
