package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigPresets(t *testing.T) {
	testCases := []struct {
		preset            string
		capacity, window  int
		threshold, update int
		idle, sweep       time.Duration
	}{
		{"", 50, 10, 20, 10, 60 * time.Minute, 30 * time.Minute},
		{"development", 10, 5, 5, 3, 30 * time.Minute, 15 * time.Minute},
		{"production", 100, 15, 30, 10, 120 * time.Minute, 60 * time.Minute},
		{"testing", 5, 3, 3, 2, 5 * time.Minute, 2 * time.Minute},
	}
	for _, tc := range testCases {
		t.Run(tc.preset, func(t *testing.T) {
			cfg := ConfigForPreset(tc.preset)
			assert.NoError(t, cfg.Validate())
			assert.Equal(t, tc.capacity, cfg.CacheCapacity)
			assert.Equal(t, tc.window, cfg.MessagesPerSession)
			assert.Equal(t, tc.threshold, cfg.SummaryThreshold)
			assert.Equal(t, tc.update, cfg.SummaryUpdateInterval)
			assert.Equal(t, tc.idle, cfg.InactiveSessionTimeout)
			assert.Equal(t, tc.sweep, cfg.CleanupInterval)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero capacity", func(c *Config) { c.CacheCapacity = 0 }},
		{"negative window", func(c *Config) { c.MessagesPerSession = -1 }},
		{"zero threshold", func(c *Config) { c.SummaryThreshold = 0 }},
		{"zero update interval", func(c *Config) { c.SummaryUpdateInterval = 0 }},
		{"zero idle timeout", func(c *Config) { c.InactiveSessionTimeout = 0 }},
		{"zero cleanup interval", func(c *Config) { c.CleanupInterval = 0 }},
		{"zero concurrency", func(c *Config) { c.MaxConcurrentOperations = 0 }},
		{"unknown strategy", func(c *Config) { c.LockStrategy = "optimistic" }},
		{"keyed without shards", func(c *Config) { c.LockStrategy = LockKeyed; c.LockShards = 0 }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestSummaryTrigger(t *testing.T) {
	trigger := SummaryTrigger{Threshold: 20, UpdateInterval: 10}
	testCases := []struct {
		count, lastAt int
		want          bool
	}{
		{19, 0, false},
		{20, 0, true},
		{25, 20, false},
		{30, 20, true},
		{31, 20, true},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, trigger.ShouldSummarize(tc.count, tc.lastAt), "count=%d lastAt=%d", tc.count, tc.lastAt)
	}

	everyAdd := SummaryTrigger{Threshold: 2, UpdateInterval: 0}
	assert.True(t, everyAdd.ShouldSummarize(3, 2))
}
