// Package memory keeps a bounded, per-session window of recent conversation
// turns in front of the durable message store. Messages evicted from a
// window are handed to an OverflowSink before they are forgotten.
package memory

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/hrygo/polyglot/ai/tutor"
)

var (
	// ErrMemoryUnavailable wraps every durable-store failure on the load,
	// overflow and flush paths.
	ErrMemoryUnavailable = errors.New("memory subsystem unavailable")
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid memory config")
)

// MessageRepository is the durable message store contract.
type MessageRepository interface {
	Append(ctx context.Context, msg tutor.Message) error
	// ListRecent returns up to limit of the newest messages, oldest first.
	ListRecent(ctx context.Context, sessionID string, limit int) ([]tutor.Message, error)
	CountBySession(ctx context.Context, sessionID string) (int, error)
}

// CounterRepository is optionally implemented by a MessageRepository to
// persist session counters across cache evictions.
type CounterRepository interface {
	SaveCounters(ctx context.Context, counters SessionCounters) error
	// LoadCounters reports false when nothing was saved for the session.
	LoadCounters(ctx context.Context, sessionID string) (SessionCounters, bool, error)
}

// OverflowSink receives messages leaving the cache. Persist writes messages
// in order and returns how many were written before the first failure.
type OverflowSink interface {
	Persist(ctx context.Context, messages []tutor.Message) (int, error)
}

// SessionCounters tracks per-session cadence state. Counts never decrease.
// A zero Last*At means the feature has not fired yet.
type SessionCounters struct {
	SessionID         string `json:"session_id"`
	TotalMessageCount int    `json:"total_message_count"`
	UserTurnCount     int    `json:"user_turn_count"`
	LastFeedbackAt    int    `json:"last_feedback_message_number"`
	LastExerciseAt    int    `json:"last_exercise_message_number"`
}

// merge keeps the larger value of every field.
func (c SessionCounters) merge(o SessionCounters) SessionCounters {
	c.TotalMessageCount = max(c.TotalMessageCount, o.TotalMessageCount)
	c.UserTurnCount = max(c.UserTurnCount, o.UserTurnCount)
	c.LastFeedbackAt = max(c.LastFeedbackAt, o.LastFeedbackAt)
	c.LastExerciseAt = max(c.LastExerciseAt, o.LastExerciseAt)
	return c
}

// ConversationSummary is the recomputed summary of one session's window.
type ConversationSummary struct {
	SessionID                string
	Text                     string
	MessageCountAtLastUpdate int
	LastUpdated              time.Time
	KeyTopics                []string
}

func (s ConversationSummary) clone() ConversationSummary {
	s.KeyTopics = slices.Clone(s.KeyTopics)
	return s
}

// CacheStats is a point-in-time view for observability.
type CacheStats struct {
	CachedSessions         int   `json:"cached_sessions"`
	TotalCachedMessages    int64 `json:"total_cached_messages"`
	Capacity               int   `json:"capacity"`
	Hits                   int64 `json:"hits"`
	Misses                 int64 `json:"misses"`
	OverflowPersistedCount int64 `json:"overflow_persisted_count"`
	SessionEvictions       int64 `json:"session_evictions"`
}

// CadenceUpdate records which cadence-gated features fired on a turn.
// Zero fields are ignored.
type CadenceUpdate struct {
	ExerciseAt int
	FeedbackAt int
}

// Manager is the contract the chat orchestrator depends on.
type Manager interface {
	AddMessage(ctx context.Context, msg tutor.Message) error
	GetRecentMessages(sessionID string, count int) []tutor.Message
	LoadSessionContext(ctx context.Context, sessionID string) error
	GetConversationSummary(sessionID string) (string, bool)
	ClearSessionCache(ctx context.Context, sessionID string) error
	GetCacheStats() CacheStats
	Counters(sessionID string) (SessionCounters, bool)
	RecordCadence(sessionID string, update CadenceUpdate)
}
