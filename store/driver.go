package store

import (
	"context"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	Close() error
	Migrate(ctx context.Context) error

	// TutorMessage model related methods.
	// AppendTutorMessage ignores a message whose ID is already stored.
	AppendTutorMessage(ctx context.Context, create *TutorMessage) error
	// ListRecentTutorMessages returns the newest Limit messages, oldest first.
	ListRecentTutorMessages(ctx context.Context, find *FindTutorMessage) ([]*TutorMessage, error)
	CountTutorMessages(ctx context.Context, sessionID string) (int, error)

	// SessionCounters model related methods.
	// UpsertSessionCounters never lowers a stored value.
	UpsertSessionCounters(ctx context.Context, upsert *SessionCounters) error
	// GetSessionCounters returns nil when nothing is stored.
	GetSessionCounters(ctx context.Context, sessionID string) (*SessionCounters, error)

	// TutorSession model related methods.
	CreateTutorSession(ctx context.Context, create *TutorSession) (*TutorSession, error)
	// GetTutorSession returns nil when the session does not exist.
	GetTutorSession(ctx context.Context, id string) (*TutorSession, error)
	UpdateTutorSession(ctx context.Context, update *UpdateTutorSession) (*TutorSession, error)
}
