package store

import (
	"context"

	"github.com/hrygo/polyglot/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) AppendTutorMessage(ctx context.Context, create *TutorMessage) error {
	return s.driver.AppendTutorMessage(ctx, create)
}

func (s *Store) ListRecentTutorMessages(ctx context.Context, find *FindTutorMessage) ([]*TutorMessage, error) {
	return s.driver.ListRecentTutorMessages(ctx, find)
}

func (s *Store) CountTutorMessages(ctx context.Context, sessionID string) (int, error) {
	return s.driver.CountTutorMessages(ctx, sessionID)
}

func (s *Store) UpsertSessionCounters(ctx context.Context, upsert *SessionCounters) error {
	return s.driver.UpsertSessionCounters(ctx, upsert)
}

func (s *Store) GetSessionCounters(ctx context.Context, sessionID string) (*SessionCounters, error) {
	return s.driver.GetSessionCounters(ctx, sessionID)
}

func (s *Store) CreateTutorSession(ctx context.Context, create *TutorSession) (*TutorSession, error) {
	return s.driver.CreateTutorSession(ctx, create)
}

func (s *Store) GetTutorSession(ctx context.Context, id string) (*TutorSession, error) {
	return s.driver.GetTutorSession(ctx, id)
}

func (s *Store) UpdateTutorSession(ctx context.Context, update *UpdateTutorSession) (*TutorSession, error) {
	return s.driver.UpdateTutorSession(ctx, update)
}
