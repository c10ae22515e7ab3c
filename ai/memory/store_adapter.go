package memory

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/hrygo/polyglot/ai/tutor"
	"github.com/hrygo/polyglot/store"
)

// StoreAdapter adapts *store.Store to MessageRepository and
// CounterRepository, converting rows to validated tutor values.
type StoreAdapter struct {
	store *store.Store
}

// NewStoreAdapter creates a new store adapter.
func NewStoreAdapter(s *store.Store) *StoreAdapter {
	return &StoreAdapter{store: s}
}

func (a *StoreAdapter) Append(ctx context.Context, msg tutor.Message) error {
	row, err := toRow(msg)
	if err != nil {
		return err
	}
	return a.store.AppendTutorMessage(ctx, row)
}

func (a *StoreAdapter) ListRecent(ctx context.Context, sessionID string, limit int) ([]tutor.Message, error) {
	rows, err := a.store.ListRecentTutorMessages(ctx, &store.FindTutorMessage{SessionID: sessionID, Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]tutor.Message, 0, len(rows))
	for _, row := range rows {
		m, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (a *StoreAdapter) CountBySession(ctx context.Context, sessionID string) (int, error) {
	return a.store.CountTutorMessages(ctx, sessionID)
}

func (a *StoreAdapter) SaveCounters(ctx context.Context, c SessionCounters) error {
	return a.store.UpsertSessionCounters(ctx, &store.SessionCounters{
		SessionID:         c.SessionID,
		TotalMessageCount: c.TotalMessageCount,
		UserTurnCount:     c.UserTurnCount,
		LastFeedbackAt:    c.LastFeedbackAt,
		LastExerciseAt:    c.LastExerciseAt,
		UpdatedTs:         time.Now().Unix(),
	})
}

func (a *StoreAdapter) LoadCounters(ctx context.Context, sessionID string) (SessionCounters, bool, error) {
	row, err := a.store.GetSessionCounters(ctx, sessionID)
	if err != nil {
		return SessionCounters{}, false, err
	}
	if row == nil {
		return SessionCounters{}, false, nil
	}
	return SessionCounters{
		SessionID:         row.SessionID,
		TotalMessageCount: row.TotalMessageCount,
		UserTurnCount:     row.UserTurnCount,
		LastFeedbackAt:    row.LastFeedbackAt,
		LastExerciseAt:    row.LastExerciseAt,
	}, true, nil
}

func toRow(m tutor.Message) (*store.TutorMessage, error) {
	var corrections []byte
	if len(m.Corrections) > 0 {
		var err error
		if corrections, err = json.Marshal(m.Corrections); err != nil {
			return nil, err
		}
	}
	return &store.TutorMessage{
		ID:              m.ID,
		SessionID:       m.SessionID,
		Role:            string(m.Role),
		Content:         m.Content,
		CorrectionsJSON: corrections,
		MicroExercise:   m.MicroExercise,
		CreatedTs:       m.CreatedAt.UnixMilli(),
	}, nil
}

func fromRow(row *store.TutorMessage) (tutor.Message, error) {
	role, err := tutor.ParseRole(row.Role)
	if err != nil {
		return tutor.Message{}, err
	}
	var corrections []tutor.Correction
	if len(row.CorrectionsJSON) > 0 {
		if err := json.Unmarshal(row.CorrectionsJSON, &corrections); err != nil {
			return tutor.Message{}, err
		}
	}
	return tutor.NewMessage(tutor.MessageParams{
		ID:            row.ID,
		SessionID:     row.SessionID,
		Role:          role,
		Content:       row.Content,
		Corrections:   corrections,
		MicroExercise: row.MicroExercise,
		CreatedAt:     time.UnixMilli(row.CreatedTs).UTC(),
	})
}

var (
	_ MessageRepository = (*StoreAdapter)(nil)
	_ CounterRepository = (*StoreAdapter)(nil)
)
