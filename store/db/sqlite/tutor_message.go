package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/hrygo/polyglot/store"
)

func (d *DB) AppendTutorMessage(ctx context.Context, create *store.TutorMessage) error {
	stmt := `INSERT OR IGNORE INTO tutor_message (id, session_id, role, content, corrections, micro_exercise, created_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.SessionID, create.Role, create.Content,
		string(create.CorrectionsJSON), create.MicroExercise, create.CreatedTs,
	); err != nil {
		return errors.Wrapf(err, "failed to append tutor_message %s", create.ID)
	}
	return nil
}

func (d *DB) ListRecentTutorMessages(ctx context.Context, find *store.FindTutorMessage) ([]*store.TutorMessage, error) {
	limit := find.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	query := `
		SELECT id, session_id, role, content, corrections, micro_exercise, created_ts FROM (
			SELECT seq, id, session_id, role, content, corrections, micro_exercise, created_ts
			FROM tutor_message
			WHERE session_id = ?
			ORDER BY seq DESC
			LIMIT ?
		) ORDER BY seq ASC`

	rows, err := d.db.QueryContext(ctx, query, find.SessionID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tutor_message")
	}
	defer rows.Close()

	list := make([]*store.TutorMessage, 0)
	for rows.Next() {
		m := &store.TutorMessage{}
		var corrections string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &corrections, &m.MicroExercise, &m.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan tutor_message")
		}
		if corrections != "" {
			m.CorrectionsJSON = []byte(corrections)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate tutor_message")
	}
	return list, nil
}

func (d *DB) CountTutorMessages(ctx context.Context, sessionID string) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tutor_message WHERE session_id = ?`, sessionID).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count tutor_message")
	}
	return count, nil
}

func (d *DB) UpsertSessionCounters(ctx context.Context, upsert *store.SessionCounters) error {
	stmt := `INSERT INTO tutor_session_counters (session_id, total_message_count, user_turn_count, last_feedback_at, last_exercise_at, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			total_message_count = MAX(total_message_count, excluded.total_message_count),
			user_turn_count     = MAX(user_turn_count, excluded.user_turn_count),
			last_feedback_at    = MAX(last_feedback_at, excluded.last_feedback_at),
			last_exercise_at    = MAX(last_exercise_at, excluded.last_exercise_at),
			updated_ts          = excluded.updated_ts`
	if _, err := d.db.ExecContext(ctx, stmt,
		upsert.SessionID, upsert.TotalMessageCount, upsert.UserTurnCount,
		upsert.LastFeedbackAt, upsert.LastExerciseAt, upsert.UpdatedTs,
	); err != nil {
		return errors.Wrapf(err, "failed to upsert counters of session %s", upsert.SessionID)
	}
	return nil
}

func (d *DB) GetSessionCounters(ctx context.Context, sessionID string) (*store.SessionCounters, error) {
	c := &store.SessionCounters{}
	err := d.db.QueryRowContext(ctx, `
		SELECT session_id, total_message_count, user_turn_count, last_feedback_at, last_exercise_at, updated_ts
		FROM tutor_session_counters WHERE session_id = ?`, sessionID,
	).Scan(&c.SessionID, &c.TotalMessageCount, &c.UserTurnCount, &c.LastFeedbackAt, &c.LastExerciseAt, &c.UpdatedTs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get session counters")
	}
	return c, nil
}
