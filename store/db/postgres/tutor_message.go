package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hrygo/polyglot/store"
)

func (d *DB) AppendTutorMessage(ctx context.Context, create *store.TutorMessage) error {
	stmt := `INSERT INTO tutor_message (id, session_id, role, content, corrections, micro_exercise, created_ts)
		VALUES (` + placeholders(7) + `)
		ON CONFLICT (id) DO NOTHING`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.SessionID, create.Role, create.Content,
		string(create.CorrectionsJSON), create.MicroExercise, create.CreatedTs,
	); err != nil {
		return fmt.Errorf("failed to append tutor_message %s: %w", create.ID, err)
	}
	return nil
}

func (d *DB) ListRecentTutorMessages(ctx context.Context, find *store.FindTutorMessage) ([]*store.TutorMessage, error) {
	args := []any{find.SessionID}
	limit := ""
	if find.Limit > 0 {
		args = append(args, find.Limit)
		limit = " LIMIT " + placeholder(len(args))
	}
	query := `
		SELECT id, session_id, role, content, corrections, micro_exercise, created_ts FROM (
			SELECT seq, id, session_id, role, content, corrections, micro_exercise, created_ts
			FROM tutor_message
			WHERE session_id = ` + placeholder(1) + `
			ORDER BY seq DESC` + limit + `
		) recent ORDER BY seq ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tutor_message: %w", err)
	}
	defer rows.Close()

	list := make([]*store.TutorMessage, 0)
	for rows.Next() {
		m := &store.TutorMessage{}
		var corrections string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &corrections, &m.MicroExercise, &m.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan tutor_message: %w", err)
		}
		if corrections != "" {
			m.CorrectionsJSON = []byte(corrections)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tutor_message: %w", err)
	}
	return list, nil
}

func (d *DB) CountTutorMessages(ctx context.Context, sessionID string) (int, error) {
	var count int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tutor_message WHERE session_id = `+placeholder(1), sessionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tutor_message: %w", err)
	}
	return count, nil
}

func (d *DB) UpsertSessionCounters(ctx context.Context, upsert *store.SessionCounters) error {
	stmt := `INSERT INTO tutor_session_counters (session_id, total_message_count, user_turn_count, last_feedback_at, last_exercise_at, updated_ts)
		VALUES (` + placeholders(6) + `)
		ON CONFLICT (session_id) DO UPDATE SET
			total_message_count = GREATEST(tutor_session_counters.total_message_count, EXCLUDED.total_message_count),
			user_turn_count     = GREATEST(tutor_session_counters.user_turn_count, EXCLUDED.user_turn_count),
			last_feedback_at    = GREATEST(tutor_session_counters.last_feedback_at, EXCLUDED.last_feedback_at),
			last_exercise_at    = GREATEST(tutor_session_counters.last_exercise_at, EXCLUDED.last_exercise_at),
			updated_ts          = EXCLUDED.updated_ts`
	if _, err := d.db.ExecContext(ctx, stmt,
		upsert.SessionID, upsert.TotalMessageCount, upsert.UserTurnCount,
		upsert.LastFeedbackAt, upsert.LastExerciseAt, upsert.UpdatedTs,
	); err != nil {
		return fmt.Errorf("failed to upsert counters of session %s: %w", upsert.SessionID, err)
	}
	return nil
}

func (d *DB) GetSessionCounters(ctx context.Context, sessionID string) (*store.SessionCounters, error) {
	c := &store.SessionCounters{}
	err := d.db.QueryRowContext(ctx, `
		SELECT session_id, total_message_count, user_turn_count, last_feedback_at, last_exercise_at, updated_ts
		FROM tutor_session_counters WHERE session_id = `+placeholder(1), sessionID,
	).Scan(&c.SessionID, &c.TotalMessageCount, &c.UserTurnCount, &c.LastFeedbackAt, &c.LastExerciseAt, &c.UpdatedTs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session counters: %w", err)
	}
	return c, nil
}
