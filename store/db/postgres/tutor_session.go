package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hrygo/polyglot/store"
)

const tutorSessionColumns = `id, user_id, level, mode, topic, native_language, target_language, created_ts, updated_ts, ended_ts`

func (d *DB) CreateTutorSession(ctx context.Context, create *store.TutorSession) (*store.TutorSession, error) {
	stmt := `INSERT INTO tutor_session (` + tutorSessionColumns + `) VALUES (` + placeholders(10) + `)`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.UserID, create.Level, create.Mode, create.Topic,
		create.NativeLanguage, create.TargetLanguage, create.CreatedTs, create.UpdatedTs, create.EndedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create tutor_session: %w", err)
	}
	return create, nil
}

func (d *DB) GetTutorSession(ctx context.Context, id string) (*store.TutorSession, error) {
	s := &store.TutorSession{}
	err := d.db.QueryRowContext(ctx, `SELECT `+tutorSessionColumns+` FROM tutor_session WHERE id = `+placeholder(1), id).Scan(
		&s.ID, &s.UserID, &s.Level, &s.Mode, &s.Topic, &s.NativeLanguage, &s.TargetLanguage, &s.CreatedTs, &s.UpdatedTs, &s.EndedTs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tutor_session: %w", err)
	}
	return s, nil
}

func (d *DB) UpdateTutorSession(ctx context.Context, update *store.UpdateTutorSession) (*store.TutorSession, error) {
	set, args := buildSessionUpdate(update)
	args = append(args, update.ID)
	stmt := `UPDATE tutor_session SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))

	res, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update tutor_session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("tutor_session %s: %w", update.ID, store.ErrNotFound)
	}
	return d.GetTutorSession(ctx, update.ID)
}

func buildSessionUpdate(update *store.UpdateTutorSession) ([]string, []any) {
	set, args := []string{"updated_ts = " + placeholder(1)}, []any{update.UpdatedTs}
	if update.Level != nil {
		set, args = append(set, "level = "+placeholder(len(args)+1)), append(args, *update.Level)
	}
	if update.Mode != nil {
		set, args = append(set, "mode = "+placeholder(len(args)+1)), append(args, *update.Mode)
	}
	if update.Topic != nil {
		set, args = append(set, "topic = "+placeholder(len(args)+1)), append(args, *update.Topic)
	}
	if update.EndedTs != nil {
		set, args = append(set, "ended_ts = "+placeholder(len(args)+1)), append(args, *update.EndedTs)
	}
	return set, args
}
