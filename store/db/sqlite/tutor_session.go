package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/polyglot/store"
)

const tutorSessionColumns = `id, user_id, level, mode, topic, native_language, target_language, created_ts, updated_ts, ended_ts`

func (d *DB) CreateTutorSession(ctx context.Context, create *store.TutorSession) (*store.TutorSession, error) {
	stmt := `INSERT INTO tutor_session (` + tutorSessionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.UserID, create.Level, create.Mode, create.Topic,
		create.NativeLanguage, create.TargetLanguage, create.CreatedTs, create.UpdatedTs, create.EndedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create tutor_session")
	}
	return create, nil
}

func (d *DB) GetTutorSession(ctx context.Context, id string) (*store.TutorSession, error) {
	s := &store.TutorSession{}
	err := d.db.QueryRowContext(ctx, `SELECT `+tutorSessionColumns+` FROM tutor_session WHERE id = ?`, id).Scan(
		&s.ID, &s.UserID, &s.Level, &s.Mode, &s.Topic, &s.NativeLanguage, &s.TargetLanguage, &s.CreatedTs, &s.UpdatedTs, &s.EndedTs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get tutor_session")
	}
	return s, nil
}

func (d *DB) UpdateTutorSession(ctx context.Context, update *store.UpdateTutorSession) (*store.TutorSession, error) {
	set, args := []string{"updated_ts = ?"}, []any{update.UpdatedTs}
	if update.Level != nil {
		set, args = append(set, "level = ?"), append(args, *update.Level)
	}
	if update.Mode != nil {
		set, args = append(set, "mode = ?"), append(args, *update.Mode)
	}
	if update.Topic != nil {
		set, args = append(set, "topic = ?"), append(args, *update.Topic)
	}
	if update.EndedTs != nil {
		set, args = append(set, "ended_ts = ?"), append(args, *update.EndedTs)
	}
	args = append(args, update.ID)

	res, err := d.db.ExecContext(ctx, `UPDATE tutor_session SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update tutor_session")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, errors.Wrapf(store.ErrNotFound, "tutor_session %s", update.ID)
	}
	return d.GetTutorSession(ctx, update.ID)
}
