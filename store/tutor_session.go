package store

import "errors"

// ErrNotFound is returned when an update targets a missing row.
var ErrNotFound = errors.New("not found")

// TutorSession describes a learner's conversation session.
type TutorSession struct {
	ID             string
	UserID         string
	Level          string
	Mode           string
	Topic          string
	NativeLanguage string
	TargetLanguage string
	CreatedTs      int64
	UpdatedTs      int64
	EndedTs        int64 // zero while the session is active
}

type UpdateTutorSession struct {
	ID        string
	Level     *string
	Mode      *string
	Topic     *string
	EndedTs   *int64
	UpdatedTs int64
}
