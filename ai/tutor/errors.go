package tutor

import "errors"

var (
	ErrInvalidMessage    = errors.New("invalid message")
	ErrInvalidCorrection = errors.New("invalid correction")
	ErrInvalidCategory   = errors.New("invalid correction category")
	ErrInvalidLevel      = errors.New("invalid proficiency level")
)
