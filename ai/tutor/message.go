package tutor

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MaxContentLength       = 5000
	MaxCorrectionsPerMsg   = 3
	MaxCorrectionTextLen   = 500
	MaxExplanationLength   = 1000
	MaxMicroExerciseLength = 500
)

// Correction is a single suggested fix. It is a value type.
type Correction struct {
	Original    string   `json:"original"`
	Correction  string   `json:"correction"`
	Explanation string   `json:"explanation"`
	Category    Category `json:"category"`
}

// NewCorrection builds a validated correction.
func NewCorrection(original, correction, explanation string, category Category) (Correction, error) {
	c := Correction{
		Original:    strings.TrimSpace(original),
		Correction:  strings.TrimSpace(correction),
		Explanation: strings.TrimSpace(explanation),
		Category:    category,
	}
	if err := c.Validate(); err != nil {
		return Correction{}, err
	}
	return c, nil
}

// Validate checks the field constraints.
func (c Correction) Validate() error {
	switch {
	case c.Original == "":
		return fmt.Errorf("%w: original text is empty", ErrInvalidCorrection)
	case c.Correction == "":
		return fmt.Errorf("%w: corrected text is empty", ErrInvalidCorrection)
	case c.Explanation == "":
		return fmt.Errorf("%w: explanation is empty", ErrInvalidCorrection)
	case utf8.RuneCountInString(c.Original) > MaxCorrectionTextLen:
		return fmt.Errorf("%w: original text exceeds %d characters", ErrInvalidCorrection, MaxCorrectionTextLen)
	case utf8.RuneCountInString(c.Correction) > MaxCorrectionTextLen:
		return fmt.Errorf("%w: corrected text exceeds %d characters", ErrInvalidCorrection, MaxCorrectionTextLen)
	case utf8.RuneCountInString(c.Explanation) > MaxExplanationLength:
		return fmt.Errorf("%w: explanation exceeds %d characters", ErrInvalidCorrection, MaxExplanationLength)
	case !c.Category.Valid():
		return fmt.Errorf("%w: %w", ErrInvalidCorrection, ErrInvalidCategory)
	}
	return nil
}

// Message is an immutable conversation turn.
type Message struct {
	ID            string       `json:"id"`
	SessionID     string       `json:"session_id"`
	Role          Role         `json:"role"`
	Content       string       `json:"content"`
	CreatedAt     time.Time    `json:"created_at"`
	Corrections   []Correction `json:"corrections,omitempty"`
	MicroExercise string       `json:"micro_exercise,omitempty"`
}

// MessageParams carries the inputs of NewMessage.
type MessageParams struct {
	SessionID     string
	Role          Role
	Content       string
	Corrections   []Correction
	MicroExercise string
	// Optional; a UUID and the current time are used when empty.
	ID        string
	CreatedAt time.Time
}

// NewMessage builds a validated message. Corrections are copied.
func NewMessage(p MessageParams) (Message, error) {
	m := Message{
		ID:            p.ID,
		SessionID:     strings.TrimSpace(p.SessionID),
		Role:          p.Role,
		Content:       strings.TrimSpace(p.Content),
		CreatedAt:     p.CreatedAt,
		Corrections:   slices.Clone(p.Corrections),
		MicroExercise: p.MicroExercise,
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Validate checks every field constraint, including nested corrections.
func (m Message) Validate() error {
	switch {
	case m.ID == "":
		return fmt.Errorf("%w: id is empty", ErrInvalidMessage)
	case m.SessionID == "":
		return fmt.Errorf("%w: session id is empty", ErrInvalidMessage)
	case m.Role != RoleUser && m.Role != RoleAssistant:
		return fmt.Errorf("%w: role %q", ErrInvalidMessage, m.Role)
	case strings.TrimSpace(m.Content) == "":
		return fmt.Errorf("%w: content is empty", ErrInvalidMessage)
	case utf8.RuneCountInString(m.Content) > MaxContentLength:
		return fmt.Errorf("%w: content exceeds %d characters", ErrInvalidMessage, MaxContentLength)
	case m.CreatedAt.IsZero():
		return fmt.Errorf("%w: created_at is not set", ErrInvalidMessage)
	case len(m.Corrections) > MaxCorrectionsPerMsg:
		return fmt.Errorf("%w: %d corrections, at most %d allowed", ErrInvalidMessage, len(m.Corrections), MaxCorrectionsPerMsg)
	}
	if m.MicroExercise != "" {
		if strings.TrimSpace(m.MicroExercise) == "" {
			return fmt.Errorf("%w: micro exercise is blank", ErrInvalidMessage)
		}
		if utf8.RuneCountInString(m.MicroExercise) > MaxMicroExerciseLength {
			return fmt.Errorf("%w: micro exercise exceeds %d characters", ErrInvalidMessage, MaxMicroExerciseLength)
		}
	}
	for i, c := range m.Corrections {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w: correction %d: %w", ErrInvalidMessage, i, err)
		}
	}
	return nil
}

// Clone returns a copy that shares no mutable state with m.
func (m Message) Clone() Message {
	m.Corrections = slices.Clone(m.Corrections)
	return m
}

// CloneMessages deep-copies a slice of messages.
func CloneMessages(in []Message) []Message {
	if in == nil {
		return nil
	}
	out := make([]Message, len(in))
	for i, m := range in {
		out[i] = m.Clone()
	}
	return out
}
