// Package tutor defines the value objects shared by the memory and pedagogy
// layers: messages, corrections and the closed enums that describe them.
package tutor

import (
	"fmt"
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleAssistant:
		return r, nil
	default:
		return "", fmt.Errorf("%w: role %q", ErrInvalidMessage, s)
	}
}

// Category is the closed set of correction kinds.
type Category uint8

const (
	CategoryGrammar Category = iota + 1
	CategoryVocabulary
	CategoryPronunciation
	CategoryStyle
)

// Categories lists every valid category in weight order.
var Categories = []Category{CategoryGrammar, CategoryVocabulary, CategoryPronunciation, CategoryStyle}

func (c Category) String() string {
	switch c {
	case CategoryGrammar:
		return "grammar"
	case CategoryVocabulary:
		return "vocabulary"
	case CategoryPronunciation:
		return "pronunciation"
	case CategoryStyle:
		return "style"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	return c >= CategoryGrammar && c <= CategoryStyle
}

// ParseCategory maps the wire name of a category to its value.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "grammar":
		return CategoryGrammar, nil
	case "vocabulary":
		return CategoryVocabulary, nil
	case "pronunciation":
		return CategoryPronunciation, nil
	case "style":
		return CategoryStyle, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCategory, uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Level is a learner's proficiency. CEFR levels are canonical; the legacy
// beginner/intermediate/advanced/native values are still accepted.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"

	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
	LevelNative       Level = "native"
)

// ParseLevel validates a level string. CEFR codes are case-insensitive.
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	switch l := Level(strings.ToUpper(s)); l {
	case LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2:
		return l, nil
	}
	switch l := Level(strings.ToLower(s)); l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced, LevelNative:
		return l, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// CEFR maps legacy levels onto the CEFR scale.
func (l Level) CEFR() Level {
	switch l {
	case LevelBeginner:
		return LevelA2
	case LevelIntermediate:
		return LevelB1
	case LevelAdvanced:
		return LevelC1
	case LevelNative:
		return LevelC2
	default:
		return l
	}
}

func (l Level) rank() int {
	switch l.CEFR() {
	case LevelA1:
		return 1
	case LevelA2:
		return 2
	case LevelB1:
		return 3
	case LevelB2:
		return 4
	case LevelC1:
		return 5
	case LevelC2:
		return 6
	default:
		return 0
	}
}

// AtLeast reports whether l is at or above other.
func (l Level) AtLeast(other Level) bool {
	return l.rank() >= other.rank()
}

// IsBeginner reports A1/A2.
func (l Level) IsBeginner() bool {
	r := l.rank()
	return r == 1 || r == 2
}

// Difficulty buckets the level for exercise generation.
func (l Level) Difficulty() string {
	switch l.CEFR() {
	case LevelA1, LevelA2:
		return "beginner"
	case LevelB1, LevelB2:
		return "intermediate"
	default:
		return "advanced"
	}
}

// SessionMode selects how the assistant behaves in a session.
type SessionMode string

const (
	// ModeTutor corrects actively and schedules micro-exercises.
	ModeTutor SessionMode = "tutor"
	// ModeBuddy is casual conversation; exercises are never scheduled.
	ModeBuddy SessionMode = "buddy"
)

// ParseSessionMode defaults to tutor for an empty string.
func ParseSessionMode(s string) (SessionMode, error) {
	switch m := SessionMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeTutor, nil
	case ModeTutor, ModeBuddy:
		return m, nil
	default:
		return "", fmt.Errorf("%w: session mode %q", ErrInvalidMessage, s)
	}
}
