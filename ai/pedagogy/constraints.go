// Package pedagogy turns a raw model reply and a pool of candidate
// corrections into a tutor response: it ranks corrections, shapes the reply
// to a sentence budget, and decides when micro-exercises and structured
// feedback are due.
package pedagogy

import (
	"errors"
	"fmt"
	"math"

	"github.com/hrygo/polyglot/ai/tutor"
)

// FeedbackCadence is the number of user turns between structured feedback cycles.
const FeedbackCadence = 3

// ErrInvalidConstraints is returned for an unusable Constraints value.
var ErrInvalidConstraints = errors.New("invalid pedagogical constraints")

// Constraints configures an Engine. It is read at construction and never changed.
type Constraints struct {
	MinSentences    int
	MaxSentences    int
	MaxCorrections  int
	ExerciseCadence int // every K user turns
	Weights         map[tutor.Category]float64
}

// DefaultWeights ranks grammar over vocabulary over pronunciation over style.
func DefaultWeights() map[tutor.Category]float64 {
	return map[tutor.Category]float64{
		tutor.CategoryGrammar:       1.0,
		tutor.CategoryVocabulary:    0.8,
		tutor.CategoryPronunciation: 0.6,
		tutor.CategoryStyle:         0.4,
	}
}

func DefaultConstraints() Constraints {
	return Constraints{
		MinSentences:    3,
		MaxSentences:    6,
		MaxCorrections:  3,
		ExerciseCadence: 5,
		Weights:         DefaultWeights(),
	}
}

// Validate checks the bounds. A missing weight table is filled with the defaults.
func (c *Constraints) Validate() error {
	switch {
	case c.MinSentences <= 0:
		return fmt.Errorf("%w: min sentences must be > 0, got %d", ErrInvalidConstraints, c.MinSentences)
	case c.MaxSentences < c.MinSentences:
		return fmt.Errorf("%w: max sentences %d below min %d", ErrInvalidConstraints, c.MaxSentences, c.MinSentences)
	case c.MaxCorrections <= 0:
		return fmt.Errorf("%w: max corrections must be > 0, got %d", ErrInvalidConstraints, c.MaxCorrections)
	case c.ExerciseCadence <= 0:
		return fmt.Errorf("%w: exercise cadence must be > 0, got %d", ErrInvalidConstraints, c.ExerciseCadence)
	}
	if len(c.Weights) == 0 {
		c.Weights = DefaultWeights()
		return nil
	}
	for cat, w := range c.Weights {
		if !cat.Valid() {
			return fmt.Errorf("%w: weight for unknown category %d", ErrInvalidConstraints, cat)
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: weight for %s must be a non-negative number", ErrInvalidConstraints, cat)
		}
	}
	return nil
}

// weight returns the category weight in hundredths. Categories missing from
// the table score 0.5.
func (c Constraints) weight(cat tutor.Category) int {
	w, ok := c.Weights[cat]
	if !ok {
		return 50
	}
	return int(math.Round(w * 100))
}
