package pedagogy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/polyglot/ai/tutor"
)

func TestConstraints_Validate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(c *Constraints)
		valid  bool
	}{
		{name: "defaults", modify: func(*Constraints) {}, valid: true},
		{name: "min equals max", modify: func(c *Constraints) { c.MinSentences, c.MaxSentences = 4, 4 }, valid: true},
		{name: "zero min", modify: func(c *Constraints) { c.MinSentences = 0 }},
		{name: "max below min", modify: func(c *Constraints) { c.MaxSentences = 2 }},
		{name: "zero corrections", modify: func(c *Constraints) { c.MaxCorrections = 0 }},
		{name: "zero cadence", modify: func(c *Constraints) { c.ExerciseCadence = 0 }},
		{name: "negative weight", modify: func(c *Constraints) { c.Weights[tutor.CategoryStyle] = -1 }},
		{name: "unknown category", modify: func(c *Constraints) { c.Weights[tutor.Category(42)] = 1 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := DefaultConstraints()
			tc.modify(&c)
			err := c.Validate()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConstraints)
			}
		})
	}
}

func TestConstraints_ValidateFillsWeights(t *testing.T) {
	c := DefaultConstraints()
	c.Weights = nil
	require.NoError(t, c.Validate())
	assert.Equal(t, DefaultWeights(), c.Weights)
	assert.Equal(t, 100, c.weight(tutor.CategoryGrammar))

	c.Weights = map[tutor.Category]float64{tutor.CategoryGrammar: 2}
	assert.Equal(t, 50, c.weight(tutor.CategoryStyle), "missing category falls back to 0.5")
}
