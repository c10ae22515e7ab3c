package pedagogy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hrygo/polyglot/ai/tutor"
)

func TestExerciseScheduler_ShouldGenerate(t *testing.T) {
	pool := []tutor.Correction{correction(t, "I goes", "I go", "verb agreement", tutor.CategoryGrammar)}
	s := NewExerciseScheduler(5)

	testCases := []struct {
		name        string
		count       int
		corrections []tutor.Correction
		last        int
		want        bool
	}{
		{name: "first multiple", count: 5, corrections: pool, want: true},
		{name: "not a multiple", count: 6, corrections: pool, want: false},
		{name: "empty pool", count: 5, want: false},
		{name: "zero count", count: 0, corrections: pool, want: false},
		{name: "too soon after last", count: 10, corrections: pool, last: 7, want: false},
		{name: "cadence since last", count: 10, corrections: pool, last: 5, want: true},
		{name: "gap satisfied but not a multiple", count: 13, corrections: pool, last: 7, want: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, s.ShouldGenerate(tc.count, tc.corrections, tc.last))
		})
	}
}

func TestExerciseScheduler_Cadence(t *testing.T) {
	pool := []tutor.Correction{correction(t, "I goes", "I go", "verb agreement", tutor.CategoryGrammar)}
	s := NewExerciseScheduler(5)

	var fired []int
	last := 0
	for n := 1; n <= 20; n++ {
		if s.ShouldGenerate(n, pool, last) {
			fired = append(fired, n)
			last = n
		}
		assert.False(t, s.ShouldGenerate(n, nil, last))
	}
	assert.Equal(t, []int{5, 10, 15, 20}, fired)

	assert.True(t, NewExerciseScheduler(0).ShouldGenerate(5, pool, 0), "non-positive cadence uses the default")
}

func TestBuildExercisePrompt(t *testing.T) {
	assert.Empty(t, BuildExercisePrompt(nil, tutor.LevelA2, ""))

	corrections := []tutor.Correction{
		correction(t, "old", "older", "x", tutor.CategoryVocabulary),
		correction(t, "I goes", "I go", "verb agreement", tutor.CategoryGrammar),
		correction(t, "gonna", "going to", "more formal", tutor.CategoryStyle),
	}
	prompt := BuildExercisePrompt(corrections, tutor.LevelB1, "travel")

	assert.Contains(t, prompt, "- I goes → I go (grammar)\n- gonna → going to (style)")
	assert.NotContains(t, prompt, "older")
	assert.Contains(t, prompt, "- Proficiency level: B1")
	assert.Contains(t, prompt, "engaging related to travel")
}
