package tutor

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCorrection(t *testing.T) Correction {
	t.Helper()
	c, err := NewCorrection("I goed", "I went", "Irregular past tense", CategoryGrammar)
	require.NoError(t, err)
	return c
}

func TestNewCorrection(t *testing.T) {
	testCases := []struct {
		name        string
		original    string
		correction  string
		explanation string
		category    Category
		wantErr     error
	}{
		{"valid", "a", "b", "c", CategoryStyle, nil},
		{"empty original", " ", "b", "c", CategoryStyle, ErrInvalidCorrection},
		{"empty correction", "a", "", "c", CategoryStyle, ErrInvalidCorrection},
		{"empty explanation", "a", "b", "", CategoryStyle, ErrInvalidCorrection},
		{"original too long", strings.Repeat("x", 501), "b", "c", CategoryGrammar, ErrInvalidCorrection},
		{"explanation too long", "a", "b", strings.Repeat("x", 1001), CategoryGrammar, ErrInvalidCorrection},
		{"unknown category", "a", "b", "c", Category(42), ErrInvalidCategory},
		{"zero category", "a", "b", "c", Category(0), ErrInvalidCategory},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCorrection(tc.original, tc.correction, tc.explanation, tc.category)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestNewMessage(t *testing.T) {
	c := validCorrection(t)

	t.Run("fills id and timestamp", func(t *testing.T) {
		m, err := NewMessage(MessageParams{SessionID: "s1", Role: RoleUser, Content: " hello "})
		require.NoError(t, err)
		assert.NotEmpty(t, m.ID)
		assert.False(t, m.CreatedAt.IsZero())
		assert.Equal(t, "hello", m.Content)
	})

	t.Run("keeps explicit id and timestamp", func(t *testing.T) {
		ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		m, err := NewMessage(MessageParams{ID: "m-1", SessionID: "s1", Role: RoleAssistant, Content: "hi", CreatedAt: ts})
		require.NoError(t, err)
		assert.Equal(t, "m-1", m.ID)
		assert.Equal(t, ts, m.CreatedAt)
	})

	invalid := []struct {
		name   string
		params MessageParams
	}{
		{"missing session", MessageParams{Role: RoleUser, Content: "x"}},
		{"bad role", MessageParams{SessionID: "s", Role: "system", Content: "x"}},
		{"empty content", MessageParams{SessionID: "s", Role: RoleUser, Content: "   "}},
		{"content too long", MessageParams{SessionID: "s", Role: RoleUser, Content: strings.Repeat("a", 5001)}},
		{"too many corrections", MessageParams{SessionID: "s", Role: RoleAssistant, Content: "x", Corrections: []Correction{c, c, c, c}}},
		{"blank exercise", MessageParams{SessionID: "s", Role: RoleAssistant, Content: "x", MicroExercise: "  "}},
		{"exercise too long", MessageParams{SessionID: "s", Role: RoleAssistant, Content: "x", MicroExercise: strings.Repeat("e", 501)}},
		{"invalid nested correction", MessageParams{SessionID: "s", Role: RoleAssistant, Content: "x", Corrections: []Correction{{Original: "a"}}}},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewMessage(tc.params)
			assert.ErrorIs(t, err, ErrInvalidMessage)
		})
	}
}

func TestMessage_CloneIsIndependent(t *testing.T) {
	m, err := NewMessage(MessageParams{SessionID: "s", Role: RoleAssistant, Content: "x", Corrections: []Correction{validCorrection(t)}})
	require.NoError(t, err)

	cp := m.Clone()
	cp.Corrections[0].Original = "mutated"
	assert.Equal(t, "I goed", m.Corrections[0].Original)
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"a1", LevelA1, false},
		{"B2", LevelB2, false},
		{"Intermediate", LevelIntermediate, false},
		{"native", LevelNative, false},
		{"D1", "", true},
		{"", "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseLevel(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLevel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLevel_Buckets(t *testing.T) {
	assert.True(t, LevelA1.IsBeginner())
	assert.True(t, LevelBeginner.IsBeginner())
	assert.False(t, LevelB1.IsBeginner())
	assert.True(t, LevelB2.AtLeast(LevelB1))
	assert.False(t, LevelA2.AtLeast(LevelB1))
	assert.Equal(t, "beginner", LevelA2.Difficulty())
	assert.Equal(t, "intermediate", LevelIntermediate.Difficulty())
	assert.Equal(t, "advanced", LevelC1.Difficulty())
}

func TestCategory_TextRoundTrip(t *testing.T) {
	for _, c := range Categories {
		b, err := c.MarshalText()
		require.NoError(t, err)
		var got Category
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, c, got)
	}
	var c Category
	assert.ErrorIs(t, c.UnmarshalText([]byte("spelling")), ErrInvalidCategory)
}
