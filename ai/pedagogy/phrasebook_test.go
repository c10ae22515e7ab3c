package pedagogy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/polyglot/ai/tutor"
)

func TestDefaultPhrasebook(t *testing.T) {
	pb := DefaultPhrasebook()
	assert.Equal(t, []string{"Keep practicing!", "You're doing great!", "Let's continue learning together."}, pb.padding(tutor.LevelA1))
	assert.Equal(t, pb.Padding["A2"], pb.padding(tutor.LevelC1), "levels without a table use A2")
	assert.Equal(t, pb.Padding["B1"], pb.padding(tutor.LevelIntermediate))

	beginner := pb.continuation(tutor.LevelA1, "travel")
	assert.Equal(t, "That's interesting! Can you tell me more about travel?", beginner[0])
	advanced := pb.continuation(tutor.LevelC2, "")
	assert.Equal(t, "That's a nuanced observation. What factors influenced your opinion?", advanced[0])
}

func TestParsePhrasebook_Override(t *testing.T) {
	pb, err := ParsePhrasebook([]byte(`
padding:
  A2:
    - Nice one!
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Nice one!"}, pb.padding(tutor.LevelA2))
	assert.Equal(t, DefaultPhrasebook().Assessment, pb.Assessment, "missing tables come from the embedded phrasebook")
}

func TestParsePhrasebook_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{name: "malformed yaml", data: "padding: [unclosed"},
		{name: "multi sentence padding", data: "padding:\n  A2:\n    - One. Two.\n"},
		{name: "missing A2 padding", data: "padding:\n  A1:\n    - Hi!\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePhrasebook([]byte(tc.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadPhrasebook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("assessment_suffix:\n  beginner: Go on!\n"), 0o600))

	pb, err := LoadPhrasebook(path)
	require.NoError(t, err)
	assert.Equal(t, "Go on!", pb.AssessmentSuffix["beginner"])

	_, err = LoadPhrasebook(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
