package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/polyglot/ai/tutor"
)

func TestExtractCorrections(t *testing.T) {
	testCases := []struct {
		name  string
		reply string
		want  []tutor.Correction
	}{
		{
			name:  "no annotations",
			reply: "Great! What did you eat?",
		},
		{
			name: "arrow and ascii arrow",
			reply: "Nice story.\n" +
				"Correction: I goed → I went (grammar): Irregular past tense.\n" +
				"- correction: \"make a photo\" -> \"take a photo\" (Vocabulary): Fixed collocation.",
			want: []tutor.Correction{
				{Original: "I goed", Correction: "I went", Explanation: "Irregular past tense.", Category: tutor.CategoryGrammar},
				{Original: "make a photo", Correction: "take a photo", Explanation: "Fixed collocation.", Category: tutor.CategoryVocabulary},
			},
		},
		{
			name: "unknown category skipped",
			reply: "Correction: teh → the (spelling): Typo.\n" +
				"Correction: very very good → excellent (style): Avoid repetition.",
			want: []tutor.Correction{
				{Original: "very very good", Correction: "excellent", Explanation: "Avoid repetition.", Category: tutor.CategoryStyle},
			},
		},
		{
			name: "duplicates collapsed",
			reply: "Correction: I goed → I went (grammar): Irregular past.\n" +
				"Correction: i goed → I went (grammar): Same fix again.",
			want: []tutor.Correction{
				{Original: "I goed", Correction: "I went", Explanation: "Irregular past.", Category: tutor.CategoryGrammar},
			},
		},
		{
			name:  "missing explanation",
			reply: "Correction: I goed → I went (grammar):",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractCorrections(tc.reply))
		})
	}
}

func TestBasicCorrections(t *testing.T) {
	testCases := []struct {
		text string
		want []string
	}{
		{"I dont know", []string{"don't"}},
		{"i are happy and they is sad and he are tall", []string{"I am", "he is"}},
		{"I don't know", nil},
		{"the cantina is open", nil},
	}
	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			var got []string
			for _, c := range basicCorrections(tc.text) {
				require.NoError(t, c.Validate())
				got = append(got, c.Correction)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFallbackReply(t *testing.T) {
	assert.Equal(t, fallbackReplies["tutor_B1"], fallbackReply(tutor.ModeTutor, tutor.LevelB1))
	assert.Equal(t, fallbackReplies["buddy_C1"], fallbackReply(tutor.ModeBuddy, tutor.LevelAdvanced))
	assert.Equal(t, defaultFallbackReply, fallbackReply(tutor.SessionMode("other"), tutor.LevelA1))
}

func TestFallbackExercise(t *testing.T) {
	assert.Equal(t, fallbackExercises[tutor.LevelA1][0], fallbackExercise(tutor.LevelA1, 4))
	assert.Equal(t, fallbackExercises[tutor.LevelA1][1], fallbackExercise(tutor.LevelA1, 5))
	assert.Equal(t, fallbackExercises[tutor.LevelB2][0], fallbackExercise(tutor.LevelC2, 3))
	assert.Equal(t, fallbackExercises[tutor.LevelA2][0], fallbackExercise(tutor.LevelBeginner, 0))
	assert.Equal(t, fallbackExercises[tutor.LevelA2][0], fallbackExercise(tutor.Level(""), 0))
}

func TestBuildSystemPrompt(t *testing.T) {
	p := promptParams{
		Level:          tutor.LevelIntermediate,
		Mode:           tutor.ModeBuddy,
		Topic:          "cooking",
		TargetLanguage: "en",
		Summary:        "The learner likes pasta.",
		MinSentences:   3,
		MaxSentences:   6,
		MaxCorrections: 3,
	}
	prompt := buildSystemPrompt(p)

	assert.Contains(t, prompt, "You are a friendly English conversation partner for a learner at CEFR level B1.")
	assert.Contains(t, prompt, "relaxed chat buddy")
	assert.Contains(t, prompt, "with 3 to 6 short sentences")
	assert.Contains(t, prompt, "The conversation topic is cooking.")
	assert.Contains(t, prompt, "Earlier in this conversation: The learner likes pasta.")
	assert.Contains(t, prompt, "list at most 3 of them")

	p.Mode, p.Topic, p.Summary = tutor.ModeTutor, "", ""
	prompt = buildSystemPrompt(p)
	assert.Contains(t, prompt, "patient tutor")
	assert.NotContains(t, prompt, "topic")
	assert.NotContains(t, prompt, "Earlier")
}
