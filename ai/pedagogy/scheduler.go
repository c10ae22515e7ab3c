package pedagogy

import (
	"fmt"
	"strings"

	"github.com/hrygo/polyglot/ai/tutor"
)

// ExerciseScheduler gates micro-exercises. It decides whether one is due;
// the exercise text itself comes from the model.
type ExerciseScheduler struct {
	cadence int
}

func NewExerciseScheduler(cadence int) *ExerciseScheduler {
	if cadence <= 0 {
		cadence = DefaultConstraints().ExerciseCadence
	}
	return &ExerciseScheduler{cadence: cadence}
}

// ShouldGenerate reports whether an exercise is due at messageCount.
// lastExerciseAt is 0 when no exercise has been generated yet.
func (s *ExerciseScheduler) ShouldGenerate(messageCount int, corrections []tutor.Correction, lastExerciseAt int) bool {
	if len(corrections) == 0 || messageCount <= 0 {
		return false
	}
	if lastExerciseAt > 0 && messageCount-lastExerciseAt < s.cadence {
		return false
	}
	return messageCount%s.cadence == 0
}

// BuildExercisePrompt asks the model for a short practice exercise built
// from the two most recent corrections. It returns "" without corrections.
func BuildExercisePrompt(corrections []tutor.Correction, level tutor.Level, topic string) string {
	if len(corrections) == 0 {
		return ""
	}
	if len(corrections) > 2 {
		corrections = corrections[len(corrections)-2:]
	}

	var lines []string
	for _, c := range corrections {
		lines = append(lines, fmt.Sprintf("- %s → %s (%s)", c.Original, c.Correction, c.Category))
	}
	topicContext := ""
	if topic = strings.TrimSpace(topic); topic != "" {
		topicContext = " related to " + topic
	}

	var b strings.Builder
	b.WriteString("Create a quick practice exercise (1-2 minutes) based on these recent corrections:\n\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\nRequirements:\n")
	fmt.Fprintf(&b, "- Proficiency level: %s\n", level)
	fmt.Fprintf(&b, "- Make it practical and engaging%s\n", topicContext)
	b.WriteString("- Focus on the corrected grammar/vocabulary patterns\n")
	b.WriteString("- Provide clear instructions\n")
	b.WriteString("- Keep it short and focused\n\n")
	b.WriteString("Generate just the exercise text, no additional explanation.")
	return b.String()
}
