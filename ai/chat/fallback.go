package chat

import (
	"fmt"
	"regexp"

	"github.com/hrygo/polyglot/ai/tutor"
)

// Used when the model cannot be reached. Keyed by mode and CEFR level.
var fallbackReplies = map[string]string{
	"tutor_A1": "I understand you're learning English! I'm here to help you practice. Even though our main system is having a small issue right now, we can still chat. Keep practicing, you're doing well!",
	"tutor_A2": "Thank you for your message! I can see you're working hard on your English. Our AI system is temporarily unavailable, but practice is the key to improvement. Keep going!",
	"tutor_B1": "I appreciate your message and your dedication to learning English. Our advanced features are temporarily unavailable. Remember that every conversation helps you improve.",
	"tutor_B2": "Thank you for continuing to practice with us. We're experiencing some technical difficulties with our main system. Your commitment to learning is admirable, so keep up the excellent work!",
	"tutor_C1": "I acknowledge your message and your advanced English skills. Despite current technical limitations, your continued practice shows excellent dedication to language mastery.",
	"tutor_C2": "Your message reflects sophisticated English usage. Our primary systems are temporarily offline. Your persistent engagement with the language is commendable.",
	"buddy_A1": "Hey! Thanks for chatting with me. I'm having some technical problems right now, but I still want to talk with you. Your English is getting better!",
	"buddy_A2": "Hi there! I got your message. Sorry, I'm having some issues with my main system right now. But don't worry, talking with you is always fun!",
	"buddy_B1": "Hello! I see your message and I appreciate you chatting with me. I'm having some technical difficulties at the moment. I enjoy our conversations!",
	"buddy_B2": "Hi! Thanks for your message. I'm experiencing some system issues right now. I always enjoy talking with you, and your English sounds great!",
	"buddy_C1": "Hello! I received your message and appreciate our conversation. I'm currently experiencing some technical difficulties. I value our chats.",
	"buddy_C2": "Hi there! Your message came through clearly. I'm having some system issues at the moment. I always enjoy our sophisticated conversations.",
}

const defaultFallbackReply = "Thank you for your message. I'm experiencing some technical difficulties right now. Please try again in a few moments!"

func fallbackReply(mode tutor.SessionMode, level tutor.Level) string {
	if reply, ok := fallbackReplies[fmt.Sprintf("%s_%s", mode, level.CEFR())]; ok {
		return reply
	}
	return defaultFallbackReply
}

type fallbackPattern struct {
	re          *regexp.Regexp
	original    string
	correction  string
	category    tutor.Category
	explanation string
}

func spelling(wrong, right string) fallbackPattern {
	return fallbackPattern{
		re:          regexp.MustCompile(`(?i)\b` + wrong + `\b`),
		original:    wrong,
		correction:  right,
		category:    tutor.CategoryVocabulary,
		explanation: fmt.Sprintf("'%s' is the correct spelling", right),
	}
}

func agreement(wrong, right string) fallbackPattern {
	return fallbackPattern{
		re:          regexp.MustCompile(`(?i)\b` + wrong + `\b`),
		original:    wrong,
		correction:  right,
		category:    tutor.CategoryGrammar,
		explanation: fmt.Sprintf("Use '%s' instead of '%s'", right, wrong),
	}
}

var fallbackPatterns = []fallbackPattern{
	spelling("dont", "don't"),
	spelling("cant", "can't"),
	spelling("wont", "won't"),
	spelling("isnt", "isn't"),
	spelling("arent", "aren't"),
	spelling("wasnt", "wasn't"),
	spelling("werent", "weren't"),
	agreement("i are", "I am"),
	agreement("i is", "I am"),
	agreement("he are", "he is"),
	agreement("she are", "she is"),
	agreement("they is", "they are"),
}

const maxFallbackCorrections = 2

// basicCorrections finds common mistakes by pattern when no model output is available.
func basicCorrections(text string) []tutor.Correction {
	var out []tutor.Correction
	for _, p := range fallbackPatterns {
		if len(out) == maxFallbackCorrections {
			break
		}
		if !p.re.MatchString(text) {
			continue
		}
		out = append(out, tutor.Correction{
			Original:    p.original,
			Correction:  p.correction,
			Explanation: p.explanation,
			Category:    p.category,
		})
	}
	return out
}

var fallbackExercises = map[tutor.Level][]string{
	tutor.LevelA1: {
		"Complete: I ___ happy today. (Use 'am' with 'I'.)",
		"Complete: She ___ a student. (Use 'is' with 'she'.)",
	},
	tutor.LevelA2: {
		"Complete: I ___ to school yesterday. (Think about the past tense of 'go'.)",
		"Complete: They ___ playing football now. (Present continuous with 'they'.)",
	},
	tutor.LevelB1: {
		"Complete: If I ___ rich, I would travel the world. (Second conditional.)",
	},
	tutor.LevelB2: {
		"Complete: I wish I ___ studied harder. (Past regrets.)",
	},
}

// fallbackExercise picks a canned exercise for the level; C1 and above reuse B2.
func fallbackExercise(level tutor.Level, turn int) string {
	l := level.CEFR()
	if l.AtLeast(tutor.LevelC1) {
		l = tutor.LevelB2
	}
	exercises, ok := fallbackExercises[l]
	if !ok {
		exercises = fallbackExercises[tutor.LevelA2]
	}
	return exercises[max(turn, 0)%len(exercises)]
}
