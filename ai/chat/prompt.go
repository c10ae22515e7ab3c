package chat

import (
	"fmt"
	"strings"

	"github.com/hrygo/polyglot/ai/core/llm"
	"github.com/hrygo/polyglot/ai/translate"
	"github.com/hrygo/polyglot/ai/tutor"
)

type promptParams struct {
	Level          tutor.Level
	Mode           tutor.SessionMode
	Topic          string
	TargetLanguage string
	Summary        string
	MinSentences   int
	MaxSentences   int
	MaxCorrections int
}

// buildSystemPrompt renders the tutor persona and the correction annotation contract.
func buildSystemPrompt(p promptParams) string {
	var b strings.Builder
	language := translate.LanguageName(p.TargetLanguage)

	fmt.Fprintf(&b, "You are a friendly %s conversation partner for a learner at CEFR level %s.\n", language, p.Level.CEFR())
	if p.Mode == tutor.ModeBuddy {
		b.WriteString("Act as a relaxed chat buddy. Keep the conversation flowing and only point out mistakes that block understanding.\n")
	} else {
		b.WriteString("Act as a patient tutor. Answer naturally, then ask one follow-up question to keep the learner talking.\n")
	}
	fmt.Fprintf(&b, "Reply in %s with %d to %d short sentences and vocabulary suited to the learner's level.\n",
		language, p.MinSentences, p.MaxSentences)
	if p.Topic != "" {
		fmt.Fprintf(&b, "The conversation topic is %s.\n", p.Topic)
	}
	if p.Summary != "" {
		fmt.Fprintf(&b, "Earlier in this conversation: %s\n", p.Summary)
	}
	fmt.Fprintf(&b, "\nIf the learner's last message contains mistakes, list at most %d of them after your reply, one per line, exactly in this form:\n", p.MaxCorrections)
	b.WriteString("Correction: <original> → <corrected> (<grammar|vocabulary|pronunciation|style>): <short explanation>\n")
	b.WriteString("Do not mention the corrections anywhere else in your reply.")
	return b.String()
}

// historyMessages converts cached turns into model messages.
func historyMessages(history []tutor.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		if m.Role == tutor.RoleUser {
			out = append(out, llm.UserMessage(m.Content))
		} else {
			out = append(out, llm.AssistantMessage(m.Content))
		}
	}
	return out
}

const exerciseSystemPrompt = "You write one short practice exercise for a language learner. " +
	"Reply with the exercise only, in plain text, in under 400 characters. Do not include the answer."
