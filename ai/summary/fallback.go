package summary

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hrygo/polyglot/ai/tutor"
)

const (
	defaultMaxLen        = 400
	topicMessageWindow   = 5
	topicMinMessageLen   = 20
	topicMinWordLen      = 4
	topicWordsPerMessage = 3
	maxKeyTopics         = 5
)

// FallbackSummarize builds a summary from message counts and the salient
// words of the most recent messages. It never fails.
func FallbackSummarize(req *SummarizeRequest) (*SummarizeResponse, error) {
	maxLen := req.MaxLen
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}

	var users, assistants int
	for _, m := range req.Messages {
		switch m.Role {
		case tutor.RoleUser:
			users++
		case tutor.RoleAssistant:
			assistants++
		}
	}

	topics := ExtractKeyTopics(req.Messages)

	var b strings.Builder
	fmt.Fprintf(&b, "Conversation with %d user messages and %d assistant responses.", users, assistants)
	if len(topics) > 0 {
		fmt.Fprintf(&b, " Key topics: %s.", strings.Join(topics, ", "))
	}

	return &SummarizeResponse{
		Summary:   truncateRunes(b.String(), maxLen),
		KeyTopics: topics,
		Source:    "heuristic",
	}, nil
}

// ExtractKeyTopics picks up to five distinct words longer than four letters
// from the last five substantial messages, three per message at most.
func ExtractKeyTopics(messages []tutor.Message) []string {
	start := max(0, len(messages)-topicMessageWindow)

	seen := make(map[string]struct{})
	var topics []string
	for _, m := range messages[start:] {
		if utf8.RuneCountInString(m.Content) <= topicMinMessageLen {
			continue
		}
		taken := 0
		for _, w := range strings.Fields(strings.ToLower(m.Content)) {
			if taken == topicWordsPerMessage {
				break
			}
			w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
			if utf8.RuneCountInString(w) <= topicMinWordLen {
				continue
			}
			taken++
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			topics = append(topics, w)
			if len(topics) == maxKeyTopics {
				return topics
			}
		}
	}
	return topics
}

// truncateRunes cuts s to maxLen runes.
func truncateRunes(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
