// Package format holds the text primitives used to shape tutor replies:
// annotation stripping, sentence splitting and markdown flattening.
package format

import (
	"regexp"
	"strings"
	"unicode"
)

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]*`)

// DefaultAnnotationPrefixes are the line prefixes models use for inline corrections.
var DefaultAnnotationPrefixes = []string{"Correction:"}

// StripAnnotations removes every line whose trimmed text starts with one of
// prefixes (case-insensitive) and collapses runs of blank lines into one.
func StripAnnotations(text string, prefixes []string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	kept := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if hasPrefixFold(trimmed, prefixes) {
			continue
		}
		if trimmed == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func hasPrefixFold(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
			return true
		}
	}
	return false
}

// SplitSentences splits text on runs of terminal punctuation. Each sentence
// keeps its own terminator, internal whitespace is collapsed, and fragments
// with no letters or digits are dropped.
func SplitSentences(text string) []string {
	var out []string
	for _, frag := range sentenceRe.FindAllString(text, -1) {
		s := strings.Join(strings.Fields(frag), " ")
		if !hasWordRune(s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// CountSentences is len(SplitSentences(text)).
func CountSentences(text string) int {
	return len(SplitSentences(text))
}

func hasWordRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// EnsureTerminal appends a period when s does not end in . ! or ?.
func EnsureTerminal(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return s
	}
	return s + "."
}

// JoinSentences terminates every sentence and joins them with single spaces.
func JoinSentences(sentences []string) string {
	parts := make([]string, 0, len(sentences))
	for _, s := range sentences {
		if s = EnsureTerminal(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Truncate shortens s to at most maxRunes runes, cutting at the last word
// boundary that fits and terminating the result. Shorter text is returned as is.
func Truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return s
	}
	// One rune stays free for the terminator EnsureTerminal may add.
	cut := string(runes[:maxRunes-1])
	if i := strings.LastIndexFunc(cut, unicode.IsSpace); i > 0 {
		cut = cut[:i]
	}
	return EnsureTerminal(strings.TrimRightFunc(cut, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';' || r == ':'
	}))
}
