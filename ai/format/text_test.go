package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripAnnotations(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"no annotations", "Hello there.\nHow are you?", "Hello there.\nHow are you?"},
		{"drops marker lines", "Great job!\nCorrection: I went, not I goed.\nKeep going.", "Great job!\nKeep going."},
		{"case insensitive and indented", "Hi.\n   correction: x\nBye.", "Hi.\nBye."},
		{"collapses blank runs", "One.\n\nCorrection: x\n\n\nTwo.", "One.\n\nTwo."},
		{"only annotations", "Correction: a\nCorrection: b", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripAnnotations(tc.in, DefaultAnnotationPrefixes))
		})
	}
}

func TestSplitSentences(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single without terminator", "hello world", []string{"hello world"}},
		{"mixed terminators", "Hi! How are you? I am fine.", []string{"Hi!", "How are you?", "I am fine."}},
		{"punctuation runs", "Really?! Wow... ok", []string{"Really?!", "Wow...", "ok"}},
		{"drops punctuation-only fragments", "... . Hello.", []string{"Hello."}},
		{"collapses whitespace", "Line one\n  continues here. Next.", []string{"Line one continues here.", "Next."}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SplitSentences(tc.in))
		})
	}
}

func TestJoinSentences_IsStableUnderResplit(t *testing.T) {
	sentences := []string{"Hello", "How are you?", "Great!", "ok..."}
	joined := JoinSentences(sentences)
	assert.Equal(t, "Hello. How are you? Great! ok...", joined)
	assert.Equal(t, len(sentences), CountSentences(joined))
}

func TestPlainText(t *testing.T) {
	in := "# Title\n\nThis is **bold** and *italic* with `code`.\n\n- first item\n- second item\n"
	got := PlainText(in)
	assert.Contains(t, got, "Title")
	assert.Contains(t, got, "This is bold and italic with code.")
	assert.Contains(t, got, "first item")
	assert.NotContains(t, got, "**")
	assert.NotContains(t, got, "`")
}

func TestTruncate(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"fits", "Short reply.", 20, "Short reply."},
		{"exact", "abcde", 5, "abcde"},
		{"cuts at word boundary", "one two three four", 12, "one two."},
		{"drops trailing comma", "one, two three", 7, "one."},
		{"no space keeps prefix", "abcdefghij", 5, "abcd."},
		{"counts runes", "çok güzel bir gün", 11, "çok güzel."},
		{"disabled", "anything", 0, "anything"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Truncate(tc.in, tc.max)
			assert.Equal(t, tc.want, got)
			if tc.max > 0 {
				assert.LessOrEqual(t, len([]rune(got)), tc.max)
			}
		})
	}
}
