package pedagogy

import (
	"sort"

	"github.com/hrygo/polyglot/ai/format"
	"github.com/hrygo/polyglot/ai/tutor"
)

// ResponseFormatter fits a raw reply into the configured sentence budget.
type ResponseFormatter struct {
	constraints Constraints
	phrases     *Phrasebook
	picker      Picker
	prefixes    []string
}

func NewResponseFormatter(c Constraints, phrases *Phrasebook, picker Picker) *ResponseFormatter {
	if phrases == nil {
		phrases = DefaultPhrasebook()
	}
	if picker == nil {
		picker = FixedPicker(0)
	}
	return &ResponseFormatter{
		constraints: c,
		phrases:     phrases,
		picker:      picker,
		prefixes:    format.DefaultAnnotationPrefixes,
	}
}

// Format strips correction annotations, splits the reply into sentences and
// pads or trims it into [MinSentences, MaxSentences].
func (f *ResponseFormatter) Format(raw string, level tutor.Level) string {
	sentences := format.SplitSentences(format.StripAnnotations(raw, f.prefixes))

	switch {
	case len(sentences) < f.constraints.MinSentences:
		sentences = f.pad(sentences, level)
	case len(sentences) > f.constraints.MaxSentences:
		sentences = f.trim(sentences)
	}
	return format.JoinSentences(sentences)
}

// pad appends level phrases, cycling from a picked start, until the minimum is met.
func (f *ResponseFormatter) pad(sentences []string, level tutor.Level) []string {
	phrases := f.phrases.padding(level)
	if len(phrases) == 0 {
		return sentences
	}
	start := f.picker.Pick(len(phrases))
	for i := 0; len(sentences) < f.constraints.MinSentences; i++ {
		sentences = append(sentences, phrases[(start+i)%len(phrases)])
	}
	return sentences
}

// trim keeps the first and last sentence and fills the rest of the budget
// with the shortest middle sentences, in their original order.
func (f *ResponseFormatter) trim(sentences []string) []string {
	limit := f.constraints.MaxSentences
	if limit < 2 {
		return sentences[:limit]
	}

	middle := make([]int, 0, len(sentences)-2)
	for i := 1; i < len(sentences)-1; i++ {
		middle = append(middle, i)
	}
	sort.SliceStable(middle, func(a, b int) bool {
		return len(sentences[middle[a]]) < len(sentences[middle[b]])
	})
	keep := middle[:limit-2]
	sort.Ints(keep)

	out := make([]string, 0, limit)
	out = append(out, sentences[0])
	for _, i := range keep {
		out = append(out, sentences[i])
	}
	return append(out, sentences[len(sentences)-1])
}
