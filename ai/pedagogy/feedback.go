package pedagogy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hrygo/polyglot/ai/translate"
	"github.com/hrygo/polyglot/ai/tutor"
)

// FeedbackState is the position of a session in the feedback cycle.
type FeedbackState int

const (
	// FeedbackAccumulating means fewer than FeedbackCadence user turns have
	// passed, or too few user messages are cached.
	FeedbackAccumulating FeedbackState = iota
	// FeedbackReady means the next turn produces structured feedback.
	FeedbackReady
)

func (s FeedbackState) String() string {
	if s == FeedbackReady {
		return "ready"
	}
	return "accumulating"
}

// Translator is the optional translation collaborator.
type Translator interface {
	// IsNative reports whether text is written in the native rather than
	// the target language.
	IsNative(ctx context.Context, text, native, target string) (bool, error)
	Translate(ctx context.Context, text, source, target string) (string, error)
}

type StructuredFeedback struct {
	Continuation      string                  `json:"conversation_continuation"`
	Grammar           *GrammarFeedback        `json:"grammar_feedback,omitempty"`
	Corrections       []DetailedCorrection    `json:"error_corrections"`
	Alternatives      []AlternativeExpression `json:"alternative_expressions"`
	NativeTranslation string                  `json:"native_translation,omitempty"`
	MessageCount      int                     `json:"message_count"`
	Assessment        string                  `json:"overall_assessment"`
}

type GrammarFeedback struct {
	RuleName           string   `json:"rule_name"`
	Explanation        string   `json:"explanation"`
	CorrectUsage       string   `json:"correct_usage"`
	IncorrectUsage     string   `json:"incorrect_usage"`
	AdditionalExamples []string `json:"additional_examples"`
	Difficulty         string   `json:"difficulty_level"`
}

type DetailedCorrection struct {
	Original      string         `json:"original"`
	Correction    string         `json:"correction"`
	Explanation   string         `json:"explanation"`
	Category      tutor.Category `json:"category"`
	Examples      []string       `json:"examples"`
	RuleReference string         `json:"rule_reference,omitempty"`
}

type AlternativeExpression struct {
	Original    string `json:"original"`
	Alternative string `json:"alternative"`
	Context     string `json:"context"`
	Formality   string `json:"formality_level"`
	UsageNote   string `json:"usage_note,omitempty"`
}

// FeedbackInput is what one feedback cycle looks at.
type FeedbackInput struct {
	UserTurn       int
	LastFeedbackAt int // 0 before the first cycle
	// RecentUserMessages are the cached user messages, oldest first.
	RecentUserMessages []tutor.Message
	Corrections        []tutor.Correction
	Level              tutor.Level
	NativeLanguage     string
	TargetLanguage     string
	Topic              string
}

// StructuredFeedbackCycle assembles the periodic feedback aggregate.
type StructuredFeedbackCycle struct {
	selector   *CorrectionSelector
	phrases    *Phrasebook
	picker     Picker
	translator Translator
	logger     *slog.Logger
}

func NewStructuredFeedbackCycle(selector *CorrectionSelector, phrases *Phrasebook, picker Picker, translator Translator, logger *slog.Logger) *StructuredFeedbackCycle {
	if phrases == nil {
		phrases = DefaultPhrasebook()
	}
	if picker == nil {
		picker = FixedPicker(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StructuredFeedbackCycle{
		selector:   selector,
		phrases:    phrases,
		picker:     picker,
		translator: translator,
		logger:     logger,
	}
}

// FeedbackDue reports whether FeedbackCadence user turns have passed since the last cycle.
func FeedbackDue(userTurn, lastFeedbackAt int) bool {
	if lastFeedbackAt <= 0 {
		return userTurn >= FeedbackCadence
	}
	return userTurn-lastFeedbackAt >= FeedbackCadence
}

// FeedbackStateAt combines the cadence with the number of cached user messages.
func FeedbackStateAt(userTurn, lastFeedbackAt, cachedUserMessages int) FeedbackState {
	if FeedbackDue(userTurn, lastFeedbackAt) && cachedUserMessages >= FeedbackCadence {
		return FeedbackReady
	}
	return FeedbackAccumulating
}

// Run returns the feedback for this turn, or nil when the cycle is not
// ready or assembly failed. It never returns an error.
func (c *StructuredFeedbackCycle) Run(ctx context.Context, in FeedbackInput) (fb *StructuredFeedback) {
	if FeedbackStateAt(in.UserTurn, in.LastFeedbackAt, len(in.RecentUserMessages)) != FeedbackReady {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("structured feedback assembly panicked", "user_turn", in.UserTurn, "panic", r)
			fb = nil
		}
	}()

	messages := in.RecentUserMessages[len(in.RecentUserMessages)-FeedbackCadence:]
	ranked := c.selector.Rank(in.Corrections, in.Level, nil)

	fb = &StructuredFeedback{
		Continuation: c.continuation(messages, in.Level, in.Topic),
		Grammar:      grammarFeedback(ranked, in.Level),
		Corrections:  detailedCorrections(ranked),
		Alternatives: alternatives(messages, in.Level),
		MessageCount: len(messages),
		Assessment:   c.assessment(len(in.Corrections), in.Level),
	}
	fb.NativeTranslation = c.translate(ctx, messages, in.NativeLanguage, in.TargetLanguage)
	return fb
}

func (c *StructuredFeedbackCycle) continuation(messages []tutor.Message, level tutor.Level, topic string) string {
	if len(messages) == 0 {
		return "Let's continue our conversation. What would you like to talk about next?"
	}
	options := c.phrases.continuation(level, topic)
	return options[c.picker.Pick(len(options))]
}

func grammarFeedback(ranked []ScoredCorrection, level tutor.Level) *GrammarFeedback {
	var best *tutor.Correction
	for i := range ranked {
		if ranked[i].Correction.Category == tutor.CategoryGrammar {
			best = &ranked[i].Correction
			break
		}
	}
	if best == nil {
		return nil
	}

	gf := &GrammarFeedback{
		CorrectUsage:   best.Correction,
		IncorrectUsage: best.Original,
		Difficulty:     level.Difficulty(),
	}
	switch explanationTopic(best.Explanation) {
	case "verb":
		gf.RuleName = "Verb Tense Agreement"
		gf.Explanation = "Verbs must agree with their subjects and use correct tense"
		gf.AdditionalExamples = []string{"I go to school", "She goes to school", "They went yesterday"}
	case "article":
		gf.RuleName = "Article Usage"
		gf.Explanation = "Use 'the' for specific items, 'a/an' for general items"
		gf.AdditionalExamples = []string{"The book on the table", "A book is useful", "An apple a day"}
	case "preposition":
		gf.RuleName = "Preposition Selection"
		gf.Explanation = "Different verbs and contexts require specific prepositions"
		gf.AdditionalExamples = []string{"Listen to music", "Look at the picture", "Think about it"}
	default:
		gf.RuleName = "Grammar Rule"
		gf.Explanation = best.Explanation
		gf.AdditionalExamples = []string{"Practice makes perfect", "Keep studying!", "You're improving!"}
	}
	return gf
}

// explanationTopic finds the grammar keyword an explanation is about.
func explanationTopic(explanation string) string {
	lower := strings.ToLower(explanation)
	for _, kw := range []string{"verb", "article", "preposition"} {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}

func detailedCorrections(ranked []ScoredCorrection) []DetailedCorrection {
	n := min(len(ranked), 3)
	out := make([]DetailedCorrection, 0, n)
	for _, sc := range ranked[:n] {
		c := sc.Correction
		out = append(out, DetailedCorrection{
			Original:      c.Original,
			Correction:    c.Correction,
			Explanation:   c.Explanation,
			Category:      c.Category,
			Examples:      correctionExamples(c),
			RuleReference: ruleReference(c),
		})
	}
	return out
}

func correctionExamples(c tutor.Correction) []string {
	switch c.Category {
	case tutor.CategoryGrammar:
		switch explanationTopic(c.Explanation) {
		case "verb":
			last := c.Correction
			if fields := strings.Fields(c.Correction); len(fields) > 0 {
				last = fields[len(fields)-1]
			}
			return []string{"Correct: " + c.Correction, fmt.Sprintf("Also correct: I %s every day", last)}
		case "article":
			return []string{"Correct: " + c.Correction, "The article is needed here"}
		default:
			return []string{"Correct: " + c.Correction, "This follows standard grammar rules"}
		}
	case tutor.CategoryVocabulary:
		return []string{"Better word choice: " + c.Correction, "This word fits the context better"}
	default:
		return []string{"Improved version: " + c.Correction, "This sounds more natural"}
	}
}

func ruleReference(c tutor.Correction) string {
	if c.Category != tutor.CategoryGrammar {
		return ""
	}
	switch explanationTopic(c.Explanation) {
	case "verb":
		return "Present tense verb conjugation"
	case "article":
		return "Definite article usage"
	case "preposition":
		return "Preposition selection"
	default:
		return "Basic grammar rules"
	}
}

// alternatives suggests up to two rephrasings drawn from the last two
// substantial user messages.
func alternatives(messages []tutor.Message, level tutor.Level) []AlternativeExpression {
	if len(messages) > 2 {
		messages = messages[len(messages)-2:]
	}
	var out []AlternativeExpression
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if len([]rune(content)) <= 10 {
			continue
		}
		if alt, ok := alternativeFor(content, level); ok {
			out = append(out, alt)
		}
	}
	if len(out) > 2 {
		out = out[:2]
	}
	return out
}

func alternativeFor(content string, level tutor.Level) (AlternativeExpression, bool) {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(content, "I think"):
		alt := "I believe"
		if level.AtLeast(tutor.LevelB1) {
			alt = "In my opinion"
		}
		return AlternativeExpression{
			Original:    "I think",
			Alternative: alt,
			Context:     "Expressing opinions",
			Formality:   "neutral",
			UsageNote:   "More formal way to express your thoughts",
		}, true
	case strings.Contains(lower, "very good"):
		alt := "really good"
		if level.AtLeast(tutor.LevelA2) {
			alt = "excellent"
		}
		return AlternativeExpression{
			Original:    "very good",
			Alternative: alt,
			Context:     "Describing quality",
			Formality:   "neutral",
			UsageNote:   "More precise and natural expression",
		}, true
	case strings.Contains(lower, "a lot of"):
		alt := "much"
		if strings.Contains(content, "people") || strings.Contains(content, "things") {
			alt = "many"
		}
		return AlternativeExpression{
			Original:    "a lot of",
			Alternative: alt,
			Context:     "Expressing quantity",
			Formality:   "neutral",
			UsageNote:   "More precise quantifier",
		}, true
	}
	return AlternativeExpression{}, false
}

// translate renders the first user message written in the native language.
// Any failure omits the translation.
func (c *StructuredFeedbackCycle) translate(ctx context.Context, messages []tutor.Message, native, target string) string {
	if c.translator == nil || native == "" || target == "" || strings.EqualFold(native, target) {
		return ""
	}
	native, target = strings.ToLower(native), strings.ToLower(target)
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		isNative, err := c.translator.IsNative(ctx, content, native, target)
		if err != nil {
			c.logger.Warn("native language detection failed", "error", err)
			return ""
		}
		if !isNative {
			continue
		}
		translated, err := c.translator.Translate(ctx, content, native, target)
		if err != nil || strings.TrimSpace(translated) == "" {
			c.logger.Warn("translation failed, omitting native translation", "error", err)
			return ""
		}
		return fmt.Sprintf("%s translation: %s", translate.LanguageName(target), strings.TrimSpace(translated))
	}
	return ""
}

func (c *StructuredFeedbackCycle) assessment(corrections int, level tutor.Level) string {
	key := "coaching"
	switch {
	case corrections == 0:
		key = "positive"
	case corrections <= 2:
		key = "encouraging"
	}
	options := c.phrases.Assessment[key]
	text := options[c.picker.Pick(len(options))]

	suffix := ""
	switch {
	case level.IsBeginner():
		suffix = c.phrases.AssessmentSuffix["beginner"]
	case level.CEFR() == tutor.LevelB1:
		suffix = c.phrases.AssessmentSuffix["intermediate"]
	}
	if suffix != "" {
		text += " " + suffix
	}
	return text
}
