package pedagogy

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/polyglot/ai/format"
	"github.com/hrygo/polyglot/ai/tutor"
)

// recentCorrectionMessages is how far back the engine looks for corrections
// already shown to the learner.
const recentCorrectionMessages = 10

// Engine runs the per-turn pedagogical decisions.
type Engine struct {
	constraints Constraints
	formatter   *ResponseFormatter
	selector    *CorrectionSelector
	scheduler   *ExerciseScheduler
	feedback    *StructuredFeedbackCycle
	stats       *Stats
	logger      *slog.Logger
}

type engineOptions struct {
	phrases    *Phrasebook
	picker     Picker
	translator Translator
	stats      *Stats
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*engineOptions)

// WithPicker sets the phrase selection strategy. The default always picks the first phrase.
func WithPicker(p Picker) Option {
	return func(o *engineOptions) { o.picker = p }
}

func WithPhrasebook(pb *Phrasebook) Option {
	return func(o *engineOptions) { o.phrases = pb }
}

func WithTranslator(t Translator) Option {
	return func(o *engineOptions) { o.translator = t }
}

// WithStats makes the engine count its decisions into s.
func WithStats(s *Stats) Option {
	return func(o *engineOptions) { o.stats = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *engineOptions) { o.logger = l }
}

// NewEngine validates c and wires the components.
func NewEngine(c Constraints, opts ...Option) (*Engine, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	o := engineOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.phrases == nil {
		o.phrases = DefaultPhrasebook()
	}
	if o.picker == nil {
		o.picker = FixedPicker(0)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	selector := NewCorrectionSelector(c)
	return &Engine{
		constraints: c,
		formatter:   NewResponseFormatter(c, o.phrases, o.picker),
		selector:    selector,
		scheduler:   NewExerciseScheduler(c.ExerciseCadence),
		feedback:    NewStructuredFeedbackCycle(selector, o.phrases, o.picker, o.translator, o.logger),
		stats:       o.stats,
		logger:      o.logger,
	}, nil
}

func (e *Engine) Constraints() Constraints {
	return e.constraints
}

// TurnInput is everything the engine needs for one user turn.
type TurnInput struct {
	SessionID   string
	RawResponse string
	Candidates  []tutor.Correction
	Level       tutor.Level
	Mode        tutor.SessionMode

	// RecentMessages is the cached window, oldest first, including the
	// current user message.
	RecentMessages []tutor.Message

	// UserTurn numbers the current user message within the session, from 1.
	UserTurn       int
	LastExerciseAt int // user turn of the last exercise, 0 if none
	LastFeedbackAt int // user turn of the last feedback cycle, 0 if none

	NativeLanguage string
	TargetLanguage string
	Topic          string
}

// Metadata describes what the engine did with a turn.
type Metadata struct {
	OriginalSentenceCount  int         `json:"original_sentence_count"`
	FormattedSentenceCount int         `json:"formatted_sentence_count"`
	CandidateCount         int         `json:"total_corrections_available"`
	SelectedCount          int         `json:"corrections_selected"`
	ExerciseGenerated      bool        `json:"exercise_generated"`
	FeedbackGenerated      bool        `json:"structured_feedback_generated"`
	Level                  tutor.Level `json:"proficiency_level"`
	ProcessedAt            time.Time   `json:"processing_timestamp"`
}

// Result is the engine's decision for one turn.
type Result struct {
	FormattedResponse   string
	SelectedCorrections []tutor.Correction
	// ExercisePrompt asks the model for a micro-exercise. Empty when none is due.
	ExercisePrompt string
	Feedback       *StructuredFeedback
	Metadata       Metadata
}

// Process formats the reply, selects corrections and runs both cadence
// gates. The exercise and feedback cadences are independent and may fire on
// the same turn.
func (e *Engine) Process(ctx context.Context, in TurnInput) Result {
	level := in.Level
	if level == "" {
		level = tutor.LevelA2
	}

	formatted := e.formatter.Format(in.RawResponse, level)
	recent := recentCorrections(in.RecentMessages)
	selected := e.selector.Select(in.Candidates, level, recent)

	var exercisePrompt string
	if in.Mode != tutor.ModeBuddy && e.scheduler.ShouldGenerate(in.UserTurn, selected, in.LastExerciseAt) {
		exercisePrompt = BuildExercisePrompt(selected, level, in.Topic)
	}

	fb := e.feedback.Run(ctx, FeedbackInput{
		UserTurn:           in.UserTurn,
		LastFeedbackAt:     in.LastFeedbackAt,
		RecentUserMessages: userMessages(in.RecentMessages),
		Corrections:        append(recent, selected...),
		Level:              level,
		NativeLanguage:     in.NativeLanguage,
		TargetLanguage:     in.TargetLanguage,
		Topic:              in.Topic,
	})

	res := Result{
		FormattedResponse:   formatted,
		SelectedCorrections: selected,
		ExercisePrompt:      exercisePrompt,
		Feedback:            fb,
		Metadata: Metadata{
			OriginalSentenceCount:  format.CountSentences(in.RawResponse),
			FormattedSentenceCount: format.CountSentences(formatted),
			CandidateCount:         len(in.Candidates),
			SelectedCount:          len(selected),
			ExerciseGenerated:      exercisePrompt != "",
			FeedbackGenerated:      fb != nil,
			Level:                  level,
			ProcessedAt:            time.Now().UTC(),
		},
	}
	e.stats.record(len(selected), res.Metadata.ExerciseGenerated, res.Metadata.FeedbackGenerated)

	e.logger.Debug("pedagogy: turn processed",
		"session_id", in.SessionID,
		"user_turn", in.UserTurn,
		"selected", len(selected),
		"candidates", len(in.Candidates),
		"exercise", res.Metadata.ExerciseGenerated,
		"feedback", res.Metadata.FeedbackGenerated,
	)
	return res
}

// recentCorrections collects the corrections attached to the last
// recentCorrectionMessages messages, oldest first.
func recentCorrections(messages []tutor.Message) []tutor.Correction {
	if len(messages) > recentCorrectionMessages {
		messages = messages[len(messages)-recentCorrectionMessages:]
	}
	var out []tutor.Correction
	for _, m := range messages {
		out = append(out, m.Corrections...)
	}
	return out
}

func userMessages(messages []tutor.Message) []tutor.Message {
	var out []tutor.Message
	for _, m := range messages {
		if m.Role == tutor.RoleUser {
			out = append(out, m)
		}
	}
	return out
}
