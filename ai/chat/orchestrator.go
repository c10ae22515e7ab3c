// Package chat runs a tutoring turn end to end: it reads the session window
// from memory, calls the model, hands the reply to the pedagogy engine and
// records both messages.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hrygo/polyglot/ai/core/llm"
	"github.com/hrygo/polyglot/ai/filter"
	"github.com/hrygo/polyglot/ai/format"
	"github.com/hrygo/polyglot/ai/memory"
	"github.com/hrygo/polyglot/ai/observability/logging"
	"github.com/hrygo/polyglot/ai/pedagogy"
	"github.com/hrygo/polyglot/ai/tutor"
	"github.com/hrygo/polyglot/store"
)

var (
	// ErrSessionNotFound is returned for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionEnded is returned when a turn targets an ended session.
	ErrSessionEnded = errors.New("session ended")
)

const (
	purposeReply    = "reply"
	purposeExercise = "exercise"

	previewRunes = 80
)

// SessionRepository persists session metadata. *store.Store implements it.
type SessionRepository interface {
	CreateTutorSession(ctx context.Context, create *store.TutorSession) (*store.TutorSession, error)
	GetTutorSession(ctx context.Context, id string) (*store.TutorSession, error)
	UpdateTutorSession(ctx context.Context, update *store.UpdateTutorSession) (*store.TutorSession, error)
}

// Recorder receives turn and model-call measurements.
// *metrics.PrometheusExporter implements it.
type Recorder interface {
	TurnStarted() func()
	RecordTurn(mode string, latency time.Duration, success bool)
	RecordLLMCall(model, purpose string, latency time.Duration, promptTokens, completionTokens int)
	RecordLLMError(model, purpose string)
}

type nopRecorder struct{}

func (nopRecorder) TurnStarted() func()                                   { return func() {} }
func (nopRecorder) RecordTurn(string, time.Duration, bool)                {}
func (nopRecorder) RecordLLMCall(string, string, time.Duration, int, int) {}
func (nopRecorder) RecordLLMError(string, string)                         {}

// Config holds orchestrator settings.
type Config struct {
	// Model labels metrics; it does not select the model.
	Model          string
	DefaultLevel   tutor.Level
	NativeLanguage string
	TargetLanguage string
	// HistoryLimit caps the cached messages sent to the model.
	HistoryLimit    int
	ReplyTimeout    time.Duration
	ExerciseTimeout time.Duration
}

// DefaultConfig returns the settings used by the CLI.
func DefaultConfig() Config {
	return Config{
		DefaultLevel:    tutor.LevelA2,
		NativeLanguage:  "tr",
		TargetLanguage:  "en",
		HistoryLimit:    10,
		ReplyTimeout:    60 * time.Second,
		ExerciseTimeout: 20 * time.Second,
	}
}

// Orchestrator is the only caller of session memory and the pedagogy engine.
type Orchestrator struct {
	cfg      Config
	memory   memory.Manager
	engine   *pedagogy.Engine
	llm      llm.Service
	sessions SessionRepository
	recorder Recorder
	redactor *filter.Redactor
	logger   *slog.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder reports measurements to r.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithLogger sets the fallback logger used when a context carries none.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOrchestrator wires the collaborators. llmSvc may be nil, in which case
// every turn uses the canned fallback reply.
func NewOrchestrator(cfg Config, mem memory.Manager, engine *pedagogy.Engine, llmSvc llm.Service, sessions SessionRepository, opts ...Option) *Orchestrator {
	def := DefaultConfig()
	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = def.DefaultLevel
	}
	if cfg.NativeLanguage == "" {
		cfg.NativeLanguage = def.NativeLanguage
	}
	if cfg.TargetLanguage == "" {
		cfg.TargetLanguage = def.TargetLanguage
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = def.HistoryLimit
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = def.ReplyTimeout
	}
	if cfg.ExerciseTimeout <= 0 {
		cfg.ExerciseTimeout = def.ExerciseTimeout
	}

	o := &Orchestrator{
		cfg:      cfg,
		memory:   mem,
		engine:   engine,
		llm:      llmSvc,
		sessions: sessions,
		recorder: nopRecorder{},
		redactor: filter.Default(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StartParams describes a new session. Empty fields take the configured defaults.
type StartParams struct {
	ID             string
	UserID         string
	Level          string
	Mode           string
	Topic          string
	NativeLanguage string
	TargetLanguage string
}

// StartSession creates a session, or returns it unchanged when the id
// already belongs to an active session.
func (o *Orchestrator) StartSession(ctx context.Context, p StartParams) (*store.TutorSession, error) {
	if p.ID != "" {
		existing, err := o.sessions.GetTutorSession(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get session: %w", err)
		}
		if existing != nil {
			if existing.EndedTs != 0 {
				return nil, fmt.Errorf("%w: %s", ErrSessionEnded, p.ID)
			}
			return existing, nil
		}
	}

	level := o.cfg.DefaultLevel
	if p.Level != "" {
		parsed, err := tutor.ParseLevel(p.Level)
		if err != nil {
			return nil, err
		}
		level = parsed
	}
	mode, err := tutor.ParseSessionMode(p.Mode)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	create := &store.TutorSession{
		ID:             p.ID,
		UserID:         p.UserID,
		Level:          string(level),
		Mode:           string(mode),
		Topic:          strings.TrimSpace(p.Topic),
		NativeLanguage: firstNonEmpty(p.NativeLanguage, o.cfg.NativeLanguage),
		TargetLanguage: firstNonEmpty(p.TargetLanguage, o.cfg.TargetLanguage),
		CreatedTs:      now,
		UpdatedTs:      now,
	}
	if create.ID == "" {
		create.ID = uuid.NewString()
	}

	session, err := o.sessions.CreateTutorSession(ctx, create)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	o.log(ctx).Info("chat: session started", "session_id", session.ID, "level", session.Level, "mode", session.Mode)
	return session, nil
}

// TurnResult is what a processed turn returns to the caller.
type TurnResult struct {
	SessionID        string                       `json:"session_id"`
	UserMessage      tutor.Message                `json:"user_message"`
	AssistantMessage tutor.Message                `json:"assistant_message"`
	Feedback         *pedagogy.StructuredFeedback `json:"structured_feedback,omitempty"`
	Metadata         pedagogy.Metadata            `json:"metadata"`
	// Fallback is set when the model could not be reached.
	Fallback bool `json:"fallback,omitempty"`
}

// ProcessTurn handles one learner message. It fails only on validation
// errors, unknown or ended sessions, and durable-store outages; model and
// enrichment failures degrade to a plain reply.
func (o *Orchestrator) ProcessTurn(ctx context.Context, sessionID, content string) (_ *TurnResult, err error) {
	start := time.Now()
	done := o.recorder.TurnStarted()
	defer done()

	session, err := o.activeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	level, mode := o.sessionSettings(session)
	defer func() {
		o.recorder.RecordTurn(string(mode), time.Since(start), err == nil)
	}()

	logger := o.log(ctx).With("session_id", sessionID)
	ctx = logging.ToContext(ctx, logger)

	if err := o.memory.LoadSessionContext(ctx, sessionID); err != nil {
		return nil, err
	}

	userMsg, err := tutor.NewMessage(tutor.MessageParams{
		SessionID: sessionID,
		Role:      tutor.RoleUser,
		Content:   content,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("chat: learner message", "preview", o.redactor.Preview(userMsg.Content, previewRunes))

	history := o.memory.GetRecentMessages(sessionID, o.cfg.HistoryLimit)
	summary, _ := o.memory.GetConversationSummary(sessionID)

	if err := o.memory.AddMessage(ctx, userMsg); err != nil {
		return nil, err
	}
	counters, _ := o.memory.Counters(sessionID)

	raw, candidates, fallback := o.reply(ctx, session, level, mode, history, summary, userMsg.Content)

	res := o.engine.Process(ctx, pedagogy.TurnInput{
		SessionID:      sessionID,
		RawResponse:    format.PlainText(raw),
		Candidates:     candidates,
		Level:          level,
		Mode:           mode,
		RecentMessages: o.memory.GetRecentMessages(sessionID, 0),
		UserTurn:       counters.UserTurnCount,
		LastExerciseAt: counters.LastExerciseAt,
		LastFeedbackAt: counters.LastFeedbackAt,
		NativeLanguage: session.NativeLanguage,
		TargetLanguage: session.TargetLanguage,
		Topic:          session.Topic,
	})

	var exercise string
	if res.ExercisePrompt != "" {
		exercise = o.exercise(ctx, res.ExercisePrompt, level, counters.UserTurnCount)
	}

	assistantMsg, err := tutor.NewMessage(tutor.MessageParams{
		SessionID:     sessionID,
		Role:          tutor.RoleAssistant,
		Content:       format.Truncate(res.FormattedResponse, tutor.MaxContentLength),
		Corrections:   res.SelectedCorrections,
		MicroExercise: exercise,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build assistant message: %w", err)
	}
	if err := o.memory.AddMessage(ctx, assistantMsg); err != nil {
		return nil, err
	}

	var cadence memory.CadenceUpdate
	if res.Metadata.ExerciseGenerated {
		cadence.ExerciseAt = counters.UserTurnCount
	}
	if res.Metadata.FeedbackGenerated {
		cadence.FeedbackAt = counters.UserTurnCount
	}
	o.memory.RecordCadence(sessionID, cadence)

	logger.Info("chat: turn processed",
		"user_turn", counters.UserTurnCount,
		"candidates", res.Metadata.CandidateCount,
		"selected", res.Metadata.SelectedCount,
		"exercise", exercise != "",
		"feedback", res.Feedback != nil,
		"fallback", fallback,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &TurnResult{
		SessionID:        sessionID,
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Feedback:         res.Feedback,
		Metadata:         res.Metadata,
		Fallback:         fallback,
	}, nil
}

// reply asks the model for the tutor reply and parses its correction
// annotations. On failure it returns a canned reply and pattern-based corrections.
func (o *Orchestrator) reply(ctx context.Context, session *store.TutorSession, level tutor.Level, mode tutor.SessionMode,
	history []tutor.Message, summary, content string) (string, []tutor.Correction, bool) {
	logger := logging.FromContext(ctx)
	if o.llm == nil {
		return fallbackReply(mode, level), basicCorrections(content), true
	}

	c := o.engine.Constraints()
	system := buildSystemPrompt(promptParams{
		Level:          level,
		Mode:           mode,
		Topic:          session.Topic,
		TargetLanguage: session.TargetLanguage,
		Summary:        summary,
		MinSentences:   c.MinSentences,
		MaxSentences:   c.MaxSentences,
		MaxCorrections: c.MaxCorrections,
	})

	out, err := o.chat(ctx, purposeReply, o.cfg.ReplyTimeout, llm.FormatMessages(system, content, historyMessages(history)))
	if err != nil || strings.TrimSpace(out) == "" {
		logger.Warn("chat: model reply failed, using fallback", "error", err)
		return fallbackReply(mode, level), basicCorrections(content), true
	}
	return out, ExtractCorrections(out), false
}

// exercise asks the model for the micro-exercise text. A canned exercise is
// used when the call fails or the text does not fit.
func (o *Orchestrator) exercise(ctx context.Context, prompt string, level tutor.Level, turn int) string {
	if o.llm == nil {
		return fallbackExercise(level, turn)
	}
	out, err := o.chat(ctx, purposeExercise, o.cfg.ExerciseTimeout, []llm.Message{
		llm.SystemPrompt(exerciseSystemPrompt),
		llm.UserMessage(prompt),
	})
	text := strings.TrimSpace(format.PlainText(out))
	if err != nil || text == "" || utf8.RuneCountInString(text) > tutor.MaxMicroExerciseLength {
		logging.FromContext(ctx).Warn("chat: exercise generation failed, using fallback",
			"error", err, "length", utf8.RuneCountInString(text))
		return fallbackExercise(level, turn)
	}
	return text
}

func (o *Orchestrator) chat(ctx context.Context, purpose string, timeout time.Duration, messages []llm.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, stats, err := o.llm.Chat(ctx, messages)
	if err != nil {
		o.recorder.RecordLLMError(o.cfg.Model, purpose)
		return "", err
	}
	var prompt, completion int
	if stats != nil {
		prompt, completion = stats.PromptTokens, stats.CompletionTokens
	}
	o.recorder.RecordLLMCall(o.cfg.Model, purpose, time.Since(start), prompt, completion)
	return out, nil
}

// EndSession flushes the session's cached messages to the store and marks
// it ended. Ending an ended session is a no-op.
func (o *Orchestrator) EndSession(ctx context.Context, sessionID string) (*store.TutorSession, error) {
	session, err := o.sessions.GetTutorSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	if err := o.memory.ClearSessionCache(ctx, sessionID); err != nil {
		return nil, err
	}
	if session.EndedTs != 0 {
		return session, nil
	}

	now := time.Now().Unix()
	session, err = o.sessions.UpdateTutorSession(ctx, &store.UpdateTutorSession{
		ID:        sessionID,
		EndedTs:   &now,
		UpdatedTs: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to end session: %w", err)
	}
	o.log(ctx).Info("chat: session ended", "session_id", sessionID)
	return session, nil
}

// History returns up to limit of the session's newest messages, loading the
// session into memory when needed. limit <= 0 returns the whole window.
func (o *Orchestrator) History(ctx context.Context, sessionID string, limit int) ([]tutor.Message, error) {
	session, err := o.sessions.GetTutorSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err := o.memory.LoadSessionContext(ctx, sessionID); err != nil {
		return nil, err
	}
	return o.memory.GetRecentMessages(sessionID, limit), nil
}

func (o *Orchestrator) activeSession(ctx context.Context, sessionID string) (*store.TutorSession, error) {
	session, err := o.sessions.GetTutorSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if session.EndedTs != 0 {
		return nil, fmt.Errorf("%w: %s", ErrSessionEnded, sessionID)
	}
	return session, nil
}

// sessionSettings reads level and mode back from the stored strings,
// falling back to the defaults for values written by older versions.
func (o *Orchestrator) sessionSettings(session *store.TutorSession) (tutor.Level, tutor.SessionMode) {
	level, err := tutor.ParseLevel(session.Level)
	if err != nil {
		level = o.cfg.DefaultLevel
	}
	mode, err := tutor.ParseSessionMode(session.Mode)
	if err != nil {
		mode = tutor.ModeTutor
	}
	return level, mode
}

func (o *Orchestrator) log(ctx context.Context) *slog.Logger {
	if l := logging.FromContext(ctx); l != slog.Default() {
		return l
	}
	return o.logger
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
