package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/polyglot/ai/chat"
	"github.com/hrygo/polyglot/ai/core/llm"
	"github.com/hrygo/polyglot/ai/memory"
	"github.com/hrygo/polyglot/ai/metrics"
	"github.com/hrygo/polyglot/ai/pedagogy"
	"github.com/hrygo/polyglot/ai/summary"
	"github.com/hrygo/polyglot/ai/translate"
	"github.com/hrygo/polyglot/ai/tutor"
	"github.com/hrygo/polyglot/internal/profile"
	"github.com/hrygo/polyglot/store"
)

// Runtime holds the tutoring pipeline shared by the HTTP server and the REPL.
type Runtime struct {
	Chat    *chat.Orchestrator
	Memory  *memory.SessionStore
	Stats   *pedagogy.Stats
	Metrics *metrics.PrometheusExporter
	LLM     llm.Service // nil when no model is configured
}

// MemoryConfig builds the session memory config from the profile preset and overrides.
func MemoryConfig(p *profile.Profile) memory.Config {
	cfg := memory.ConfigForPreset(p.MemoryPreset)
	if p.CacheCapacity > 0 {
		cfg.CacheCapacity = p.CacheCapacity
	}
	if p.MessagesPerSession > 0 {
		cfg.MessagesPerSession = p.MessagesPerSession
	}
	if p.LockStrategy != "" {
		cfg.LockStrategy = p.LockStrategy
	}
	return cfg
}

// Constraints builds the pedagogical constraints from the profile.
func Constraints(p *profile.Profile) pedagogy.Constraints {
	c := pedagogy.DefaultConstraints()
	if p.ExerciseCadence > 0 {
		c.ExerciseCadence = p.ExerciseCadence
	}
	if p.MinSentences > 0 {
		c.MinSentences = p.MinSentences
	}
	if p.MaxSentences > 0 {
		c.MaxSentences = p.MaxSentences
	}
	return c
}

func newLLMService(p *profile.Profile) (llm.Service, string, error) {
	if !p.IsAIEnabled() {
		return nil, "", nil
	}
	model := p.LLMModel
	if model == "" {
		model = llm.ProviderDefaults[p.LLMProvider].Model
	}
	svc, err := llm.NewService(&llm.Config{
		Provider: p.LLMProvider,
		Model:    model,
		APIKey:   p.LLMAPIKey,
		BaseURL:  p.LLMBaseURL,
		Timeout:  p.LLMTimeout,
	})
	if err != nil {
		return nil, "", err
	}
	return svc, model, nil
}

// NewRuntime wires memory, pedagogy, translation and the model client for p.
func NewRuntime(p *profile.Profile, s *store.Store, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}

	level, err := tutor.ParseLevel(p.DefaultLevel)
	if err != nil {
		return nil, errors.Wrap(err, "invalid default level")
	}

	llmSvc, model, err := newLLMService(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create LLM service")
	}
	if llmSvc == nil {
		logger.Warn("no LLM API key configured, replies use canned fallbacks")
	}

	phrases := pedagogy.DefaultPhrasebook()
	if p.PhrasebookPath != "" {
		if phrases, err = pedagogy.LoadPhrasebook(p.PhrasebookPath); err != nil {
			return nil, errors.Wrapf(err, "failed to load phrasebook %s", p.PhrasebookPath)
		}
	}

	var picker pedagogy.Picker = &pedagogy.RoundRobinPicker{}
	if !p.IsDev() {
		picker = pedagogy.NewRandomPicker(uint64(time.Now().UnixNano()))
	}

	stats := &pedagogy.Stats{}
	engineOpts := []pedagogy.Option{
		pedagogy.WithPhrasebook(phrases),
		pedagogy.WithPicker(picker),
		pedagogy.WithStats(stats),
		pedagogy.WithLogger(logger),
	}
	memOpts := []memory.Option{memory.WithLogger(logger)}
	if llmSvc != nil {
		engineOpts = append(engineOpts, pedagogy.WithTranslator(translate.NewLLMTranslator(llmSvc, p.TranslateRPS, logger)))
		memOpts = append(memOpts, memory.WithSummarizer(summary.NewSummarizer(llmSvc, logger)))
	}

	engine, err := pedagogy.NewEngine(Constraints(p), engineOpts...)
	if err != nil {
		return nil, err
	}
	mem, err := memory.NewSessionStore(MemoryConfig(p), memory.NewStoreAdapter(s), memOpts...)
	if err != nil {
		return nil, err
	}

	exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())
	exporter.RegisterCacheStats(mem)
	exporter.RegisterPedagogyStats(stats)

	orch := chat.NewOrchestrator(chat.Config{
		Model:        model,
		DefaultLevel: level,
		ReplyTimeout: time.Duration(p.LLMTimeout) * time.Second,
	}, mem, engine, llmSvc, s,
		chat.WithRecorder(exporter),
		chat.WithLogger(logger),
	)

	return &Runtime{
		Chat:    orch,
		Memory:  mem,
		Stats:   stats,
		Metrics: exporter,
		LLM:     llmSvc,
	}, nil
}

// Close flushes every cached session to the store.
func (r *Runtime) Close(ctx context.Context) error {
	return r.Memory.Close(ctx)
}
