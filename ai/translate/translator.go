// Package translate provides the translation collaborator used by the
// structured feedback cycle.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/hrygo/polyglot/ai/core/llm"
)

var (
	// ErrEmptyText is returned when there is nothing to translate.
	ErrEmptyText = errors.New("empty text")
	// ErrEmptyTranslation is returned when the model answers with nothing.
	ErrEmptyTranslation = errors.New("empty translation")
)

// LLMTranslator translates with the chat model and detects the native
// language heuristically. Model calls are rate limited.
type LLMTranslator struct {
	llm     llm.Service
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewLLMTranslator creates a translator allowing rps model calls per second.
// A non-positive rps disables limiting.
func NewLLMTranslator(svc llm.Service, rps float64, logger *slog.Logger) *LLMTranslator {
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = max(1, int(rps))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMTranslator{
		llm:     svc,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

func (t *LLMTranslator) IsNative(_ context.Context, text, native, target string) (bool, error) {
	return LooksNative(text, native, target), nil
}

// Translate waits for the limiter, then asks the model for a plain translation.
func (t *LLMTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("translation rate limit: %w", err)
	}

	prompt := fmt.Sprintf(
		"Translate the user's text from %s to %s. Reply with the translation only, without quotes or notes.",
		LanguageName(source), LanguageName(target),
	)
	out, stats, err := t.llm.Chat(ctx, []llm.Message{llm.SystemPrompt(prompt), llm.UserMessage(text)})
	if err != nil {
		return "", fmt.Errorf("failed to translate: %w", err)
	}
	out = strings.Trim(strings.TrimSpace(out), `"`)
	if out == "" {
		return "", ErrEmptyTranslation
	}
	if stats != nil {
		t.logger.Debug("translate: done", "source", source, "target", target, "duration_ms", stats.TotalDurationMs)
	}
	return out, nil
}

var languageNames = map[string]string{
	"en": "English", "es": "Spanish", "fr": "French", "de": "German",
	"it": "Italian", "pt": "Portuguese", "tr": "Turkish", "ar": "Arabic",
	"zh": "Chinese", "ja": "Japanese", "ko": "Korean", "ru": "Russian",
}

// LanguageName maps an ISO 639-1 code to an English name; unknown codes are upper-cased.
func LanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return strings.ToUpper(code)
}
