package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/hrygo/polyglot/ai/core/llm"
)

// llmSummarizer asks the model for a summary and degrades to the heuristic.
type llmSummarizer struct {
	llm     llm.Service
	timeout time.Duration
	logger  *slog.Logger
}

// NewSummarizer returns an LLM-backed summarizer. A nil service yields the
// heuristic summarizer.
func NewSummarizer(llmSvc llm.Service, logger *slog.Logger) Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &llmSummarizer{
		llm:     llmSvc,
		timeout: 15 * time.Second,
		logger:  logger,
	}
}

// NewHeuristicSummarizer returns a summarizer that never calls a model.
func NewHeuristicSummarizer() Summarizer {
	return heuristicSummarizer{}
}

type heuristicSummarizer struct{}

func (heuristicSummarizer) Summarize(_ context.Context, req *SummarizeRequest) (*SummarizeResponse, error) {
	return FallbackSummarize(req)
}

func (s *llmSummarizer) Summarize(ctx context.Context, req *SummarizeRequest) (*SummarizeResponse, error) {
	if s.llm == nil || len(req.Messages) == 0 {
		return FallbackSummarize(req)
	}
	maxLen := req.MaxLen
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var transcript strings.Builder
	for _, m := range req.Messages {
		fmt.Fprintf(&transcript, "%s: %s\n", m.Role, m.Content)
	}
	userPrompt := fmt.Sprintf("Summarize this language-learning conversation in at most %d characters:\n\n%s", maxLen, transcript.String())

	content, stats, err := s.llm.Chat(ctx, []llm.Message{
		llm.SystemPrompt(summarySystemPrompt),
		llm.UserMessage(userPrompt),
	})
	if err != nil {
		s.logger.Warn("summary: model call failed, using heuristic", "session_id", req.SessionID, "error", err)
		return FallbackSummarize(req)
	}

	text, topics := parseSummary(content)
	if text == "" {
		return FallbackSummarize(req)
	}
	if len(topics) == 0 {
		topics = ExtractKeyTopics(req.Messages)
	}

	resp := &SummarizeResponse{
		Summary:   truncateRunes(text, maxLen),
		KeyTopics: topics,
		Source:    "llm",
	}
	if stats != nil {
		resp.Latency = time.Duration(stats.TotalDurationMs) * time.Millisecond
	}
	return resp, nil
}

func parseSummary(content string) (string, []string) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var result struct {
		Summary   string   `json:"summary"`
		KeyTopics []string `json:"key_topics"`
	}
	if err := json.Unmarshal([]byte(content), &result); err == nil && result.Summary != "" {
		return strings.TrimSpace(result.Summary), result.KeyTopics
	}
	return content, nil
}

const summarySystemPrompt = `You summarize conversations between a language learner and a tutor.

Rules:
1. Stay within the requested length
2. Mention what the learner talked about and which mistakes recurred
3. Do not invent content that is not in the transcript
4. Reply with JSON only: {"summary": "...", "key_topics": ["..."]}`
