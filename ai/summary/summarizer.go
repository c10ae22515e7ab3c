package summary

import (
	"context"
	"time"

	"github.com/hrygo/polyglot/ai/tutor"
)

// Summarizer condenses a conversation window into a short summary.
type Summarizer interface {
	Summarize(ctx context.Context, req *SummarizeRequest) (*SummarizeResponse, error)
}

// SummarizeRequest carries the cached window of one session.
type SummarizeRequest struct {
	SessionID string
	Messages  []tutor.Message
	MaxLen    int // max summary length in runes, default 400
}

// SummarizeResponse is the generated summary.
type SummarizeResponse struct {
	Summary   string
	KeyTopics []string
	Source    string // "llm" | "heuristic"
	Latency   time.Duration
}
