package memory

import (
	"context"

	"github.com/hrygo/polyglot/ai/tutor"
)

// RepositorySink appends overflow messages one by one to a MessageRepository.
type RepositorySink struct {
	repo MessageRepository
}

// NewRepositorySink wraps repo as an OverflowSink.
func NewRepositorySink(repo MessageRepository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

func (s *RepositorySink) Persist(ctx context.Context, messages []tutor.Message) (int, error) {
	for i, m := range messages {
		if err := s.repo.Append(ctx, m); err != nil {
			return i, err
		}
	}
	return len(messages), nil
}

var _ OverflowSink = (*RepositorySink)(nil)
