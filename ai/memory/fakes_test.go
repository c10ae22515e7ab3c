package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/polyglot/ai/summary"
	"github.com/hrygo/polyglot/ai/tutor"
)

// fakeRepo is an in-memory MessageRepository and CounterRepository.
type fakeRepo struct {
	mu         sync.Mutex
	messages   map[string][]tutor.Message
	counters   map[string]SessionCounters
	appendErr  error
	listErr    error
	listCalls  int
	withCounts bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		messages: make(map[string][]tutor.Message),
		counters: make(map[string]SessionCounters),
	}
}

func (r *fakeRepo) Append(_ context.Context, msg tutor.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	r.messages[msg.SessionID] = append(r.messages[msg.SessionID], msg)
	return nil
}

func (r *fakeRepo) ListRecent(_ context.Context, sessionID string, limit int) ([]tutor.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	all := r.messages[sessionID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]tutor.Message(nil), all...), nil
}

func (r *fakeRepo) CountBySession(_ context.Context, sessionID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages[sessionID]), nil
}

func (r *fakeRepo) ids(sessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, m := range r.messages[sessionID] {
		ids = append(ids, m.ID)
	}
	return ids
}

func (r *fakeRepo) setAppendErr(err error) {
	r.mu.Lock()
	r.appendErr = err
	r.mu.Unlock()
}

// countingRepo adds CounterRepository support on top of fakeRepo.
type countingRepo struct {
	*fakeRepo
}

func (r countingRepo) SaveCounters(_ context.Context, c SessionCounters) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[c.SessionID] = c
	return nil
}

func (r countingRepo) LoadCounters(_ context.Context, sessionID string) (SessionCounters, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counters[sessionID]
	return c, ok, nil
}

// gatedLocker parks the n-th Lock call for one session until release is
// closed, signalling reached once it is parked. The section is not held
// while parked.
type gatedLocker struct {
	Locker
	sessionID string
	gateAt    int32
	calls     atomic.Int32
	reached   chan struct{}
	release   chan struct{}
}

func newGatedLocker(inner Locker, sessionID string, n int32) *gatedLocker {
	return &gatedLocker{
		Locker:    inner,
		sessionID: sessionID,
		gateAt:    n,
		reached:   make(chan struct{}),
		release:   make(chan struct{}),
	}
}

func (l *gatedLocker) Lock(sessionID string) func() {
	if sessionID == l.sessionID && l.calls.Add(1) == l.gateAt {
		close(l.reached)
		<-l.release
	}
	return l.Locker.Lock(sessionID)
}

// parkedSink blocks its first Persist call until release is closed.
type parkedSink struct {
	OverflowSink
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newParkedSink(inner OverflowSink) *parkedSink {
	return &parkedSink{OverflowSink: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (p *parkedSink) Persist(ctx context.Context, messages []tutor.Message) (int, error) {
	p.once.Do(func() {
		close(p.entered)
		<-p.release
	})
	return p.OverflowSink.Persist(ctx, messages)
}

type mockSummarizer struct {
	mock.Mock
}

func (m *mockSummarizer) Summarize(ctx context.Context, req *summary.SummarizeRequest) (*summary.SummarizeResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*summary.SummarizeResponse)
	return resp, args.Error(1)
}

func testConfig(strategy string) Config {
	c := TestingConfig()
	c.LockStrategy = strategy
	return c
}

func newTestStore(t *testing.T, cfg Config, repo MessageRepository, opts ...Option) *SessionStore {
	t.Helper()
	s, err := NewSessionStore(cfg, repo, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.cancel(); s.wg.Wait() })
	return s
}

func newMsg(t *testing.T, sessionID string, n int) tutor.Message {
	t.Helper()
	role := tutor.RoleUser
	if n%2 == 0 {
		role = tutor.RoleAssistant
	}
	m, err := tutor.NewMessage(tutor.MessageParams{
		ID:        fmt.Sprintf("%s-msg%d", sessionID, n),
		SessionID: sessionID,
		Role:      role,
		Content:   fmt.Sprintf("message number %d", n),
	})
	require.NoError(t, err)
	return m
}

func ids(messages []tutor.Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.ID
	}
	return out
}
