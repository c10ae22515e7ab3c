package memory

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/hrygo/polyglot/ai/cache"
	"github.com/hrygo/polyglot/ai/summary"
	"github.com/hrygo/polyglot/ai/tutor"
)

const (
	acquireAttempts   = 3
	admitBackoffStart = time.Millisecond
	admitBackoffMax   = 50 * time.Millisecond
	dropStripes       = 64
)

type windowEntry struct {
	msg tutor.Message
	// persisted is true once the durable store is known to hold msg.
	persisted bool
}

// sessionState is guarded by the Locker section of its session.
type sessionState struct {
	window             []windowEntry
	counters           SessionCounters
	summary            *ConversationSummary
	summaryRequestedAt int
	lastAccess         time.Time
}

func (st *sessionState) messages() []tutor.Message {
	out := make([]tutor.Message, len(st.window))
	for i, e := range st.window {
		out[i] = e.msg.Clone()
	}
	return out
}

func pendingMessages(entries []windowEntry) []tutor.Message {
	var out []tutor.Message
	for _, e := range entries {
		if !e.persisted {
			out = append(out, e.msg)
		}
	}
	return out
}

// markPersisted flags the first n unpersisted entries.
func markPersisted(entries []windowEntry, n int) {
	for i := range entries {
		if n == 0 {
			return
		}
		if !entries[i].persisted {
			entries[i].persisted = true
			n--
		}
	}
}

type loadedSession struct {
	messages []tutor.Message
	counters SessionCounters
	// gen is the drop generation of the session when the read started.
	gen uint64
}

// SessionStore is the bounded session memory cache. Writes are
// write-behind: a message reaches the durable store when it overflows its
// window, when its session is evicted, cleared or swept, or on Close.
type SessionStore struct {
	cfg        Config
	repo       MessageRepository
	counterDB  CounterRepository
	sink       OverflowSink
	summarizer summary.Summarizer
	locker     Locker
	logger     *slog.Logger
	trigger    SummaryTrigger

	sessions *cache.BoundedCache[string, *sessionState]
	admitMu  sync.Mutex
	loads    singleflight.Group
	ioSem    *semaphore.Weighted

	hits              atomic.Int64
	misses            atomic.Int64
	overflowPersisted atomic.Int64
	evictions         atomic.Int64
	cachedMessages    atomic.Int64

	// drops counts cache removals per stripe of session ids. A load whose
	// stripe moved while it read the store may have missed a flush.
	drops [dropStripes]atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
}

// Option customizes a SessionStore.
type Option func(*SessionStore)

// WithSink overrides the overflow sink. The default appends to the repository.
func WithSink(sink OverflowSink) Option {
	return func(s *SessionStore) { s.sink = sink }
}

// WithSummarizer sets the summarizer. The default is the heuristic one.
func WithSummarizer(sum summary.Summarizer) Option {
	return func(s *SessionStore) { s.summarizer = sum }
}

// WithLocker overrides the lock strategy chosen by Config.LockStrategy.
func WithLocker(l Locker) Option {
	return func(s *SessionStore) { s.locker = l }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *SessionStore) { s.logger = l }
}

// NewSessionStore validates cfg and starts the idle-session sweeper.
// Call Close to stop it and flush every cached session.
func NewSessionStore(cfg Config, repo MessageRepository, opts ...Option) (*SessionStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if repo == nil {
		return nil, fmt.Errorf("%w: message repository is required", ErrInvalidConfig)
	}
	sessions, err := cache.NewBoundedCache[string, *sessionState](cfg.CacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &SessionStore{
		cfg:      cfg,
		repo:     repo,
		sessions: sessions,
		ioSem:    semaphore.NewWeighted(int64(cfg.MaxConcurrentOperations)),
		trigger:  SummaryTrigger{Threshold: cfg.SummaryThreshold, UpdateInterval: cfg.SummaryUpdateInterval},
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sink == nil {
		s.sink = NewRepositorySink(repo)
	}
	if s.summarizer == nil {
		s.summarizer = summary.NewHeuristicSummarizer()
	}
	if s.locker == nil {
		s.locker = NewLocker(cfg)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if cr, ok := repo.(CounterRepository); ok {
		s.counterDB = cr
	}

	s.wg.Add(1)
	go s.cleanupLoop()
	return s, nil
}

func (s *SessionStore) debug(msg string, args ...any) {
	if s.cfg.LogCacheOperations {
		s.logger.Debug(msg, args...)
	}
}

// AddMessage appends msg to its session window. Overflowing messages are
// persisted before the window shrinks; if that fails the window is left
// untouched and msg is not added.
func (s *SessionStore) AddMessage(ctx context.Context, msg tutor.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	sid := msg.SessionID

	st, unlock, err := s.acquire(ctx, sid)
	if err != nil {
		return err
	}

	entry := windowEntry{msg: msg.Clone()}
	if overflow := len(st.window) + 1 - s.cfg.MessagesPerSession; overflow > 0 {
		head := st.window[:overflow]
		if err := s.persistLocked(ctx, sid, head); err != nil {
			unlock()
			return err
		}
		next := make([]windowEntry, 0, s.cfg.MessagesPerSession)
		next = append(next, st.window[overflow:]...)
		st.window = append(next, entry)
		s.cachedMessages.Add(int64(1 - overflow))
		s.debug("memory: window overflow", "session_id", sid, "evicted", overflow)
	} else {
		st.window = append(st.window, entry)
		s.cachedMessages.Add(1)
	}

	st.counters.TotalMessageCount++
	if msg.Role == tutor.RoleUser {
		st.counters.UserTurnCount++
	}
	st.lastAccess = time.Now()

	count := st.counters.TotalMessageCount
	lastAt := st.summaryRequestedAt
	if st.summary != nil {
		lastAt = max(lastAt, st.summary.MessageCountAtLastUpdate)
	}
	var snapshot []tutor.Message
	if s.trigger.ShouldSummarize(count, lastAt) {
		st.summaryRequestedAt = count
		snapshot = st.messages()
	}
	unlock()

	if snapshot != nil {
		s.refreshSummary(ctx, sid, snapshot, count)
	}
	return nil
}

// acquire returns the cached state of sid with its section held, loading it
// from the durable store on a miss.
func (s *SessionStore) acquire(ctx context.Context, sid string) (*sessionState, func(), error) {
	for attempt := 1; ; attempt++ {
		unlock := s.locker.Lock(sid)
		st, ok := s.sessions.Get(sid)
		if attempt == 1 {
			s.countLookup(ok)
		}
		if ok {
			return st, unlock, nil
		}
		if attempt == acquireAttempts {
			// Evicted between load and re-lock too often; load while holding the section.
			loaded, err := s.fetch(ctx, sid)
			if err == nil {
				st := newSessionState(sid, loaded)
				if err = s.admitLocked(ctx, sid, st); err == nil {
					return st, unlock, nil
				}
			}
			unlock()
			return nil, nil, err
		}
		unlock()
		if err := s.load(ctx, sid); err != nil {
			return nil, nil, err
		}
	}
}

func (s *SessionStore) countLookup(hit bool) {
	if hit {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
}

// GetRecentMessages returns up to count of the newest cached messages,
// oldest first. count <= 0 returns the whole window. It never reads the
// durable store.
func (s *SessionStore) GetRecentMessages(sessionID string, count int) []tutor.Message {
	unlock := s.locker.Lock(sessionID)
	defer unlock()

	st, ok := s.sessions.Get(sessionID)
	s.countLookup(ok)
	if !ok {
		return nil
	}
	st.lastAccess = time.Now()

	window := st.window
	if count > 0 && count < len(window) {
		window = window[len(window)-count:]
	}
	out := make([]tutor.Message, len(window))
	for i, e := range window {
		out[i] = e.msg.Clone()
	}
	return out
}

// LoadSessionContext populates the cache for sessionID from the durable
// store. It is a no-op when the session is already cached.
func (s *SessionStore) LoadSessionContext(ctx context.Context, sessionID string) error {
	unlock := s.locker.Lock(sessionID)
	st, ok := s.sessions.Get(sessionID)
	if ok {
		st.lastAccess = time.Now()
	}
	unlock()
	s.countLookup(ok)
	if ok {
		return nil
	}
	return s.load(ctx, sessionID)
}

// load reads sessionID from the durable store and admits it unless another
// caller got there first. Concurrent loads of one session share a read.
func (s *SessionStore) load(ctx context.Context, sessionID string) error {
	v, err, _ := s.loads.Do(sessionID, func() (any, error) {
		return s.fetch(ctx, sessionID)
	})
	if err != nil {
		return err
	}
	loaded := v.(*loadedSession)

	unlock := s.locker.Lock(sessionID)
	defer unlock()
	if _, ok := s.sessions.Peek(sessionID); ok {
		return nil
	}
	if s.dropGeneration(sessionID) != loaded.gen {
		// The session may have been cached, extended and flushed during the
		// read. Nothing can drop it while the section is held, so read again.
		s.debug("memory: stale load discarded", "session_id", sessionID)
		if loaded, err = s.fetch(ctx, sessionID); err != nil {
			return err
		}
	}
	if err := s.admitLocked(ctx, sessionID, newSessionState(sessionID, loaded)); err != nil {
		return err
	}
	s.debug("memory: session loaded", "session_id", sessionID, "messages", len(loaded.messages))
	return nil
}

func dropStripe(sid string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sid))
	return int(h.Sum32() % dropStripes)
}

func (s *SessionStore) dropGeneration(sid string) uint64 {
	return s.drops[dropStripe(sid)].Load()
}

func (s *SessionStore) fetch(ctx context.Context, sid string) (*loadedSession, error) {
	gen := s.dropGeneration(sid)
	if err := s.ioSem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMemoryUnavailable, err)
	}
	defer s.ioSem.Release(1)

	messages, err := s.repo.ListRecent(ctx, sid, s.cfg.MessagesPerSession)
	if err != nil {
		return nil, fmt.Errorf("%w: load recent messages of %s: %w", ErrMemoryUnavailable, sid, err)
	}
	total, err := s.repo.CountBySession(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("%w: count messages of %s: %w", ErrMemoryUnavailable, sid, err)
	}

	counters := SessionCounters{
		SessionID:         sid,
		TotalMessageCount: max(total, len(messages)),
		// Turns alternate user/assistant, starting with the user.
		UserTurnCount: (max(total, len(messages)) + 1) / 2,
	}
	if s.counterDB != nil {
		saved, ok, err := s.counterDB.LoadCounters(ctx, sid)
		if err != nil {
			return nil, fmt.Errorf("%w: load counters of %s: %w", ErrMemoryUnavailable, sid, err)
		}
		if ok {
			counters = saved.merge(SessionCounters{TotalMessageCount: counters.TotalMessageCount})
			counters.SessionID = sid
		}
	}
	if len(messages) > s.cfg.MessagesPerSession {
		messages = messages[len(messages)-s.cfg.MessagesPerSession:]
	}
	return &loadedSession{messages: messages, counters: counters, gen: gen}, nil
}

func newSessionState(sid string, loaded *loadedSession) *sessionState {
	st := &sessionState{
		window:     make([]windowEntry, len(loaded.messages)),
		counters:   loaded.counters,
		lastAccess: time.Now(),
	}
	for i, m := range loaded.messages {
		st.window[i] = windowEntry{msg: m.Clone(), persisted: true}
	}
	st.counters.SessionID = sid
	return st
}

// admitLocked inserts st for sid, which the caller holds. When the cache is
// full the least recently used session whose section is free is claimed,
// flushed outside admitMu and then replaced. A failed flush leaves the
// cache unchanged.
func (s *SessionStore) admitLocked(ctx context.Context, sid string, st *sessionState) error {
	backoff := admitBackoffStart
	for {
		s.admitMu.Lock()
		if s.sessions.Size() < s.sessions.Capacity() {
			s.putLocked(sid, st)
			s.admitMu.Unlock()
			return nil
		}
		key, victim, release := s.claimVictimLocked(sid)
		s.admitMu.Unlock()

		if victim != nil {
			err := s.replaceLocked(ctx, sid, st, key, victim)
			release()
			return err
		}

		// Every candidate is busy; give their holders a chance to finish.
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: no evictable session: %w", ErrMemoryUnavailable, ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, admitBackoffMax)
	}
}

func (s *SessionStore) putLocked(sid string, st *sessionState) {
	if ev := s.sessions.Put(sid, st); ev != nil {
		// Unreachable while every insertion into a full cache removes its
		// victim under admitMu first.
		s.logger.Error("memory: session dropped without flush", "session_id", ev.Key)
		s.cachedMessages.Add(-int64(len(ev.Value.window)))
	}
	s.cachedMessages.Add(int64(len(st.window)))
}

// claimVictimLocked picks the least recently used session, other than sid,
// whose section can be taken without blocking. The victim stays cached and
// its section stays held until release is called.
func (s *SessionStore) claimVictimLocked(sid string) (string, *sessionState, func()) {
	for _, key := range s.sessions.Keys() {
		if key == sid {
			continue
		}
		release, ok := s.locker.TryLockAlso(sid, key)
		if !ok {
			continue
		}
		victim, ok := s.sessions.Peek(key)
		if !ok {
			release()
			continue
		}
		return key, victim, release
	}
	return "", nil, nil
}

// replaceLocked flushes the claimed victim and swaps st in for it. The cache
// cannot grow past capacity meanwhile: the victim still fills its slot and
// no one else can drop it while its section is held.
func (s *SessionStore) replaceLocked(ctx context.Context, sid string, st *sessionState, key string, victim *sessionState) error {
	if err := s.flushLocked(ctx, key, victim); err != nil {
		return err
	}

	s.admitMu.Lock()
	s.forgetLocked(key, victim)
	s.putLocked(sid, st)
	s.admitMu.Unlock()

	s.evictions.Add(1)
	s.debug("memory: session evicted", "session_id", key, "admitting", sid)
	return nil
}

// dropLocked flushes st and removes sid from the cache.
func (s *SessionStore) dropLocked(ctx context.Context, sid string, st *sessionState) error {
	if err := s.flushLocked(ctx, sid, st); err != nil {
		return err
	}
	s.forgetLocked(sid, st)
	return nil
}

func (s *SessionStore) flushLocked(ctx context.Context, sid string, st *sessionState) error {
	if err := s.persistLocked(ctx, sid, st.window); err != nil {
		return err
	}
	s.saveCounters(ctx, st.counters)
	return nil
}

func (s *SessionStore) forgetLocked(sid string, st *sessionState) {
	s.sessions.Remove(sid)
	s.cachedMessages.Add(-int64(len(st.window)))
	s.drops[dropStripe(sid)].Add(1)
}

// persistLocked hands the unpersisted messages of entries to the sink.
func (s *SessionStore) persistLocked(ctx context.Context, sid string, entries []windowEntry) error {
	pending := pendingMessages(entries)
	if len(pending) == 0 {
		return nil
	}
	if err := s.ioSem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %w", ErrMemoryUnavailable, err)
	}
	n, err := s.sink.Persist(ctx, pending)
	s.ioSem.Release(1)

	markPersisted(entries, n)
	s.overflowPersisted.Add(int64(n))
	if err != nil {
		s.logger.Error("memory: overflow persistence failed",
			"session_id", sid, "pending", len(pending), "persisted", n, "error", err)
		return fmt.Errorf("%w: persist %d messages of %s: %w", ErrMemoryUnavailable, len(pending)-n, sid, err)
	}
	return nil
}

func (s *SessionStore) saveCounters(ctx context.Context, c SessionCounters) {
	if s.counterDB == nil {
		return
	}
	if err := s.counterDB.SaveCounters(ctx, c); err != nil {
		s.logger.Warn("memory: failed to save session counters", "session_id", c.SessionID, "error", err)
	}
}

func (s *SessionStore) refreshSummary(ctx context.Context, sid string, snapshot []tutor.Message, countAt int) {
	resp, err := s.summarizer.Summarize(ctx, &summary.SummarizeRequest{SessionID: sid, Messages: snapshot})
	if err != nil {
		s.logger.Warn("memory: summary generation failed", "session_id", sid, "error", err)
		return
	}

	unlock := s.locker.Lock(sid)
	defer unlock()
	st, ok := s.sessions.Peek(sid)
	if !ok {
		return
	}
	if st.summary != nil && st.summary.MessageCountAtLastUpdate >= countAt {
		return
	}
	st.summary = &ConversationSummary{
		SessionID:                sid,
		Text:                     resp.Summary,
		MessageCountAtLastUpdate: countAt,
		LastUpdated:              time.Now(),
		KeyTopics:                resp.KeyTopics,
	}
	s.debug("memory: summary updated", "session_id", sid, "source", resp.Source, "message_count", countAt)
}

// GetConversationSummary returns the latest summary text of a cached session.
func (s *SessionStore) GetConversationSummary(sessionID string) (string, bool) {
	sum, ok := s.Summary(sessionID)
	if !ok {
		return "", false
	}
	return sum.Text, true
}

// Summary returns a copy of the full summary record.
func (s *SessionStore) Summary(sessionID string) (ConversationSummary, bool) {
	unlock := s.locker.Lock(sessionID)
	defer unlock()

	st, ok := s.sessions.Peek(sessionID)
	if !ok || st.summary == nil {
		return ConversationSummary{}, false
	}
	return st.summary.clone(), true
}

// ClearSessionCache flushes what is still cached for sessionID and forgets
// it. Clearing an uncached session is a no-op.
func (s *SessionStore) ClearSessionCache(ctx context.Context, sessionID string) error {
	unlock := s.locker.Lock(sessionID)
	defer unlock()

	st, ok := s.sessions.Peek(sessionID)
	if !ok {
		return nil
	}
	if err := s.dropLocked(ctx, sessionID, st); err != nil {
		return err
	}
	s.debug("memory: session cleared", "session_id", sessionID)
	return nil
}

// Counters returns a snapshot of the session counters.
func (s *SessionStore) Counters(sessionID string) (SessionCounters, bool) {
	unlock := s.locker.Lock(sessionID)
	defer unlock()

	st, ok := s.sessions.Peek(sessionID)
	if !ok {
		return SessionCounters{}, false
	}
	return st.counters, true
}

// RecordCadence stores the message numbers at which cadence-gated features
// fired. Values never move backwards.
func (s *SessionStore) RecordCadence(sessionID string, update CadenceUpdate) {
	unlock := s.locker.Lock(sessionID)
	defer unlock()

	st, ok := s.sessions.Peek(sessionID)
	if !ok {
		return
	}
	st.counters = st.counters.merge(SessionCounters{
		LastExerciseAt: update.ExerciseAt,
		LastFeedbackAt: update.FeedbackAt,
	})
}

// GetCacheStats reports cache occupancy and counters.
func (s *SessionStore) GetCacheStats() CacheStats {
	return CacheStats{
		CachedSessions:         s.sessions.Size(),
		TotalCachedMessages:    s.cachedMessages.Load(),
		Capacity:               s.sessions.Capacity(),
		Hits:                   s.hits.Load(),
		Misses:                 s.misses.Load(),
		OverflowPersistedCount: s.overflowPersisted.Load(),
		SessionEvictions:       s.evictions.Load(),
	}
}

// Close stops the sweeper and flushes every cached session. Sessions that
// fail to flush stay cached and the first error is returned.
func (s *SessionStore) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cancel()
	s.wg.Wait()

	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrentOperations)
	for _, sid := range s.sessions.Keys() {
		g.Go(func() error {
			return s.ClearSessionCache(ctx, sid)
		})
	}
	return g.Wait()
}

var _ Manager = (*SessionStore)(nil)
