package memory

import (
	"hash/fnv"
	"sync"
)

// Locker guards the per-session critical sections of a SessionStore.
// Implementations decide how sessions map onto mutexes.
type Locker interface {
	// Lock blocks until the section guarding sessionID is held.
	Lock(sessionID string) (unlock func())
	// TryLockAlso attempts, without blocking, to acquire the section guarding
	// other while the caller already holds the one guarding held. It reports
	// true without locking anything when both share a section.
	TryLockAlso(held, other string) (unlock func(), ok bool)
}

func noop() {}

// GlobalLocker serializes every session behind one mutex.
type GlobalLocker struct {
	mu sync.Mutex
}

// NewGlobalLocker returns a Locker with a single section.
func NewGlobalLocker() *GlobalLocker {
	return &GlobalLocker{}
}

func (l *GlobalLocker) Lock(string) func() {
	l.mu.Lock()
	return l.mu.Unlock
}

func (l *GlobalLocker) TryLockAlso(string, string) (func(), bool) {
	return noop, true
}

// KeyedLocker stripes sessions over a fixed set of mutexes by hash.
type KeyedLocker struct {
	shards []sync.Mutex
}

// NewKeyedLocker returns a Locker with n sections. n < 1 is treated as 1.
func NewKeyedLocker(n int) *KeyedLocker {
	return &KeyedLocker{shards: make([]sync.Mutex, max(n, 1))}
}

func (l *KeyedLocker) shard(sessionID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return int(h.Sum32() % uint32(len(l.shards)))
}

func (l *KeyedLocker) Lock(sessionID string) func() {
	mu := &l.shards[l.shard(sessionID)]
	mu.Lock()
	return mu.Unlock
}

func (l *KeyedLocker) TryLockAlso(held, other string) (func(), bool) {
	i := l.shard(other)
	if i == l.shard(held) {
		return noop, true
	}
	mu := &l.shards[i]
	if !mu.TryLock() {
		return nil, false
	}
	return mu.Unlock, true
}

// NewLocker builds the strategy named in cfg.
func NewLocker(cfg Config) Locker {
	if cfg.LockStrategy == LockGlobal {
		return NewGlobalLocker()
	}
	return NewKeyedLocker(cfg.LockShards)
}

var (
	_ Locker = (*GlobalLocker)(nil)
	_ Locker = (*KeyedLocker)(nil)
)
