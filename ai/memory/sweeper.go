package memory

import (
	"context"
	"time"
)

const maxSweepPerTick = 1000

// cleanupLoop periodically flushes and drops idle sessions.
// Stops when the store is closed.
func (s *SessionStore) cleanupLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			if n, err := s.SweepIdle(s.ctx, now); err != nil {
				s.logger.Warn("memory: idle sweep incomplete", "swept", n, "error", err)
			} else if n > 0 {
				s.logger.Info("memory: idle sessions swept", "swept", n)
			}
		}
	}
}

// SweepIdle flushes and drops sessions not accessed within the inactive
// session timeout, as of now. Sessions whose flush fails stay cached.
func (s *SessionStore) SweepIdle(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.cfg.InactiveSessionTimeout)
	swept := 0
	var firstErr error

	for _, sid := range s.sessions.Keys() {
		if swept >= maxSweepPerTick || ctx.Err() != nil {
			break
		}
		unlock := s.locker.Lock(sid)
		st, ok := s.sessions.Peek(sid)
		if ok && st.lastAccess.Before(cutoff) {
			if err := s.dropLocked(ctx, sid, st); err != nil {
				if firstErr == nil {
					firstErr = err
				}
			} else {
				swept++
			}
		}
		unlock()
	}
	return swept, firstErr
}
