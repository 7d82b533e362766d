package authclient

import (
	"context"
	"time"
)

// StartTokenSync starts the reconciliation loop: a periodic re-read of the
// persisted token that detects external changes (another process logged in or
// out, or the token was cleared underneath us) and converges the session.
// Only one loop instance runs at a time; starting again cancels the previous
// loop first.
func (s *SessionStore) StartTokenSync() {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	if s.syncCancel != nil {
		s.syncCancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.syncCancel = cancel

	go s.runTokenSync(ctx)
}

// StopTokenSync cancels the loop. Safe to call when no loop is running.
func (s *SessionStore) StopTokenSync() {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	if s.syncCancel != nil {
		s.syncCancel()
		s.syncCancel = nil
	}
}

func (s *SessionStore) runTokenSync(ctx context.Context) {
	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.syncTick(ctx)
		}
	}
}

// syncTick reconciles the in-memory token against the persisted one.
func (s *SessionStore) syncTick(ctx context.Context) {
	current := s.persistence.ReadToken()

	s.mu.RLock()
	held := s.token
	s.mu.RUnlock()

	if current == held {
		return
	}

	if current == "" {
		// Logged out externally, or the token expired out of every tier.
		s.clearLocalSession()
		s.StopTokenSync()
		s.navigator.RedirectToLogin()
		return
	}

	// The token changed underneath us: another process switched accounts or
	// refreshed the token. Adopt it, then rebuild the user.
	s.mu.Lock()
	s.token = current
	s.lastSync = time.Now()
	s.mu.Unlock()

	if user, ok := s.persistence.ReadUserCache(); ok {
		s.mu.Lock()
		s.user = user
		s.mu.Unlock()
		s.navigator.Reload()
		return
	}

	if s.CheckAuth(ctx) {
		s.navigator.Reload()
		return
	}
	s.Logout()
}
