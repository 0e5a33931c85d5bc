package session

import (
	"context"
	"time"
)

// Start runs the background refresh loop until ctx is cancelled or Close is
// called. The token is refreshed RefreshGrace before it expires. A token
// that is already inside the grace window is refreshed at once. Calling
// Start twice is a no-op.
func (m *Manager) Start(ctx context.Context) {
	m.loopMu.Lock()
	defer m.loopMu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.refreshLoop(ctx, m.done)
}

// Close stops the refresh loop and waits for it to exit.
func (m *Manager) Close() {
	m.loopMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.loopMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (m *Manager) refreshLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		wait := m.nextRefresh()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-m.kick:
			timer.Stop()
			continue
		case <-timer.C:
		}

		if !m.SignedIn() {
			continue
		}
		if _, err := m.RefreshAuthorization(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Warn("token refresh failed", "session", m.name, "error", err)
			continue
		}
		m.logger.Info("token refreshed", "session", m.name)
	}
}

// nextRefresh returns how long to sleep before the next refresh attempt.
func (m *Manager) nextRefresh() time.Duration {
	m.mu.RLock()
	auth, lastErr, retry := m.auth, m.lastErr, m.retryInterval
	m.mu.RUnlock()

	if auth == nil {
		return idleWait
	}
	if lastErr != nil {
		return retry
	}

	wait := auth.ExpiresAt().Add(-RefreshGrace).Sub(now())
	if wait > 0 {
		return wait
	}

	// A token issued inside the grace window would be refreshed in a tight
	// loop; wait until half of its life is spent instead.
	if now().Sub(auth.CreatedAt) < retry {
		half := time.Duration(auth.SecondsToExpiry()) * time.Second / 2
		if half < retry {
			return retry
		}
		return half
	}
	return 0
}
