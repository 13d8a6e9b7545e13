package session

import (
	"sync"
	"time"

	"github.com/mentislab/mentis/internal/models"
)

// DefaultGuardInterval is how often the expiration guard re-checks elapsed
// session time.
const DefaultGuardInterval = 30 * time.Second

// Guard enforces the session TTL independently of participant activity. It
// checks once immediately, then on a fixed interval, and forces the session
// into the expired terminal state once the threshold is reached. Polling
// stops as soon as the participant leaves in_progress, or on Stop.
type Guard struct {
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// Watch starts a guard for the session. onExpire runs after the expired
// transition and is the place to hook redirects; it may be nil. The returned
// guard must be stopped (or the session driven to a terminal status) before
// discarding the session, otherwise its timer goroutine leaks.
func Watch(s *Session, interval time.Duration, onExpire func()) *Guard {
	if interval <= 0 {
		interval = DefaultGuardInterval
	}
	g := &Guard{stopCh: make(chan struct{}), done: make(chan struct{})}
	s.mu.Lock()
	s.guard = g
	s.mu.Unlock()
	go g.run(s, interval, onExpire)
	return g
}

func (g *Guard) run(s *Session, interval time.Duration, onExpire func()) {
	defer close(g.done)
	if g.check(s, onExpire) {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-g.stopCh:
			return
		case <-t.C:
			if g.check(s, onExpire) {
				return
			}
		}
	}
}

// check runs one expiration poll. It returns true once polling should stop.
func (g *Guard) check(s *Session, onExpire func()) bool {
	p := s.Participant()
	if p == nil || p.Status != models.StatusInProgress {
		return true
	}
	if !s.Expired() {
		return false
	}
	// UpdateStatus signals this guard; the soft timeout only redirects the
	// flow and never touches already-persisted responses.
	if err := s.UpdateStatus(models.StatusExpired); err != nil {
		return true
	}
	if onExpire != nil {
		onExpire()
	}
	return true
}

// signal asks the guard to wind down without waiting for it.
func (g *Guard) signal() {
	g.stopOnce.Do(func() { close(g.stopCh) })
}

// Stop cancels the guard and waits for its goroutine to exit.
func (g *Guard) Stop() {
	g.signal()
	<-g.done
}
