package session

import (
	"math"

	"github.com/mentislab/mentis/internal/models"
)

// Screen timing is additive instrumentation: it never blocks or fails the
// navigation flow that triggers it, so both operations are silent no-ops
// whenever their preconditions do not hold.

// StartScreen opens a timing entry for the named screen. The invariant is at
// most one open entry per screen name: a second start while one is open is
// ignored.
func (s *Session) StartScreen(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.participant == nil || name == "" {
		return
	}
	if s.openScreenIndex(name) != -1 {
		return
	}
	s.screens = append(s.screens, models.ScreenTimestamp{
		ParticipantID: s.participant.ID,
		ScreenName:    name,
		StartedAt:     s.now(),
	})
}

// EndScreen stamps the open entry for the named screen with the submit time
// and its duration in whole seconds. Without an open entry it does nothing,
// so a double EndScreen only stamps the first call.
func (s *Session) EndScreen(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.openScreenIndex(name)
	if i == -1 {
		return
	}
	done := s.now()
	entry := &s.screens[i]
	entry.SubmittedAt = &done
	entry.Duration = int(math.Round(done.Sub(entry.StartedAt).Seconds()))

	cp := *entry
	s.persist("screen-timestamp", func(sink Sink) error { return sink.SaveScreenTimestamp(&cp) })
}

// ScreenTimestamps returns the timing log in visit order.
func (s *Session) ScreenTimestamps() []models.ScreenTimestamp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ScreenTimestamp(nil), s.screens...)
}

// openScreenIndex finds the open entry for name, or -1. Callers hold s.mu.
func (s *Session) openScreenIndex(name string) int {
	for i := range s.screens {
		if s.screens[i].ScreenName == name && s.screens[i].SubmittedAt == nil {
			return i
		}
	}
	return -1
}
