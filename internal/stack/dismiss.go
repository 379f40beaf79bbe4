package stack

import (
	"time"

	"github.com/jmylchreest/popstack/internal/model"
)

// dismissTimer tracks the automatic dismissal of one popup.
// gen changes on every pause and resume so a callback from a stopped timer
// that already fired cannot remove the popup.
type dismissTimer struct {
	timer     *time.Timer
	deadline  time.Time
	remaining time.Duration
	paused    bool
	gen       uint64
}

// scheduleLocked starts the dismiss timer for d if its configuration asks for one.
func (s *Stack) scheduleLocked(d model.Descriptor) {
	after := d.Config().AutoDismiss()
	if after <= 0 {
		return
	}
	t := &dismissTimer{}
	s.timers[d.ID()] = t
	s.armLocked(d.ID(), t, after)
}

func (s *Stack) armLocked(id model.Identifier, t *dismissTimer, after time.Duration) {
	t.gen++
	gen := t.gen
	t.paused = false
	t.remaining = 0
	t.deadline = time.Now().Add(after)
	t.timer = time.AfterFunc(after, func() {
		s.expire(id, t, gen)
	})
}

func (s *Stack) expire(id model.Identifier, t *dismissTimer, gen uint64) {
	live := func() bool {
		return s.timerLiveLocked(id, t) && t.gen == gen
	}
	if _, ok := s.removeByID(id, ReasonExpired, live); ok {
		s.logger.Debug("popup expired", "popup_id", id)
	}
}

// timerLiveLocked reports whether t is still the active, running timer for id.
func (s *Stack) timerLiveLocked(id model.Identifier, t *dismissTimer) bool {
	current, ok := s.timers[id]
	return ok && current == t && !t.paused
}

func (s *Stack) cancelTimerLocked(id model.Identifier) {
	t, ok := s.timers[id]
	if !ok {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	delete(s.timers, id)
}

func (s *Stack) stopTimersLocked() {
	for id := range s.timers {
		s.cancelTimerLocked(id)
	}
}

// Pause suspends the dismiss timer of a popup, e.g. while it is hovered.
// Returns false if the popup has no running timer.
func (s *Stack) Pause(id model.Identifier) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[id]
	if !ok || t.paused {
		return false
	}

	t.timer.Stop()
	t.gen++
	t.paused = true
	t.remaining = max(time.Until(t.deadline), 0)

	s.logger.Debug("paused dismiss timer", "popup_id", id, "remaining", t.remaining)
	return true
}

// Resume restarts a paused dismiss timer with the time that was left.
// Returns false if the popup has no paused timer.
func (s *Stack) Resume(id model.Identifier) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[id]
	if !ok || !t.paused {
		return false
	}

	remaining := t.remaining
	s.armLocked(id, t, remaining)

	s.logger.Debug("resumed dismiss timer", "popup_id", id, "remaining", remaining)
	return true
}

// Remaining returns how long until a popup is dismissed automatically and
// whether its timer is paused. ok is false when the popup has no timer.
func (s *Stack) Remaining(id model.Identifier) (remaining time.Duration, paused bool, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.timers[id]
	if !exists {
		return 0, false, false
	}
	if t.paused {
		return t.remaining, true, true
	}
	return max(time.Until(t.deadline), 0), false, true
}
