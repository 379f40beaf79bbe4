// Package stack implements the popup stack: the ordered collection of active
// popups, anchor group priorities, timed dismissal and the registry of named
// stacks.
package stack

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/jmylchreest/popstack/internal/config"
	"github.com/jmylchreest/popstack/internal/model"
)

// ID names a stack within a Registry.
type ID string

// ChangeType indicates the type of stack change.
type ChangeType int

const (
	// ChangeInsert indicates a popup was inserted (possibly replacing another).
	ChangeInsert ChangeType = iota
	// ChangeRemove indicates one or more popups were removed.
	ChangeRemove
	// ChangeClear indicates the stack was cleared.
	ChangeClear
	// ChangeHeight indicates a popup height was recorded.
	ChangeHeight
)

// String returns the string representation of ChangeType.
func (t ChangeType) String() string {
	switch t {
	case ChangeInsert:
		return "insert"
	case ChangeRemove:
		return "remove"
	case ChangeClear:
		return "clear"
	case ChangeHeight:
		return "height"
	default:
		return "unknown"
	}
}

// RemoveReason explains why popups left the stack.
type RemoveReason int

const (
	// ReasonDismissed means the presentation layer removed the popup.
	ReasonDismissed RemoveReason = iota
	// ReasonExpired means the popup's dismiss timer fired.
	ReasonExpired
	// ReasonCleared means the whole stack was cleared.
	ReasonCleared
)

// String returns the string representation of RemoveReason.
func (r RemoveReason) String() string {
	switch r {
	case ReasonDismissed:
		return "dismissed"
	case ReasonExpired:
		return "expired"
	case ReasonCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// ChangeEvent signals stack content changes.
type ChangeEvent struct {
	Type     ChangeType
	Stack    ID
	IDs      []model.Identifier // Inserted, removed or measured popups
	Replaced []model.Identifier // Popups replaced by an insert
	Reason   RemoveReason       // Only meaningful for ChangeRemove
}

// Stack is an ordered collection of popups, unique by identifier. The last
// element is the most recently shown popup.
//
// All methods are safe to call from any goroutine; mutations are serialised
// and focus callbacks run after the lock is released.
type Stack struct {
	id     ID
	logger *slog.Logger

	mu            sync.RWMutex
	cfg           *config.Config
	defaults      model.Defaults
	popups        []model.Descriptor
	priority      Priority
	initialHeight float64
	timers        map[model.Identifier]*dismissTimer

	subscribers []chan ChangeEvent
	closed      bool
}

// New creates an empty stack.
func New(id ID, cfg *config.Config, logger *slog.Logger) *Stack {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	return &Stack{
		id:            id,
		logger:        logger.With("stack", string(id)),
		cfg:           cfg,
		defaults:      cfg.PopupDefaults(),
		initialHeight: cfg.Stack.FallbackHeight,
		timers:        make(map[model.Identifier]*dismissTimer),
	}
}

// ID returns the stack identifier.
func (s *Stack) ID() ID {
	return s.id
}

// Insert adds a popup as the most recent one. A popup of the same type
// already in the stack is replaced according to the configured replace
// policy. Returns the updated collection.
func (s *Stack) Insert(d model.Descriptor) []model.Descriptor {
	if d.IsZero() {
		return s.Items()
	}

	s.mu.Lock()
	if s.closed {
		items := slices.Clone(s.popups)
		s.mu.Unlock()
		return items
	}

	prevTop := s.topIDLocked()
	d = d.ResolveConfig(s.defaults)

	replaced := s.insertLocked(d)
	s.priority.Reshuffle(s.popups[len(s.popups)-1].Anchor())
	s.recomputeLocked()
	s.scheduleLocked(d)

	items := slices.Clone(s.popups)
	focus, focusOK := s.focusTargetLocked(prevTop)
	s.notifyChange(ChangeEvent{
		Type:     ChangeInsert,
		Stack:    s.id,
		IDs:      []model.Identifier{d.ID()},
		Replaced: replaced,
	})
	priority := s.priority
	s.mu.Unlock()

	s.logger.Debug("inserted popup",
		"popup_id", d.ID(),
		"anchor", d.Anchor(),
		"replaced", len(replaced),
		"count", len(items),
		"priority", priority,
	)

	if focusOK {
		focus.Focus()
	}
	return items
}

// insertLocked places d in the collection and returns the identifiers it replaced.
func (s *Stack) insertLocked(d model.Descriptor) []model.Identifier {
	var replaced []model.Identifier
	pos := -1

	kept := s.popups[:0]
	for _, p := range s.popups {
		if p.ID().SameType(d.ID()) {
			s.cancelTimerLocked(p.ID())
			replaced = append(replaced, p.ID())
			if pos < 0 {
				pos = len(kept)
			}
			continue
		}
		kept = append(kept, p)
	}
	s.popups = kept

	if pos >= 0 && s.cfg.Policy() == config.ReplaceInPlace {
		s.popups = slices.Insert(s.popups, pos, d)
	} else {
		s.popups = append(s.popups, d)
	}
	return replaced
}

// RemoveByID removes the popup with the given identifier.
// Returns false if no such popup exists; that is not an error.
func (s *Stack) RemoveByID(id model.Identifier) bool {
	_, ok := s.removeByID(id, ReasonDismissed, nil)
	return ok
}

// removeByID removes id if present. A non-nil guard is evaluated under the
// lock and must return true for the removal to happen.
func (s *Stack) removeByID(id model.Identifier, reason RemoveReason, guard func() bool) (model.Descriptor, bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.Descriptor{}, false
	}
	if guard != nil && !guard() {
		s.mu.Unlock()
		return model.Descriptor{}, false
	}

	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return model.Descriptor{}, false
	}

	prevTop := s.topIDLocked()
	removed := s.popups[idx]
	s.cancelTimerLocked(id)
	s.popups = slices.Delete(s.popups, idx, idx+1)
	s.recomputeLocked()

	focus, focusOK := s.focusTargetLocked(prevTop)
	s.notifyChange(ChangeEvent{
		Type:   ChangeRemove,
		Stack:  s.id,
		IDs:    []model.Identifier{id},
		Reason: reason,
	})
	count := len(s.popups)
	s.mu.Unlock()

	s.logger.Debug("removed popup", "popup_id", id, "reason", reason, "count", count)

	if focusOK {
		focus.Focus()
	}
	return removed, true
}

// RemoveUpTo removes the last popup matching pred and every popup shown
// after it. The removed popups are returned in their original order; the
// result is empty when nothing matches. pred must not call back into the stack.
func (s *Stack) RemoveUpTo(pred func(model.Descriptor) bool) []model.Descriptor {
	s.mu.Lock()
	if s.closed || pred == nil {
		s.mu.Unlock()
		return []model.Descriptor{}
	}

	idx := -1
	for i := len(s.popups) - 1; i >= 0; i-- {
		if pred(s.popups[i]) {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return []model.Descriptor{}
	}

	prevTop := s.topIDLocked()
	removed := slices.Clone(s.popups[idx:])
	ids := make([]model.Identifier, len(removed))
	for i, d := range removed {
		ids[i] = d.ID()
		s.cancelTimerLocked(d.ID())
	}
	s.popups = slices.Delete(s.popups, idx, len(s.popups))
	s.recomputeLocked()

	focus, focusOK := s.focusTargetLocked(prevTop)
	s.notifyChange(ChangeEvent{
		Type:   ChangeRemove,
		Stack:  s.id,
		IDs:    ids,
		Reason: ReasonDismissed,
	})
	count := len(s.popups)
	s.mu.Unlock()

	s.logger.Debug("removed popups up to match", "removed", len(removed), "count", count)

	if focusOK {
		focus.Focus()
	}
	return removed
}

// RemoveUpToID removes the popup with the given identifier and every popup
// shown after it.
func (s *Stack) RemoveUpToID(id model.Identifier) []model.Descriptor {
	return s.RemoveUpTo(func(d model.Descriptor) bool { return id.SameInstance(d) })
}

// RemoveLast pops the most recent popup. Returns false when the stack is empty.
func (s *Stack) RemoveLast() (model.Descriptor, bool) {
	s.mu.RLock()
	if len(s.popups) == 0 {
		s.mu.RUnlock()
		return model.Descriptor{}, false
	}
	id := s.popups[len(s.popups)-1].ID()
	s.mu.RUnlock()

	// A concurrent removal between the two locks makes this a no-op.
	return s.removeByID(id, ReasonDismissed, nil)
}

// Clear removes every popup and resets the group priorities.
func (s *Stack) Clear() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	ids := make([]model.Identifier, len(s.popups))
	for i, d := range s.popups {
		ids[i] = d.ID()
	}
	s.stopTimersLocked()
	s.popups = nil
	s.priority.Reset()
	s.recomputeLocked()

	s.notifyChange(ChangeEvent{
		Type:   ChangeClear,
		Stack:  s.id,
		IDs:    ids,
		Reason: ReasonCleared,
	})
	s.mu.Unlock()

	s.logger.Debug("cleared stack", "removed", len(ids))
}

// UpdateHeight records the measured height of a popup.
// Returns false if the popup is not in the stack.
func (s *Stack) UpdateHeight(id model.Identifier, height float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if s.closed || idx < 0 {
		return false
	}

	s.popups[idx] = s.popups[idx].WithHeight(height)
	s.recomputeLocked()
	s.notifyChange(ChangeEvent{
		Type:  ChangeHeight,
		Stack: s.id,
		IDs:   []model.Identifier{id},
	})
	return true
}

// Items returns a snapshot of the popups, oldest first.
func (s *Stack) Items() []model.Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.popups)
}

// Len returns the number of popups.
func (s *Stack) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.popups)
}

// Top returns the most recent popup.
func (s *Stack) Top() (model.Descriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.popups) == 0 {
		return model.Descriptor{}, false
	}
	return s.popups[len(s.popups)-1], true
}

// Get returns the popup with the given identifier.
func (s *Stack) Get(id model.Identifier) (model.Descriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return model.Descriptor{}, false
	}
	return s.popups[idx], true
}

// Contains reports whether the popup is in the stack.
func (s *Stack) Contains(id model.Identifier) bool {
	_, ok := s.Get(id)
	return ok
}

// Visible returns the newest popups of one anchor group, oldest first,
// limited to the configured max_visible.
func (s *Stack) Visible(anchor model.Anchor) []model.Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var group []model.Descriptor
	for _, d := range s.popups {
		if d.Anchor() == anchor {
			group = append(group, d)
		}
	}

	if limit := s.cfg.Display.MaxVisible; limit > 0 && len(group) > limit {
		group = group[len(group)-limit:]
	}
	return group
}

// Priority returns the current anchor group priorities.
func (s *Stack) Priority() Priority {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.priority
}

// InitialHeight returns the height of the second most recent popup, or the
// configured fallback height when there is no such popup or it has not been
// measured.
func (s *Stack) InitialHeight() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialHeight
}

// UpdateConfig applies a new configuration. Popups already in the stack keep
// the configuration they were inserted with.
func (s *Stack) UpdateConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}

	s.mu.Lock()
	s.cfg = cfg
	s.defaults = cfg.PopupDefaults()
	s.recomputeLocked()
	s.mu.Unlock()

	s.logger.Debug("stack config updated", "replace_policy", cfg.Stack.ReplacePolicy)
}

// Subscribe returns a channel that receives change events.
func (s *Stack) Subscribe() <-chan ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan ChangeEvent, 10)
	if s.closed {
		close(ch)
		return ch
	}
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription.
func (s *Stack) Unsubscribe(ch <-chan ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close stops all dismiss timers and closes subscriber channels.
// A closed stack ignores further mutations.
func (s *Stack) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.stopTimersLocked()

	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil
}

// notifyChange sends a change event to all subscribers (non-blocking).
func (s *Stack) notifyChange(event ChangeEvent) {
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Channel full, skip
		}
	}
}

func (s *Stack) recomputeLocked() {
	s.initialHeight = s.cfg.Stack.FallbackHeight
	if n := len(s.popups); n >= 2 {
		if h, ok := s.popups[n-2].Height(); ok {
			s.initialHeight = h
		}
	}
}

func (s *Stack) indexLocked(id model.Identifier) int {
	for i, d := range s.popups {
		if id.SameInstance(d) {
			return i
		}
	}
	return -1
}

func (s *Stack) topIDLocked() model.Identifier {
	if len(s.popups) == 0 {
		return ""
	}
	return s.popups[len(s.popups)-1].ID()
}

// focusTargetLocked returns the new top popup if it differs from prevTop.
func (s *Stack) focusTargetLocked(prevTop model.Identifier) (model.Descriptor, bool) {
	if len(s.popups) == 0 {
		return model.Descriptor{}, false
	}
	top := s.popups[len(s.popups)-1]
	if top.ID() == prevTop {
		return model.Descriptor{}, false
	}
	return top, true
}
