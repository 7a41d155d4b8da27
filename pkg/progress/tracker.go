package progress

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// ErrUnknownHandle is returned by a strict tracker for a handle it never issued.
var ErrUnknownHandle = errors.New("unknown lockable handle")

// Handle identifies a registered lockable. Handles are issued in order from 0.
type Handle int

// Milestone is what an unlock means for the experience.
type Milestone string

const (
	MilestoneProgress     Milestone = "progress"
	MilestoneTwoRemaining Milestone = "two_remaining"
	MilestoneOneRemaining Milestone = "one_remaining"
	MilestoneAllUnlocked  Milestone = "all_unlocked"
)

// milestones maps the remaining count onto its milestone. Anything above the
// table is plain progress.
var milestones = map[int]Milestone{
	2: MilestoneTwoRemaining,
	1: MilestoneOneRemaining,
	0: MilestoneAllUnlocked,
}

// MilestoneFor returns the milestone fired when remaining locks are left.
func MilestoneFor(remaining int) Milestone {
	if m, ok := milestones[remaining]; ok {
		return m
	}
	return MilestoneProgress
}

// Event is fired once per first unlock of a handle.
type Event struct {
	Milestone Milestone `json:"milestone"`
	Handle    Handle    `json:"handle"`
	Scope     string    `json:"scope,omitempty"`
	Remaining int       `json:"remaining"`
	Unlocked  int       `json:"unlocked"`
	Total     int       `json:"total"`
}

type target struct {
	scope    string
	unlocked bool
}

// Tracker counts lockables and unlocks. The unlocked count never decreases.
// Like the controller it expects a single caller at a time.
type Tracker struct {
	targets  []target
	unlocked int
	strict   bool
	logger   *slog.Logger

	listeners map[int]func(Event)
	nextID    int
	finale    []func()
}

// NewTracker returns an empty tracker. A strict tracker reports unknown
// handles as errors; otherwise they are logged and ignored.
func NewTracker(strict bool, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		strict:    strict,
		logger:    logger,
		listeners: make(map[int]func(Event)),
	}
}

// Register adds a locked target owned by scope (a waypoint name, or empty).
// Registering after unlocks have started grows the total.
func (t *Tracker) Register(scope string) Handle {
	t.targets = append(t.targets, target{scope: scope})
	return Handle(len(t.targets) - 1)
}

// ReportUnlocked marks h unlocked and fires exactly one milestone event.
// Repeated reports for the same handle do nothing.
func (t *Tracker) ReportUnlocked(h Handle) error {
	if !t.valid(h) {
		if t.strict {
			return fmt.Errorf("report unlocked %d: %w", h, ErrUnknownHandle)
		}
		t.logger.Warn("Ignoring unlock for unknown lockable", "handle", int(h))
		return nil
	}
	tg := &t.targets[h]
	if tg.unlocked {
		return nil
	}
	tg.unlocked = true
	t.unlocked++

	remaining := len(t.targets) - t.unlocked
	e := Event{
		Milestone: MilestoneFor(remaining),
		Handle:    h,
		Scope:     tg.scope,
		Remaining: remaining,
		Unlocked:  t.unlocked,
		Total:     len(t.targets),
	}
	t.logger.Debug("Lockable unlocked", "handle", int(h), "remaining", remaining, "milestone", e.Milestone)
	t.emit(e)
	if e.Milestone == MilestoneAllUnlocked {
		for _, fn := range t.finale {
			fn()
		}
	}
	return nil
}

// Restore marks handles unlocked without firing events or callbacks.
func (t *Tracker) Restore(handles []Handle) {
	for _, h := range handles {
		if !t.valid(h) || t.targets[h].unlocked {
			continue
		}
		t.targets[h].unlocked = true
		t.unlocked++
	}
}

// OnAllUnlocked registers a callback run when the last lock opens.
func (t *Tracker) OnAllUnlocked(fn func()) {
	t.finale = append(t.finale, fn)
}

// Subscribe registers fn for every milestone event. The returned func
// removes it.
func (t *Tracker) Subscribe(fn func(Event)) func() {
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	return func() { delete(t.listeners, id) }
}

func (t *Tracker) emit(e Event) {
	ids := make([]int, 0, len(t.listeners))
	for id := range t.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		t.listeners[id](e)
	}
}

func (t *Tracker) valid(h Handle) bool {
	return h >= 0 && int(h) < len(t.targets)
}

// Scope returns the waypoint that owns h.
func (t *Tracker) Scope(h Handle) (string, bool) {
	if !t.valid(h) {
		return "", false
	}
	return t.targets[h].scope, true
}

func (t *Tracker) IsUnlocked(h Handle) bool {
	return t.valid(h) && t.targets[h].unlocked
}

func (t *Tracker) Total() int {
	return len(t.targets)
}

func (t *Tracker) Unlocked() int {
	return t.unlocked
}

func (t *Tracker) Remaining() int {
	return len(t.targets) - t.unlocked
}

// UnlockedHandles lists unlocked handles in registration order.
func (t *Tracker) UnlockedHandles() []Handle {
	var out []Handle
	for i, tg := range t.targets {
		if tg.unlocked {
			out = append(out, Handle(i))
		}
	}
	return out
}
