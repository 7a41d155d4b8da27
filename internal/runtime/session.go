package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/immersion-engine/pkg/immersion"
	"github.com/jwebster45206/immersion-engine/pkg/navigation"
	"github.com/jwebster45206/immersion-engine/pkg/progress"
	"github.com/jwebster45206/immersion-engine/pkg/state"
)

var (
	ErrUnknownCommand     = errors.New("unknown command")
	ErrInvalidCommand     = errors.New("invalid command")
	ErrLockableOutOfScope = errors.New("lockable belongs to another waypoint")
)

// maxFramesPerCommand bounds a single frame command.
const maxFramesPerCommand = 600

var milestoneCues = map[progress.Milestone]string{
	progress.MilestoneProgress:     navigation.CueNewItem,
	progress.MilestoneTwoRemaining: navigation.CueTwoLeft,
	progress.MilestoneOneRemaining: navigation.CueOneLeft,
	progress.MilestoneAllUnlocked:  navigation.CueMissionComplete,
}

// Publisher receives the semantic events of a session.
type Publisher interface {
	PublishSessionStarted(ctx context.Context, sessionID uuid.UUID, immersionFile, entry string) error
	PublishSessionEnded(ctx context.Context, sessionID uuid.UUID) error
	PublishNavigation(ctx context.Context, sessionID uuid.UUID, e navigation.Event) error
	PublishProgress(ctx context.Context, sessionID uuid.UUID, lockable string, e progress.Event) error
	PublishFinale(ctx context.Context, sessionID uuid.UUID, total int) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishSessionStarted(context.Context, uuid.UUID, string, string) error { return nil }
func (NopPublisher) PublishSessionEnded(context.Context, uuid.UUID) error                  { return nil }
func (NopPublisher) PublishNavigation(context.Context, uuid.UUID, navigation.Event) error  { return nil }
func (NopPublisher) PublishProgress(context.Context, uuid.UUID, string, progress.Event) error {
	return nil
}
func (NopPublisher) PublishFinale(context.Context, uuid.UUID, int) error { return nil }

// Settings are the server-wide navigation tunables.
type Settings struct {
	ArrivalThreshold float32
	AnimationFrames  int
	FreeRoam         bool
	// SessionTTL is the storage expiry. A live session not saved within it
	// is reloaded from storage. Zero keeps live sessions indefinitely.
	SessionTTL time.Duration
}

type unlockEvent struct {
	lockable string
	event    progress.Event
}

// Session binds one viewer's controller and tracker. Every input goes
// through Apply, which holds the session lock for its whole duration.
type Session struct {
	mu sync.Mutex

	state      *state.Session
	immersion  *immersion.Immersion
	controller *navigation.Controller
	tracker    *progress.Tracker
	handles    map[string]progress.Handle
	lockables  map[progress.Handle]string
	publisher  Publisher
	logger     *slog.Logger

	outbox    []Message
	navEvents []navigation.Event
	unlocks   []unlockEvent
	finale    bool
}

// NewSession builds the runtime for st. A session with a saved cursor is
// restored, otherwise it starts at its entry point.
func NewSession(st *state.Session, im *immersion.Immersion, settings Settings, publisher Publisher, logger *slog.Logger) (*Session, error) {
	if len(im.Waypoints) == 0 {
		return nil, fmt.Errorf("immersion %s has no waypoints", im.FileName)
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session_id", st.ID.String())

	graph := &navigation.Graph{}
	for _, w := range im.Waypoints {
		if err := graph.Add(w); err != nil {
			// Duplicates are skipped so the rest of the immersion stays usable.
			logger.Warn("Skipping waypoint", "waypoint", w.Name, "error", err)
		}
	}

	s := &Session{
		state:     st,
		immersion: im,
		handles:   make(map[string]progress.Handle),
		lockables: make(map[progress.Handle]string),
		publisher: publisher,
		logger:    logger,
	}

	s.controller = navigation.NewController(graph, s, s, navigation.Options{
		Session:          st.Config,
		ArrivalThreshold: settings.ArrivalThreshold,
		AnimationFrames:  settings.AnimationFrames,
		FreeRoam:         settings.FreeRoam,
		Environment:      im.EnvironmentFor,
		Logger:           logger,
	})
	s.controller.Subscribe(func(e navigation.Event) {
		s.navEvents = append(s.navEvents, e)
		s.outbox = append(s.outbox, Message{Type: MessageEvent, Event: &e, Waypoint: e.Waypoint})
	})

	s.tracker = progress.NewTracker(st.Config.Strict(), logger)
	for _, l := range im.Lockables {
		h := s.tracker.Register(l.Waypoint)
		s.handles[l.ID] = h
		s.lockables[h] = l.ID
	}
	s.tracker.Subscribe(func(e progress.Event) {
		lockable := s.lockables[e.Handle]
		s.unlocks = append(s.unlocks, unlockEvent{lockable: lockable, event: e})
		s.outbox = append(s.outbox, Message{Type: MessageProgress, Progress: &e, Lockable: lockable, Waypoint: e.Scope})
		if !s.controller.Muted() {
			s.PlayCue(milestoneCues[e.Milestone])
		}
	})
	s.tracker.OnAllUnlocked(func() {
		s.finale = true
	})

	if st.Cursor.Waypoint != "" {
		s.controller.Restore(st.Cursor)
		var restored []progress.Handle
		for _, id := range st.Unlocked {
			if h, ok := s.handles[id]; ok {
				restored = append(restored, h)
			}
		}
		s.tracker.Restore(restored)
	} else {
		s.controller.Start()
	}
	s.sync()
	return s, nil
}

func (s *Session) ID() uuid.UUID {
	return s.state.ID
}

// Start drains the messages produced while building the session.
func (s *Session) Start(ctx context.Context) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, _ := s.controller.Current()
	entry := ""
	if w != nil {
		entry = w.Name
	}
	if err := s.publisher.PublishSessionStarted(ctx, s.state.ID, s.state.Immersion, entry); err != nil {
		s.logger.Warn("Failed to publish session start", "error", err)
	}
	return s.flush(ctx, true)
}

// Apply runs one command against the session.
func (s *Session) Apply(ctx context.Context, cmd Command) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := s.apply(cmd)
	if err != nil {
		// Side effects produced before the error still go out.
		res := s.flush(ctx, changed)
		return res, err
	}
	return s.flush(ctx, changed), nil
}

func (s *Session) apply(cmd Command) (bool, error) {
	c := s.controller
	switch cmd.Type {
	case CommandNext:
		return c.GoToNext(), nil

	case CommandPrevious:
		return c.GoToPrevious(), nil

	case CommandGoTo:
		if cmd.Waypoint == "" {
			return false, fmt.Errorf("%w: goto needs a waypoint", ErrInvalidCommand)
		}
		animate := cmd.Animate == nil || *cmd.Animate
		return c.GoToNamed(cmd.Waypoint, animate)

	case CommandOpenLink:
		if err := c.OpenExternal(cmd.Waypoint); err != nil {
			return false, fmt.Errorf("open link %q: %w", cmd.Waypoint, err)
		}
		return true, nil

	case CommandFrame:
		frames := cmd.Frames
		if frames <= 0 {
			frames = 1
		}
		if frames > maxFramesPerCommand {
			return false, fmt.Errorf("%w: at most %d frames per command", ErrInvalidCommand, maxFramesPerCommand)
		}
		// Without a reported camera the renderer is assumed to follow the
		// controller's own pose.
		for i := 0; i < frames; i++ {
			camera := c.Camera().Position
			if cmd.Camera != nil {
				camera = *cmd.Camera
			}
			c.Tick(camera)
		}
		return len(s.navEvents) > 0, nil

	case CommandPointerDown:
		c.PointerDown()
		return len(s.navEvents) > 0, nil

	case CommandUnlock:
		return s.unlock(cmd.Lockable)

	case CommandPressSound:
		c.PressSound(cmd.Waypoint)
		return true, nil

	case CommandAudioEnded:
		c.AudioEnded(cmd.Waypoint)
		return false, nil

	case CommandTeleporterReady:
		c.MarkTeleporterReady(cmd.Waypoint)
		return true, nil

	case CommandMute:
		muted := !c.Muted()
		if cmd.Muted != nil {
			muted = *cmd.Muted
		}
		c.SetMuted(muted)
		return true, nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
}

// unlock reports the first pick of a lockable. Picks are only accepted on
// the waypoint that owns the lockable.
func (s *Session) unlock(id string) (bool, error) {
	h, ok := s.handles[id]
	if !ok {
		if err := s.tracker.ReportUnlocked(progress.Handle(-1)); err != nil {
			return false, fmt.Errorf("unlock %q: %w", id, err)
		}
		return false, nil
	}
	if scope, _ := s.tracker.Scope(h); scope != "" {
		if w, _ := s.controller.Current(); w == nil || w.Name != scope {
			return false, fmt.Errorf("unlock %q: %w", id, ErrLockableOutOfScope)
		}
	}
	before := s.tracker.Unlocked()
	if err := s.tracker.ReportUnlocked(h); err != nil {
		return false, err
	}
	return s.tracker.Unlocked() != before, nil
}

// flush publishes collected events, updates the persisted state and drains
// the outbox. Callers hold s.mu.
func (s *Session) flush(ctx context.Context, changed bool) Result {
	for _, e := range s.navEvents {
		if err := s.publisher.PublishNavigation(ctx, s.state.ID, e); err != nil {
			s.logger.Warn("Failed to publish navigation event", "error", err, "event", e.Type)
		}
	}
	for _, u := range s.unlocks {
		if err := s.publisher.PublishProgress(ctx, s.state.ID, u.lockable, u.event); err != nil {
			s.logger.Warn("Failed to publish progress event", "error", err)
		}
	}
	if s.finale {
		if err := s.publisher.PublishFinale(ctx, s.state.ID, s.tracker.Total()); err != nil {
			s.logger.Warn("Failed to publish finale", "error", err)
		}
	}
	changed = changed || len(s.navEvents) > 0 || len(s.unlocks) > 0

	s.sync()
	snap := s.snapshot()
	res := Result{Messages: s.outbox, Snapshot: snap, Changed: changed}
	if res.Messages == nil {
		res.Messages = []Message{}
	}
	s.outbox = nil
	s.navEvents = nil
	s.unlocks = nil
	s.finale = false
	return res
}

// sync copies the live cursor and progress into the persisted state.
func (s *Session) sync() {
	s.state.Cursor = s.controller.Snapshot()
	s.state.Name = s.immersion.Name
	s.state.Unlocked = s.state.Unlocked[:0]
	for _, h := range s.tracker.UnlockedHandles() {
		s.state.Unlocked = append(s.state.Unlocked, s.lockables[h])
	}
	s.state.Remaining = s.tracker.Remaining()
}

func (s *Session) snapshot() Snapshot {
	cur := s.state.Cursor
	w, _ := s.controller.Current()
	return Snapshot{
		SessionID: s.state.ID,
		Immersion: s.state.Immersion,
		Name:      s.immersion.Name,
		Config:    s.state.Config,
		Texts:     s.immersion.Texts,
		Cursor:    cur,
		Current:   w,
		Progress: ProgressView{
			Total:     s.tracker.Total(),
			Unlocked:  s.tracker.Unlocked(),
			Remaining: s.tracker.Remaining(),
			Lockables: append([]string(nil), s.state.Unlocked...),
		},
	}
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// State returns a copy of the persisted state.
func (s *Session) State() state.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := *s.state
	st.Unlocked = append([]string(nil), s.state.Unlocked...)
	return st
}

// navigation.Presentation

func (s *Session) MoveCameraTo(move navigation.CameraMove) {
	s.outbox = append(s.outbox, Message{Type: MessageCameraMove, Camera: &move, Waypoint: move.Waypoint})
}

func (s *Session) OrbitCamera(yaw float32) {
	s.outbox = append(s.outbox, Message{Type: MessageCameraOrbit, Yaw: &yaw})
}

func (s *Session) ApplyEnvironment(env immersion.Environment) {
	s.outbox = append(s.outbox, Message{Type: MessageEnvironment, Environment: &env})
}

func (s *Session) SetWaypointUIVisible(name string, visible bool) {
	s.outbox = append(s.outbox, Message{Type: MessageWaypointUI, Waypoint: name, Visible: &visible})
}

func (s *Session) OpenExternal(url string) {
	s.outbox = append(s.outbox, Message{Type: MessageOpenURL, URL: url})
}

// navigation.AudioHost

func (s *Session) PlayAutoplay(clip string) {
	s.outbox = append(s.outbox, Message{Type: MessageAudioPlay, Clip: clip})
}

func (s *Session) StopAll() {
	s.outbox = append(s.outbox, Message{Type: MessageAudioStop})
}

func (s *Session) PlayCue(cue string) {
	s.outbox = append(s.outbox, Message{Type: MessageAudioCue, Cue: cue})
}
