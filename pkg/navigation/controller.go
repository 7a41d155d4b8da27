package navigation

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/jwebster45206/immersion-engine/pkg/immersion"
	"github.com/jwebster45206/immersion-engine/pkg/session"
)

var (
	ErrLinkNotEnterable = errors.New("links cannot be entered")
	ErrNotALink         = errors.New("waypoint is not a link")
	ErrUnknownWaypoint  = errors.New("unknown waypoint")
)

// TransitionState is the state of the camera cursor.
type TransitionState string

const (
	StateIdle           TransitionState = "idle"
	StateAnimating      TransitionState = "animating"
	StateRotatingAtRest TransitionState = "rotating_at_rest"
)

const (
	DefaultArrivalThreshold float32 = 2.8
	DefaultAnimationFrames          = 50
	DefaultRotationFrames           = 1000
	DefaultViewHeight       float32 = 1.75
)

// Options tunes a Controller. Zero values take the defaults above.
type Options struct {
	Session          session.Config
	ArrivalThreshold float32
	AnimationFrames  int // frames per animated transition; negative disables animation
	RotationFrames   int // frames per full preview revolution
	ViewHeight       float32
	FreeRoam         bool // any waypoint within the threshold becomes current (VR)
	Environment      func(*immersion.Waypoint) immersion.Environment
	Logger           *slog.Logger
}

// Controller moves a viewer through a Graph. It is not safe for concurrent
// use; every call is expected from the host's frame loop or input handlers.
type Controller struct {
	graph        *Graph
	presentation Presentation
	audio        AudioHost
	logger       *slog.Logger
	cfg          session.Config

	threshold      float32
	animFrames     int
	rotationFrames int
	viewHeight     float32
	freeRoam       bool
	environment    func(*immersion.Waypoint) immersion.Environment

	current int
	active  int
	state   TransitionState

	camera   Pose
	from, to Pose
	frame    int
	frames   int
	baseYaw  float32

	visited    map[string]bool
	pending    map[string]bool
	autoplayed map[string]bool
	playing    string
	muted      bool

	// teleporters followed since the last viewer input
	followed map[string]bool

	listeners map[int]func(Event)
	nextID    int
}

// NewController builds a controller at rest before the first waypoint.
// Teleporters flagged AwaitLoad start pending.
func NewController(graph *Graph, presentation Presentation, audio AudioHost, opts Options) *Controller {
	if presentation == nil {
		presentation = NopPresentation{}
	}
	if audio == nil {
		audio = NopAudio{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ArrivalThreshold <= 0 {
		opts.ArrivalThreshold = DefaultArrivalThreshold
	}
	if opts.AnimationFrames == 0 {
		opts.AnimationFrames = DefaultAnimationFrames
	}
	if opts.RotationFrames <= 0 {
		opts.RotationFrames = DefaultRotationFrames
	}
	if opts.ViewHeight == 0 {
		opts.ViewHeight = DefaultViewHeight
	}
	if opts.Environment == nil {
		opts.Environment = func(*immersion.Waypoint) immersion.Environment { return immersion.DefaultEnvironment }
	}

	c := &Controller{
		graph:          graph,
		presentation:   presentation,
		audio:          audio,
		logger:         opts.Logger,
		cfg:            opts.Session.Normalize(),
		threshold:      opts.ArrivalThreshold,
		animFrames:     opts.AnimationFrames,
		rotationFrames: opts.RotationFrames,
		viewHeight:     opts.ViewHeight,
		freeRoam:       opts.FreeRoam,
		environment:    opts.Environment,
		current:        -1,
		active:         -1,
		state:          StateIdle,
		visited:        make(map[string]bool),
		pending:        make(map[string]bool),
		autoplayed:     make(map[string]bool),
		followed:       make(map[string]bool),
		listeners:      make(map[int]func(Event)),
	}
	c.muted = c.cfg.Mute
	for _, w := range graph.waypoints {
		if w.Kind == immersion.KindTeleporter && w.AwaitLoad {
			c.pending[w.Name] = true
		}
	}
	return c
}

// Start places the viewer on the entry waypoint: the deep-link destination
// when it exists, the first waypoint otherwise. Deep links and preview mode
// start rotating at rest.
func (c *Controller) Start() {
	if c.graph.Len() == 0 {
		c.logger.Warn("Immersion has no waypoints")
		return
	}
	idx := c.graph.ResolveEntryPoint(c.cfg.Dest)
	if c.cfg.Dest != "" && c.graph.IndexOf(c.cfg.Dest) < 0 {
		c.logger.Warn("Deep link destination not found, using first waypoint", "dest", c.cfg.Dest)
	}
	if w := c.graph.At(idx); !w.Kind.Navigable() {
		if _, next := c.graph.NextNavigable(idx); next >= 0 {
			idx = next
		}
	}

	c.place(idx)
	if c.cfg.StartsRotating() {
		c.baseYaw = c.camera.Yaw
		c.frame = 0
		c.setState(StateRotatingAtRest)
	}
}

// Restore rebuilds a previously snapshotted cursor at rest, without
// replaying arrival side effects.
func (c *Controller) Restore(cur Cursor) {
	for _, name := range cur.Visited {
		c.visited[name] = true
	}
	for _, name := range cur.Autoplayed {
		c.autoplayed[name] = true
	}
	for _, name := range cur.Ready {
		delete(c.pending, name)
	}
	c.muted = cur.Muted
	if w, _ := c.graph.FindByName(cur.Playing); w != nil && w.Audio != nil {
		c.playing = cur.Playing
	}
	idx := c.graph.IndexOf(cur.Waypoint)
	if idx < 0 {
		c.Start()
		return
	}
	c.place(idx)
}

// place snaps the camera onto idx without firing arrival; proximity does
// that on the next tick.
func (c *Controller) place(idx int) {
	w := c.graph.At(idx)
	c.current = idx
	to := c.poseFor(w)
	c.presentation.MoveCameraTo(CameraMove{Waypoint: w.Name, From: c.camera, To: to})
	c.camera = to
	c.presentation.ApplyEnvironment(c.environment(w))
}

// Subscribe registers fn for every event. The returned func removes it.
func (c *Controller) Subscribe(fn func(Event)) func() {
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() { delete(c.listeners, id) }
}

func (c *Controller) emit(e Event) {
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		c.listeners[id](e)
	}
}

func (c *Controller) setState(s TransitionState) {
	if c.state == s {
		return
	}
	prev := c.state
	c.state = s
	c.emit(Event{Type: EventStateChanged, State: s, PreviousState: prev, Index: c.current, Waypoint: c.currentName()})
}

// GoToNext moves to the next navigable waypoint. It is ignored unless the
// controller is idle, at the end of the sequence, or on a pending teleporter.
func (c *Controller) GoToNext() bool {
	if c.state != StateIdle {
		c.logger.Debug("Navigation ignored", "request", "next", "state", c.state)
		return false
	}
	if w := c.graph.At(c.current); w != nil && w.Kind == immersion.KindTeleporter && c.pending[w.Name] {
		c.logger.Debug("Navigation ignored, teleporter pending", "waypoint", w.Name)
		return false
	}
	_, idx := c.graph.NextNavigable(c.current)
	if idx < 0 {
		return false
	}
	clear(c.followed)
	return c.goTo(idx, true)
}

// GoToPrevious moves to the previous waypoint that is neither a link nor a
// teleporter.
func (c *Controller) GoToPrevious() bool {
	if c.state != StateIdle {
		c.logger.Debug("Navigation ignored", "request", "previous", "state", c.state)
		return false
	}
	if c.current <= 0 {
		return false
	}
	_, idx := c.graph.PreviousNavigable(c.current)
	if idx < 0 {
		return false
	}
	clear(c.followed)
	return c.goTo(idx, true)
}

// GoToNamed moves to the named waypoint. Unknown names are logged and
// ignored; links are rejected with ErrLinkNotEnterable.
func (c *Controller) GoToNamed(name string, animate bool) (bool, error) {
	w, idx := c.graph.FindByName(name)
	if w == nil {
		c.logger.Warn("Waypoint not found", "waypoint", name)
		return false, nil
	}
	if w.Kind == immersion.KindLink {
		return false, ErrLinkNotEnterable
	}
	if c.state != StateIdle {
		c.logger.Debug("Navigation ignored", "request", "goto", "waypoint", name, "state", c.state)
		return false, nil
	}
	clear(c.followed)
	return c.goTo(idx, animate), nil
}

// OpenExternal opens the URL of a link waypoint. Audio stops first.
func (c *Controller) OpenExternal(name string) error {
	w, idx := c.graph.FindByName(name)
	if w == nil {
		return ErrUnknownWaypoint
	}
	if w.Kind != immersion.KindLink {
		return ErrNotALink
	}
	c.openLink(w, idx)
	return nil
}

func (c *Controller) openLink(w *immersion.Waypoint, idx int) {
	c.stopAudio()
	c.muted = true
	c.presentation.OpenExternal(w.ExternalURL)
	c.emit(Event{Type: EventLinkOpened, Waypoint: w.Name, Index: idx, URL: w.ExternalURL})
}

func (c *Controller) goTo(idx int, animate bool) bool {
	w := c.graph.At(idx)
	if w == nil || !w.Kind.Navigable() {
		return false
	}
	if c.active >= 0 && c.active != idx {
		c.depart()
	}

	from := c.camera
	to := c.poseFor(w)
	frames := 0
	if animate && c.animFrames > 0 {
		frames = c.animFrames
	}
	c.current = idx
	c.presentation.MoveCameraTo(CameraMove{Waypoint: w.Name, From: from, To: to, Frames: frames})
	c.emit(Event{Type: EventTransitionStarted, Waypoint: w.Name, Index: idx, Frames: frames})

	if frames == 0 {
		c.camera = to
		c.emit(Event{Type: EventTransitionCompleted, Waypoint: w.Name, Index: idx})
		if c.active != idx {
			c.arrive(idx)
		}
		return true
	}
	c.from, c.to = from, to
	c.frame, c.frames = 0, frames
	c.setState(StateAnimating)
	return true
}

// Tick advances one rendered frame. camera is where the renderer currently
// holds the viewer; it drives arrival and departure while idle.
func (c *Controller) Tick(camera immersion.Vec3) {
	switch c.state {
	case StateAnimating:
		c.frame++
		t := float32(c.frame) / float32(c.frames)
		c.camera = Pose{
			Position: c.from.Position.Lerp(c.to.Position, t),
			Target:   c.from.Target.Lerp(c.to.Target, t),
		}
		c.camera.Yaw = immersion.Yaw(c.camera.Position, c.camera.Target)
		if c.frame < c.frames {
			return
		}
		c.camera = c.to
		w := c.graph.At(c.current)
		c.setState(StateIdle)
		c.emit(Event{Type: EventTransitionCompleted, Waypoint: w.Name, Index: c.current})
		if c.active != c.current {
			c.arrive(c.current)
		}
		return

	case StateRotatingAtRest:
		c.frame++
		c.camera.Yaw = c.baseYaw + 360*float32(c.frame%c.rotationFrames)/float32(c.rotationFrames)
		c.presentation.OrbitCamera(c.camera.Yaw)
		return
	}

	c.camera.Position = camera
	c.updateProximity(camera)
}

func (c *Controller) updateProximity(camera immersion.Vec3) {
	if c.active >= 0 {
		if camera.DistanceTo(c.graph.At(c.active).Position) >= c.threshold {
			c.depart()
		}
	}
	if c.active >= 0 || c.current < 0 {
		return
	}
	if camera.DistanceTo(c.graph.At(c.current).Position) < c.threshold {
		clear(c.followed)
		c.arrive(c.current)
		return
	}
	if !c.freeRoam {
		return
	}
	best, bestDist := -1, c.threshold
	for i, w := range c.graph.waypoints {
		if !w.Kind.Navigable() {
			continue
		}
		if d := camera.DistanceTo(w.Position); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best >= 0 {
		clear(c.followed)
		c.current = best
		c.arrive(best)
	}
}

func (c *Controller) arrive(idx int) {
	w := c.graph.At(idx)
	c.active = idx
	c.visited[w.Name] = true
	c.presentation.ApplyEnvironment(c.environment(w))
	c.presentation.SetWaypointUIVisible(w.Name, true)
	c.emit(Event{Type: EventArrived, Waypoint: w.Name, Index: idx})

	if w.Autoplays() && !c.autoplayed[w.Name] && c.playing == "" && !c.muted {
		c.play(w)
	}
	if w.Kind == immersion.KindTeleporter {
		c.activateTeleporter(idx)
	}
}

func (c *Controller) depart() {
	w := c.graph.At(c.active)
	idx := c.active
	c.active = -1
	c.presentation.SetWaypointUIVisible(w.Name, false)
	c.emit(Event{Type: EventDeparted, Waypoint: w.Name, Index: idx})
}

func (c *Controller) activateTeleporter(idx int) {
	w := c.graph.At(idx)
	if c.pending[w.Name] {
		c.logger.Debug("Teleporter waiting for load", "waypoint", w.Name)
		return
	}
	// A teleporter reached twice in one chain closes a loop; the viewer
	// stays on it.
	if c.followed[w.Name] {
		c.logger.Warn("Teleporter loop detected, teleporter is inert", "waypoint", w.Name)
		return
	}
	c.followed[w.Name] = true
	target, tidx := c.graph.ResolveLink(idx)
	if target == nil {
		c.logger.Warn("Teleporter target does not resolve, teleporter is inert",
			"waypoint", w.Name, "target", w.LinkedWaypoint)
		return
	}
	if target.Kind == immersion.KindLink {
		c.openLink(target, tidx)
		return
	}
	c.goTo(tidx, true)
}

// PointerDown cancels the preview rotation.
func (c *Controller) PointerDown() {
	if c.state == StateRotatingAtRest {
		c.setState(StateIdle)
	}
}

// MarkTeleporterReady releases a teleporter that was waiting for its
// destination to load. A viewer already standing on it is sent on.
func (c *Controller) MarkTeleporterReady(name string) {
	if !c.pending[name] {
		return
	}
	delete(c.pending, name)
	idx := c.graph.IndexOf(name)
	if idx >= 0 && c.active == idx && c.state == StateIdle {
		clear(c.followed)
		c.activateTeleporter(idx)
	}
}

// PressSound toggles the clip of a display, stopping any other clip first.
// Pressing unmutes the session.
func (c *Controller) PressSound(name string) {
	w, _ := c.graph.FindByName(name)
	if w == nil || w.Audio == nil {
		return
	}
	if !c.muted {
		c.audio.PlayCue(CueClick)
	}
	if c.playing == name {
		c.stopAudio()
		return
	}
	c.stopAudio()
	c.muted = false
	c.play(w)
}

// AudioEnded tells the controller a waypoint clip finished on its own.
func (c *Controller) AudioEnded(name string) {
	if c.playing == name {
		c.playing = ""
		c.emit(Event{Type: EventAudioStopped, Waypoint: name, Index: c.graph.IndexOf(name)})
	}
}

// SetMuted mutes or unmutes the session. Muting stops the playing clip.
func (c *Controller) SetMuted(muted bool) {
	c.muted = muted
	if muted {
		c.stopAudio()
	}
}

func (c *Controller) Muted() bool {
	return c.muted
}

func (c *Controller) play(w *immersion.Waypoint) {
	c.audio.PlayAutoplay(w.Audio.Clip)
	c.playing = w.Name
	c.autoplayed[w.Name] = true
	c.emit(Event{Type: EventAudioStarted, Waypoint: w.Name, Index: c.graph.IndexOf(w.Name), Clip: w.Audio.Clip})
}

func (c *Controller) stopAudio() {
	c.audio.StopAll()
	if c.playing != "" {
		name := c.playing
		c.playing = ""
		c.emit(Event{Type: EventAudioStopped, Waypoint: name, Index: c.graph.IndexOf(name)})
	}
}

func (c *Controller) poseFor(w *immersion.Waypoint) Pose {
	pos := immersion.V3(w.Position.X, c.viewHeight, w.Position.Z)
	return Pose{Position: pos, Target: w.LookTarget, Yaw: w.FacingAngle()}
}

func (c *Controller) currentName() string {
	if w := c.graph.At(c.current); w != nil {
		return w.Name
	}
	return ""
}

func (c *Controller) Graph() *Graph {
	return c.graph
}

func (c *Controller) State() TransitionState {
	return c.state
}

// Current returns the waypoint under the cursor, or nil and -1 before Start.
func (c *Controller) Current() (*immersion.Waypoint, int) {
	return c.graph.At(c.current), c.current
}

// Camera returns the pose the controller believes the camera holds,
// interpolated while animating.
func (c *Controller) Camera() Pose {
	return c.camera
}

func (c *Controller) Visited(name string) bool {
	return c.visited[name]
}

// IsLast reports whether the next affordance should be disabled.
func (c *Controller) IsLast() bool {
	return c.graph.IsLastNavigable(c.current)
}

// CanGoBack reports whether the previous affordance should be enabled.
func (c *Controller) CanGoBack() bool {
	if c.current <= 0 {
		return false
	}
	_, idx := c.graph.PreviousNavigable(c.current)
	return idx >= 0
}

// Snapshot captures the cursor for persistence.
func (c *Controller) Snapshot() Cursor {
	cur := Cursor{
		Index:     c.current,
		Waypoint:  c.currentName(),
		State:     c.state,
		Camera:    c.camera,
		Playing:   c.playing,
		Muted:     c.muted,
		IsLast:    c.IsLast(),
		CanGoBack: c.CanGoBack(),
	}
	if w := c.graph.At(c.active); w != nil {
		cur.Active = w.Name
	}
	cur.Visited = sortedKeys(c.visited)
	cur.Autoplayed = sortedKeys(c.autoplayed)
	for _, w := range c.graph.waypoints {
		if w.Kind == immersion.KindTeleporter && w.AwaitLoad && !c.pending[w.Name] {
			cur.Ready = append(cur.Ready, w.Name)
		}
	}
	return cur
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, ok := range m {
		if ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
