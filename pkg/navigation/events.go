package navigation

// EventType names a navigation event.
type EventType string

const (
	EventArrived             EventType = "waypoint.arrived"
	EventDeparted            EventType = "waypoint.departed"
	EventTransitionStarted   EventType = "transition.started"
	EventTransitionCompleted EventType = "transition.completed"
	EventStateChanged        EventType = "state.changed"
	EventLinkOpened          EventType = "link.opened"
	EventAudioStarted        EventType = "audio.started"
	EventAudioStopped        EventType = "audio.stopped"
)

// Event is delivered synchronously to every subscriber.
type Event struct {
	Type          EventType       `json:"type"`
	Waypoint      string          `json:"waypoint,omitempty"`
	Index         int             `json:"index"`
	State         TransitionState `json:"state,omitempty"`
	PreviousState TransitionState `json:"previous_state,omitempty"`
	Frames        int             `json:"frames,omitempty"`
	URL           string          `json:"url,omitempty"`
	Clip          string          `json:"clip,omitempty"`
}

// Cursor is a persistable snapshot of a controller.
type Cursor struct {
	Index      int             `json:"index"`
	Waypoint   string          `json:"waypoint"`
	State      TransitionState `json:"state"`
	Active     string          `json:"active,omitempty"`
	Camera     Pose            `json:"camera"`
	Visited    []string        `json:"visited"`
	Autoplayed []string        `json:"autoplayed,omitempty"`
	Ready      []string        `json:"ready,omitempty"` // teleporters released by MarkTeleporterReady
	Playing    string          `json:"playing,omitempty"`
	Muted      bool            `json:"muted"`
	IsLast     bool            `json:"is_last"`
	CanGoBack  bool            `json:"can_go_back"`
}
