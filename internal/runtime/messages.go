package runtime

import (
	"github.com/google/uuid"
	"github.com/jwebster45206/immersion-engine/pkg/immersion"
	"github.com/jwebster45206/immersion-engine/pkg/navigation"
	"github.com/jwebster45206/immersion-engine/pkg/progress"
	"github.com/jwebster45206/immersion-engine/pkg/session"
)

// CommandType names an input sent by a presentation client.
type CommandType string

const (
	CommandNext            CommandType = "next"
	CommandPrevious        CommandType = "previous"
	CommandGoTo            CommandType = "goto"
	CommandOpenLink        CommandType = "open_link"
	CommandFrame           CommandType = "frame"
	CommandPointerDown     CommandType = "pointer_down"
	CommandUnlock          CommandType = "unlock"
	CommandPressSound      CommandType = "press_sound"
	CommandAudioEnded      CommandType = "audio_ended"
	CommandTeleporterReady CommandType = "teleporter_ready"
	CommandMute            CommandType = "mute"
)

// Command is one input. Fields not used by the type are ignored.
type Command struct {
	Type     CommandType     `json:"type"`
	Waypoint string          `json:"waypoint,omitempty"`
	Animate  *bool           `json:"animate,omitempty"` // goto only, default true
	Camera   *immersion.Vec3 `json:"camera,omitempty"`  // frame only
	Frames   int             `json:"frames,omitempty"`  // frame only, default 1
	Lockable string          `json:"lockable,omitempty"`
	Muted    *bool           `json:"muted,omitempty"`
}

// MessageType names an output for a presentation client.
type MessageType string

const (
	MessageCameraMove  MessageType = "camera.move"
	MessageCameraOrbit MessageType = "camera.orbit"
	MessageEnvironment MessageType = "environment"
	MessageWaypointUI  MessageType = "waypoint.ui"
	MessageOpenURL     MessageType = "open_url"
	MessageAudioPlay   MessageType = "audio.play"
	MessageAudioStop   MessageType = "audio.stop_all"
	MessageAudioCue    MessageType = "audio.cue"
	MessageEvent       MessageType = "event"
	MessageProgress    MessageType = "progress"
	MessageSnapshot    MessageType = "snapshot"
	MessageError       MessageType = "error"
)

// Message is what the presentation layer must do or know. One Type per
// message; only the matching fields are set.
type Message struct {
	Type        MessageType            `json:"type"`
	Camera      *navigation.CameraMove `json:"camera,omitempty"`
	Yaw         *float32               `json:"yaw,omitempty"`
	Environment *immersion.Environment `json:"environment,omitempty"`
	Waypoint    string                 `json:"waypoint,omitempty"`
	Visible     *bool                  `json:"visible,omitempty"`
	URL         string                 `json:"url,omitempty"`
	Clip        string                 `json:"clip,omitempty"`
	Cue         string                 `json:"cue,omitempty"`
	Event       *navigation.Event      `json:"event,omitempty"`
	Progress    *progress.Event        `json:"progress,omitempty"`
	Lockable    string                 `json:"lockable,omitempty"`
	Snapshot    *Snapshot              `json:"snapshot,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// ProgressView summarizes the tracker for clients.
type ProgressView struct {
	Total     int      `json:"total"`
	Unlocked  int      `json:"unlocked"`
	Remaining int      `json:"remaining"`
	Lockables []string `json:"lockables,omitempty"` // unlocked ids
}

// Snapshot is the full client-facing view of a session.
type Snapshot struct {
	SessionID uuid.UUID           `json:"session_id"`
	Immersion string              `json:"immersion"`
	Name      string              `json:"name"`
	Config    session.Config      `json:"config"`
	Texts     map[string]string   `json:"texts,omitempty"`
	Cursor    navigation.Cursor   `json:"cursor"`
	Current   *immersion.Waypoint `json:"current,omitempty"`
	Progress  ProgressView        `json:"progress"`
}

// Result is returned for every applied command.
type Result struct {
	Messages []Message `json:"messages"`
	Snapshot Snapshot  `json:"snapshot"`
	Changed  bool      `json:"-"`
}
