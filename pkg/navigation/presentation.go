package navigation

import "github.com/jwebster45206/immersion-engine/pkg/immersion"

// Pose is where the camera stands and what it looks at.
type Pose struct {
	Position immersion.Vec3 `json:"position"`
	Target   immersion.Vec3 `json:"target"`
	Yaw      float32        `json:"yaw"`
}

// CameraMove asks the renderer to bring the camera to a waypoint. Frames is
// zero for an instant move.
type CameraMove struct {
	Waypoint string `json:"waypoint"`
	From     Pose   `json:"from"`
	To       Pose   `json:"to"`
	Frames   int    `json:"frames"`
}

// Presentation is implemented by whatever draws the immersion. The
// controller only tells it what changed; it never reads rendering state.
type Presentation interface {
	MoveCameraTo(move CameraMove)
	OrbitCamera(yaw float32)
	ApplyEnvironment(env immersion.Environment)
	SetWaypointUIVisible(name string, visible bool)
	OpenExternal(url string)
}

// Cue names played by the audio host.
const (
	CueClick           = "click"
	CueNewItem         = "new_item"
	CueTwoLeft         = "two_left"
	CueOneLeft         = "one_left"
	CueMissionComplete = "mission_complete"
)

// AudioHost plays clips and cues on behalf of the core.
type AudioHost interface {
	// PlayAutoplay starts the clip attached to a waypoint.
	PlayAutoplay(clip string)
	StopAll()
	PlayCue(cue string)
}

// NopPresentation discards every call.
type NopPresentation struct{}

func (NopPresentation) MoveCameraTo(CameraMove)                {}
func (NopPresentation) OrbitCamera(float32)                    {}
func (NopPresentation) ApplyEnvironment(immersion.Environment) {}
func (NopPresentation) SetWaypointUIVisible(string, bool)      {}
func (NopPresentation) OpenExternal(string)                    {}

// NopAudio discards every call.
type NopAudio struct{}

func (NopAudio) PlayAutoplay(string) {}
func (NopAudio) StopAll()            {}
func (NopAudio) PlayCue(string)      {}
