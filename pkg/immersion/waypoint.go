package immersion

import "strings"

// Kind tags what a waypoint does when the viewer reaches it.
type Kind string

const (
	KindViewpoint  Kind = "viewpoint"
	KindDisplay    Kind = "display"
	KindTeleporter Kind = "teleporter"
	KindLink       Kind = "link"
)

// LinkNext is the teleporter target meaning "whatever waypoint follows".
const LinkNext = "NEXT"

// ParseKind maps descriptor type names, including the legacy class names
// (Stand, Plinth), onto a Kind.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "viewpoint", "stand":
		return KindViewpoint, true
	case "display", "plinth", "exhibit", "carousel":
		return KindDisplay, true
	case "teleporter", "gate":
		return KindTeleporter, true
	case "link":
		return KindLink, true
	}
	return "", false
}

// Navigable reports whether forward traversal may stop on this kind.
func (k Kind) Navigable() bool {
	return k != KindLink
}

// Reversible reports whether backward traversal may stop on this kind.
// Teleporters are one-way and are skipped when walking backwards.
func (k Kind) Reversible() bool {
	return k != KindLink && k != KindTeleporter
}

// SoundMode controls when a display's clip starts.
type SoundMode string

const (
	SoundAutoplay SoundMode = "autoplay"
	SoundOnPress  SoundMode = "onpress"
)

// AudioFeature is a clip attached to a waypoint.
type AudioFeature struct {
	Clip   string    `json:"clip"`
	Mode   SoundMode `json:"mode"`
	Loop   bool      `json:"loop,omitempty"`
	Volume float32   `json:"volume"`
}

// ExhibitFeature is a 3D object shown on a display.
type ExhibitFeature struct {
	Asset  string `json:"asset"`
	Rotate bool   `json:"rotate,omitempty"`
}

// ActionFeature is a button on a display that asks the host to run a command.
type ActionFeature struct {
	Label   string `json:"label"`
	Command string `json:"command"`
}

// Waypoint is a named, positioned stop in an immersion.
type Waypoint struct {
	Name           string `json:"name"`
	Kind           Kind   `json:"kind"`
	Position       Vec3   `json:"position"`
	LookTarget     Vec3   `json:"look_target"`
	Environment    string `json:"environment,omitempty"`     // named environment override
	ConnectsFrom   string `json:"connects_from,omitempty"`   // only used to draw a line
	LinkedWaypoint string `json:"linked_waypoint,omitempty"` // teleporter target or LinkNext
	ExternalURL    string `json:"external_url,omitempty"`    // link destination
	AwaitLoad      bool   `json:"await_load,omitempty"`      // teleporter inert until the host is ready

	Text        string `json:"text,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Style       string `json:"style,omitempty"`
	WindowOpen  bool   `json:"window_open,omitempty"`

	Lockables []string `json:"lockables,omitempty"`

	Audio   *AudioFeature   `json:"audio,omitempty"`
	Exhibit *ExhibitFeature `json:"exhibit,omitempty"`
	Action  *ActionFeature  `json:"action,omitempty"`
}

// FacingAngle is the yaw, in degrees, the camera takes when it stands on w.
func (w *Waypoint) FacingAngle() float32 {
	return Yaw(w.Position, w.LookTarget)
}

// Autoplays reports whether w starts its clip on arrival.
func (w *Waypoint) Autoplays() bool {
	return w.Kind == KindDisplay && w.Audio != nil && w.Audio.Mode == SoundAutoplay
}

// HasPanel reports whether w carries UI that should open on arrival.
func (w *Waypoint) HasPanel() bool {
	return w.Description != "" || w.Audio != nil || w.Action != nil
}

// Lockable is an interactive target whose first use counts towards progress.
type Lockable struct {
	ID       string `json:"id"`
	Waypoint string `json:"waypoint,omitempty"`
}
