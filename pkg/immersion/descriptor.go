package immersion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

var ErrUnsupportedFormat = errors.New("unsupported immersion format")

// Descriptor is the on-disk form of an immersion. Files are JSON or TOML.
type Descriptor struct {
	Name               string                 `json:"name" toml:"name"`
	FileName           string                 `json:"file_name,omitempty" toml:"file_name"`
	Texts              []map[string]string    `json:"texts,omitempty" toml:"texts"`
	DefaultEnvironment *Environment           `json:"default_environment,omitempty" toml:"default_environment"`
	Environments       map[string]Environment `json:"environments,omitempty" toml:"environments"`
	Waypoints          []WaypointDescriptor   `json:"waypoints" toml:"waypoints"`
}

// WaypointDescriptor mirrors the keys used by immersion authors. Type accepts
// both kind names and the legacy class names.
type WaypointDescriptor struct {
	ID          string          `json:"id" toml:"id"`
	Type        string          `json:"type" toml:"type"`
	Position    Vec3            `json:"position" toml:"position"`
	LookingAt   Vec3            `json:"looking_at" toml:"looking_at"`
	Text        []LocalizedText `json:"text,omitempty" toml:"text"`
	Style       string          `json:"style,omitempty" toml:"style"`
	LineFrom    string          `json:"line_from,omitempty" toml:"line_from"`
	Environment string          `json:"environment,omitempty" toml:"environment"`
	Gate        string          `json:"gate,omitempty" toml:"gate"` // teleporter target, NEXT, or link URL
	AwaitLoad   bool            `json:"await_load,omitempty" toml:"await_load"`
	WindowOpen  bool            `json:"window_opened,omitempty" toml:"window_opened"`

	Sound       string  `json:"sound,omitempty" toml:"sound"` // autoplay or onpress
	SoundClip   string  `json:"sound_clip,omitempty" toml:"sound_clip"`
	Loop        bool    `json:"loop,omitempty" toml:"loop"`
	FactorSound float32 `json:"factor_sound,omitempty" toml:"factor_sound"`

	Exhibit       string         `json:"exhibit,omitempty" toml:"exhibit"`
	RotateExhibit bool           `json:"rotate_exhibit,omitempty" toml:"rotate_exhibit"`
	Action        *ActionFeature `json:"action,omitempty" toml:"action"`

	Lockables []string `json:"lockables,omitempty" toml:"lockables"`
}

// LocalizedText holds the per-language strings of a waypoint.
type LocalizedText struct {
	Lang        string `json:"lang" toml:"lang"`
	Text        string `json:"text,omitempty" toml:"text"`
	Title       string `json:"title,omitempty" toml:"title"`
	Description string `json:"description,omitempty" toml:"description"`
}

// Immersion is a descriptor resolved for one language.
type Immersion struct {
	Name               string                 `json:"name"`
	FileName           string                 `json:"file_name,omitempty"`
	Lang               string                 `json:"lang"`
	Texts              map[string]string      `json:"texts"`
	DefaultEnvironment Environment            `json:"default_environment"`
	Environments       map[string]Environment `json:"environments,omitempty"`
	Waypoints          []*Waypoint            `json:"waypoints"`
	Lockables          []Lockable             `json:"lockables,omitempty"`
}

// Decode parses a descriptor, picking the format from the file extension.
func Decode(filename string, data []byte) (*Descriptor, error) {
	var d Descriptor
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&d); err != nil {
			return nil, fmt.Errorf("failed to unmarshal immersion %s: %w", filename, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &d); err != nil {
			return nil, fmt.Errorf("failed to unmarshal immersion %s: %w", filename, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
	if d.FileName == "" {
		d.FileName = filepath.Base(filename)
	}
	return &d, nil
}

// Build resolves the descriptor for lang. Waypoints that cannot be built are
// skipped and reported in the returned error slice; the immersion stays
// usable.
func (d *Descriptor) Build(lang string) (*Immersion, []error) {
	texts := LocalizeTexts(d.Texts, lang)
	im := &Immersion{
		Name:               d.Name,
		FileName:           d.FileName,
		Lang:               texts["lang"],
		Texts:              texts,
		DefaultEnvironment: DefaultEnvironment,
		Environments:       make(map[string]Environment, len(d.Environments)),
	}
	if d.DefaultEnvironment != nil {
		im.DefaultEnvironment = *d.DefaultEnvironment
	}
	for name, env := range d.Environments {
		env.Name = name
		im.Environments[name] = env
	}

	var errs []error
	seenLocks := make(map[string]string)
	seenIDs := make(map[string]bool, len(d.Waypoints))
	for i, wd := range d.Waypoints {
		w, err := wd.toWaypoint(lang, texts)
		if err != nil {
			errs = append(errs, fmt.Errorf("waypoint %d (%s): %w", i, wd.ID, err))
			continue
		}
		if w.Environment != "" {
			if _, ok := im.Environments[w.Environment]; !ok {
				errs = append(errs, fmt.Errorf("waypoint %s: unknown environment %q, using default", w.Name, w.Environment))
				w.Environment = ""
			}
		}
		// The graph drops a repeated id, so its lockables would have no owner.
		if seenIDs[w.Name] {
			if len(w.Lockables) > 0 {
				errs = append(errs, fmt.Errorf("waypoint %s: duplicate id, lockables %v ignored", w.Name, w.Lockables))
			}
			w.Lockables = nil
		}
		seenIDs[w.Name] = true
		kept := w.Lockables[:0]
		for _, id := range w.Lockables {
			if owner, dup := seenLocks[id]; dup {
				errs = append(errs, fmt.Errorf("waypoint %s: lockable %q already registered on %s", w.Name, id, owner))
				continue
			}
			seenLocks[id] = w.Name
			kept = append(kept, id)
			im.Lockables = append(im.Lockables, Lockable{ID: id, Waypoint: w.Name})
		}
		w.Lockables = kept
		im.Waypoints = append(im.Waypoints, w)
	}
	return im, errs
}

func (wd WaypointDescriptor) toWaypoint(lang string, ui map[string]string) (*Waypoint, error) {
	if strings.TrimSpace(wd.ID) == "" {
		return nil, errors.New("missing id")
	}
	kind, ok := ParseKind(wd.Type)
	if !ok {
		return nil, fmt.Errorf("unknown waypoint type %q", wd.Type)
	}

	w := &Waypoint{
		Name:         wd.ID,
		Kind:         kind,
		Position:     wd.Position,
		LookTarget:   wd.LookingAt,
		Environment:  wd.Environment,
		ConnectsFrom: wd.LineFrom,
		Style:        wd.Style,
		WindowOpen:   wd.WindowOpen,
		Lockables:    append([]string(nil), wd.Lockables...),
	}
	if w.Style == "" {
		w.Style = "light"
	}

	switch kind {
	case KindTeleporter:
		switch {
		case wd.Gate == "_NEXT" || strings.EqualFold(wd.Gate, LinkNext):
			w.LinkedWaypoint = LinkNext
		case strings.Contains(wd.Gate, "/"):
			// A URL on a teleporter is how the legacy format declares a link.
			w.Kind = KindLink
			w.ExternalURL = wd.Gate
		default:
			w.LinkedWaypoint = wd.Gate
		}
		w.AwaitLoad = wd.AwaitLoad
	case KindLink:
		if !strings.Contains(wd.Gate, "/") {
			return nil, fmt.Errorf("link %s needs a URL gate", wd.ID)
		}
		w.ExternalURL = wd.Gate
	}

	if wd.Sound != "" || wd.SoundClip != "" {
		mode := SoundMode(strings.ToLower(wd.Sound))
		if mode != SoundAutoplay {
			mode = SoundOnPress
		}
		volume := wd.FactorSound
		if volume == 0 {
			volume = 0.8
		}
		w.Audio = &AudioFeature{Clip: wd.SoundClip, Mode: mode, Loop: wd.Loop, Volume: volume}
		if w.Audio.Clip == "" {
			w.Audio.Clip = wd.ID
		}
	}
	if wd.Exhibit != "" {
		w.Exhibit = &ExhibitFeature{Asset: wd.Exhibit, Rotate: wd.RotateExhibit}
	}
	if wd.Action != nil {
		a := *wd.Action
		w.Action = &a
	}
	if (w.Audio != nil || w.Exhibit != nil || w.Action != nil) && w.Kind == KindViewpoint {
		// Features only make sense on displays.
		w.Kind = KindDisplay
	}

	if lt, ok := LocalizeWaypoint(wd.Text, lang); ok {
		w.Text, w.Title, w.Description = lt.Text, lt.Title, lt.Description
	}
	if w.Text == "" {
		w.Text = DefaultLabel(w.Kind, ui)
	}
	return w, nil
}
