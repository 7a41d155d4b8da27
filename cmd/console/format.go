package main

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/immersion-engine/internal/runtime"
	"github.com/jwebster45206/immersion-engine/pkg/immersion"
	"github.com/jwebster45206/immersion-engine/pkg/navigation"
	"github.com/muesli/reflow/wordwrap"
)

// describeMessage renders one outbound message as a log line. Messages the
// console shows elsewhere (orbit, snapshot) return false.
func describeMessage(m runtime.Message) (string, bool) {
	switch m.Type {
	case runtime.MessageCameraMove:
		if m.Camera == nil {
			return "", false
		}
		if m.Camera.Frames == 0 {
			return fmt.Sprintf("Camera placed at %s", m.Camera.Waypoint), true
		}
		return fmt.Sprintf("Flying to %s (%d frames)", m.Camera.Waypoint, m.Camera.Frames), true
	case runtime.MessageEnvironment:
		if m.Environment == nil {
			return "", false
		}
		return fmt.Sprintf("Environment: %s", m.Environment.Name), true
	case runtime.MessageWaypointUI:
		return "", false
	case runtime.MessageOpenURL:
		return fmt.Sprintf("Opening %s", m.URL), true
	case runtime.MessageAudioPlay:
		return fmt.Sprintf("♪ Playing %s", m.Clip), true
	case runtime.MessageAudioStop:
		return "♪ Audio stopped", true
	case runtime.MessageAudioCue:
		return fmt.Sprintf("♪ %s", strings.ReplaceAll(m.Cue, "_", " ")), true
	case runtime.MessageEvent:
		if m.Event == nil {
			return "", false
		}
		return describeEvent(*m.Event)
	case runtime.MessageProgress:
		if m.Progress == nil {
			return "", false
		}
		return fmt.Sprintf("Unlocked %s (%d/%d)", m.Lockable, m.Progress.Unlocked, m.Progress.Total), true
	case runtime.MessageError:
		return "Error: " + m.Error, true
	}
	return "", false
}

func describeEvent(e navigation.Event) (string, bool) {
	switch e.Type {
	case navigation.EventArrived:
		return fmt.Sprintf("Arrived at %s", e.Waypoint), true
	case navigation.EventDeparted:
		return fmt.Sprintf("Left %s", e.Waypoint), true
	case navigation.EventStateChanged:
		if e.State == navigation.StateRotatingAtRest {
			return "Looking around... (tap to stop)", true
		}
		return "", false
	case navigation.EventLinkOpened:
		return fmt.Sprintf("Link %s opened", e.Waypoint), true
	}
	return "", false
}

// describeWaypoint renders the text panel of a waypoint.
func describeWaypoint(w *immersion.Waypoint, width int) string {
	if w == nil {
		return ""
	}
	if width < 10 {
		width = 10
	}
	var content strings.Builder
	title := w.Title
	if title == "" {
		title = w.Name
	}
	content.WriteString(waypointTitleStyle.Render(title))
	content.WriteString(promptStyle.Render(fmt.Sprintf("  [%s]", w.Kind)) + "\n")
	if w.Text != "" {
		content.WriteString(wordwrap.String(w.Text, width) + "\n")
	}
	if w.Description != "" {
		content.WriteString("\n" + wordwrap.String(w.Description, width) + "\n")
	}
	if w.Audio != nil {
		content.WriteString(promptStyle.Render(fmt.Sprintf("Sound: %s (%s)", w.Audio.Clip, w.Audio.Mode)) + "\n")
	}
	if w.Exhibit != nil {
		content.WriteString(promptStyle.Render("Exhibit: "+w.Exhibit.Asset) + "\n")
	}
	if len(w.Lockables) > 0 {
		content.WriteString(promptStyle.Render("Hidden here: "+strings.Join(w.Lockables, ", ")) + "\n")
	}
	return content.String()
}

func writeMetadata(snap runtime.Snapshot) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("SESSION") + "\n\n")

	content.WriteString("Session ID:\n")
	content.WriteString(snap.SessionID.String()[:8] + "...\n\n")

	content.WriteString("Immersion:\n")
	content.WriteString(snap.Name + "\n\n")

	cur := snap.Cursor
	content.WriteString("Waypoint:\n")
	content.WriteString(fmt.Sprintf("%s (%d)\n\n", cur.Waypoint, cur.Index))

	content.WriteString("State:\n")
	content.WriteString(string(cur.State) + "\n\n")

	content.WriteString("Progress:\n")
	content.WriteString(fmt.Sprintf("%d/%d unlocked\n\n", snap.Progress.Unlocked, snap.Progress.Total))

	content.WriteString("Audio:\n")
	switch {
	case cur.Muted:
		content.WriteString("muted\n\n")
	case cur.Playing != "":
		content.WriteString("playing " + cur.Playing + "\n\n")
	default:
		content.WriteString("on\n\n")
	}

	content.WriteString("Visited:\n")
	content.WriteString(fmt.Sprintf("%d waypoints\n\n", len(cur.Visited)))

	pos := cur.Camera.Position
	content.WriteString("Camera:\n")
	content.WriteString(fmt.Sprintf("%.2f, %.2f, %.2f\nyaw %.0f°\n\n", pos.X, pos.Y, pos.Z, cur.Camera.Yaw))

	content.WriteString("Mode:\n")
	content.WriteString(fmt.Sprintf("%s, %s\n\n", snap.Config.Mode, snap.Config.Lang))

	var nav []string
	if cur.CanGoBack {
		nav = append(nav, "back")
	}
	if !cur.IsLast {
		nav = append(nav, "next")
	}
	if len(nav) > 0 {
		content.WriteString("Can go: " + strings.Join(nav, ", ") + "\n")
	} else {
		content.WriteString("End of the tour\n")
	}
	return content.String()
}
