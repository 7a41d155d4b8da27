package main

import (
	"strings"
	"testing"

	"github.com/jwebster45206/immersion-engine/internal/runtime"
	"github.com/jwebster45206/immersion-engine/pkg/immersion"
	"github.com/jwebster45206/immersion-engine/pkg/navigation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInput(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantType   runtime.CommandType
		wantAction localAction
		check      func(t *testing.T, cmd *runtime.Command)
		wantErr    bool
	}{
		{name: "next", input: "n", wantType: runtime.CommandNext},
		{name: "back", input: "back", wantType: runtime.CommandPrevious},
		{
			name:     "goto keeps multi word names",
			input:    "goto east wing",
			wantType: runtime.CommandGoTo,
			check: func(t *testing.T, cmd *runtime.Command) {
				assert.Equal(t, "east wing", cmd.Waypoint)
				assert.Nil(t, cmd.Animate)
			},
		},
		{
			name:     "jump disables animation",
			input:    "jump statue",
			wantType: runtime.CommandGoTo,
			check: func(t *testing.T, cmd *runtime.Command) {
				require.NotNil(t, cmd.Animate)
				assert.False(t, *cmd.Animate)
			},
		},
		{name: "goto without name", input: "goto", wantErr: true},
		{
			name:     "unlock",
			input:    "u coin",
			wantType: runtime.CommandUnlock,
			check: func(t *testing.T, cmd *runtime.Command) {
				assert.Equal(t, "coin", cmd.Lockable)
			},
		},
		{
			name:     "sound defaults to the current waypoint",
			input:    "sound",
			wantType: runtime.CommandPressSound,
			check: func(t *testing.T, cmd *runtime.Command) {
				assert.Equal(t, "statue", cmd.Waypoint)
			},
		},
		{
			name:     "mute toggles",
			input:    "m",
			wantType: runtime.CommandMute,
			check: func(t *testing.T, cmd *runtime.Command) {
				assert.Nil(t, cmd.Muted)
			},
		},
		{
			name:     "mute off",
			input:    "mute off",
			wantType: runtime.CommandMute,
			check: func(t *testing.T, cmd *runtime.Command) {
				require.NotNil(t, cmd.Muted)
				assert.False(t, *cmd.Muted)
			},
		},
		{name: "mute garbage", input: "mute loud", wantErr: true},
		{
			name:     "frame count",
			input:    "frame 10",
			wantType: runtime.CommandFrame,
			check: func(t *testing.T, cmd *runtime.Command) {
				assert.Equal(t, 10, cmd.Frames)
			},
		},
		{name: "frame zero", input: "frame 0", wantErr: true},
		{name: "tap", input: "tap", wantType: runtime.CommandPointerDown},
		{name: "help", input: "/help", wantAction: actionHelp},
		{name: "copy", input: "c", wantAction: actionCopy},
		{name: "quit", input: "quit", wantAction: actionQuit},
		{name: "unknown", input: "dance", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, action, err := parseInput(tt.input, "statue")
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, cmd)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAction, action)
			if tt.wantAction != actionNone {
				assert.Nil(t, cmd)
				return
			}
			require.NotNil(t, cmd)
			assert.Equal(t, tt.wantType, cmd.Type)
			if tt.check != nil {
				tt.check(t, cmd)
			}
		})
	}
}

func TestParseInput_Empty(t *testing.T) {
	cmd, action, err := parseInput("   ", "statue")
	assert.NoError(t, err)
	assert.Nil(t, cmd)
	assert.Equal(t, actionNone, action)
}

func TestDescribeMessage(t *testing.T) {
	tests := []struct {
		name   string
		msg    runtime.Message
		want   string
		hidden bool
	}{
		{
			name: "arrival",
			msg: runtime.Message{
				Type:  runtime.MessageEvent,
				Event: &navigation.Event{Type: navigation.EventArrived, Waypoint: "statue"},
			},
			want: "Arrived at statue",
		},
		{
			name: "camera placement",
			msg: runtime.Message{
				Type:   runtime.MessageCameraMove,
				Camera: &navigation.CameraMove{Waypoint: "entrance"},
			},
			want: "Camera placed at entrance",
		},
		{
			name: "camera flight",
			msg: runtime.Message{
				Type:   runtime.MessageCameraMove,
				Camera: &navigation.CameraMove{Waypoint: "garden", Frames: 50},
			},
			want: "Flying to garden (50 frames)",
		},
		{
			name: "cue",
			msg:  runtime.Message{Type: runtime.MessageAudioCue, Cue: "mission_complete"},
			want: "♪ mission complete",
		},
		{
			name:   "panel is shown elsewhere",
			msg:    runtime.Message{Type: runtime.MessageWaypointUI},
			hidden: true,
		},
		{
			name:   "event without payload",
			msg:    runtime.Message{Type: runtime.MessageEvent},
			hidden: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := describeMessage(tt.msg)
			if tt.hidden {
				assert.False(t, ok)
				return
			}
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescribeWaypoint(t *testing.T) {
	w := &immersion.Waypoint{
		Name:        "statue",
		Kind:        immersion.KindDisplay,
		Title:       "The Statue",
		Description: "A bronze figure.",
		Lockables:   []string{"coin"},
	}
	out := describeWaypoint(w, 40)
	assert.Contains(t, out, "The Statue")
	assert.Contains(t, out, "A bronze figure.")
	assert.Contains(t, out, "coin")

	assert.Empty(t, describeWaypoint(nil, 40))
	assert.True(t, strings.Contains(describeWaypoint(&immersion.Waypoint{Name: "bare"}, 0), "bare"))
}
