package runtime

import (
	"context"
	"testing"

	"github.com/jwebster45206/immersion-engine/pkg/immersion"
	"github.com/jwebster45206/immersion-engine/pkg/navigation"
	"github.com/jwebster45206/immersion-engine/pkg/session"
	"github.com/jwebster45206/immersion-engine/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMuseum(t *testing.T, lang string) *immersion.Immersion {
	t.Helper()
	im, errs := museum().Build(lang)
	require.Empty(t, errs)
	return im
}

func TestNewSession_NoWaypoints(t *testing.T) {
	st := state.NewSession("empty.json", session.Default())
	_, err := NewSession(st, &immersion.Immersion{FileName: "empty.json"}, Settings{}, nil, nil)
	assert.Error(t, err)
}

func TestNewSession_DeepLink(t *testing.T) {
	tests := []struct {
		name      string
		dest      string
		wantAt    string
		wantState navigation.TransitionState
	}{
		{name: "no destination", wantAt: "entrance", wantState: navigation.StateIdle},
		{name: "known destination rotates", dest: "garden", wantAt: "garden", wantState: navigation.StateRotatingAtRest},
		{name: "unknown destination falls back", dest: "attic", wantAt: "entrance", wantState: navigation.StateRotatingAtRest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := state.NewSession("museum.json", session.Config{Dest: tt.dest})
			sess, err := NewSession(st, buildMuseum(t, "en"), Settings{}, nil, nil)
			require.NoError(t, err)

			res := sess.Start(context.Background())
			assert.Equal(t, tt.wantAt, res.Snapshot.Cursor.Waypoint)
			assert.Equal(t, tt.wantState, res.Snapshot.Cursor.State)
		})
	}
}

func TestSession_FrameWhileRotating(t *testing.T) {
	st := state.NewSession("museum.json", session.Config{Mode: session.ModePreview})
	sess, err := NewSession(st, buildMuseum(t, "en"), Settings{}, nil, nil)
	require.NoError(t, err)
	sess.Start(context.Background())

	res, err := sess.Apply(context.Background(), Command{Type: CommandFrame, Frames: 3})
	require.NoError(t, err)
	assert.Len(t, messagesOf(res, MessageCameraOrbit), 3)
	assert.Empty(t, messagesOf(res, MessageEvent), "proximity is suppressed while rotating")

	res, err = sess.Apply(context.Background(), Command{Type: CommandPointerDown})
	require.NoError(t, err)
	assert.Equal(t, navigation.StateIdle, res.Snapshot.Cursor.State)
}

func TestSession_Mute(t *testing.T) {
	st := state.NewSession("museum.json", session.Default())
	sess, err := NewSession(st, buildMuseum(t, "en"), Settings{}, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	res, err := sess.Apply(ctx, Command{Type: CommandMute})
	require.NoError(t, err)
	assert.False(t, res.Snapshot.Cursor.Muted, "mute toggles")

	muted := true
	res, err = sess.Apply(ctx, Command{Type: CommandMute, Muted: &muted})
	require.NoError(t, err)
	assert.True(t, res.Snapshot.Cursor.Muted)
	assert.True(t, sess.State().Cursor.Muted)
}

func TestSession_CustomFrames(t *testing.T) {
	st := state.NewSession("museum.json", session.Default())
	sess, err := NewSession(st, buildMuseum(t, "en"), Settings{AnimationFrames: 4}, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()
	sess.Start(ctx)

	_, err = sess.Apply(ctx, Command{Type: CommandNext})
	require.NoError(t, err)
	res, err := sess.Apply(ctx, Command{Type: CommandFrame, Frames: 4})
	require.NoError(t, err)
	assert.True(t, hasEvent(res, navigation.EventArrived, "statue"))
	assert.True(t, res.Changed)
}
