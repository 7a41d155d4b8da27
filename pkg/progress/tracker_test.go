package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMilestoneFor(t *testing.T) {
	tests := []struct {
		remaining int
		expected  Milestone
	}{
		{remaining: 10, expected: MilestoneProgress},
		{remaining: 3, expected: MilestoneProgress},
		{remaining: 2, expected: MilestoneTwoRemaining},
		{remaining: 1, expected: MilestoneOneRemaining},
		{remaining: 0, expected: MilestoneAllUnlocked},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, MilestoneFor(tt.remaining), "remaining=%d", tt.remaining)
	}
}

func TestTracker_FiveLockSequence(t *testing.T) {
	tr := NewTracker(true, nil)
	var handles []Handle
	for i := 0; i < 5; i++ {
		handles = append(handles, tr.Register("hall"))
	}

	var events []Event
	tr.Subscribe(func(e Event) { events = append(events, e) })
	finales := 0
	tr.OnAllUnlocked(func() { finales++ })

	for _, h := range handles {
		require.NoError(t, tr.ReportUnlocked(h))
	}

	require.Len(t, events, 5)
	expected := []struct {
		milestone Milestone
		remaining int
	}{
		{MilestoneProgress, 4},
		{MilestoneProgress, 3},
		{MilestoneTwoRemaining, 2},
		{MilestoneOneRemaining, 1},
		{MilestoneAllUnlocked, 0},
	}
	for i, want := range expected {
		assert.Equal(t, want.milestone, events[i].Milestone, "unlock #%d", i+1)
		assert.Equal(t, want.remaining, events[i].Remaining, "unlock #%d", i+1)
		assert.Equal(t, 5, events[i].Total)
		assert.Equal(t, "hall", events[i].Scope)
	}
	assert.Equal(t, 1, finales)
	assert.Equal(t, 5, tr.Unlocked())
	assert.Equal(t, 0, tr.Remaining())
}

func TestTracker_IdempotentUnlock(t *testing.T) {
	tr := NewTracker(true, nil)
	a := tr.Register("")
	tr.Register("")

	var events []Event
	tr.Subscribe(func(e Event) { events = append(events, e) })

	require.NoError(t, tr.ReportUnlocked(a))
	require.NoError(t, tr.ReportUnlocked(a))

	assert.Equal(t, 1, tr.Unlocked())
	assert.Len(t, events, 1)
	assert.True(t, tr.IsUnlocked(a))
}

func TestTracker_UnknownHandle(t *testing.T) {
	tests := []struct {
		name   string
		strict bool
	}{
		{name: "strict", strict: true},
		{name: "lenient", strict: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(tt.strict, nil)
			tr.Register("")

			err := tr.ReportUnlocked(Handle(7))
			if tt.strict {
				assert.ErrorIs(t, err, ErrUnknownHandle)
			} else {
				assert.NoError(t, err)
			}
			assert.ErrorIs(t, NewTracker(true, nil).ReportUnlocked(Handle(-1)), ErrUnknownHandle)
			assert.Equal(t, 0, tr.Unlocked())
		})
	}
}

func TestTracker_TotalsGrow(t *testing.T) {
	tr := NewTracker(false, nil)
	a := tr.Register("")
	b := tr.Register("")

	var last Event
	tr.Subscribe(func(e Event) { last = e })

	require.NoError(t, tr.ReportUnlocked(a))
	assert.Equal(t, MilestoneOneRemaining, last.Milestone)

	c := tr.Register("")
	d := tr.Register("")
	assert.Equal(t, 4, tr.Total())

	require.NoError(t, tr.ReportUnlocked(b))
	assert.Equal(t, MilestoneTwoRemaining, last.Milestone)
	require.NoError(t, tr.ReportUnlocked(c))
	require.NoError(t, tr.ReportUnlocked(d))
	assert.Equal(t, MilestoneAllUnlocked, last.Milestone)
}

func TestTracker_RestoreIsSilent(t *testing.T) {
	tr := NewTracker(true, nil)
	a := tr.Register("vault")
	b := tr.Register("vault")
	c := tr.Register("attic")

	fired := 0
	tr.Subscribe(func(Event) { fired++ })
	tr.Restore([]Handle{a, b, a, Handle(9)})

	assert.Equal(t, 0, fired)
	assert.Equal(t, 2, tr.Unlocked())
	assert.Equal(t, []Handle{a, b}, tr.UnlockedHandles())

	scope, ok := tr.Scope(c)
	assert.True(t, ok)
	assert.Equal(t, "attic", scope)
	_, ok = tr.Scope(Handle(9))
	assert.False(t, ok)

	require.NoError(t, tr.ReportUnlocked(c))
	assert.Equal(t, 1, fired)
}

func TestTracker_Unsubscribe(t *testing.T) {
	tr := NewTracker(true, nil)
	h := tr.Register("")
	fired := 0
	cancel := tr.Subscribe(func(Event) { fired++ })
	cancel()
	require.NoError(t, tr.ReportUnlocked(h))
	assert.Equal(t, 0, fired)
}
