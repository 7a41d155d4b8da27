package runner

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/immersion-engine/internal/runtime"
)

// TestSuite defines a complete tour scenario
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name      string     `json:"name"`
	Immersion string     `json:"immersion,omitempty"` // Used for regular tests
	Lang      string     `json:"lang,omitempty"`
	Dest      string     `json:"dest,omitempty"`
	Mode      string     `json:"mode,omitempty"`
	Mute      *bool      `json:"mute,omitempty"`
	Steps     []TestStep `json:"steps,omitempty"` // Used for regular tests
	Cases     []string   `json:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep sends one command and checks the outcome.
// With settle set, frames are sent after the command until the viewer is idle.
type TestStep struct {
	Name         string          `json:"name,omitempty"`
	Command      runtime.Command `json:"command"`
	Settle       bool            `json:"settle,omitempty"`
	Expectations Expectations    `json:"expect"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	// Snapshot properties
	Waypoint *string  `json:"waypoint,omitempty"`
	State    *string  `json:"state,omitempty"`
	Muted    *bool    `json:"muted,omitempty"`
	Playing  *string  `json:"playing,omitempty"`
	Visited  []string `json:"visited,omitempty"` // must all be visited, order independent
	IsLast   *bool    `json:"is_last,omitempty"`

	// Progress
	Unlocked  *int `json:"unlocked,omitempty"`
	Remaining *int `json:"remaining,omitempty"`

	// Messages produced by the step, settle frames included
	Messages   []string `json:"messages,omitempty"`    // message types that must appear
	NoMessages []string `json:"no_messages,omitempty"` // message types that must not appear
	Events     []string `json:"events,omitempty"`      // "type" or "type:waypoint"
	Cues       []string `json:"cues,omitempty"`
	URL        *string  `json:"url,omitempty"`

	// Rejected commands
	Status        *int   `json:"status,omitempty"`
	ErrorContains string `json:"error_contains,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName string
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
	Frames   int // settle frames sent
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job       TestJob
	Results   []TestResult
	Error     error
	Duration  time.Duration
	SessionID uuid.UUID // ID of the session used for this test
}
