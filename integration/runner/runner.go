package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/immersion-engine/internal/runtime"
	"github.com/jwebster45206/immersion-engine/pkg/navigation"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

const (
	settleBatch     = 10
	MaxSettleFrames = 500
)

// Runner executes tour scripts against a running immersion-engine API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	ImmersionOverride string // If set, overrides the immersion for all test cases
	KeepSessions      bool   // Leave sessions on the server after a run
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite executes a complete test suite in a fresh session
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	req := CreateSessionRequest{
		Immersion: suite.Immersion,
		Lang:      suite.Lang,
		Dest:      suite.Dest,
		Mode:      suite.Mode,
		Mute:      suite.Mute,
	}
	if r.ImmersionOverride != "" {
		req.Immersion = r.ImmersionOverride
	}

	created, err := CreateSession(ctx, r.Client, r.BaseURL, req)
	if err != nil {
		result.Error = fmt.Errorf("failed to create session: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.SessionID = created.Snapshot.SessionID
	if !r.KeepSessions {
		defer func() {
			if err := EndSession(context.Background(), r.Client, r.BaseURL, result.SessionID); err != nil {
				r.Logger("    Warning: failed to end session %s: %v", result.SessionID, err)
			}
		}()
	}

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepCtx, cancel := context.WithTimeout(ctx, r.Timeout)
		stepResult := r.runStep(stepCtx, result.SessionID, step)
		cancel()
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// runStep sends the step's command, settles the camera when asked, and
// checks expectations against everything the step produced.
func (r *Runner) runStep(ctx context.Context, sessionID uuid.UUID, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}

	res, err := ApplyCommand(ctx, r.Client, r.BaseURL, sessionID, step.Command)
	if err != nil {
		var apiErr *APIError
		if step.Expectations.Status != nil && errors.As(err, &apiErr) {
			result.Error = checkRejection(step.Expectations, apiErr)
			result.Success = result.Error == nil
			result.Duration = time.Since(start)
			return result
		}
		result.Error = fmt.Errorf("failed to apply %s: %w", step.Command.Type, err)
		result.Duration = time.Since(start)
		return result
	}
	if step.Expectations.Status != nil && *step.Expectations.Status != http.StatusOK {
		result.Error = fmt.Errorf("expected status %d, command succeeded", *step.Expectations.Status)
		result.Duration = time.Since(start)
		return result
	}

	messages := res.Messages
	if step.Settle {
		frames, settled, err := r.settle(ctx, sessionID, res)
		result.Frames = frames
		if err != nil {
			result.Error = fmt.Errorf("failed to settle: %w", err)
			result.Duration = time.Since(start)
			return result
		}
		messages = append(messages, settled.Messages...)
		res = settled
	}

	if err := checkExpectations(step.Expectations, res.Snapshot, messages); err != nil {
		result.Error = fmt.Errorf("expectation failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// settle sends frames until the camera is no longer animating. One frame is
// always sent so a freshly placed camera can arrive. The returned result
// carries the messages of every frame sent.
func (r *Runner) settle(ctx context.Context, sessionID uuid.UUID, last *runtime.Result) (int, *runtime.Result, error) {
	collected := &runtime.Result{Snapshot: last.Snapshot}
	sent := 0
	batch := 1
	for sent < MaxSettleFrames {
		res, err := ApplyCommand(ctx, r.Client, r.BaseURL, sessionID, runtime.Command{Type: runtime.CommandFrame, Frames: batch})
		if err != nil {
			return sent, nil, err
		}
		sent += batch
		collected.Messages = append(collected.Messages, res.Messages...)
		collected.Snapshot = res.Snapshot
		if res.Snapshot.Cursor.State != navigation.StateAnimating {
			return sent, collected, nil
		}
		batch = settleBatch
	}
	return sent, nil, fmt.Errorf("still animating after %d frames", sent)
}

func checkRejection(exp Expectations, apiErr *APIError) error {
	if apiErr.Status != *exp.Status {
		return fmt.Errorf("expected status %d, got %d: %s", *exp.Status, apiErr.Status, apiErr.Message)
	}
	if exp.ErrorContains != "" && !strings.Contains(strings.ToLower(apiErr.Message), strings.ToLower(exp.ErrorContains)) {
		return fmt.Errorf("expected error to contain '%s', got '%s'", exp.ErrorContains, apiErr.Message)
	}
	return nil
}

// checkExpectations validates the test expectations against the session after the step
func checkExpectations(exp Expectations, snap runtime.Snapshot, messages []runtime.Message) error {
	cur := snap.Cursor

	if exp.Waypoint != nil && cur.Waypoint != *exp.Waypoint {
		return fmt.Errorf("expected waypoint %s, got %s", *exp.Waypoint, cur.Waypoint)
	}
	if exp.State != nil && string(cur.State) != *exp.State {
		return fmt.Errorf("expected state %s, got %s", *exp.State, cur.State)
	}
	if exp.Muted != nil && cur.Muted != *exp.Muted {
		return fmt.Errorf("expected muted to be %t, got %t", *exp.Muted, cur.Muted)
	}
	if exp.Playing != nil && cur.Playing != *exp.Playing {
		return fmt.Errorf("expected playing %q, got %q", *exp.Playing, cur.Playing)
	}
	if exp.IsLast != nil && cur.IsLast != *exp.IsLast {
		return fmt.Errorf("expected is_last to be %t, got %t", *exp.IsLast, cur.IsLast)
	}

	if len(exp.Visited) > 0 {
		visited := make(map[string]bool, len(cur.Visited))
		for _, name := range cur.Visited {
			visited[name] = true
		}
		for _, name := range exp.Visited {
			if !visited[name] {
				return fmt.Errorf("expected %s to be visited. Visited: %v", name, cur.Visited)
			}
		}
	}

	if exp.Unlocked != nil && snap.Progress.Unlocked != *exp.Unlocked {
		return fmt.Errorf("expected %d unlocked, got %d", *exp.Unlocked, snap.Progress.Unlocked)
	}
	if exp.Remaining != nil && snap.Progress.Remaining != *exp.Remaining {
		return fmt.Errorf("expected %d remaining, got %d", *exp.Remaining, snap.Progress.Remaining)
	}

	types := make(map[string]bool)
	events := make(map[string]bool)
	cues := make(map[string]bool)
	var url string
	for _, m := range messages {
		types[string(m.Type)] = true
		switch m.Type {
		case runtime.MessageEvent:
			if m.Event != nil {
				events[string(m.Event.Type)] = true
				events[string(m.Event.Type)+":"+m.Event.Waypoint] = true
			}
		case runtime.MessageAudioCue:
			cues[m.Cue] = true
		case runtime.MessageOpenURL:
			url = m.URL
		}
	}

	for _, typ := range exp.Messages {
		if !types[typ] {
			return fmt.Errorf("expected a %s message, but none was sent", typ)
		}
	}
	for _, typ := range exp.NoMessages {
		if types[typ] {
			return fmt.Errorf("expected no %s message, but one was sent", typ)
		}
	}
	for _, e := range exp.Events {
		if !events[e] {
			return fmt.Errorf("expected event %s, but it didn't fire", e)
		}
	}
	for _, cue := range exp.Cues {
		if !cues[cue] {
			return fmt.Errorf("expected cue %s, but it didn't play", cue)
		}
	}
	if exp.URL != nil && url != *exp.URL {
		return fmt.Errorf("expected url %q, got %q", *exp.URL, url)
	}

	return nil
}
