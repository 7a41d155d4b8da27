package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jwebster45206/immersion-engine/internal/runtime"
)

// APIError is a non-success response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned %d: %s", e.Status, e.Message)
}

// CreateSessionRequest matches the body of POST /v1/sessions
type CreateSessionRequest struct {
	Immersion string `json:"immersion"`
	Lang      string `json:"lang,omitempty"`
	Dest      string `json:"dest,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Mute      *bool  `json:"mute,omitempty"`
}

// CreateSession starts a session and returns its initial result
func CreateSession(ctx context.Context, client *http.Client, baseURL string, body CreateSessionRequest) (*runtime.Result, error) {
	var res runtime.Result
	if err := doJSON(ctx, client, http.MethodPost, baseURL+"/v1/sessions", body, http.StatusCreated, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ApplyCommand posts one command to a session
func ApplyCommand(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID, cmd runtime.Command) (*runtime.Result, error) {
	var res runtime.Result
	url := fmt.Sprintf("%s/v1/sessions/%s/commands", baseURL, sessionID)
	if err := doJSON(ctx, client, http.MethodPost, url, cmd, http.StatusOK, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetSession retrieves the current snapshot of a session
func GetSession(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID) (*runtime.Snapshot, error) {
	var snap runtime.Snapshot
	if err := doJSON(ctx, client, http.MethodGet, baseURL+"/v1/sessions/"+sessionID.String(), nil, http.StatusOK, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// EndSession deletes a session
func EndSession(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID) error {
	return doJSON(ctx, client, http.MethodDelete, baseURL+"/v1/sessions/"+sessionID.String(), nil, http.StatusNoContent, nil)
}

func doJSON(ctx context.Context, client *http.Client, method, url string, body interface{}, wantStatus int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		var errResp struct {
			Error string `json:"error"`
		}
		msg := string(respBody)
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
