package handlers

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/immersion-engine/internal/services/events"
	"github.com/jwebster45206/immersion-engine/pkg/navigation"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// readEvent returns the next "event:" name and its data line.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
}

func TestEventsHandler_Stream(t *testing.T) {
	mr, client := setupTestRedis(t)
	logger := testLogger()
	handler := NewEventsHandler(client, logger)
	server := httptest.NewServer(handler)
	defer server.Close()

	id := uuid.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/v1/events/sessions/"+id.String(), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	name, data := readEvent(t, reader)
	assert.Equal(t, "connected", name)
	assert.Contains(t, data, id.String())

	channel := events.Channel(id)
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(channel)[channel] == 1
	}, 2*time.Second, 10*time.Millisecond)

	b := events.NewBroadcaster(client, logger)
	require.NoError(t, b.PublishNavigation(ctx, id, navigation.Event{
		Type:     navigation.EventArrived,
		Waypoint: "hall",
	}))

	name, data = readEvent(t, reader)
	assert.Equal(t, string(navigation.EventArrived), name)
	assert.Contains(t, data, `"waypoint":"hall"`)
}

func TestEventsHandler_BadRequests(t *testing.T) {
	_, client := setupTestRedis(t)
	handler := NewEventsHandler(client, testLogger())

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{name: "wrong method", method: http.MethodPost, path: "/v1/events/sessions/" + uuid.NewString(), expectedStatus: http.StatusMethodNotAllowed},
		{name: "wrong path", method: http.MethodGet, path: "/v1/events/games/" + uuid.NewString(), expectedStatus: http.StatusBadRequest},
		{name: "bad id", method: http.MethodGet, path: "/v1/events/sessions/abc", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}
