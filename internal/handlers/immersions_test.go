package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jwebster45206/immersion-engine/pkg/immersion"
	"github.com/jwebster45206/immersion-engine/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImmersionHandler_List(t *testing.T) {
	store := storage.NewMockStorage()
	store.AddImmersion("gallery.json", gallery())
	store.AddImmersion("atrium.toml", &immersion.Descriptor{Name: "Atrium"})
	handler := NewImmersionHandler(testLogger(), store)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/immersions", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var list []ImmersionSummary
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
	assert.Equal(t, []ImmersionSummary{
		{Name: "Atrium", FileName: "atrium.toml"},
		{Name: "Gallery", FileName: "gallery.json"},
	}, list)
}

func TestImmersionHandler_Get(t *testing.T) {
	store := storage.NewMockStorage()
	d := gallery()
	d.Waypoints = append(d.Waypoints, immersion.WaypointDescriptor{ID: "mystery", Type: "Portal"})
	store.AddImmersion("gallery.json", d)
	handler := NewImmersionHandler(testLogger(), store)

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
		expectedNext   string
	}{
		{name: "default language", method: http.MethodGet, path: "/v1/immersions/gallery.json", expectedStatus: http.StatusOK, expectedNext: "Next"},
		{name: "french", method: http.MethodGet, path: "/v1/immersions/gallery.json?lang=fr", expectedStatus: http.StatusOK, expectedNext: "Suivant"},
		{name: "unknown language falls back", method: http.MethodGet, path: "/v1/immersions/gallery.json?lang=ja", expectedStatus: http.StatusOK, expectedNext: "Next"},
		{name: "missing", method: http.MethodGet, path: "/v1/immersions/attic.json", expectedStatus: http.StatusNotFound},
		{name: "traversal", method: http.MethodGet, path: "/v1/immersions/..%2Fsecret.json", expectedStatus: http.StatusBadRequest},
		{name: "wrong method", method: http.MethodPost, path: "/v1/immersions/gallery.json", expectedStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			require.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var resp ImmersionResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, "Gallery", resp.Name)
			assert.Equal(t, tt.expectedNext, resp.Texts["next"])
			assert.Len(t, resp.Waypoints, 3)
			require.Len(t, resp.Warnings, 1)
			assert.Contains(t, resp.Warnings[0], "mystery")
		})
	}
}
