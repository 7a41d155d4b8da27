package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/immersion-engine/internal/runtime"
	"github.com/jwebster45206/immersion-engine/pkg/navigation"
	"github.com/jwebster45206/immersion-engine/pkg/progress"
	"github.com/jwebster45206/immersion-engine/pkg/session"
	"github.com/jwebster45206/immersion-engine/pkg/storage"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// SessionHub is the part of runtime.Hub the handlers need.
type SessionHub interface {
	Create(ctx context.Context, immersionFile string, cfg session.Config) (*runtime.Session, runtime.Result, error)
	Get(ctx context.Context, id uuid.UUID) (*runtime.Session, error)
	Apply(ctx context.Context, id uuid.UUID, cmd runtime.Command) (runtime.Result, error)
	End(ctx context.Context, id uuid.UUID) error
}

type SessionHandler struct {
	hub    SessionHub
	stream *StreamHandler
	logger *slog.Logger
}

func NewSessionHandler(logger *slog.Logger, hub SessionHub) *SessionHandler {
	return &SessionHandler{
		hub:    hub,
		stream: NewStreamHandler(logger, hub),
		logger: logger,
	}
}

// CreateSessionRequest defines the request body for starting a session.
// Fields match the deep-link query parameters.
type CreateSessionRequest struct {
	Immersion string `json:"immersion"` // Required: descriptor filename
	Lang      string `json:"lang,omitempty"`
	Dest      string `json:"dest,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Mute      *bool  `json:"mute,omitempty"` // Defaults to muted
}

// Config converts the request to a session configuration.
func (req CreateSessionRequest) Config() session.Config {
	cfg := session.Default()
	if req.Lang != "" {
		cfg.Lang = req.Lang
	}
	cfg.Dest = req.Dest
	if req.Mode != "" {
		cfg.Mode = session.ParseMode(req.Mode)
	}
	if req.Mute != nil {
		cfg.Mute = *req.Mute
	}
	return cfg.Normalize()
}

// ensureExtension adds .json when the filename has no descriptor extension
func ensureExtension(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	switch strings.ToLower(filepath.Ext(s)) {
	case ".json", ".toml":
		return s
	}
	return s + ".json"
}

// ServeHTTP handles HTTP requests for session operations
// Routes:
// POST /v1/sessions                 - Start a session
// GET /v1/sessions/{id}             - Read the session snapshot
// DELETE /v1/sessions/{id}          - End a session
// POST /v1/sessions/{id}/commands   - Apply one command
// GET /v1/sessions/{id}/ws          - WebSocket command stream
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions"), "/")
	parts := strings.Split(path, "/")

	if path == "" {
		w.Header().Set("Content-Type", "application/json")
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
			return
		}
		h.handleCreate(w, r)
		return
	}

	sessionID, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", parts[0], "error", err)
		w.Header().Set("Content-Type", "application/json")
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	if len(parts) == 2 && parts[1] == "ws" {
		h.stream.serve(w, r, sessionID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleRead(w, r, sessionID)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.handleDelete(w, r, sessionID)
	case len(parts) == 2 && parts[1] == "commands" && r.Method == http.MethodPost:
		h.handleCommand(w, r, sessionID)
	case len(parts) <= 2:
		h.logger.Warn("Method not allowed for session endpoint", "method", r.Method, "path", r.URL.Path)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	req.Immersion = ensureExtension(req.Immersion)
	if req.Immersion == "" {
		h.logger.Warn("Missing required field: immersion")
		writeError(w, h.logger, http.StatusBadRequest, "immersion field is required")
		return
	}

	_, res, err := h.hub.Create(r.Context(), req.Immersion, req.Config())
	if err != nil {
		h.writeHubError(w, err, "Failed to create session")
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, res)
}

func (h *SessionHandler) handleRead(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	sess, err := h.hub.Get(r.Context(), sessionID)
	if err != nil {
		h.writeHubError(w, err, "Failed to load session")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, sess.Snapshot())
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	if err := h.hub.End(r.Context(), sessionID); err != nil {
		h.writeHubError(w, err, "Failed to end session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) handleCommand(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	var cmd runtime.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	res, err := h.hub.Apply(r.Context(), sessionID, cmd)
	if err != nil {
		h.writeHubError(w, err, "Failed to apply command")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, res)
}

func (h *SessionHandler) writeHubError(w http.ResponseWriter, err error, fallback string) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error(fallback, "error", err)
		msg = fallback
	} else {
		h.logger.Debug("Session request rejected", "error", err, "status", status)
	}
	writeError(w, h.logger, status, msg)
}

// statusFor maps runtime and core errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, runtime.ErrSessionNotFound),
		errors.Is(err, storage.ErrImmersionNotFound):
		return http.StatusNotFound
	case errors.Is(err, runtime.ErrUnknownCommand),
		errors.Is(err, runtime.ErrInvalidCommand):
		return http.StatusBadRequest
	case errors.Is(err, navigation.ErrLinkNotEnterable),
		errors.Is(err, navigation.ErrNotALink),
		errors.Is(err, navigation.ErrUnknownWaypoint),
		errors.Is(err, runtime.ErrLockableOutOfScope),
		errors.Is(err, progress.ErrUnknownHandle):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: msg}); err != nil {
		logger.Error("Failed to encode error response", "error", err)
	}
}
