package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jwebster45206/immersion-engine/internal/runtime"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamHandler runs a presentation client over a WebSocket. Each inbound
// text frame is a runtime.Command; each outbound frame is a runtime.Message.
type StreamHandler struct {
	hub    SessionHub
	logger *slog.Logger
}

func NewStreamHandler(logger *slog.Logger, hub SessionHub) *StreamHandler {
	return &StreamHandler{hub: hub, logger: logger}
}

func (h *StreamHandler) serve(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	sess, err := h.hub.Get(r.Context(), sessionID)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("Failed to load session for stream", "session_id", sessionID.String(), "error", err)
			writeError(w, h.logger, status, "Failed to load session")
			return
		}
		writeError(w, h.logger, status, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "session_id", sessionID.String(), "error", err)
		return
	}
	logger := h.logger.With("session_id", sessionID.String())
	logger.Info("Stream connected", "remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outbound := make(chan []runtime.Message, 16)
	snap := sess.Snapshot()
	outbound <- []runtime.Message{{Type: runtime.MessageSnapshot, Snapshot: &snap}}

	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			var cmd runtime.Command
			if err := conn.ReadJSON(&cmd); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Warn("Stream read failed", "error", err)
				}
				return
			}

			res, err := h.hub.Apply(ctx, sessionID, cmd)
			msgs := res.Messages
			if err != nil {
				msgs = append(msgs, runtime.Message{Type: runtime.MessageError, Error: err.Error()})
			}
			if len(msgs) == 0 {
				continue
			}
			select {
			case outbound <- msgs:
			case <-ctx.Done():
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stream disconnected")
			return

		case msgs := <-outbound:
			for _, m := range msgs {
				_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
				if err := conn.WriteJSON(m); err != nil {
					logger.Warn("Stream write failed", "error", err)
					return
				}
			}

		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
