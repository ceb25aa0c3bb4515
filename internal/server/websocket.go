package server

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/akritis/vigil/internal/events"
)

// wsWriteWait bounds each individual websocket write.
const wsWriteWait = 10 * time.Second

// handleEventsWebsocket handles GET /api/events/ws requests. It mirrors the
// SSE stream over a websocket for clients that prefer a bidirectional
// transport; inbound messages are read and discarded.
func (s *Server) handleEventsWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to accept websocket connection")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	s.log.Info().Msg("Client connected to websocket event stream")

	// Create event channel for this connection
	eventChan := make(chan *events.Event, 100) // Buffer to prevent blocking

	eventHandler := func(event *events.Event) {
		// Non-blocking send (drop if channel full)
		select {
		case eventChan <- event:
		default:
			s.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}

	for _, eventType := range events.AllTypes() {
		s.bus.Subscribe(eventType, eventHandler)
	}

	// Drain inbound frames so close frames and pings are processed.
	readCtx := conn.CloseRead(r.Context())

	if err := s.writeWS(readCtx, conn, map[string]interface{}{
		"type":    "connected",
		"message": "Connected to event stream",
	}); err != nil {
		return
	}

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-readCtx.Done():
			s.log.Info().Msg("Client disconnected from websocket event stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case event := <-eventChan:
			payload := map[string]interface{}{
				"type":      string(event.Type),
				"module":    event.Module,
				"timestamp": event.Timestamp.Format(time.RFC3339),
				"data":      event.Data,
			}
			if err := s.writeWS(readCtx, conn, payload); err != nil {
				s.log.Debug().Err(err).Msg("Websocket write failed, closing stream")
				return
			}

		case <-heartbeat.C:
			payload := map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now().Format(time.RFC3339),
			}
			if err := s.writeWS(readCtx, conn, payload); err != nil {
				s.log.Debug().Err(err).Msg("Websocket heartbeat failed, closing stream")
				return
			}
		}
	}
}

// writeWS sends one JSON text frame with a bounded write deadline.
func (s *Server) writeWS(ctx context.Context, conn *websocket.Conn, payload map[string]interface{}) error {
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteWait)
	defer cancel()

	return conn.Write(writeCtx, websocket.MessageText, []byte(s.encodeEvent(payload)))
}
